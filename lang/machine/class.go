package machine

import "fmt"

// A Class is a runtime value produced by evaluating a class literal: calling
// the "class" builtin (see classBuiltin) with the class name, the superclass
// (or Nil), and maps of method closures and field default expressions. It is
// itself Callable: calling a Class constructs and initializes an Instance.
//
// Methods named with a "get_" or "set_" prefix are split out of methods at
// construction time into getters/setters, dispatched by the ATTR/SETFIELD
// opcodes before falling back to a plain field read or write (see
// Instance.attrValue/setFieldValue). A module (isModule true) is a Class that
// cannot be instantiated or subclassed; it exists only to be mixed into
// another class's method-resolution chain via include, recorded as an
// element of includes.
type Class struct {
	name  string
	Super *Class

	methods       map[string]*Function
	getters       map[string]*Function
	setters       map[string]*Function
	fieldDefaults map[string]Value
	constants     map[string]Value

	isModule bool
	includes []*Class
}

var (
	_ Value       = (*Class)(nil)
	_ Callable    = (*Class)(nil)
	_ HasAttrs    = (*Class)(nil)
	_ HasSetField = (*Class)(nil)
)

func (c *Class) String() string { return fmt.Sprintf("<class %s>", c.name) }
func (c *Class) Type() string   { return "class" }
func (c *Class) Name() string   { return c.name }

// find walks c's own table (via tableOf), then its included modules' tables,
// then recurses into Super, implementing the resolution order of spec'd
// method/getter/setter lookup: own class (with included modules interposed)
// before the superclass chain. It returns the entry and the class that owns
// it, or (nil, nil) if no ancestor declares it.
func (c *Class) find(tableOf func(*Class) map[string]*Function, name string) (*Function, *Class) {
	for cur := c; cur != nil; cur = cur.Super {
		if fn, ok := tableOf(cur)[name]; ok {
			return fn, cur
		}
		for _, mod := range cur.includes {
			if fn, owner := mod.find(tableOf, name); fn != nil {
				return fn, owner
			}
		}
	}
	return nil, nil
}

// FindMethod walks c, its included modules, and its ancestors looking for a
// method named name, returning the method and the class that declares it.
func (c *Class) FindMethod(name string) (*Function, *Class) {
	return c.find(func(cl *Class) map[string]*Function { return cl.methods }, name)
}

// FindGetter is FindMethod for the getter table (methods originally named
// "get_<name>").
func (c *Class) FindGetter(name string) (*Function, *Class) {
	return c.find(func(cl *Class) map[string]*Function { return cl.getters }, name)
}

// FindSetter is FindMethod for the setter table (methods originally named
// "set_<name>").
func (c *Class) FindSetter(name string) (*Function, *Class) {
	return c.find(func(cl *Class) map[string]*Function { return cl.setters }, name)
}

// findOwner walks the ancestor chain starting at c looking for the class
// literally named name, used to resume a "super" lookup at the superclass of
// the method's declaring class (see Funcode.OwnerClassName).
func (c *Class) findOwner(name string) *Class {
	for cur := c; cur != nil; cur = cur.Super {
		if cur.name == name {
			return cur
		}
	}
	return nil
}

// IsOrInherits reports whether c is name or inherits (directly or
// transitively) from a class named name. Used to match a thrown error's
// class against a catch clause's class filter.
func (c *Class) IsOrInherits(name string) bool {
	return c.findOwner(name) != nil
}

// collectFieldDefaults gathers the field default values from c and its
// ancestors, base classes first so that a subclass's own field declaration
// (of the same name) takes precedence.
func (c *Class) collectFieldDefaults() map[string]Value {
	var chain []*Class
	for cur := c; cur != nil; cur = cur.Super {
		chain = append(chain, cur)
	}
	fields := make(map[string]Value)
	for i := len(chain) - 1; i >= 0; i-- {
		for name, v := range chain[i].fieldDefaults {
			fields[name] = v
		}
	}
	return fields
}

// CallInternal constructs a new Instance of c: its fields are seeded with
// the class's (and its ancestors') field defaults, then the "init" method,
// if any, is invoked on it with args. A module cannot be instantiated.
func (c *Class) CallInternal(th *Thread, args *Tuple) (Value, error) {
	if c.isModule {
		return nil, fmt.Errorf("module %s cannot be instantiated", c.name)
	}
	inst := &Instance{
		class:  c,
		fields: c.collectFieldDefaults(),
	}
	th.gcTrack(inst)
	init, _ := c.FindMethod("init")
	if init == nil {
		if args.Len() > 0 {
			return nil, fmt.Errorf("class %s accepts no constructor arguments (%d given)", c.name, args.Len())
		}
		return inst, nil
	}
	bound := &BoundMethod{Recv: inst, Method: init}
	if _, err := bound.CallInternal(th, args); err != nil {
		return nil, err
	}
	return inst, nil
}

// Attr exposes a handful of native methods on the class value itself (as
// opposed to on its instances): "include" mixes a module's method table into
// the class's resolution chain, and "defineMethod" adds or replaces a single
// method after the fact, e.g. for dynamic reopening of a class.
func (c *Class) Attr(name string) (Value, error) {
	switch name {
	case "include":
		return NewBuiltin("include", c.includeBuiltin), nil
	case "defineMethod":
		return NewBuiltin("defineMethod", c.defineMethodBuiltin), nil
	}
	if v, ok := c.constants[name]; ok {
		return v, nil
	}
	return nil, nil
}

func (c *Class) AttrNames() []string {
	names := []string{"include", "defineMethod"}
	for name := range c.constants {
		names = append(names, name)
	}
	return names
}

// SetField writes a class-level constant, accessible as Class.NAME from
// anywhere the class itself is in scope, distinct from an Instance's fields
// (seeded per-instance from fieldDefaults).
func (c *Class) SetField(name string, v Value) error {
	if c.constants == nil {
		c.constants = make(map[string]Value)
	}
	c.constants[name] = v
	return nil
}

func (c *Class) includeBuiltin(th *Thread, args *Tuple) (Value, error) {
	if err := requireArgs("include", args, 1); err != nil {
		return nil, err
	}
	mod, ok := args.Index(0).(*Class)
	if !ok || !mod.isModule {
		return nil, fmt.Errorf("include: argument must be a module, got %s", args.Index(0).Type())
	}
	c.includes = append(c.includes, mod)
	return c, nil
}

func (c *Class) defineMethodBuiltin(th *Thread, args *Tuple) (Value, error) {
	if err := requireArgs("defineMethod", args, 2); err != nil {
		return nil, err
	}
	name, ok := args.Index(0).(String)
	if !ok {
		return nil, fmt.Errorf("defineMethod: name must be a string, got %s", args.Index(0).Type())
	}
	fn, ok := args.Index(1).(*Function)
	if !ok {
		return nil, fmt.Errorf("defineMethod: method must be a function, got %s", args.Index(1).Type())
	}
	if c.methods == nil {
		c.methods = make(map[string]*Function)
	}
	c.methods[string(name)] = fn
	return c, nil
}

// splitMethods partitions a class literal's raw method map into regular
// methods, getters ("get_" prefix) and setters ("set_" prefix), stripping
// the prefix from the stored name.
func splitMethods(raw map[string]*Function) (methods, getters, setters map[string]*Function) {
	methods = make(map[string]*Function)
	getters = make(map[string]*Function)
	setters = make(map[string]*Function)
	for name, fn := range raw {
		switch {
		case len(name) > 4 && name[:4] == "get_":
			getters[name[4:]] = fn
		case len(name) > 4 && name[:4] == "set_":
			setters[name[4:]] = fn
		default:
			methods[name] = fn
		}
	}
	return methods, getters, setters
}

// classBuiltin implements the "class" universal builtin that class literals
// compile to (see compiler.classExpr): it receives the class name, the
// superclass value (a *Class, or Nil for no superclass), a map of method
// name to closure, and a map of field name to default value expression.
func classBuiltin(th *Thread, args *Tuple) (Value, error) {
	if err := requireArgs("class", args, 4); err != nil {
		return nil, err
	}
	name, ok := args.Index(0).(String)
	if !ok {
		return nil, fmt.Errorf("class: name must be a string, got %s", args.Index(0).Type())
	}

	var super *Class
	if sv := args.Index(1); sv != Nil {
		sc, ok := sv.(*Class)
		if !ok {
			return nil, fmt.Errorf("class %s: superclass must be a class, got %s", name, sv.Type())
		}
		if sc.isModule {
			return nil, fmt.Errorf("class %s: cannot inherit from module %s", name, sc.name)
		}
		super = sc
	}

	methodsMap, ok := args.Index(2).(*Map)
	if !ok {
		return nil, fmt.Errorf("internal error: class %s: methods must be a map", name)
	}
	raw := make(map[string]*Function)
	it := methodsMap.Iterate()
	defer it.Done()
	var pair Value
	for it.Next(&pair) {
		kv := pair.(*Tuple)
		k := string(kv.Index(0).(String))
		fn, ok := kv.Index(1).(*Function)
		if !ok {
			return nil, fmt.Errorf("internal error: class %s: method %s is not a function", name, k)
		}
		raw[k] = fn
	}
	methods, getters, setters := splitMethods(raw)

	fieldsMap, ok := args.Index(3).(*Map)
	if !ok {
		return nil, fmt.Errorf("internal error: class %s: fields must be a map", name)
	}
	fields := make(map[string]Value)
	it2 := fieldsMap.Iterate()
	defer it2.Done()
	for it2.Next(&pair) {
		kv := pair.(*Tuple)
		k := string(kv.Index(0).(String))
		fields[k] = kv.Index(1)
	}

	cls := &Class{
		name:          string(name),
		Super:         super,
		methods:       methods,
		getters:       getters,
		setters:       setters,
		fieldDefaults: fields,
	}
	th.gcTrack(cls)
	return cls, nil
}

// moduleBuiltin implements the "module" universal builtin: a module is a
// Class that cannot be instantiated or subclassed, built to be mixed into
// other classes via Class.include. It accepts the module name and a map of
// method name to closure, reusing the get_/set_ splitting convention so a
// module may also contribute getters/setters to whatever includes it.
func moduleBuiltin(th *Thread, args *Tuple) (Value, error) {
	if err := requireArgs("module", args, 2); err != nil {
		return nil, err
	}
	name, ok := args.Index(0).(String)
	if !ok {
		return nil, fmt.Errorf("module: name must be a string, got %s", args.Index(0).Type())
	}
	methodsMap, ok := args.Index(1).(*Map)
	if !ok {
		return nil, fmt.Errorf("internal error: module %s: methods must be a map", name)
	}
	raw := make(map[string]*Function)
	it := methodsMap.Iterate()
	defer it.Done()
	var pair Value
	for it.Next(&pair) {
		kv := pair.(*Tuple)
		k := string(kv.Index(0).(String))
		fn, ok := kv.Index(1).(*Function)
		if !ok {
			return nil, fmt.Errorf("internal error: module %s: method %s is not a function", name, k)
		}
		raw[k] = fn
	}
	methods, getters, setters := splitMethods(raw)

	mod := &Class{
		name:     string(name),
		methods:  methods,
		getters:  getters,
		setters:  setters,
		isModule: true,
	}
	th.gcTrack(mod)
	return mod, nil
}
