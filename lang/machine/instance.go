package machine

import "fmt"

// An Instance is a runtime object created by calling a Class. Its fields are
// dynamic: any name may be read once set, matching the dynamically-typed
// field access of the rest of the language (there is no declared-field-list
// restriction at the Instance level, only at the Class level, which merely
// supplies defaults).
type Instance struct {
	class  *Class
	fields map[string]Value

	frozen    bool
	singleton *Class
}

var (
	_ Value       = (*Instance)(nil)
	_ HasAttrs    = (*Instance)(nil)
	_ HasSetField = (*Instance)(nil)
	_ Freezable   = (*Instance)(nil)
)

func (i *Instance) String() string { return fmt.Sprintf("<%s instance>", i.class.Name()) }
func (i *Instance) Type() string   { return i.class.Name() }

// Class returns the instance's class, e.g. for the "classof" builtin.
func (i *Instance) Class() *Class { return i.class }

// Freeze marks the instance frozen: subsequent field assignment through
// SetField or the "[]=" array-like opcodes is rejected.
func (i *Instance) Freeze()      { i.frozen = true }
func (i *Instance) Frozen() bool { return i.frozen }

// lookupClass returns the class method/getter/setter resolution starts at:
// the instance's lazily-created singleton class if it has one, its real
// class otherwise. The singleton's Super is always the instance's real
// class, so a single ancestor walk from lookupClass's result implements the
// full "singleton, then class (with included modules), then superclass
// chain" resolution order without any call site needing a separate
// singleton-specific branch.
func (i *Instance) lookupClass() *Class {
	if i.singleton != nil {
		return i.singleton
	}
	return i.class
}

// ensureSingleton lazily creates and returns the instance's singleton class,
// a class private to this one instance whose Super is the instance's real
// class. Defining a method on it (via Class.defineMethod) customizes the
// behavior of this instance alone.
func (i *Instance) ensureSingleton(th *Thread) *Class {
	if i.singleton == nil {
		i.singleton = &Class{
			name:    "#<Class:" + i.class.Name() + ">",
			Super:   i.class,
			methods: make(map[string]*Function),
			getters: make(map[string]*Function),
			setters: make(map[string]*Function),
		}
		th.gcTrack(i.singleton)
	}
	return i.singleton
}

// Attr first handles the built-in names freeze, frozen and singletonClass,
// then looks up name among the instance's own fields, then among its
// class's (and ancestors', and singleton's) methods, the latter returned as
// a BoundMethod. Getter dispatch (which requires invoking a user-defined
// function, hence a *Thread) is handled separately by attrValue, called
// directly from the ATTR opcode instead of through this interface method.
func (i *Instance) Attr(name string) (Value, error) {
	switch name {
	case "freeze":
		return NewBuiltin("freeze", func(th *Thread, args *Tuple) (Value, error) {
			i.Freeze()
			return i, nil
		}), nil
	case "frozen":
		return Bool(i.frozen), nil
	case "singletonClass":
		return NewBuiltin("singletonClass", func(th *Thread, args *Tuple) (Value, error) {
			return i.ensureSingleton(th), nil
		}), nil
	}
	if v, ok := i.fields[name]; ok {
		return v, nil
	}
	if fn, _ := i.lookupClass().FindMethod(name); fn != nil {
		return &BoundMethod{Recv: i, Method: fn}, nil
	}
	return nil, nil
}

func (i *Instance) AttrNames() []string {
	names := make([]string, 0, len(i.fields)+3)
	names = append(names, "freeze", "frozen", "singletonClass")
	for name := range i.fields {
		names = append(names, name)
	}
	for cur := i.lookupClass(); cur != nil; cur = cur.Super {
		for name := range cur.methods {
			names = append(names, name)
		}
	}
	return names
}

// SetField assigns to an instance field, creating it if it didn't already
// exist (either as a declared field with a default, or dynamically). It
// rejects the write if the instance is frozen. Setter dispatch is handled
// separately by setFieldValue, called directly from the SETFIELD opcode.
func (i *Instance) SetField(name string, val Value) error {
	if i.frozen {
		return fmt.Errorf("cannot set field %q: %s instance is frozen", name, i.class.Name())
	}
	if i.fields == nil {
		i.fields = make(map[string]Value)
	}
	i.fields[name] = val
	return nil
}

// attrValue implements the ATTR opcode for an Instance receiver: a getter
// declared on the class chain (a "get_name" method) takes priority over a
// plain field, matching spec's "assignment first tries a setter" symmetry
// for reads. It needs th because invoking a getter calls a Function.
func attrValue(th *Thread, i *Instance, name string) (Value, error) {
	if getter, _ := i.lookupClass().FindGetter(name); getter != nil {
		bound := &BoundMethod{Recv: i, Method: getter}
		th.gcTrack(bound)
		return bound.CallInternal(th, NilaryTuple)
	}
	return i.Attr(name)
}

// setFieldValue implements the SETFIELD opcode for an Instance receiver: a
// setter declared on the class chain (a "set_name" method) is tried first;
// otherwise the value is written to the field unless the instance is
// frozen, in which case the assignment throws.
func setFieldValue(th *Thread, i *Instance, name string, v Value) error {
	if setter, _ := i.lookupClass().FindSetter(name); setter != nil {
		bound := &BoundMethod{Recv: i, Method: setter}
		th.gcTrack(bound)
		_, err := bound.CallInternal(th, NewTuple([]Value{v}))
		return err
	}
	return i.SetField(name, v)
}
