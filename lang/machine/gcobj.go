package machine

import "github.com/loxcore/loxcore/lang/gc"

// This file wires the language's runtime values into lang/gc's tracked
// heap: each type below reports its Kind and its outgoing references so a
// Collector can blacken it during mark. Go's own allocator still owns the
// memory; gc.Collector only mirrors the liveness bookkeeping the bytecode
// machine would otherwise have to do for itself.
//
// String is deliberately not tracked: Go strings compare equal by content,
// not identity, so two distinct allocations of "foo" would collide as the
// same free-list slot under gc.Collector's identity-keyed header lookup.
// Interning would fix this but isn't part of the current data model.

var (
	_ gc.Object = (*Array)(nil)
	_ gc.Object = (*Map)(nil)
	_ gc.Object = (*Instance)(nil)
	_ gc.Object = (*Class)(nil)
	_ gc.Object = (*Function)(nil)
	_ gc.Object = (*BoundMethod)(nil)
	_ gc.Object = (*Tuple)(nil)
	_ gc.Object = (*cell)(nil)
	_ gc.Object = (*Regex)(nil)
)

func (a *Array) GCKind() gc.Kind { return gc.KindArray }

func (a *Array) GCRefs(refs []gc.Object) []gc.Object {
	for _, v := range a.elems {
		if o, ok := v.(gc.Object); ok {
			refs = append(refs, o)
		}
	}
	return refs
}

func (m *Map) GCKind() gc.Kind { return gc.KindMap }

func (m *Map) GCRefs(refs []gc.Object) []gc.Object {
	it := m.Iterate()
	defer it.Done()
	var pair Value
	for it.Next(&pair) {
		kv := pair.(*Tuple)
		if o, ok := kv.Index(0).(gc.Object); ok {
			refs = append(refs, o)
		}
		if o, ok := kv.Index(1).(gc.Object); ok {
			refs = append(refs, o)
		}
	}
	return refs
}

func (i *Instance) GCKind() gc.Kind { return gc.KindInstance }

func (i *Instance) GCRefs(refs []gc.Object) []gc.Object {
	refs = append(refs, i.class)
	if i.singleton != nil {
		refs = append(refs, i.singleton)
	}
	for _, v := range i.fields {
		if o, ok := v.(gc.Object); ok {
			refs = append(refs, o)
		}
	}
	return refs
}

func (c *Class) GCKind() gc.Kind { return gc.KindClass }

func (c *Class) GCRefs(refs []gc.Object) []gc.Object {
	if c.Super != nil {
		refs = append(refs, c.Super)
	}
	for _, mod := range c.includes {
		refs = append(refs, mod)
	}
	for _, fn := range c.methods {
		refs = append(refs, fn)
	}
	for _, fn := range c.getters {
		refs = append(refs, fn)
	}
	for _, fn := range c.setters {
		refs = append(refs, fn)
	}
	for _, v := range c.fieldDefaults {
		if o, ok := v.(gc.Object); ok {
			refs = append(refs, o)
		}
	}
	for _, v := range c.constants {
		if o, ok := v.(gc.Object); ok {
			refs = append(refs, o)
		}
	}
	return refs
}

// GCKind reports Function as a closure: every Function value carries its
// (possibly empty) captured Freevars tuple, the same thing a language with
// a separate closure/function-prototype split would call a closure.
func (fn *Function) GCKind() gc.Kind { return gc.KindClosure }

func (fn *Function) GCRefs(refs []gc.Object) []gc.Object {
	if fn.Freevars != nil {
		refs = append(refs, fn.Freevars)
	}
	return refs
}

func (b *BoundMethod) GCKind() gc.Kind { return gc.KindBoundMethod }

func (b *BoundMethod) GCRefs(refs []gc.Object) []gc.Object {
	if o, ok := b.Recv.(gc.Object); ok {
		refs = append(refs, o)
	}
	refs = append(refs, b.Method)
	return refs
}

// GCKind reports Tuple under the same Kind as Array: both are flat,
// ordered element sequences and sweep treats them identically.
func (t *Tuple) GCKind() gc.Kind { return gc.KindArray }

func (t *Tuple) GCRefs(refs []gc.Object) []gc.Object {
	for _, v := range t.elems {
		if o, ok := v.(gc.Object); ok {
			refs = append(refs, o)
		}
	}
	return refs
}

// GCKind reports cell as an upvalue box, the role it plays for nested
// closures capturing a shared local.
func (c *cell) GCKind() gc.Kind { return gc.KindUpvalue }

func (c *cell) GCRefs(refs []gc.Object) []gc.Object {
	if o, ok := c.v.(gc.Object); ok {
		refs = append(refs, o)
	}
	return refs
}

func (r *Regex) GCKind() gc.Kind             { return gc.KindRegex }
func (r *Regex) GCRefs(refs []gc.Object) []gc.Object { return refs }

// gcTrack registers obj with the thread's collector, if one is configured,
// and lets the collector's stress/threshold policy decide whether this
// allocation should trigger a collection. A Thread with no GC configured
// (the common case: collection is opt-in via --stress-gc/--disable-gc
// wiring) pays nothing beyond this nil check.
func (th *Thread) gcTrack(obj gc.Object) {
	if th.GC == nil {
		return
	}
	th.GC.MaybeCollect(th.gcRoots())
	th.GC.Alloc(obj)
}

// gcRoots walks the thread's live call frames, collecting every tracked
// object still reachable from a frame's locals+operand-stack space. This
// is the gray-stack seed a mark phase starts from.
func (th *Thread) gcRoots() []gc.Object {
	var roots []gc.Object
	for _, fr := range th.callStack {
		for _, v := range fr.space {
			if o, ok := v.(gc.Object); ok && v != nil {
				roots = append(roots, o)
			}
		}
	}
	return roots
}
