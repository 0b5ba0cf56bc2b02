package machine

import "fmt"

// createIterator dispatches a foreach/unpack iteration the way ITERPUSH and
// UNPACK need it to: built-in Iterable values use their own Iterate method.
// An Instance first tries an "iter" method -- if it returns an Array/Map (or
// anything else built-in-Iterable), that result is iterated; if it returns
// an Iterator already, that is adopted directly. Lacking "iter", an instance
// whose class defines "iterNext" is wrapped in a delegating iterator that
// calls it with no arguments each step, treating a Nil result as exhaustion.
func createIterator(th *Thread, x Value) (Iterator, error) {
	if inst, ok := x.(*Instance); ok {
		return createInstanceIterator(th, inst)
	}
	if it := Iterate(x); it != nil {
		return it, nil
	}
	return nil, fmt.Errorf("%s value is not iterable", x.Type())
}

func createInstanceIterator(th *Thread, inst *Instance) (Iterator, error) {
	if method, _ := inst.Class().FindMethod("iter"); method != nil {
		bound := &BoundMethod{Recv: inst, Method: method}
		v, err := bound.CallInternal(th, NilaryTuple)
		if err != nil {
			return nil, err
		}
		if it, ok := v.(Iterator); ok {
			return it, nil
		}
		if it := Iterate(v); it != nil {
			return it, nil
		}
		return nil, fmt.Errorf("%s value's iter() did not return an iterable or iterator", inst.Type())
	}
	if method, _ := inst.Class().FindMethod("iterNext"); method != nil {
		return &methodIterator{th: th, recv: inst, method: method}, nil
	}
	return nil, fmt.Errorf("%s value is not iterable", inst.Type())
}

// methodIterator adapts an instance's "iterNext" method to the Iterator
// interface: called with no arguments on each step, a Nil return means the
// iteration is exhausted. A runtime error from the method itself is latched
// and surfaced via Err, which callers (see ITERJMP) check once Next reports
// exhaustion.
type methodIterator struct {
	th     *Thread
	recv   *Instance
	method *Function
	err    error
}

func (it *methodIterator) Next(p *Value) bool {
	if it.err != nil {
		return false
	}
	bound := &BoundMethod{Recv: it.recv, Method: it.method}
	v, err := bound.CallInternal(it.th, NilaryTuple)
	if err != nil {
		it.err = err
		return false
	}
	if v == Nil {
		return false
	}
	*p = v
	return true
}

func (it *methodIterator) Done() {}

// Err returns any error raised by the wrapped iterNext method, observed
// after Next has returned false.
func (it *methodIterator) Err() error { return it.err }
