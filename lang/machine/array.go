package machine

import "fmt"

// An Array is a mutable, ordered sequence of values, the counterpart of a
// Tuple for the APPEND/SLICE/SETINDEX opcodes.
type Array struct {
	elems  []Value
	frozen bool
}

var (
	_ Value       = (*Array)(nil)
	_ Indexable   = (*Array)(nil)
	_ HasSetIndex = (*Array)(nil)
	_ Iterable    = (*Array)(nil)
	_ Sequence    = (*Array)(nil)
	_ Freezable   = (*Array)(nil)
)

// NewArray returns an array containing the given elements. Callers should not
// subsequently modify elems directly; use the array's methods instead.
func NewArray(elems []Value) *Array { return &Array{elems: elems} }

func (a *Array) String() string    { return fmt.Sprintf("array(%p)", a) }
func (a *Array) Type() string      { return "array" }
func (a *Array) Len() int          { return len(a.elems) }
func (a *Array) Index(i int) Value { return a.elems[i] }

// Freeze marks the array frozen: subsequent SetIndex/Append calls fail.
func (a *Array) Freeze()      { a.frozen = true }
func (a *Array) Frozen() bool { return a.frozen }

func (a *Array) SetIndex(i int, v Value) error {
	if a.frozen {
		return fmt.Errorf("cannot set index: array is frozen")
	}
	a.elems[i] = v
	return nil
}

func (a *Array) Append(v Value) error {
	if a.frozen {
		return fmt.Errorf("cannot append: array is frozen")
	}
	a.elems = append(a.elems, v)
	return nil
}

func (a *Array) Slice(lo, hi, step int) (*Array, error) {
	if step == 0 {
		return nil, fmt.Errorf("slice step cannot be zero")
	}
	if step == 1 {
		elems := make([]Value, hi-lo)
		copy(elems, a.elems[lo:hi])
		return NewArray(elems), nil
	}
	var elems []Value
	if step > 0 {
		for i := lo; i < hi; i += step {
			elems = append(elems, a.elems[i])
		}
	} else {
		for i := lo; i > hi; i += step {
			elems = append(elems, a.elems[i])
		}
	}
	return NewArray(elems), nil
}

func (a *Array) Iterate() Iterator { return &arrayIterator{a: a} }

type arrayIterator struct {
	a *Array
	i int
}

func (it *arrayIterator) Next(p *Value) bool {
	if it.i >= len(it.a.elems) {
		return false
	}
	*p = it.a.elems[it.i]
	it.i++
	return true
}

func (it *arrayIterator) Done() {}
