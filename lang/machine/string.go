package machine

import "strconv"

// String is the type of a string value. Strings are immutable sequences of
// bytes; iterating over one yields single-byte Strings in order.
type String string

var (
	_ Value     = String("")
	_ Ordered   = String("")
	_ Indexable = String("")
	_ Sequence  = String("")
	_ Iterable  = String("")
)

func (s String) String() string { return strconv.Quote(string(s)) }
func (s String) Type() string   { return "string" }

func (s String) Cmp(v Value) (int, error) {
	o, ok := v.(String)
	if !ok {
		return 0, typeError("compare", s, v)
	}
	switch {
	case s < o:
		return -1, nil
	case s > o:
		return +1, nil
	default:
		return 0, nil
	}
}

func (s String) Len() int { return len(s) }

func (s String) Index(i int) Value { return String(s[i : i+1]) }

func (s String) Iterate() Iterator { return &stringIterator{s: string(s)} }

type stringIterator struct{ s string }

func (it *stringIterator) Next(p *Value) bool {
	if it.s == "" {
		return false
	}
	*p = String(it.s[:1])
	it.s = it.s[1:]
	return true
}

func (it *stringIterator) Done() {}
