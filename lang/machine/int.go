package machine

import "strconv"

// Int is the type of an integer number.
type Int int64

var (
	_ Value   = Int(0)
	_ Ordered = Int(0)
)

func (i Int) String() string { return strconv.FormatInt(int64(i), 10) }
func (i Int) Type() string   { return "int" }

// Cmp implements comparison of an Int against another Int or a Float.
func (i Int) Cmp(v Value) (int, error) {
	switch v := v.(type) {
	case Int:
		switch {
		case i < v:
			return -1, nil
		case i > v:
			return +1, nil
		default:
			return 0, nil
		}
	case Float:
		return floatCmp(Float(i), v), nil
	}
	return 0, typeError("compare", i, v)
}
