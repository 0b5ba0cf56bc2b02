package machine

// Bool is the type of a boolean value.
type Bool bool

const (
	False = Bool(false)
	True  = Bool(true)
)

var (
	_ Value    = False
	_ HasEqual = False
)

func (b Bool) String() string {
	if b {
		return "true"
	}
	return "false"
}

func (b Bool) Type() string { return "bool" }

func (b Bool) Equals(y Value) (bool, error) {
	yb, ok := y.(Bool)
	return ok && b == yb, nil
}

// Truth reports whether v should be treated as true in a boolean context
// (an "if", "while" or "and"/"or" condition). Nil and False are falsy; every
// other value, including zero numbers and empty collections, is truthy.
func Truth(v Value) Bool {
	switch v := v.(type) {
	case NilType:
		return False
	case Bool:
		return v
	default:
		return True
	}
}

func init() {
	Universe["nil"] = Nil
	Universe["true"] = True
	Universe["false"] = False
}
