package machine

import "fmt"

// A Builtin is a Value that wraps a native Go function so it can be called
// like any other Callable from interpreted code, the way "class" and "throw"
// are: compiled to a UNIVERSAL lookup followed by a CALL.
type Builtin struct {
	name string
	fn   func(th *Thread, args *Tuple) (Value, error)
}

var (
	_ Value    = (*Builtin)(nil)
	_ Callable = (*Builtin)(nil)
)

// NewBuiltin returns a Builtin named name, implemented by fn.
func NewBuiltin(name string, fn func(th *Thread, args *Tuple) (Value, error)) *Builtin {
	return &Builtin{name: name, fn: fn}
}

func (b *Builtin) String() string { return fmt.Sprintf("<builtin %s>", b.name) }
func (b *Builtin) Type() string   { return "builtin" }
func (b *Builtin) Name() string   { return b.name }
func (b *Builtin) CallInternal(th *Thread, args *Tuple) (Value, error) {
	return b.fn(th, args)
}

// requireArgs returns an error unless args has exactly n elements.
func requireArgs(name string, args *Tuple, n int) error {
	if args.Len() != n {
		return fmt.Errorf("%s: expected %d argument(s), got %d", name, n, args.Len())
	}
	return nil
}
