package machine

import "fmt"

// A BoundMethod pairs a method closure with the receiver it was looked up on
// (via instance attribute access, or "super.name"), so that calling it
// implicitly passes the receiver as the method's "this" (always local 0 of
// the method's Funcode, per resolver.function's synthetic binding).
type BoundMethod struct {
	Recv   Value
	Method *Function
}

var (
	_ Value    = (*BoundMethod)(nil)
	_ Callable = (*BoundMethod)(nil)
)

func (b *BoundMethod) String() string {
	return fmt.Sprintf("<bound method %s of %s>", b.Method.Name(), b.Recv.String())
}
func (b *BoundMethod) Type() string { return "bound method" }
func (b *BoundMethod) Name() string { return b.Method.Name() }

func (b *BoundMethod) CallInternal(th *Thread, args *Tuple) (Value, error) {
	elems := make([]Value, 0, args.Len()+1)
	elems = append(elems, b.Recv)
	for i := 0; i < args.Len(); i++ {
		elems = append(elems, args.Index(i))
	}
	return b.Method.CallInternal(th, NewTuple(elems))
}
