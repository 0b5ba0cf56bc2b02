package resolver

// A block represents a lexical block: the module top-level, a function body,
// a class body, or any nested statement block (if/for/do/defer/catch...).
// Blocks form a tree via parent/children, mirroring the nesting of the
// source, and each block belongs to the Function it is declared within.
type block struct {
	fn           *Function
	parent       *block
	children     []*block
	bindings     map[string]*Binding
	isDeferCatch bool // true for the body of a defer or catch block

	// name is only populated when ResolveFiles is called with NameBlocks.
	name string
}
