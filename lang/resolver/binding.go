package resolver

import (
	"fmt"

	"github.com/loxcore/loxcore/lang/ast"
)

// The Scope of Binding indicates what kind of scope it has.
type Scope uint8

const (
	Undefined   Scope = iota // name is not defined
	Local                    // name is local to its function
	Cell                     // name is function-local but shared with a nested function
	Free                     // name is cell of some enclosing function
	Predeclared              // name is predeclared for this module (provided to its environment)
	Universal                // name is universal (a language built-in)
	Label                    // name is a goto label local to its function
	LoopLabel                // name is a goto label marking a loop, valid as a break/continue target
	SuperRecv                // the "super" pseudo-identifier, only valid as super.name inside a method
)

var scopeNames = [...]string{
	Undefined:   "undefined",
	Local:       "local",
	Cell:        "cell",
	Free:        "free",
	Predeclared: "predeclared",
	Universal:   "universal",
	Label:       "label",
	LoopLabel:   "loop label",
	SuperRecv:   "super receiver",
}

func (s Scope) String() string {
	if int(s) >= len(scopeNames) {
		return fmt.Sprintf("<invalid Scope %d>", s)
	}
	return scopeNames[s]
}

// A Binding contains resolver information about an identifier. The resolver
// creates a binding for each declaration and it ties together all identifiers
// that denote the same variable.
type Binding struct {
	Scope Scope

	// Index records the index into the enclosing
	// - function's Locals, if Scope==Local or Cell
	// - function's FreeVars, if Scope==Free
	// - function's Labels, if Scope==Label or LoopLabel
	// It is zero if Scope is Predeclared, Universal, or Undefined.
	Index int

	// Const reports whether this binding was declared with a const
	// declaration and may not be reassigned.
	Const bool

	// Decl is the identifier that declares this binding.
	Decl *ast.IdentExpr

	// BlockName is set by ResolveFiles when called with the NameBlocks mode,
	// identifying the block in which this binding was declared.
	BlockName string
}

// A Function records everything the resolver learns about a single function
// (or the module's top-level chunk, or a class body): its local variables,
// the free variables it captures from enclosing functions, and its goto
// label targets.
type Function struct {
	Definition ast.Node   // can be *Chunk, *ClassStmt, *ClassExpr, *FuncStmt or *FuncExpr
	Locals     []*Binding // this function's local/cell variables, parameters first
	FreeVars   []*Binding // enclosing cells to capture in closure
	Labels     []*Binding // this function's goto label targets
	HasVarArg  bool

	// IsMethod reports whether this function is a class method body, which
	// gets an implicit "this" bound as its first local (see r.function) and
	// is the only place "super.name" is a valid expression.
	IsMethod bool

	// loops, defers and catches count how many of each construct currently
	// enclose the block being resolved, to validate return/break/continue.
	loops, defers, catches int
}
