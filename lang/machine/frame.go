package machine

import (
	"github.com/loxcore/loxcore/lang/ast"
)

// Frame records a call to a Callable value (including module toplevel) or a
// built-in function or method.
type Frame struct {
	callable Value  // current function (or toplevel) or callable
	pc       uint32 // program counter (non built-in only)
	space    []Value // this frame's locals+operand stack, for GC root scanning
}

// Callable returns the value being executed by this frame.
func (fr *Frame) Callable() Value { return fr.callable }

// Position returns the source position of the current point of execution in
// this frame.
func (fr *Frame) Position() ast.Position {
	switch c := fr.callable.(type) {
	case *Function:
		return c.Funcode.Position(fr.pc)
	case callableWithPosition:
		// If a built-in Callable defines a Position method, use it.
		return c.Position()
	}
	return ast.MakePosition(&builtinFilename, 0, 0)
}

type callableWithPosition interface {
	Callable
	Position() ast.Position
}

var builtinFilename = "<builtin>"
