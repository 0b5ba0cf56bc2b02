package compiler

import (
	"sync"

	"github.com/loxcore/loxcore/lang/ast"
	"github.com/loxcore/loxcore/lang/token"
)

// Position is a resolved source position attached to a Funcode or Binding. It
// is captured once, at compile time, from a token.Pos and its token.File, so
// that the compiled program no longer needs the FileSet to report locations.
type Position struct {
	Filename string
	Line     int
	Col      int
}

func (p Position) toAST() ast.Position {
	return ast.MakePosition(&p.Filename, p.Line, p.Col)
}

// positionFromTokenPos resolves pos using file into a self-contained Position.
func positionFromTokenPos(file *token.File, pos token.Pos) Position {
	if file == nil || pos == token.NoPos {
		return Position{}
	}
	p := file.Position(pos)
	return Position{Filename: p.Filename, Line: p.Line, Col: p.Column}
}

// A Binding describes a named local, freevar or load entry along with the
// source position of its declaration, for tracing and disassembly.
type Binding struct {
	Name string
	Pos  Position
}

// A Defer describes a protected block of code: a defer or catch statement
// covers instructions in [PC0, PC1) and its body starts at StartPC.
type Defer struct {
	PC0, PC1 uint32
	StartPC  uint32

	// Class, if non-empty, restricts a catch to errors whose runtime class is
	// Class or a subclass of it (empty means catch anything, as a plain
	// "catch .. end" does). Always empty for a Defer.
	//
	// A bound catch variable ("catch (Class err) .. end") is not tracked
	// here: the compiler emits a GETTHROWN+SETLOCAL prologue as the first
	// instructions at StartPC, so the bytecode is self-contained.
	Class string
}

// Covers reports whether pc falls within the range of code guarded by d. A
// negative pc (used to represent a function-level exit, e.g. a RETURN or the
// fall-through end of a function) is never covered.
func (d Defer) Covers(pc int64) bool {
	return pc >= 0 && pc >= int64(d.PC0) && pc < int64(d.PC1)
}

// A Program is the unit of compilation: the top-level function plus any
// functions nested within it, along with the constant, name and load tables
// shared by all of them.
type Program struct {
	Filename string

	Loads     []Binding     // modules loaded by the program's LOAD instructions
	Names     []string      // table referenced by ATTR/SETFIELD/PREDECLARED/UNIVERSAL
	Constants []interface{} // table referenced by CONSTANT, either int64, string or float64

	Toplevel  *Funcode   // module initialization code
	Functions []*Funcode // nested functions, referenced by MAKEFUNC
}

// A Funcode is the code of a compiled function. Funcodes are serialized to
// text by Dasm and read back by Asm (asm.go), which must be updated whenever
// this declaration is changed.
type Funcode struct {
	Prog      *Program
	pos       Position  // position of the function/lambda declaration
	Name      string    // name of this function
	Code      []byte    // the byte code
	pclinetab []uint16  // mapping from pc to linenum, delta-encoded
	Locals    []Binding // locals, parameters first
	Cells     []int     // indices of Locals that require cells
	Freevars  []Binding // for tracing

	Defers  []Defer // defer blocks, nested ones must come after the more general ones
	Catches []Defer // catch blocks, nested ones must come after the more general ones

	MaxStack              int
	NumParams             int
	NumKwonlyParams       int
	HasVarargs, HasKwargs bool

	// IsMethod reports whether this Funcode is a class method body, in which
	// case its first parameter (local 0) is the receiver ("this"), counted in
	// NumParams but not declared in source.
	IsMethod bool

	// OwnerClassName is the name of the class this method was declared on,
	// set at class-literal compile time. It is matched by name (not by a
	// pointer to the runtime Class, to avoid an import cycle between this
	// package and the machine package) against the receiver's ancestor chain
	// to find where "super" should resume the method search.
	OwnerClassName string

	// -- transient state --

	lntOnce sync.Once
	lnt     []pclinecol // decoded line number table
}

type pclinecol struct {
	pc        uint32
	line, col int32
}

// Position returns the resolved source position of the instruction at pc,
// falling back to the function declaration's position if pclinetab is empty
// (true only for a function whose body compiled to zero instructions).
func (fn *Funcode) Position(pc uint32) ast.Position {
	fn.lntOnce.Do(func() {
		fn.lnt = decodePCLineTab(fn.pclinetab)
	})
	if len(fn.lnt) == 0 {
		return fn.pos.toAST()
	}
	best := fn.lnt[0]
	for _, e := range fn.lnt {
		if e.pc > pc {
			break
		}
		best = e
	}
	return ast.MakePosition(&fn.pos.Filename, int(best.line), int(best.col))
}

// decodePCLineTab decodes the (pc, line, col) triples generate appends to
// fn.pclinetab every time the position changes, into the table Position
// searches (by linear scan, tables are small).
func decodePCLineTab(tab []uint16) []pclinecol {
	if len(tab) == 0 {
		return nil
	}
	lnt := make([]pclinecol, 0, len(tab)/3)
	for i := 0; i+2 < len(tab); i += 3 {
		lnt = append(lnt, pclinecol{
			pc:   uint32(tab[i]),
			line: int32(tab[i+1]),
			col:  int32(tab[i+2]),
		})
	}
	return lnt
}
