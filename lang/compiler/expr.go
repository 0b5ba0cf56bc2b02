package compiler

import (
	"fmt"

	"github.com/loxcore/loxcore/lang/ast"
	"github.com/loxcore/loxcore/lang/resolver"
	"github.com/loxcore/loxcore/lang/token"
)

func (fcomp *fcomp) expr(e ast.Expr) {
	switch e := e.(type) {
	case *ast.ArrayLikeExpr:
		for _, item := range e.Items {
			fcomp.expr(item)
		}
		if e.Type == token.LPAREN {
			fcomp.emit(MAKETUPLE, uint32(len(e.Items)))
		} else {
			fcomp.emit(MAKEARRAY, uint32(len(e.Items)))
		}

	case *ast.BadExpr:
		panic("compiler: bad expression reached codegen")

	case *ast.BinOpExpr:
		fcomp.binOp(e)

	case *ast.CallExpr:
		fcomp.expr(e.Fn)
		for _, a := range e.Args {
			fcomp.expr(a)
		}
		fcomp.emit(CALL, uint32(len(e.Args)))

	case *ast.ClassExpr:
		fcomp.classExpr(e, "")

	case *ast.DotExpr:
		if isSuperRecv(e.Left) {
			// "super.name" does not read a value for its left operand: the
			// receiver is always the current method's "this" (local 0), and the
			// search for name starts at the owning class's superclass rather
			// than at the receiver's own (possibly more derived) class.
			fcomp.emit(SUPER, fcomp.pcomp.nameIndex(e.Right.Lit))
			break
		}
		fcomp.expr(e.Left)
		fcomp.emit(ATTR, fcomp.pcomp.nameIndex(e.Right.Lit))

	case *ast.FuncExpr:
		fcomp.funcExpr(e, "")

	case *ast.IdentExpr:
		fcomp.ident(e)

	case *ast.IndexExpr:
		fcomp.expr(e.Prefix)
		fcomp.expr(e.Index)
		fcomp.emit(INDEX)

	case *ast.LiteralExpr:
		fcomp.literal(e)

	case *ast.MapExpr:
		fcomp.emit(MAKEMAP, 0)
		for _, kv := range e.Items {
			fcomp.emit(DUP)
			fcomp.expr(kv.Key)
			fcomp.expr(kv.Value)
			fcomp.emit(SETMAP)
		}

	case *ast.ParenExpr:
		fcomp.expr(e.Expr)

	case *ast.UnaryOpExpr:
		fcomp.unaryOp(e)

	default:
		panic(fmt.Sprintf("compiler: unhandled expression %T", e))
	}
}

// isSuperRecv reports whether e is the "super" pseudo-identifier, as bound by
// the resolver's special-cased handling of DotExpr.Left in a method body.
func isSuperRecv(e ast.Expr) bool {
	ident, ok := e.(*ast.IdentExpr)
	if !ok {
		return false
	}
	bdg, ok := ident.Binding.(*resolver.Binding)
	return ok && bdg.Scope == resolver.SuperRecv
}

func (fcomp *fcomp) ident(e *ast.IdentExpr) {
	bdg, _ := e.Binding.(*resolver.Binding)
	if bdg == nil {
		panic("compiler: unresolved identifier reached codegen: " + e.Lit)
	}
	switch bdg.Scope {
	case resolver.Local:
		fcomp.emit(LOCAL, uint32(bdg.Index))
	case resolver.Cell:
		fcomp.emit(LOCALCELL, uint32(bdg.Index))
	case resolver.Free:
		fcomp.emit(FREECELL, uint32(bdg.Index))
	case resolver.Predeclared:
		fcomp.emit(PREDECLARED, fcomp.pcomp.nameIndex(e.Lit))
	case resolver.Universal:
		fcomp.emit(UNIVERSAL, fcomp.pcomp.nameIndex(e.Lit))
	default:
		panic(fmt.Sprintf("compiler: identifier %q has unexpected scope %v", e.Lit, bdg.Scope))
	}
}

func (fcomp *fcomp) literal(e *ast.LiteralExpr) {
	switch e.Type {
	case token.NULL:
		fcomp.emit(NIL)
	case token.TRUE:
		fcomp.emit(TRUE)
	case token.FALSE:
		fcomp.emit(FALSE)
	default:
		fcomp.emit(CONSTANT, fcomp.pcomp.constantIndex(e.Value))
	}
}

// binOp compiles a binary expression. AND/OR short-circuit via a branch;
// everything else maps directly to an arithmetic or comparison opcode, the
// token and opcode enums being declared in matching order for exactly this
// purpose. Before falling back to that default, the peephole optimizer tries
// to fold the whole expression to a single constant -- since this runs for
// every BinOpExpr node (including ones nested inside e.Left/e.Right), a
// partially-constant tree like "x+2*3" still collapses its constant half
// ("2*3" -> 6) even though the outer "+" itself can't fold.
func (fcomp *fcomp) binOp(e *ast.BinOpExpr) {
	switch e.Type {
	case token.AND:
		fcomp.shortCircuit(e, true)
	case token.OR:
		fcomp.shortCircuit(e, false)
	default:
		if !fcomp.pcomp.opts.DisableBopt {
			if v, ok := foldConst(e, fcomp.pcomp.opts.Warn); ok {
				fcomp.emitConst(v)
				return
			}
		}
		fcomp.expr(e.Left)
		fcomp.expr(e.Right)
		fcomp.emit(fcomp.binOpcode(e.Type))
	}
}

// emitConst emits the constant-push opcode for a value folded at compile
// time by foldConst, mirroring the literal() cases for nil/true/false.
func (fcomp *fcomp) emitConst(v interface{}) {
	switch v := v.(type) {
	case nil:
		fcomp.emit(NIL)
	case bool:
		if v {
			fcomp.emit(TRUE)
		} else {
			fcomp.emit(FALSE)
		}
	default:
		fcomp.emit(CONSTANT, fcomp.pcomp.constantIndex(v))
	}
}

func (fcomp *fcomp) binOpcode(tok token.Token) Opcode {
	switch {
	case tok >= token.PLUS && tok <= token.GTGT:
		return PLUS + Opcode(tok-token.PLUS)
	case tok >= token.LT && tok <= token.BANGEQ:
		return LT + Opcode(tok-token.LT)
	default:
		panic(fmt.Sprintf("compiler: unhandled binary operator %v", tok))
	}
}

// shortCircuit compiles "x and y" (isAnd true) or "x or y" (isAnd false).
// The left operand is evaluated once and duplicated so the branch condition
// doesn't consume the value the short-circuited path needs.
func (fcomp *fcomp) shortCircuit(e *ast.BinOpExpr, isAnd bool) {
	fcomp.expr(e.Left)
	fcomp.emit(DUP)

	evalRight := fcomp.newBlock()
	done := fcomp.newBlock()
	if isAnd {
		fcomp.branch(evalRight, done)
	} else {
		fcomp.branch(done, evalRight)
	}

	fcomp.block = evalRight
	fcomp.emit(POP)
	fcomp.expr(e.Right)
	fcomp.jump(done)

	fcomp.block = done
}

// unaryOp compiles a unary expression. "try"/"must" are not yet given
// expression-level catch semantics (see protectedBlock): the instruction set
// only transfers control to a catch body at a block boundary, not mid
// expression with a value substitution, so for now they compile the wrapped
// expression through unguarded and let the error propagate normally.
func (fcomp *fcomp) unaryOp(e *ast.UnaryOpExpr) {
	if !fcomp.pcomp.opts.DisableBopt {
		if v, ok := foldConst(e, fcomp.pcomp.opts.Warn); ok {
			fcomp.emitConst(v)
			return
		}
	}
	switch e.Type {
	case token.TRY, token.MUST:
		fcomp.expr(e.Right)
	case token.PLUS:
		fcomp.expr(e.Right)
		fcomp.emit(UPLUS)
	case token.MINUS:
		fcomp.expr(e.Right)
		fcomp.emit(UMINUS)
	case token.TILDE:
		fcomp.expr(e.Right)
		fcomp.emit(UTILDE)
	case token.NOT, token.BANG:
		fcomp.expr(e.Right)
		fcomp.emit(NOT)
	case token.POUND:
		fcomp.expr(e.Right)
		fcomp.emit(POUND)
	default:
		panic(fmt.Sprintf("compiler: unhandled unary operator %v", e.Type))
	}
}

// funcExpr compiles a function literal into a closure value pushed on the
// stack: the child function is compiled to its own Funcode, then a tuple of
// its captured freevars (read from this function's own locals/freevars) is
// built and combined with MAKEFUNC.
func (fcomp *fcomp) funcExpr(e *ast.FuncExpr, name string) {
	fcomp.funcExprOwner(e, name, "")
}

// funcExprOwner compiles a function literal, same as funcExpr, but additionally
// records ownerClass (non-empty only for class methods) on the resulting
// Funcode so "super" can be resolved at runtime.
func (fcomp *fcomp) funcExprOwner(e *ast.FuncExpr, name, ownerClass string) {
	isMethod := ownerClass != ""
	rfn, _ := e.Function.(*resolver.Function)
	var locals, freevars []*resolver.Binding
	if rfn != nil {
		locals, freevars = rfn.Locals, rfn.FreeVars
	}
	child := fcomp.pcomp.funcode(name, e.Fn, e.Body, locals, freevars, rfn, e.Sig, isMethod)
	child.OwnerClassName = ownerClass
	funcIx := fcomp.pcomp.funcIndex(child)

	for _, fv := range freevars {
		fcomp.pushFreevarSource(fv)
	}
	fcomp.emit(MAKETUPLE, uint32(len(freevars)))
	fcomp.emit(MAKEFUNC, funcIx)
}

// pushFreevarSource pushes, from the enclosing function being compiled, the
// value a nested closure's freevar entry should capture: the resolver stores
// the enclosing function's own Binding pointer in the child's FreeVars, so it
// is matched back to this function's locals/freevars by pointer identity.
func (fcomp *fcomp) pushFreevarSource(fv *resolver.Binding) {
	for i, b := range fcomp.rlocals {
		if b == fv {
			fcomp.emit(LOCAL, uint32(i))
			return
		}
	}
	for i, b := range fcomp.rfreevars {
		if b == fv {
			fcomp.emit(FREE, uint32(i))
			return
		}
	}
	panic("compiler: freevar not found among enclosing locals or freevars")
}

// classExpr compiles a class literal by calling the "class" universal
// builtin with the class name, parent class (or nil), a map of methods and a
// map of field default values -- reusing MAKEMAP/MAKEFUNC/CALL rather than
// adding dedicated opcodes for class construction.
func (fcomp *fcomp) classExpr(e *ast.ClassExpr, name string) {
	fcomp.emit(UNIVERSAL, fcomp.pcomp.nameIndex("class"))

	fcomp.emit(CONSTANT, fcomp.pcomp.constantIndex(name))

	if e.Inherits != nil && e.Inherits.Expr != nil {
		fcomp.expr(e.Inherits.Expr)
	} else {
		fcomp.emit(NIL)
	}

	fcomp.emit(MAKEMAP, 0)
	for _, m := range e.Body.Methods {
		fcomp.emit(DUP)
		fcomp.emit(CONSTANT, fcomp.pcomp.constantIndex(m.Name.Lit))
		fcomp.funcExprOwner(&ast.FuncExpr{Fn: m.Fn, Sig: m.Sig, Body: m.Body, End: m.End, Function: m.Function}, m.Name.Lit, name)
		fcomp.emit(SETMAP)
	}

	fcomp.emit(MAKEMAP, 0)
	for _, field := range e.Body.Fields {
		target := field.Left[0].(*ast.IdentExpr)
		fcomp.emit(DUP)
		fcomp.emit(CONSTANT, fcomp.pcomp.constantIndex(target.Lit))
		if len(field.Right) > 0 {
			fcomp.expr(field.Right[0])
		} else {
			fcomp.emit(NIL)
		}
		fcomp.emit(SETMAP)
	}

	fcomp.emit(CALL, 4)
}
