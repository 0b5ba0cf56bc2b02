package compiler

import (
	"fmt"

	"github.com/loxcore/loxcore/lang/ast"
	"github.com/loxcore/loxcore/lang/resolver"
	"github.com/loxcore/loxcore/lang/token"
)

func (fcomp *fcomp) stmts(stmts []ast.Stmt) {
	for _, s := range stmts {
		if fcomp.block == nil {
			// Unreachable: a prior statement in this block always exits
			// (return/break/continue/goto). Nothing after it can run.
			break
		}
		fcomp.stmt(s)
	}
}

func (fcomp *fcomp) stmt(s ast.Stmt) {
	start, _ := s.Span()
	fcomp.setPos(start)

	switch s := s.(type) {
	case *ast.AssignStmt:
		fcomp.assignStmt(s)

	case *ast.BadStmt:
		panic("compiler: bad statement reached codegen")

	case *ast.ClassStmt:
		fcomp.classExpr(&ast.ClassExpr{Class: s.Class, Inherits: s.Inherits, Body: s.Body, Resolved: s.Resolved}, s.Name.Lit)
		fcomp.assignValue(s.Name, nil)

	case *ast.ExprStmt:
		fcomp.expr(s.Expr)
		fcomp.emit(POP)

	case *ast.ForInStmt:
		fcomp.forIn(s)

	case *ast.ForLoopStmt:
		fcomp.forLoop(s)

	case *ast.FuncStmt:
		fcomp.funcExpr(&ast.FuncExpr{Fn: s.Fn, Sig: s.Sig, Body: s.Body, End: s.End, Function: s.Function}, s.Name.Lit)
		fcomp.assignValue(s.Name, nil)

	case *ast.IfGuardStmt:
		fcomp.ifGuard(s)

	case *ast.LabelStmt:
		fcomp.label(s)

	case *ast.ReturnLikeStmt:
		fcomp.returnLike(s)

	case *ast.SimpleBlockStmt:
		fcomp.simpleBlock(s)

	default:
		panic(fmt.Sprintf("compiler: unhandled statement %T", s))
	}
}

// assignValue compiles a store into target, with pushValue responsible for
// leaving exactly one value on top of the stack at the right moment (any
// object/index sub-expression of target is evaluated first, so pushValue may
// freely have side effects without reordering surprises). A nil pushValue
// means the value is already on top of the stack (used when the value was
// pushed by MAKEFUNC or class-literal codegen right before this call).
func (fcomp *fcomp) assignValue(target ast.Expr, pushValue func()) {
	switch t := target.(type) {
	case *ast.IdentExpr:
		if pushValue != nil {
			pushValue()
		}
		fcomp.storeIdent(t)

	case *ast.DotExpr:
		fcomp.expr(t.Left)
		if pushValue != nil {
			pushValue()
		}
		fcomp.emit(SETFIELD, fcomp.pcomp.nameIndex(t.Right.Lit))

	case *ast.IndexExpr:
		fcomp.expr(t.Prefix)
		fcomp.expr(t.Index)
		if pushValue != nil {
			pushValue()
		}
		fcomp.emit(SETINDEX)

	default:
		panic("compiler: invalid assignment target")
	}
}

func (fcomp *fcomp) storeIdent(t *ast.IdentExpr) {
	bdg, _ := t.Binding.(*resolver.Binding)
	switch bdg.Scope {
	case resolver.Local:
		fcomp.emit(SETLOCAL, uint32(bdg.Index))
	case resolver.Cell:
		fcomp.emit(SETLOCALCELL, uint32(bdg.Index))
	default:
		panic("compiler: cannot assign to a captured or builtin variable")
	}
}

// assign compiles a store of a value that is already on top of the stack,
// used when several targets each get a distinct value that was computed
// ahead of time (parallel assignment, unpacking). Index-expression targets
// aren't supported in that position: SETINDEX needs its object and index
// pushed before the value, which isn't expressible here without a 3-deep
// stack rotation the instruction set has no opcode for; write those targets
// one at a time instead (e.g. split "a[i], b = 1, 2" into two statements).
func (fcomp *fcomp) assign(target ast.Expr) {
	switch t := target.(type) {
	case *ast.IdentExpr:
		fcomp.storeIdent(t)

	case *ast.DotExpr:
		fcomp.expr(t.Left)
		fcomp.emit(EXCH)
		fcomp.emit(SETFIELD, fcomp.pcomp.nameIndex(t.Right.Lit))

	case *ast.IndexExpr:
		panic("compiler: index expressions are not supported as a parallel or unpacking assignment target")

	default:
		panic("compiler: invalid assignment target")
	}
}

func (fcomp *fcomp) assignStmt(s *ast.AssignStmt) {
	switch {
	case s.AssignTok.IsAugBinop():
		fcomp.augAssign(s)

	case len(s.Right) == 0:
		for _, l := range s.Left {
			fcomp.assignValue(l, func() { fcomp.emit(NIL) })
		}

	case len(s.Right) == 1 && len(s.Left) > 1:
		fcomp.expr(s.Right[0])
		fcomp.emit(UNPACK, uint32(len(s.Left)))
		for _, l := range s.Left {
			fcomp.assign(l)
		}

	case len(s.Left) > 1:
		// Parallel assignment: every right-hand side is evaluated, in order,
		// before any store happens, so "a, b = b, a" swaps correctly.
		for _, r := range s.Right {
			fcomp.expr(r)
		}
		for i := len(s.Left) - 1; i >= 0; i-- {
			fcomp.assign(s.Left[i])
		}

	default:
		right := s.Right[0]
		fcomp.assignValue(s.Left[0], func() { fcomp.expr(right) })
	}
}

// augAssign compiles e.g. "x += 1", "a.b *= 2" or "a[i] //= 2". The target's
// object/index sub-expressions are evaluated only once.
func (fcomp *fcomp) augAssign(s *ast.AssignStmt) {
	op := PLUS + Opcode(s.AssignTok-token.PLUSEQ)
	target := s.Left[0]
	switch t := target.(type) {
	case *ast.IdentExpr:
		fcomp.expr(t)
		fcomp.expr(s.Right[0])
		fcomp.emit(op)
		fcomp.storeIdent(t)

	case *ast.DotExpr:
		fcomp.expr(t.Left)
		fcomp.emit(DUP)
		fcomp.emit(ATTR, fcomp.pcomp.nameIndex(t.Right.Lit))
		fcomp.expr(s.Right[0])
		fcomp.emit(op)
		fcomp.emit(SETFIELD, fcomp.pcomp.nameIndex(t.Right.Lit))

	case *ast.IndexExpr:
		fcomp.expr(t.Prefix)
		fcomp.expr(t.Index)
		fcomp.emit(DUP2)
		fcomp.emit(INDEX)
		fcomp.expr(s.Right[0])
		fcomp.emit(op)
		fcomp.emit(SETINDEX)

	default:
		panic("compiler: invalid augmented assignment target")
	}
}

func (fcomp *fcomp) ifGuard(s *ast.IfGuardStmt) {
	if s.Decl != nil {
		fcomp.stmt(s.Decl)
		target := s.Decl.Left[0].(*ast.IdentExpr)
		fcomp.expr(target)
	} else {
		fcomp.expr(s.Cond)
	}

	done := fcomp.newBlock()
	if s.Type == token.GUARD {
		els := fcomp.newBlock()
		fcomp.branch(done, els)
		fcomp.block = els
		if s.False != nil {
			fcomp.stmts(s.False.Stmts)
		}
		fcomp.jump(done)
		fcomp.block = done
		return
	}

	then := fcomp.newBlock()
	els := done
	if s.False != nil {
		els = fcomp.newBlock()
	}
	fcomp.branch(then, els)

	fcomp.block = then
	if s.True != nil {
		fcomp.stmts(s.True.Stmts)
	}
	fcomp.jump(done)

	if s.False != nil {
		fcomp.block = els
		fcomp.stmts(s.False.Stmts)
		fcomp.jump(done)
	}
	fcomp.block = done
}

func (fcomp *fcomp) forLoop(s *ast.ForLoopStmt) {
	if s.Init != nil {
		fcomp.stmt(s.Init)
	}

	cond := fcomp.newBlock()
	body := fcomp.newBlock()
	done := fcomp.newBlock()

	fcomp.jump(cond)
	fcomp.block = cond
	if s.Cond != nil {
		fcomp.expr(s.Cond)
		fcomp.branch(body, done)
	} else {
		fcomp.jump(body)
	}

	post := cond
	if s.Post != nil {
		post = fcomp.newBlock()
	}

	fcomp.block = body
	fcomp.pushLoop(done, post)
	fcomp.stmts(s.Body.Stmts)
	fcomp.popLoop()
	fcomp.jump(post)

	if s.Post != nil {
		fcomp.block = post
		fcomp.stmt(s.Post)
		fcomp.jump(cond)
	}

	fcomp.block = done
}

func (fcomp *fcomp) forIn(s *ast.ForInStmt) {
	if len(s.Right) == 1 {
		fcomp.expr(s.Right[0])
	} else {
		for _, e := range s.Right {
			fcomp.expr(e)
		}
		fcomp.emit(MAKETUPLE, uint32(len(s.Right)))
	}
	fcomp.emit(ITERPUSH)

	cond := fcomp.newBlock()
	body := fcomp.newBlock()
	done := fcomp.newBlock()

	fcomp.jump(cond)
	fcomp.block = cond
	fcomp.emit(ITERJMP, 0) // arg patched by the linearization pass
	fcomp.block.cjmp = done
	fcomp.block.jmp = body
	fcomp.block = nil

	fcomp.block = body
	if len(s.Left) == 1 {
		fcomp.assign(s.Left[0])
	} else {
		fcomp.emit(UNPACK, uint32(len(s.Left)))
		for _, l := range s.Left {
			fcomp.assign(l)
		}
	}
	fcomp.pushLoop(done, cond)
	fcomp.stmts(s.Body.Stmts)
	fcomp.popLoop()
	fcomp.jump(cond)

	fcomp.block = done
	fcomp.emit(ITERPOP)
}

func (fcomp *fcomp) pushLoop(break_, continue_ *block) {
	fcomp.loops = append(fcomp.loops, loop{label: fcomp.pendingLabel, break_: break_, continue_: continue_})
	fcomp.pendingLabel = ""
}

func (fcomp *fcomp) popLoop() {
	fcomp.loops = fcomp.loops[:len(fcomp.loops)-1]
}

func (fcomp *fcomp) loopTarget(label ast.Expr, isBreak bool) *block {
	name := ""
	if label != nil {
		name = label.(*ast.IdentExpr).Lit
	}
	if name != "" {
		for i := len(fcomp.loops) - 1; i >= 0; i-- {
			if fcomp.loops[i].label == name {
				if isBreak {
					return fcomp.loops[i].break_
				}
				return fcomp.loops[i].continue_
			}
		}
	}
	l := fcomp.loops[len(fcomp.loops)-1]
	if isBreak {
		return l.break_
	}
	return l.continue_
}

func (fcomp *fcomp) label(s *ast.LabelStmt) {
	bdg, _ := s.Name.Binding.(*resolver.Binding)
	if bdg != nil && bdg.Scope == resolver.LoopLabel {
		// The label itself needs no block; it's resolved to the loop's own
		// break/continue targets once the loop below is compiled.
		fcomp.pendingLabel = s.Name.Lit
		return
	}

	// The block was already created by funcode's label pre-pass (so that a
	// goto preceding this declaration in source order has a target); fall
	// back to allocating one here for a label with no binding.
	target := fcomp.labels[bdg]
	if target == nil {
		target = fcomp.newBlock()
	}
	fcomp.jump(target)
	fcomp.block = target
	if bdg != nil {
		fcomp.labels[bdg] = target
	}
}

func (fcomp *fcomp) returnLike(s *ast.ReturnLikeStmt) {
	switch s.Type {
	case token.RETURN:
		fcomp.emit(RUNDEFER)
		if s.Expr != nil {
			fcomp.expr(s.Expr)
		} else {
			fcomp.emit(NIL)
		}
		fcomp.emit(RETURN)
		fcomp.block = nil

	case token.BREAK:
		fcomp.emit(RUNDEFER)
		fcomp.jump(fcomp.loopTarget(s.Expr, true))

	case token.CONTINUE:
		fcomp.emit(RUNDEFER)
		fcomp.jump(fcomp.loopTarget(s.Expr, false))

	case token.GOTO:
		fcomp.emit(RUNDEFER)
		name := s.Expr.(*ast.IdentExpr)
		bdg, _ := name.Binding.(*resolver.Binding)
		fcomp.jump(fcomp.labels[bdg])

	case token.THROW:
		// "throw expr" desugars to a call to the "throw" builtin, which
		// always returns a Go error wrapping the value; the CALL opcode
		// handler turns that into the in-flight error the defer/catch
		// protocol unwinds on, so no dedicated opcode is needed.
		fcomp.emit(UNIVERSAL, fcomp.pcomp.nameIndex("throw"))
		if s.Expr != nil {
			fcomp.expr(s.Expr)
		} else {
			fcomp.emit(NIL)
		}
		fcomp.emit(CALL, 1)
		fcomp.emit(POP)

	default:
		panic("compiler: unhandled return-like statement")
	}
}

func (fcomp *fcomp) simpleBlock(s *ast.SimpleBlockStmt) {
	switch s.Type {
	case token.DO:
		fcomp.stmts(s.Body.Stmts)

	case token.DEFER, token.CATCH:
		fcomp.protectedBlock(s)

	default:
		panic("compiler: unhandled simple block statement")
	}
}

// protectedBlock compiles a defer or catch statement. Its body is placed
// out-of-line; the runtime's Defers/Catches tables (populated once block
// addresses are known, back in pcomp.funcode) are what actually transfer
// control to it, triggered by RUNDEFER before a RETURN/break/continue/goto
// that would otherwise leave the protected range.
//
// Protection covers from right after this statement to the end of the
// enclosing function, mirroring how Go's defer covers to function exit,
// rather than being scoped to just the rest of the immediately enclosing
// block.
func (fcomp *fcomp) protectedBlock(s *ast.SimpleBlockStmt) {
	body := fcomp.newBlock()
	after := fcomp.newBlock()

	fcomp.jump(after)

	fcomp.block = body
	if s.CatchVar != nil {
		// "catch (Class err) do .. end": bind the caught value to err as the
		// body's first instructions, so ordinary LOCAL/LOCALCELL reads of err
		// work throughout the body like any other local.
		fcomp.emit(GETTHROWN)
		fcomp.storeIdent(s.CatchVar)
	}
	fcomp.stmts(s.Body.Stmts)
	var catchInsn *uint32
	if s.Type == token.DEFER {
		fcomp.emit(DEFEREXIT)
	} else {
		catchInsn = fcomp.emit(CATCHJMP, 0) // arg patched once after.addr is known
	}
	fcomp.block = nil

	var class string
	if s.CatchClass != nil {
		class = s.CatchClass.Lit
	}
	fcomp.protects = append(fcomp.protects, protect{
		isCatch:   s.Type == token.CATCH,
		start:     after,
		body:      body,
		catchInsn: catchInsn,
		class:     class,
	})

	fcomp.block = after
}
