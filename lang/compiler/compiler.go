// Much of the compiler package is adapted from the Starlark source code:
// https://github.com/google/starlark-go/tree/ee8ed142361c69d52fe8e9fb5e311d2a0a7c02de
//
// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package compiler takes a parsed and resolved AST and compiles it to bytecode
// that can be executed by the virtual machine. It also provides a
// pseudo-assembly serialization and deserialization to encode in textual form
// a program that closely matches the binary format of the compiled form.
package compiler

import (
	"context"
	"fmt"
	"os"

	"github.com/loxcore/loxcore/lang/ast"
	"github.com/loxcore/loxcore/lang/resolver"
	"github.com/loxcore/loxcore/lang/token"
)

var debug = false

// CompileFiles takes the file set and corresponding list of chunks from
// a successful resolve result and compiles the AST to bytecode.
//
// An AST that resulted in errors in the resolve phase should never be
// passed to the compiler, the behavior is undefined.
//
// Compiling files does not return an error as a valid resolved AST
// should always generate a valid, executable compiled program.
func CompileFiles(ctx context.Context, fset *token.FileSet, chunks []*ast.Chunk, opts Options) []*Program {
	if len(chunks) == 0 {
		return nil
	}

	progs := make([]*Program, len(chunks))
	for i, ch := range chunks {
		start, _ := ch.Span()
		file := fset.File(start)
		pcomp := &pcomp{
			prog: &Program{
				Filename: file.Name(),
			},
			file:      file,
			opts:      opts,
			names:     make(map[string]uint32),
			constants: make(map[interface{}]uint32),
			functions: make(map[*Funcode]uint32),
		}
		rfn, _ := ch.Resolved.(*resolver.Function)
		var locals, freevars []*resolver.Binding
		if rfn != nil {
			locals, freevars = rfn.Locals, rfn.FreeVars
		}
		topLevel := pcomp.funcode(pcomp.prog.Filename, start, ch.Block, locals, freevars, rfn, nil, false)
		pcomp.prog.Toplevel = topLevel
		progs[i] = pcomp.prog
	}
	return progs
}

// A pcomp holds the compiler state for a Program.
type pcomp struct {
	prog *Program    // what we're building
	file *token.File // to resolve token.Pos positions
	opts Options     // peephole optimizer configuration

	names     map[string]uint32
	constants map[interface{}]uint32
	functions map[*Funcode]uint32
}

func (pcomp *pcomp) nameIndex(name string) uint32 {
	if ix, ok := pcomp.names[name]; ok {
		return ix
	}
	ix := uint32(len(pcomp.prog.Names))
	pcomp.prog.Names = append(pcomp.prog.Names, name)
	pcomp.names[name] = ix
	return ix
}

func (pcomp *pcomp) constantIndex(v interface{}) uint32 {
	if ix, ok := pcomp.constants[v]; ok {
		return ix
	}
	ix := uint32(len(pcomp.prog.Constants))
	pcomp.prog.Constants = append(pcomp.prog.Constants, v)
	pcomp.constants[v] = ix
	return ix
}

func (pcomp *pcomp) funcIndex(fn *Funcode) uint32 {
	if ix, ok := pcomp.functions[fn]; ok {
		return ix
	}
	ix := uint32(len(pcomp.prog.Functions))
	pcomp.prog.Functions = append(pcomp.prog.Functions, fn)
	pcomp.functions[fn] = ix
	return ix
}

// funcode compiles a single function (or the top-level chunk, when sig is
// nil) to a Funcode, including the conversion of its body to a
// CFG of instructions and the linearization of that CFG to bytecode.
func (pcomp *pcomp) funcode(
	name string, start token.Pos, block *ast.Block,
	locals, freevars []*resolver.Binding,
	rfn *resolver.Function, sig *ast.FuncSignature, isMethod bool,
) *Funcode {
	fnPos := positionFromTokenPos(pcomp.file, start)
	fcomp := &fcomp{
		pcomp:     pcomp,
		pos:       fnPos,
		rlocals:   locals,
		rfreevars: freevars,
		labels:    make(map[*resolver.Binding]*block),
		fn: &Funcode{
			Prog:     pcomp.prog,
			pos:      fnPos,
			Name:     name,
			Locals:   bindings(pcomp.file, locals),
			Freevars: bindings(pcomp.file, freevars),
		},
	}
	if sig != nil {
		fcomp.fn.NumParams = len(sig.Params)
		fcomp.fn.HasVarargs = sig.DotDotDot.IsValid()
	}
	if isMethod {
		// the resolver prepended a synthetic "this" local ahead of the
		// declared parameters (see resolver.function), so the receiver counts
		// as an extra leading parameter bound from args[0] by setArgs.
		fcomp.fn.NumParams++
		fcomp.fn.IsMethod = true
	}

	// Record indices of locals that require cells.
	for i, local := range locals {
		if local.Scope == resolver.Cell {
			fcomp.fn.Cells = append(fcomp.fn.Cells, i)
		}
	}

	// Pre-create a block for every goto label declared in this function, so
	// that a goto appearing before its label's declaration in source order
	// still has somewhere to jump to.
	if rfn != nil {
		for _, lbl := range rfn.Labels {
			if lbl.Scope == resolver.Label {
				fcomp.labels[lbl] = fcomp.newBlock()
			}
		}
	}

	// Convert AST to a CFG of instructions.
	entry := fcomp.newBlock()
	fcomp.block = entry
	fcomp.stmts(block.Stmts)
	if fcomp.block != nil {
		fcomp.emit(NIL)
		fcomp.emit(RETURN)
	}

	var oops bool // something bad happened

	setinitialstack := func(b *block, depth int) {
		if b.initialstack == -1 {
			b.initialstack = depth
		} else if b.initialstack != depth {
			fmt.Fprintf(os.Stderr, "%d: setinitialstack: depth mismatch: %d vs %d\n",
				b.index, b.initialstack, depth)
			oops = true
		}
	}

	// Linearize the CFG:
	// compute order, address, and initial
	// stack depth of each reachable block.
	var pc uint32
	var blocks []*block
	var maxstack int
	var visit func(b *block)
	visit = func(b *block) {
		if b.index >= 0 {
			return // already visited
		}
		b.index = len(blocks)
		b.addr = pc
		blocks = append(blocks, b)

		stack := b.initialstack
		if debug {
			fmt.Fprintf(os.Stderr, "%s block %d: (stack = %d)\n", name, b.index, stack)
		}
		var cjmpAddr *uint32
		var isiterjmp int
		for i, insn := range b.insns {
			pc++

			// Compute size of argument.
			if insn.op >= OpcodeArgMin {
				switch insn.op {
				case ITERJMP:
					isiterjmp = 1
					fallthrough
				case CJMP:
					cjmpAddr = &b.insns[i].arg
					pc += 4
				default:
					pc += uint32(varArgLen(insn.arg))
				}
			}

			// Compute effect on stack.
			se := insn.stackeffect()
			if debug {
				fmt.Fprintln(os.Stderr, "\t", insn.op, stack, stack+se)
			}
			stack += se
			if stack < 0 {
				fmt.Fprintf(os.Stderr, "After pc=%d: stack underflow\n", pc)
				oops = true
			}
			if stack+isiterjmp > maxstack {
				maxstack = stack + isiterjmp
			}
		}

		// Place the jmp block next.
		if b.jmp != nil {
			// jump threading (empty cycles are impossible)
			for b.jmp.insns == nil {
				b.jmp = b.jmp.jmp
			}

			setinitialstack(b.jmp, stack+isiterjmp)
			if b.jmp.index < 0 {
				// Successor is not yet visited:
				// place it next and fall through.
				visit(b.jmp)
			} else {
				// Successor already visited;
				// explicit backward jump required.
				pc += 5
			}
		}

		// Then the cjmp block.
		if b.cjmp != nil {
			// jump threading (empty cycles are impossible)
			for b.cjmp.insns == nil {
				b.cjmp = b.cjmp.jmp
			}

			setinitialstack(b.cjmp, stack)
			visit(b.cjmp)

			// Patch the CJMP/ITERJMP, if present.
			if cjmpAddr != nil {
				*cjmpAddr = b.cjmp.addr
			}
		}
	}
	setinitialstack(entry, 0)
	visit(entry)

	// defer/catch bodies are not reachable through the normal jmp/cjmp CFG
	// edges (they're entered by the runtime's deferred-execution protocol, not
	// by falling into them), so they're linearized as extra entry points,
	// appended after the function's main body.
	for _, p := range fcomp.protects {
		setinitialstack(p.body, 0)
		visit(p.body)
		if p.catchInsn != nil {
			*p.catchInsn = p.start.addr
		}
	}

	fn := fcomp.fn
	fn.MaxStack = maxstack

	for _, p := range fcomp.protects {
		d := Defer{PC0: p.start.addr, PC1: pc, StartPC: p.body.addr, Class: p.class}
		if p.isCatch {
			fn.Catches = append(fn.Catches, d)
		} else {
			fn.Defers = append(fn.Defers, d)
		}
	}

	// Emit bytecode (and position table).
	fcomp.generate(blocks, pc)

	// Don't panic until we've completed printing of the function.
	if oops {
		panic("internal error")
	}

	return fn
}

// An fcomp holds the compiler state for a Funcode.
type fcomp struct {
	fn *Funcode // what we're building

	pcomp *pcomp
	pos   Position // current position of generated code (not necessarily == to fn.pos)
	loops []loop
	block *block

	// rlocals and rfreevars mirror fn.Locals/fn.Freevars but keep the
	// resolver's own Binding pointers, so that a nested MAKEFUNC can match a
	// captured variable against the bindings available in this function.
	rlocals, rfreevars []*resolver.Binding

	// labels maps a label declaration to the block it marks, for goto.
	labels map[*resolver.Binding]*block
	// pendingLabel holds the name of a loop label just seen, to be attached to
	// the next compiled loop statement.
	pendingLabel string

	// protects collects the defer/catch blocks compiled in this function, to
	// be turned into Defer/Catch table entries once block addresses are known.
	protects []protect
}

type loop struct {
	label              string
	break_, continue_ *block
}

type protect struct {
	isCatch bool
	start   *block // where normal flow resumes, and where protection begins
	body    *block // where the deferred/catch body starts
	// catchInsn points at the CATCHJMP instruction's argument, to be patched
	// with start.addr once block addresses are known. Nil for defer blocks,
	// which resume via the runtime's deferredStack instead.
	catchInsn *uint32
	// class restricts a catch to errors whose runtime class is class or a
	// subclass of it, from "catch (Class [var]) do .. end"; empty for a plain
	// catch, and always empty for a defer.
	class string
}

// block is a block of code - every executable line of code is compiled inside
// a block.
type block struct {
	insns []insn

	// If the last insn is a RETURN, jmp and cjmp are nil.
	// If the last insn is a CJMP or ITERJMP,
	//  cjmp and jmp are the "true" and "false" successors.
	// Otherwise, jmp is the sole successor.
	jmp, cjmp *block

	initialstack int // for stack depth computation

	// Used during encoding
	index int // -1 => not encoded yet
	addr  uint32
}

func (fcomp *fcomp) newBlock() *block {
	return &block{index: -1, initialstack: -1}
}

// jump ends the current block by falling through unconditionally to to. If
// the current block was already ended (e.g. by a RETURN), this is a no-op:
// the code that followed, if any, is unreachable.
func (fcomp *fcomp) jump(to *block) {
	if fcomp.block != nil {
		fcomp.block.jmp = to
	}
	fcomp.block = nil
}

// branch ends the current block with a two-way branch: execution continues
// at t if the value on top of the stack (pushed by the caller) is truthy,
// or at f otherwise.
func (fcomp *fcomp) branch(t, f *block) {
	fcomp.emit(CJMP, 0) // arg patched by the linearization pass
	fcomp.block.cjmp = t
	fcomp.block.jmp = f
	fcomp.block = nil
}

// emit appends an instruction to the current block and returns it so that
// callers needing to patch its argument later (e.g. a CATCHJMP) can keep a
// pointer to it.
func (fcomp *fcomp) emit(op Opcode, arg ...uint32) *uint32 {
	var a uint32
	if len(arg) > 0 {
		a = arg[0]
	}
	in := insn{op: op, arg: a, line: int32(fcomp.pos.Line), col: int32(fcomp.pos.Col)}
	fcomp.block.insns = append(fcomp.block.insns, in)
	return &fcomp.block.insns[len(fcomp.block.insns)-1].arg
}

func (fcomp *fcomp) setPos(pos token.Pos) {
	fcomp.pos = positionFromTokenPos(fcomp.pcomp.file, pos)
}

// bindings converts resolver.Bindings to compiled form.
func bindings(file *token.File, bindings []*resolver.Binding) []Binding {
	res := make([]Binding, len(bindings))
	for i, bind := range bindings {
		res[i].Name = bind.Decl.Lit
		res[i].Pos = positionFromTokenPos(file, bind.Decl.Start)
	}
	return res
}

type insn struct {
	op        Opcode
	arg       uint32
	line, col int32
}

func (in insn) stackeffect() int {
	se := int(stackEffect[in.op])
	if se != variableStackEffect {
		return se
	}
	switch in.op {
	case CALL, CALL_VAR:
		// arg is the plain positional-argument count (CALL_VAR is not executed
		// by the machine and this grammar has no named-argument call syntax).
		return 1 - 1 - int(in.arg)
	case ITERJMP:
		// the "done, jump" edge has no net effect; the "has more, fall
		// through" edge's extra push is accounted for separately via the
		// isiterjmp flag when computing the successor's initial stack.
		return 0
	case MAKEARRAY, MAKETUPLE:
		return 1 - int(in.arg)
	case UNPACK:
		return int(in.arg) - 1
	}
	panic(fmt.Sprintf("stackeffect: unhandled variable-effect opcode %s", in.op))
}

// generate emits the bytecode and the pc-to-line/col table for the linearized
// blocks into fcomp.fn.
func (fcomp *fcomp) generate(blocks []*block, pc uint32) {
	fn := fcomp.fn
	fn.Code = make([]byte, 0, pc)
	var lastLine, lastCol int32 = -1, -1
	for _, b := range blocks {
		for i, insn := range b.insns {
			if insn.line != lastLine || insn.col != lastCol {
				fn.pclinetab = append(fn.pclinetab,
					uint16(len(fn.Code)), uint16(insn.line), uint16(insn.col))
				lastLine, lastCol = insn.line, insn.col
			}
			fn.Code = encodeInsn(fn.Code, insn.op, insn.arg)
			_ = i
		}
		// Explicit backward jump, when the jmp successor was already placed.
		if b.jmp != nil && b.jmp.index < b.index {
			fn.Code = encodeInsn(fn.Code, JMP, b.jmp.addr)
		}
	}
}

func encodeInsn(code []byte, op Opcode, arg uint32) []byte {
	code = append(code, byte(op))
	if op >= OpcodeArgMin {
		if isJump(op) {
			code = addUint32(code, arg, 4) // pad arg to 4 bytes
		} else {
			code = addUint32(code, arg, 0)
		}
	}
	return code
}

// addUint32 encodes x as 7-bit little-endian varint.
func addUint32(code []byte, x uint32, min int) []byte {
	end := len(code) + min
	for x >= 0x80 {
		code = append(code, byte(x)|0x80)
		x >>= 7
	}
	code = append(code, byte(x))
	// Pad the operand with NOPs to exactly min bytes.
	for len(code) < end {
		code = append(code, byte(NOP))
	}
	return code
}
