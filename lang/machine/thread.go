package machine

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/loxcore/loxcore/lang/ast"
	"github.com/loxcore/loxcore/lang/compiler"
	"github.com/loxcore/loxcore/lang/gc"
)

// Thread holds the state of a single logical thread of execution: its call
// stack, I/O, resource limits and load hook. Thread itself is not safe for
// concurrent use. There is no process-wide VM lock: separate Threads run
// independently and nothing serializes their bytecode execution.
type Thread struct {
	// Name is an optional name that describes the thread, mostly for debugging.
	Name string

	// ID is a unique, randomly generated identifier assigned the first time the
	// thread is run. It is not printed by the DebugTrace output (which uses
	// Name) nor by EvalError backtraces.
	ID uuid.UUID

	// Stdout, Stderr and Stdin are the standard I/O abstractions for the thread.
	// If nil, os.Stdout, os.Stderr and os.Stdin are used, respectively.
	Stdout io.Writer
	Stderr io.Writer
	Stdin  io.Reader

	// MaxSteps is the maximum number of "steps", a deliberately unspecified
	// measure of machine execution time, before the thread is cancelled. A value
	// <= 0 means no limit.
	MaxSteps int

	// DisableRecursion prevents recursive execution of functions when set to
	// true. It incurs a small performance cost for the runtime verification on
	// each function call but can be a useful safety check when executing
	// untrusted code. If a recursive call is detected when set to true, the
	// call fails with an error.
	DisableRecursion bool

	// MaxCallStackDepth limits the number of nested function calls. If the limit
	// is reached, the call fails with an error. A value <= 0 means no limit.
	MaxCallStackDepth int

	// MaxCompareDepth limits the number of nested comparison depth for compound
	// types to prevent comparing cyclic values. A value <= 0 means no limit.
	MaxCompareDepth int

	// DebugTrace, when non-nil, receives one line per executed instruction,
	// prefixed with the thread's Name (the --debug-vm CLI flag).
	DebugTrace io.Writer

	// Load is an optional function value to call to load modules (called by the
	// LOAD opcode).
	Load func(*Thread, string) (Value, error)

	// Predeclared is the set of predeclared identifiers and their assigned
	// values. Predeclared identifiers are like the Universe identifiers in that
	// they are available to all modules automatically and they cannot be
	// assigned to.
	Predeclared map[string]Value

	// GC, if non-nil, tracks every heap value this thread allocates (arrays,
	// maps, instances, classes, closures, bound methods, tuples, cells) and
	// decides when to collect, per its Config (--disable-gc/--stress-gc/
	// --profile-gc). A nil GC means allocation is untracked: Go's own
	// allocator and GC are the only ones in play, the default.
	GC *gc.Collector

	ctx       context.Context
	ctxCancel func()
	callStack []*Frame
	cancelled atomic.Bool

	steps, maxSteps uint64
	maxCompareDepth uint64

	stdout io.Writer
	stderr io.Writer
	stdin  io.Reader

	initOnce sync.Once
}

// RunProgram executes the toplevel function of program p on thread th. It may
// only be called once per Thread.
func (th *Thread) RunProgram(ctx context.Context, p *compiler.Program) (Value, error) {
	if th.ctx != nil {
		return nil, fmt.Errorf("thread %s is already executing a program", th.Name)
	}

	ctx, cancel := context.WithCancel(ctx)
	th.ctx = ctx
	th.ctxCancel = cancel
	topfn := makeToplevelFunction(p)
	return Call(th, topfn, NilaryTuple)
}

// init performs one-time initialization of thread state. It is safe to call
// repeatedly (e.g. once per Call); only the first call has any effect.
func (th *Thread) init() {
	th.initOnce.Do(func() {
		if th.ID == uuid.Nil {
			th.ID = uuid.New()
		}
		if th.MaxSteps <= 0 {
			th.maxSteps-- // (MaxUint64)
		} else {
			th.maxSteps = uint64(th.MaxSteps)
		}
		if th.MaxCompareDepth <= 0 {
			th.maxCompareDepth-- // (MaxUint64)
		} else {
			th.maxCompareDepth = uint64(th.MaxCompareDepth)
		}
		if th.Stdout != nil {
			th.stdout = th.Stdout
		} else {
			th.stdout = os.Stdout
		}
		if th.Stderr != nil {
			th.stderr = th.Stderr
		} else {
			th.stderr = os.Stderr
		}
		if th.Stdin != nil {
			th.stdin = th.Stdin
		} else {
			th.stdin = os.Stdin
		}
		if th.ctx == nil {
			th.ctx = context.Background()
			th.ctxCancel = func() {}
		} else {
			go func() {
				<-th.ctx.Done()
				th.cancelled.Store(true)
			}()
		}
	})
}

// evalError wraps err as an *EvalError carrying the current call stack's
// backtrace, unless it already is one.
func (th *Thread) evalError(err error) *EvalError {
	ee := &EvalError{Err: err}
	for i := len(th.callStack) - 1; i >= 0; i-- {
		fr := th.callStack[i]
		name := "toplevel"
		if c, ok := fr.callable.(Callable); ok {
			name = c.Name()
		}
		ee.Frames = append(ee.Frames, EvalFrame{
			Name: name,
			Pos:  fr.Position(),
		})
	}
	return ee
}

// EvalFrame is one entry of an EvalError's backtrace.
type EvalFrame struct {
	Name string
	Pos  ast.Position
}

// EvalError decorates a runtime error with the thread's backtrace at the
// point of failure, innermost frame first, mirroring clox's runtimeError
// diagnostic format ("file:line: in functionName").
type EvalError struct {
	Err    error
	Frames []EvalFrame
}

func (e *EvalError) Error() string { return e.Err.Error() }
func (e *EvalError) Unwrap() error { return e.Err }

// Backtrace renders the full "file:line: in functionName" stack, innermost
// frame first.
func (e *EvalError) Backtrace() string {
	s := e.Err.Error()
	for _, fr := range e.Frames {
		s += fmt.Sprintf("\n\t%s: in %s", fr.Pos, fr.Name)
	}
	return s
}

func makeToplevelFunction(p *compiler.Program) *Function {
	// create the value denoted by each program constant
	constants := make([]Value, len(p.Constants))
	for i, c := range p.Constants {
		var v Value
		switch c := c.(type) {
		case int64:
			v = Int(c)
		case string:
			v = String(c)
		case float64:
			v = Float(c)
		default:
			panic(fmt.Sprintf("unexpected constant %T: %[1]v", c))
		}
		constants[i] = v
	}

	return &Function{
		Funcode: p.Toplevel,
		Module: &Module{
			Program:   p,
			Constants: constants,
		},
	}
}
