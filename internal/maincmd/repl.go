package maincmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/chzyer/readline"
	"github.com/mattn/go-isatty"
	"github.com/mna/mainer"
	"github.com/loxcore/loxcore/lang/compiler"
	"github.com/loxcore/loxcore/lang/gc"
	"github.com/loxcore/loxcore/lang/machine"
	"github.com/loxcore/loxcore/lang/parser"
	"github.com/loxcore/loxcore/lang/resolver"
	"github.com/loxcore/loxcore/lang/scanner"
)

// Repl starts an interactive read-eval-print loop, one line of source at a
// time. Each line runs on its own Thread (RunProgram may only be called once
// per Thread), so variables declared at toplevel on one line do not persist
// to the next -- a documented limitation of this thin driver, not a goal of
// the language itself.
func (c *Cmd) Repl(ctx context.Context, stdio mainer.Stdio, args []string) error {
	collector, err := c.newCollector(stdio)
	if err != nil {
		return printError(stdio, err)
	}
	if f, ok := stdio.Stdin.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		return c.replInteractive(ctx, stdio, collector)
	}
	return c.replPiped(ctx, stdio, collector)
}

func (c *Cmd) replInteractive(ctx context.Context, stdio mainer.Stdio, collector *gc.Collector) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "lox> ",
		HistoryFile:     "",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		Stdin:           stdio.Stdin,
		Stdout:          stdio.Stdout,
		Stderr:          stdio.Stderr,
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if err != nil {
			return nil // io.EOF or similar: exit cleanly
		}
		if line == "" {
			continue
		}
		c.evalLine(ctx, stdio, line, collector)
	}
}

func (c *Cmd) replPiped(ctx context.Context, stdio mainer.Stdio, collector *gc.Collector) error {
	sc := bufio.NewScanner(stdio.Stdin)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		c.evalLine(ctx, stdio, line, collector)
	}
	if err := sc.Err(); err != nil && !errors.Is(err, io.EOF) {
		return printError(stdio, err)
	}
	return nil
}

// evalLine parses, resolves, compiles and runs a single line of source on a
// fresh Thread, printing any error to stderr without aborting the loop.
func (c *Cmd) evalLine(ctx context.Context, stdio mainer.Stdio, line string, collector *gc.Collector) {
	f, err := os.CreateTemp("", "loxcore-repl-*.lox")
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return
	}
	defer os.Remove(f.Name())
	if _, err := f.WriteString(line); err != nil {
		f.Close()
		fmt.Fprintln(stdio.Stderr, err)
		return
	}
	f.Close()

	fs, chunks, perr := parser.ParseFiles(ctx, 0, f.Name())
	if perr != nil {
		scanner.PrintError(stdio.Stderr, perr)
		return
	}
	if err := resolver.ResolveFiles(ctx, fs, chunks, 0, nil, machine.IsUniverse); err != nil {
		scanner.PrintError(stdio.Stderr, err)
		return
	}
	progs := compiler.CompileFiles(ctx, fs, chunks, compiler.Options{
		DisableBopt: c.DisableBopt,
		Warn:        stdio.Stderr,
	})
	for _, p := range progs {
		th := &machine.Thread{
			Name:   "repl",
			Stdout: stdio.Stdout,
			Stderr: stdio.Stderr,
			Stdin:  stdio.Stdin,
			GC:     collector,
		}
		if c.DebugVM {
			th.DebugTrace = stdio.Stderr
		}
		if v, err := th.RunProgram(ctx, p); err != nil {
			fmt.Fprintln(stdio.Stderr, err)
		} else if v != nil && v != machine.Nil {
			fmt.Fprintln(stdio.Stdout, v)
		}
	}
}
