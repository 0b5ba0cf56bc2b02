package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"
	"github.com/loxcore/loxcore/lang/compiler"
	"github.com/loxcore/loxcore/lang/machine"
	"github.com/loxcore/loxcore/lang/parser"
	"github.com/loxcore/loxcore/lang/resolver"
	"github.com/loxcore/loxcore/lang/scanner"
)

// Run is the default command: it parses, resolves, compiles and executes the
// given script(s), or the -e source, stopping early if --parse-only or
// --compile-only is set.
func (c *Cmd) Run(ctx context.Context, stdio mainer.Stdio, args []string) error {
	files, cleanup, err := c.resolveArgs(args)
	if err != nil {
		return printError(stdio, err)
	}
	defer cleanup()

	fs, chunks, perr := parser.ParseFiles(ctx, 0, files...)
	if perr != nil {
		scanner.PrintError(stdio.Stderr, perr)
		return perr
	}
	if c.ParseOnly {
		return nil
	}

	var resolveMode resolver.Mode
	if rerr := resolver.ResolveFiles(ctx, fs, chunks, resolveMode, nil, machine.IsUniverse); rerr != nil {
		scanner.PrintError(stdio.Stderr, rerr)
		return rerr
	}

	progs := compiler.CompileFiles(ctx, fs, chunks, compiler.Options{
		DisableBopt: c.DisableBopt,
		Warn:        stdio.Stderr,
	})
	if c.CompileOnly {
		for _, p := range progs {
			b, err := compiler.Dasm(p)
			if err != nil {
				return printError(stdio, err)
			}
			stdio.Stdout.Write(b)
		}
		return nil
	}

	collector, err := c.newCollector(stdio)
	if err != nil {
		return printError(stdio, err)
	}

	for _, p := range progs {
		th := &machine.Thread{
			Name:   p.Filename,
			Stdout: stdio.Stdout,
			Stderr: stdio.Stderr,
			Stdin:  stdio.Stdin,
			GC:     collector,
		}
		if c.DebugVM {
			th.DebugTrace = stdio.Stderr
		}
		if _, err := th.RunProgram(ctx, p); err != nil {
			fmt.Fprintf(stdio.Stderr, "%s\n", err)
			return err
		}
	}
	return nil
}

// resolveArgs normalizes the command's file arguments: when -e is set, its
// source is written to a temp file (since the scanner/parser pipeline reads
// from named files) and that path is used instead, cleaned up by the
// returned function.
func (c *Cmd) resolveArgs(args []string) ([]string, func(), error) {
	if c.Eval == "" {
		return args, func() {}, nil
	}
	f, err := os.CreateTemp("", "loxcore-e-*.lox")
	if err != nil {
		return nil, nil, err
	}
	if _, err := f.WriteString(c.Eval); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, nil, err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return nil, nil, err
	}
	name := f.Name()
	return []string{name}, func() { os.Remove(name) }, nil
}
