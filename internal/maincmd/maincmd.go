package maincmd

import (
	"context"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/mna/mainer"
	"github.com/loxcore/loxcore/lang/gc"
)

const binName = "loxcore"

var (
	shortUsage = fmt.Sprintf(`
usage: %s [<option>...] <command> [<path>...] [-- <arg>...]
Run '%[1]s --help' for details.
`, binName)

	longUsage = fmt.Sprintf(`usage: %s [<option>...] <command> [<path>...] [-- <arg>...]
       %[1]s -h|--help
       %[1]s -v|--version

Compiler, VM and all-in-one tool for the loxcore scripting language.

The <command> can be one of:
       run                       Compile and execute the given script(s)
                                 (the default when no command is given).
       parse                     Execute the parser phase of the
                                 compilation and print the resulting
                                 abstract syntax tree (AST).
       resolve                   Execute the resolver phase of the
                                 compilation and print the resulting
                                 abstract syntax tree (AST) with symbol
                                 resolution information.
       tokenize                  Execute the scanner phase of the
                                 compilation and print the resulting
                                 tokens.
       repl                      Start an interactive read-eval-print loop.

Valid flag options are:
       -h --help                 Show this help and exit.
       -v --version              Print version and exit.
       -e <source>               Execute <source> instead of reading a file.
       -L <dir>                  Accepted (may be repeated) but not used:
                                 no command reads a load path.
       --parse-only              Stop after parsing, do not resolve/compile/run.
       --compile-only            Stop after compiling, do not run.
       --disable-bopt            Disable the peephole bytecode optimizer.
       --disable-gc              Disable garbage collection entirely.
       --stress-gc <mode>        One of none, young, full, both; forces a
                                 collection of the given generation(s) before
                                 every allocation.
       --profile-gc              Print live/freed object and slab counts to
                                 stderr after each collection.
       --debug-vm                Trace VM instruction execution to stderr.
       --debug-threads           Accepted but not used: no thread tracing
                                 is written.
       -D<name>[=<value>]        Accepted (may be repeated) but not used:
                                 no trace flag is read from it.

Valid flag options for the <parse> and <resolve> commands are:
       --with-comments           Include comments in the AST (excluded
                                 by default).

More information on the %[1]s repository:
       https://github.com/loxcore/loxcore
`, binName)
)

type Cmd struct {
	BuildVersion string
	BuildDate    string

	Help    bool `flag:"h,help"`
	Version bool `flag:"v,version"`

	Eval      string   `flag:"e"`
	LoadPaths []string `flag:"L"`
	Defines   []string `flag:"D"`

	ParseOnly   bool `flag:"parse-only"`
	CompileOnly bool `flag:"compile-only"`
	DisableBopt bool `flag:"disable-bopt"`
	DisableGC   bool `flag:"disable-gc"`
	StressGC    string `flag:"stress-gc"`
	ProfileGC   bool `flag:"profile-gc"`
	DebugVM     bool `flag:"debug-vm"`
	DebugThreads bool `flag:"debug-threads"`

	WithComments bool `flag:"with-comments"`

	args  []string
	flags map[string]bool
	cmdFn func(context.Context, mainer.Stdio, []string) error
}

func (c *Cmd) SetArgs(args []string) {
	c.args = args
}

func (c *Cmd) SetFlags(flags map[string]bool) {
	c.flags = flags
}

func (c *Cmd) Validate() error {
	if c.Help || c.Version {
		return nil
	}

	commands := buildCmds(c)

	cmdName := "run"
	fileArgs := c.args
	if len(c.args) > 0 {
		if _, ok := commands[c.args[0]]; ok {
			cmdName = c.args[0]
			fileArgs = c.args[1:]
		}
	}
	c.args = append([]string{cmdName}, fileArgs...)

	c.cmdFn = commands[cmdName]
	if c.cmdFn == nil {
		return fmt.Errorf("unknown command: %s", cmdName)
	}

	if cmdName != "repl" && c.Eval == "" && len(fileArgs) == 0 {
		return fmt.Errorf("%s: at least one file must be provided, or use -e", cmdName)
	}

	if c.flags["with-comments"] && cmdName != "parse" && cmdName != "resolve" {
		return fmt.Errorf("%s: invalid flag 'with-comments'", cmdName)
	}

	switch c.StressGC {
	case "", "none", "young", "full", "both":
	default:
		return fmt.Errorf("invalid --stress-gc value: %s", c.StressGC)
	}

	return nil
}

// newCollector builds the gc.Collector the Run/Repl commands attach to each
// Thread they create, honoring --disable-gc/--stress-gc/--profile-gc. It
// returns nil when GC tracking is fully off (the default: no stress mode, no
// profiling requested, and --disable-gc not set), so a Thread with no GC
// wiring pays nothing for it.
func (c *Cmd) newCollector(stdio mainer.Stdio) (*gc.Collector, error) {
	stress, err := gc.ParseStressMode(c.StressGC)
	if err != nil {
		return nil, err
	}
	if !c.DisableGC && stress == gc.StressNone && !c.ProfileGC {
		return nil, nil
	}
	cfg := gc.DefaultConfig()
	cfg.Disabled = c.DisableGC
	cfg.Stress = stress
	if c.ProfileGC {
		cfg.Profile = stdio.Stderr
	}
	return gc.New(cfg), nil
}

func printError(stdio mainer.Stdio, err error) error {
	if err != nil {
		fmt.Fprintf(stdio.Stderr, "%s\n", err)
	}
	return err
}

func (c *Cmd) Main(args []string, stdio mainer.Stdio) mainer.ExitCode {
	p := mainer.Parser{
		EnvVars:   true, // e.g. LOXCORE_DISABLE_GC=1, LOXCORE_STRESS_GC=full
		EnvPrefix: binName + "_",
	}
	if err := p.Parse(args, c); err != nil {
		fmt.Fprintf(stdio.Stderr, "invalid arguments: %s\n%s", err, shortUsage)
		return mainer.InvalidArgs
	}

	switch {
	case c.Help:
		fmt.Fprint(stdio.Stdout, longUsage)
		return mainer.Success

	case c.Version:
		fmt.Fprintf(stdio.Stdout, "%s %s %s\n", binName, c.BuildVersion, c.BuildDate)
		return mainer.Success
	}

	ctx := mainer.CancelOnSignal(context.Background(), os.Interrupt)
	if err := c.cmdFn(ctx, stdio, c.args[1:]); err != nil {
		// each command takes care of printing its errors, just return with an error code
		return mainer.Failure
	}
	return mainer.Success
}

// valid commands are those that take a mainer.Stdio and a slice of strings as
// input, and return an error as output.
func buildCmds(v interface{}) map[string]func(context.Context, mainer.Stdio, []string) error {
	cmds := make(map[string]func(context.Context, mainer.Stdio, []string) error)

	vv := reflect.ValueOf(v)
	vt := vv.Type()
	for i := 0; i < vt.NumMethod(); i++ {
		m := vt.Method(i)
		mt := m.Type

		// must take 4 parameters (including receiver) and return 1
		if mt.NumIn() != 4 || mt.NumOut() != 1 {
			continue
		}

		if rt := mt.Out(0); rt.Kind() != reflect.Interface || rt.Name() != "error" {
			continue
		}
		if p0 := mt.In(0); p0.Kind() != reflect.Ptr || p0.Elem().Name() != "Cmd" {
			continue
		}
		if p1 := mt.In(1); p1.Kind() != reflect.Interface || p1.Name() != "Context" {
			continue
		}
		if p2 := mt.In(2); p2.Kind() != reflect.Struct || p2.Name() != "Stdio" {
			continue
		}
		if p3 := mt.In(3); p3.Kind() != reflect.Slice || p3.Elem().Name() != "string" {
			continue
		}
		cmds[strings.ToLower(m.Name)] = vv.Method(i).Interface().(func(context.Context, mainer.Stdio, []string) error)
	}
	return cmds
}
