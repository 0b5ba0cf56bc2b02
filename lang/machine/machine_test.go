package machine_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/loxcore/loxcore/lang/compiler"
	"github.com/loxcore/loxcore/lang/machine"
	"github.com/loxcore/loxcore/lang/parser"
	"github.com/loxcore/loxcore/lang/resolver"
	"github.com/stretchr/testify/require"
)

// run compiles and executes src as a single-file program, the same pipeline
// internal/maincmd.Run drives, and returns the program's stdout and any
// error.
func run(t *testing.T, src string) (string, error) {
	t.Helper()

	dir := t.TempDir()
	filename := filepath.Join(dir, "main.lox")
	require.NoError(t, os.WriteFile(filename, []byte(src), 0o644))

	ctx := context.Background()
	fset, chunks, err := parser.ParseFiles(ctx, 0, filename)
	require.NoError(t, err)

	require.NoError(t, resolver.ResolveFiles(ctx, fset, chunks, 0, nil, machine.IsUniverse))

	var warn bytes.Buffer
	progs := compiler.CompileFiles(ctx, fset, chunks, compiler.Options{Warn: &warn})
	require.Len(t, progs, 1)

	var stdout bytes.Buffer
	th := &machine.Thread{Name: filename, Stdout: &stdout}
	_, err = th.RunProgram(ctx, progs[0])
	return stdout.String(), err
}

// dasm compiles src and returns its disassembly, so a test can assert on the
// exact emitted opcodes (e.g. that constant folding removed an arithmetic
// opcode entirely).
func dasm(t *testing.T, src string, opts compiler.Options) string {
	t.Helper()

	dir := t.TempDir()
	filename := filepath.Join(dir, "main.lox")
	require.NoError(t, os.WriteFile(filename, []byte(src), 0o644))

	ctx := context.Background()
	fset, chunks, err := parser.ParseFiles(ctx, 0, filename)
	require.NoError(t, err)
	require.NoError(t, resolver.ResolveFiles(ctx, fset, chunks, 0, nil, machine.IsUniverse))

	progs := compiler.CompileFiles(ctx, fset, chunks, opts)
	require.Len(t, progs, 1)

	b, err := compiler.Dasm(progs[0])
	require.NoError(t, err)
	return string(b)
}

func TestConstantFolding(t *testing.T) {
	out := dasm(t, `print(1 + 2 * 3)`, compiler.Options{})
	require.Contains(t, out, "constant")
	require.NotContains(t, out, "plus")
	require.NotContains(t, out, "star")

	s, err := run(t, `print(1 + 2 * 3)`)
	require.NoError(t, err)
	require.Equal(t, "7\n", s)
}

func TestConstantFoldingDisabled(t *testing.T) {
	out := dasm(t, `print(1 + 2 * 3)`, compiler.Options{DisableBopt: true})
	require.Contains(t, out, "plus")
	require.Contains(t, out, "star")
}

func TestClassesAndInheritance(t *testing.T) {
	src := `
class Animal!
	function init(name)
		this.name = name
	end

	function speak()
		return this.name + " makes a noise"
	end
end

class Dog(Animal)
	function speak()
		return super.speak() + ", specifically a bark"
	end
end

let d = Dog("Rex")
print(d.speak())
`
	s, err := run(t, src)
	require.NoError(t, err)
	require.Equal(t, "Rex makes a noise, specifically a bark\n", s)
}

func TestGetterSetter(t *testing.T) {
	src := `
class Celsius!
	function init(value)
		this.raw = value
	end

	function get_fahrenheit()
		return this.raw * 9 / 5 + 32
	end

	function set_fahrenheit(f)
		this.raw = (f - 32) * 5 / 9
	end
end

let c = Celsius(100)
print(c.fahrenheit)
c.fahrenheit = 32
print(c.raw)
`
	s, err := run(t, src)
	require.NoError(t, err)
	require.Equal(t, "212\n0\n", s)
}

func TestFrozenInstanceRejectsMutation(t *testing.T) {
	src := `
class Point!
	function init(x, y)
		this.x = x
		this.y = y
	end
end

let p = Point(1, 2)
p.freeze()
print(p.frozen)
p.x = 10
`
	s, err := run(t, src)
	require.Error(t, err)
	require.ErrorContains(t, err, "frozen")
	require.Equal(t, "true\n", s)
}

func TestModuleInclude(t *testing.T) {
	src := `
let Greetable = module("Greetable", {
	"greet": function(self)
		return "hello, " + self.name
	end
})

class Person!
	function init(name)
		this.name = name
	end
end

Person.include(Greetable)

let p = Person("Ada")
print(p.greet())
`
	s, err := run(t, src)
	require.NoError(t, err)
	require.Equal(t, "hello, Ada\n", s)
}

func TestSingletonClassDefinesPerInstanceMethod(t *testing.T) {
	src := `
class Widget!
	function init(name)
		this.name = name
	end
end

let a = Widget("A")

a.singletonClass().defineMethod("shout", function(self)
	return self.name + "!"
end)

print(a.shout())
`
	s, err := run(t, src)
	require.NoError(t, err)
	require.Equal(t, "A!\n", s)
}

func TestClosureCapturesSharedUpvalue(t *testing.T) {
	src := `
function makeCounter()
	let count = 0
	return function()
		count = count + 1
		return count
	end
end

let counter = makeCounter()
print(counter())
print(counter())
print(counter())
`
	s, err := run(t, src)
	require.NoError(t, err)
	require.Equal(t, "1\n2\n3\n", s)
}

func TestCatchHandlesThrownError(t *testing.T) {
	src := `
class MyError(ArgumentError)
	function init(msg)
		this.message = msg
	end
end

function risky()
	catch (ArgumentError e)
		print(e.message)
	end
	throw MyError("cannot divide by zero")
end

risky()
`
	s, err := run(t, src)
	require.NoError(t, err)
	require.Equal(t, "cannot divide by zero\n", s)
}
