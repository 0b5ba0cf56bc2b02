package machine

import (
	"fmt"
	"time"
)

// registerBuiltins adds the native functions predeclared in every program
// (print, len, clock, typeof, classof, sleep, freeze, frozen) to Universe.
// Called from errors.go's init after the Error class hierarchy exists, since classof
// needs no bootstrap ordering but print/len do not depend on it either --
// kept in one place so the native function table lives next to the other
// Universe entries.
func registerBuiltins() {
	Universe["print"] = NewBuiltin("print", printBuiltin)
	Universe["len"] = NewBuiltin("len", lenBuiltin)
	Universe["clock"] = NewBuiltin("clock", clockBuiltin)
	Universe["typeof"] = NewBuiltin("typeof", typeOfBuiltin)
	Universe["classof"] = NewBuiltin("classof", classOfBuiltin)
	Universe["sleep"] = NewBuiltin("sleep", sleepBuiltin)
	Universe["freeze"] = NewBuiltin("freeze", freezeBuiltin)
	Universe["frozen"] = NewBuiltin("frozen", frozenBuiltin)
}

// displayString renders v the way "print" should: unquoted for strings (a
// user-facing display form), the usual String() representation otherwise.
func displayString(v Value) string {
	if s, ok := v.(String); ok {
		return string(s)
	}
	return v.String()
}

func printBuiltin(th *Thread, args *Tuple) (Value, error) {
	for i := 0; i < args.Len(); i++ {
		if i > 0 {
			fmt.Fprint(th.stdout, " ")
		}
		fmt.Fprint(th.stdout, displayString(args.Index(i)))
	}
	fmt.Fprintln(th.stdout)
	return Nil, nil
}

func lenBuiltin(th *Thread, args *Tuple) (Value, error) {
	if err := requireArgs("len", args, 1); err != nil {
		return nil, err
	}
	switch v := args.Index(0).(type) {
	case Sequence:
		return Int(v.Len()), nil
	case Indexable:
		return Int(v.Len()), nil
	default:
		return nil, newErrorInstance(errorClasses["TypeError"], fmt.Sprintf("len: %s has no length", v.Type()))
	}
}

// clockBuiltin returns the number of seconds elapsed since the process
// started, as a Float, following clox's native clock() (wall-clock, not
// monotonic-only CPU time -- good enough for the scripts that call it).
var processStart = time.Now()

func clockBuiltin(th *Thread, args *Tuple) (Value, error) {
	if err := requireArgs("clock", args, 0); err != nil {
		return nil, err
	}
	return Float(time.Since(processStart).Seconds()), nil
}

// typeOfBuiltin returns the tag name for v's runtime type: "nil", "bool",
// "number" (both Int and Float), "string", "array", "map", "instance",
// "class", "function", or "regex".
func typeOfBuiltin(th *Thread, args *Tuple) (Value, error) {
	if err := requireArgs("typeof", args, 1); err != nil {
		return nil, err
	}
	switch v := args.Index(0).(type) {
	case NilType:
		return String("nil"), nil
	case Bool:
		return String("bool"), nil
	case Int, Float:
		return String("number"), nil
	case String:
		return String("string"), nil
	case *Array:
		return String("array"), nil
	case *Map:
		return String("map"), nil
	case *Instance:
		return String("instance"), nil
	case *Class:
		return String("class"), nil
	case *Function, *Builtin, *BoundMethod:
		return String("function"), nil
	default:
		return String(v.Type()), nil
	}
}

// classOfBuiltin returns the Class of an Instance, or Nil for any value that
// isn't one (there is no boxed class for primitive types).
func classOfBuiltin(th *Thread, args *Tuple) (Value, error) {
	if err := requireArgs("classof", args, 1); err != nil {
		return nil, err
	}
	inst, ok := args.Index(0).(*Instance)
	if !ok {
		return Nil, nil
	}
	return inst.Class(), nil
}

// freezeBuiltin marks x frozen, so future mutation through it is rejected,
// and returns x. Arrays and Instances are Freezable; any other value
// (including a Map, which stays mutable) is returned unchanged.
func freezeBuiltin(th *Thread, args *Tuple) (Value, error) {
	if err := requireArgs("freeze", args, 1); err != nil {
		return nil, err
	}
	v := args.Index(0)
	if f, ok := v.(Freezable); ok {
		f.Freeze()
	}
	return v, nil
}

// frozenBuiltin reports whether x has been frozen. Values that are not
// Freezable (including Maps) report false.
func frozenBuiltin(th *Thread, args *Tuple) (Value, error) {
	if err := requireArgs("frozen", args, 1); err != nil {
		return nil, err
	}
	if f, ok := args.Index(0).(Freezable); ok {
		return Bool(f.Frozen()), nil
	}
	return Bool(false), nil
}

// sleepBuiltin pauses the calling thread for the given number of seconds.
// There is no global VM lock to release, so a plain timer wait suffices; it
// ends early if the thread's context is cancelled.
func sleepBuiltin(th *Thread, args *Tuple) (Value, error) {
	if err := requireArgs("sleep", args, 1); err != nil {
		return nil, err
	}
	var secs float64
	switch n := args.Index(0).(type) {
	case Int:
		secs = float64(n)
	case Float:
		secs = float64(n)
	default:
		return nil, newErrorInstance(errorClasses["TypeError"], fmt.Sprintf("sleep: expected a number, got %s", n.Type()))
	}
	select {
	case <-time.After(time.Duration(secs * float64(time.Second))):
	case <-th.ctx.Done():
	}
	return Nil, nil
}
