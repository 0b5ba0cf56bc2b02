package machine

import (
	"errors"
	"fmt"
)

// A ThrownError wraps an arbitrary Value passed to the "throw" statement, so
// that the exact value reaches a catch clause (via GETTHROWN) instead of
// being flattened to a message string, the way a plain Go error would be.
type ThrownError struct {
	Value Value
}

func (e *ThrownError) Error() string {
	if s, ok := e.Value.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%v", e.Value)
}

// errorClasses holds the bootstrap Error hierarchy, registered into Universe
// so programs can reference them by name (e.g. "catch (TypeError e) do").
var errorClasses map[string]*Class

func init() {
	mk := func(name string, super *Class) *Class {
		c := &Class{
			name:          name,
			Super:         super,
			methods:       map[string]*Function{},
			fieldDefaults: map[string]Value{"message": String("")},
		}
		errorClasses[name] = c
		return c
	}
	errorClasses = make(map[string]*Class)
	errCls := mk("Error", nil)
	mk("ArgumentError", errCls)
	mk("TypeError", errCls)
	mk("NameError", errCls)
	mk("SyntaxError", errCls)
	sysErr := mk("SystemError", errCls)
	mk("LoadError", sysErr)
	mk("RecursionError", errCls)

	for name, c := range errorClasses {
		Universe[name] = c
	}

	// Internal, user-invisible non-local-exit signals for block iteration
	// ("blockGiven"-style constructs): caught exclusively by the yielding
	// construct, never by a user catch clause, so they are added to
	// errorClasses (for classMatches/IsOrInherits to see) but never to
	// Universe.
	blockIterErr := mk("BlockIterError", errCls)
	mk("BlockBreakError", blockIterErr)
	mk("BlockContinueError", blockIterErr)
	mk("BlockReturnError", blockIterErr)
	Universe["class"] = NewBuiltin("class", classBuiltin)
	Universe["module"] = NewBuiltin("module", moduleBuiltin)
	Universe["throw"] = NewBuiltin("throw", throwBuiltin)
	Universe["Regex"] = NewBuiltin("Regex", regexBuiltin)
	registerBuiltins()
}

// newErrorInstance builds an Instance of class (defaulting to the root
// "Error" class if nil) with its "message" field set.
func newErrorInstance(class *Class, message string) *Instance {
	if class == nil {
		class = errorClasses["Error"]
	}
	return &Instance{
		class:  class,
		fields: map[string]Value{"message": String(message)},
	}
}

// throwBuiltin implements the "throw" statement's compiled call: it turns its
// single argument into a propagating error, unwound by RUNDEFER/DEFEREXIT/
// CATCHJMP the same way any other runtime error is.
func throwBuiltin(th *Thread, args *Tuple) (Value, error) {
	if err := requireArgs("throw", args, 1); err != nil {
		return nil, err
	}
	return nil, &ThrownError{Value: args.Index(0)}
}

// errorToValue converts the current in-flight Go error into the Value a
// catch clause's GETTHROWN should observe: a thrown value is returned as-is,
// anything else (an ordinary Go error raised by the runtime itself, e.g. a
// type error from an arithmetic operator) is wrapped as an instance of the
// builtin Error class.
func errorToValue(err error) Value {
	if err == nil {
		return Nil
	}
	var te *ThrownError
	if errors.As(err, &te) {
		return te.Value
	}
	return newErrorInstance(errorClasses["Error"], err.Error())
}

// classMatches reports whether the value thrown (v) satisfies a catch
// clause's class filter. An empty filter (a plain "catch do .. end") matches
// anything. A thrown value that isn't an Instance (e.g. a bare string) can
// only satisfy the empty filter.
func classMatches(v Value, filter string) bool {
	if filter == "" {
		return true
	}
	inst, ok := v.(*Instance)
	if !ok {
		return false
	}
	return inst.Class().IsOrInherits(filter)
}
