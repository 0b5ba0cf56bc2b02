package machine

import "fmt"

// Call invokes the function or Callable value fn with the given positional
// arguments on thread th, pushing and popping a Frame around the call so
// that backtraces and recursion/depth limits stay accurate.
func Call(th *Thread, fn Value, args *Tuple) (Value, error) {
	c, ok := fn.(Callable)
	if !ok {
		return nil, fmt.Errorf("invalid call of non-function (%s)", fn.Type())
	}

	if th.MaxCallStackDepth > 0 && len(th.callStack) >= th.MaxCallStackDepth {
		return nil, th.evalError(fmt.Errorf("call stack depth exceeded (max %d)", th.MaxCallStackDepth))
	}

	th.init()

	fr := new(Frame)
	fr.callable = c
	th.callStack = append(th.callStack, fr)

	defer func() {
		th.callStack = th.callStack[:len(th.callStack)-1]
	}()

	result, err := c.CallInternal(th, args)
	if result == nil && err == nil {
		err = fmt.Errorf("internal error: nil returned from %s", fn)
	}
	if err != nil {
		if _, ok := err.(*EvalError); !ok {
			err = th.evalError(err)
		}
	}
	return result, err
}
