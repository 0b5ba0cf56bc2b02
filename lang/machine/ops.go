package machine

import (
	"fmt"

	"github.com/loxcore/loxcore/lang/token"
)

func typeError(op string, x, y Value) error {
	if y == nil {
		return fmt.Errorf("unsupported operand type for %s: %s", op, x.Type())
	}
	return fmt.Errorf("unsupported operand types for %s: %s and %s", op, x.Type(), y.Type())
}

// Compare implements all six comparison operators for any pair of operands
// that define the required behavior: equality comparisons (EQEQ, BANGEQ) fall
// back to identity/HasEqual semantics, while ordering comparisons (LT, LE,
// GT, GE) require both operands to implement Ordered.
func Compare(op token.Token, x, y Value) (bool, error) {
	if op == token.EQEQ || op == token.BANGEQ {
		eq, err := valuesEqual(x, y)
		if err != nil {
			return false, err
		}
		if op == token.BANGEQ {
			return !eq, nil
		}
		return eq, nil
	}

	xo, ok := x.(Ordered)
	if !ok {
		return false, typeError(op.GoString(), x, y)
	}
	c, err := xo.Cmp(y)
	if err != nil {
		return false, err
	}
	switch op {
	case token.LT:
		return c < 0, nil
	case token.LE:
		return c <= 0, nil
	case token.GT:
		return c > 0, nil
	case token.GE:
		return c >= 0, nil
	}
	return false, fmt.Errorf("internal error: unexpected comparison operator %s", op.GoString())
}

func valuesEqual(x, y Value) (bool, error) {
	if hx, ok := x.(HasEqual); ok {
		return hx.Equals(y)
	}
	if xo, ok := x.(Ordered); ok {
		yType, xType := y.Type(), x.Type()
		if xType != yType {
			return false, nil
		}
		c, err := xo.Cmp(y)
		if err != nil {
			return false, err
		}
		return c == 0, nil
	}
	return x == y, nil
}

// Binary implements the binary arithmetic and bitwise operators. Int
// operands combine to produce an Int; mixing Int and Float promotes to
// Float; String concatenation is supported via PLUS; other combinations
// delegate to a HasBinary implementation, if any.
func Binary(op token.Token, x, y Value) (Value, error) {
	switch op {
	case token.PLUS:
		switch x := x.(type) {
		case Int:
			switch y := y.(type) {
			case Int:
				return x + y, nil
			case Float:
				return Float(x) + y, nil
			}
		case Float:
			switch y := y.(type) {
			case Int:
				return x + Float(y), nil
			case Float:
				return x + y, nil
			}
		case String:
			if y, ok := y.(String); ok {
				return x + y, nil
			}
		}
	case token.MINUS, token.STAR, token.SLASH, token.SLASHSLASH, token.PERCENT:
		return numericBinary(op, x, y)
	case token.CIRCUMFLEX, token.AMPERSAND, token.PIPE, token.TILDE, token.LTLT, token.GTGT:
		return intBinary(op, x, y)
	}

	if hx, ok := x.(HasBinary); ok {
		z, err := hx.Binary(op, y, Left)
		if err != nil {
			return nil, err
		}
		if z != nil {
			return z, nil
		}
	}
	if hy, ok := y.(HasBinary); ok {
		z, err := hy.Binary(op, x, Right)
		if err != nil {
			return nil, err
		}
		if z != nil {
			return z, nil
		}
	}
	return nil, typeError(op.GoString(), x, y)
}

func numericBinary(op token.Token, x, y Value) (Value, error) {
	xi, xIsInt := x.(Int)
	yi, yIsInt := y.(Int)
	if xIsInt && yIsInt {
		switch op {
		case token.MINUS:
			return xi - yi, nil
		case token.STAR:
			return xi * yi, nil
		case token.SLASHSLASH:
			if yi == 0 {
				return nil, fmt.Errorf("integer division by zero")
			}
			return xi / yi, nil
		case token.PERCENT:
			if yi == 0 {
				return nil, fmt.Errorf("integer modulo by zero")
			}
			return xi % yi, nil
		case token.SLASH:
			if yi == 0 {
				return nil, fmt.Errorf("division by zero")
			}
			return Float(xi) / Float(yi), nil
		}
	}

	xf, xok := asFloat(x)
	yf, yok := asFloat(y)
	if !xok || !yok {
		return nil, typeError(op.GoString(), x, y)
	}
	switch op {
	case token.MINUS:
		return xf - yf, nil
	case token.STAR:
		return xf * yf, nil
	case token.SLASH, token.SLASHSLASH:
		if yf == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return xf / yf, nil
	case token.PERCENT:
		if int64(yf) == 0 {
			return nil, fmt.Errorf("modulo by zero")
		}
		return Float(int64(xf) % int64(yf)), nil
	}
	return nil, typeError(op.GoString(), x, y)
}

func asFloat(v Value) (Float, bool) {
	switch v := v.(type) {
	case Int:
		return Float(v), true
	case Float:
		return v, true
	}
	return 0, false
}

func intBinary(op token.Token, x, y Value) (Value, error) {
	xi, ok := x.(Int)
	if !ok {
		return nil, typeError(op.GoString(), x, y)
	}
	yi, ok := y.(Int)
	if !ok {
		return nil, typeError(op.GoString(), x, y)
	}
	switch op {
	case token.CIRCUMFLEX:
		return xi ^ yi, nil
	case token.AMPERSAND:
		return xi & yi, nil
	case token.PIPE:
		return xi | yi, nil
	case token.TILDE:
		return xi &^ yi, nil
	case token.LTLT:
		return xi << uint(yi), nil
	case token.GTGT:
		return xi >> uint(yi), nil
	}
	return nil, typeError(op.GoString(), x, y)
}

// Unary implements the unary operators: UPLUS, UMINUS, UTILDE (bitwise not)
// and POUND (length-of).
func Unary(op token.Token, x Value) (Value, error) {
	switch op {
	case token.PLUS:
		switch x := x.(type) {
		case Int, Float:
			return x, nil
		}
	case token.MINUS:
		switch x := x.(type) {
		case Int:
			return -x, nil
		case Float:
			return -x, nil
		}
	case token.TILDE:
		if x, ok := x.(Int); ok {
			return ^x, nil
		}
	case token.POUND:
		if s, ok := x.(Sequence); ok {
			return Int(s.Len()), nil
		}
		if s, ok := x.(Indexable); ok {
			return Int(s.Len()), nil
		}
	}

	if hx, ok := x.(HasUnary); ok {
		z, err := hx.Unary(op)
		if err != nil {
			return nil, err
		}
		if z != nil {
			return z, nil
		}
	}
	return nil, typeError(op.GoString(), x, nil)
}

// Iterate returns an Iterator over x, or nil if x is not Iterable.
func Iterate(x Value) Iterator {
	if it, ok := x.(Iterable); ok {
		return it.Iterate()
	}
	return nil
}

func getIndex(x, y Value) (Value, error) {
	switch x := x.(type) {
	case Indexable:
		i, err := asIndex(y)
		if err != nil {
			return nil, err
		}
		n := x.Len()
		if i < 0 {
			i += n
		}
		if i < 0 || i >= n {
			return nil, fmt.Errorf("index out of range: %d (len %d)", i, n)
		}
		return x.Index(i), nil
	case Mapping:
		v, found, err := x.Get(y)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, fmt.Errorf("key not found: %s", y.String())
		}
		return v, nil
	}
	return nil, fmt.Errorf("%s value is not indexable", x.Type())
}

func setIndex(x, y, z Value) error {
	switch x := x.(type) {
	case HasSetIndex:
		i, err := asIndex(y)
		if err != nil {
			return err
		}
		n := x.Len()
		if i < 0 {
			i += n
		}
		if i < 0 || i >= n {
			return fmt.Errorf("index out of range: %d (len %d)", i, n)
		}
		return x.SetIndex(i, z)
	case HasSetKey:
		return x.SetKey(y, z)
	}
	return fmt.Errorf("%s value does not support index assignment", x.Type())
}

func asIndex(v Value) (int, error) {
	i, ok := v.(Int)
	if !ok {
		return 0, fmt.Errorf("index must be an int, not %s", v.Type())
	}
	return int(i), nil
}

func getAttr(x Value, name string) (Value, error) {
	hx, ok := x.(HasAttrs)
	if !ok {
		return nil, fmt.Errorf("%s value has no field or method %q", x.Type(), name)
	}
	v, err := hx.Attr(name)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, fmt.Errorf("%s value has no field or method %q", x.Type(), name)
	}
	return v, nil
}

func setField(x Value, name string, v Value) error {
	hx, ok := x.(HasSetField)
	if !ok {
		return fmt.Errorf("%s value does not support field assignment", x.Type())
	}
	return hx.SetField(name, v)
}
