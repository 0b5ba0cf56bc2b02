package compiler

import (
	"fmt"
	"io"

	"github.com/loxcore/loxcore/lang/ast"
	"github.com/loxcore/loxcore/lang/token"
)

// Options controls optional compilation passes.
type Options struct {
	// DisableBopt disables the peephole optimizer (constant folding of
	// literal arithmetic/comparisons at codegen time). The zero Options runs
	// with it enabled.
	DisableBopt bool
	// Warn receives compile-time diagnostics the optimizer produces, such as
	// a constant expression that folds to a division by zero; nil discards
	// them.
	Warn io.Writer
}

// foldConst attempts to evaluate e entirely at compile time, returning the
// Go value it reduces to: nil, bool, int64, float64 or string. ok is false when e
// reads a variable, calls a function, or uses an operator this pass does not
// fold (e.g. "and"/"or", whose short-circuit codegen already avoids
// evaluating the unused operand).
func foldConst(e ast.Expr, warn io.Writer) (interface{}, bool) {
	switch e := e.(type) {
	case *ast.ParenExpr:
		return foldConst(e.Expr, warn)

	case *ast.LiteralExpr:
		switch e.Type {
		case token.NULL:
			return nil, true
		case token.TRUE:
			return true, true
		case token.FALSE:
			return false, true
		default:
			switch e.Value.(type) {
			case int64, float64, string:
				return e.Value, true
			}
			return nil, false
		}

	case *ast.UnaryOpExpr:
		v, ok := foldConst(e.Right, warn)
		if !ok {
			return nil, false
		}
		return foldUnary(e.Type, v)

	case *ast.BinOpExpr:
		if e.Type == token.AND || e.Type == token.OR {
			return nil, false
		}
		lv, ok := foldConst(e.Left, warn)
		if !ok {
			return nil, false
		}
		rv, ok := foldConst(e.Right, warn)
		if !ok {
			return nil, false
		}
		return foldBinary(e.Type, warn, lv, rv)
	}
	return nil, false
}

func foldUnary(op token.Token, v interface{}) (interface{}, bool) {
	switch op {
	case token.PLUS:
		switch v.(type) {
		case int64, float64:
			return v, true
		}
	case token.MINUS:
		switch v := v.(type) {
		case int64:
			return -v, true
		case float64:
			return -v, true
		}
	case token.TILDE:
		if v, ok := v.(int64); ok {
			return ^v, true
		}
	case token.NOT, token.BANG:
		if v, ok := v.(bool); ok {
			return !v, true
		}
	}
	return nil, false
}

func foldBinary(op token.Token, warn io.Writer, l, r interface{}) (interface{}, bool) {
	switch op {
	case token.PLUS:
		switch lv := l.(type) {
		case int64:
			switch rv := r.(type) {
			case int64:
				return lv + rv, true
			case float64:
				return float64(lv) + rv, true
			}
		case float64:
			switch rv := r.(type) {
			case int64:
				return lv + float64(rv), true
			case float64:
				return lv + rv, true
			}
		case string:
			if rv, ok := r.(string); ok {
				return lv + rv, true
			}
		}
		return nil, false

	case token.MINUS, token.STAR, token.SLASH, token.SLASHSLASH, token.PERCENT:
		return foldNumeric(op, warn, l, r)

	case token.CIRCUMFLEX, token.AMPERSAND, token.PIPE, token.TILDE, token.LTLT, token.GTGT:
		li, lok := l.(int64)
		ri, rok := r.(int64)
		if !lok || !rok {
			return nil, false
		}
		switch op {
		case token.CIRCUMFLEX:
			return li ^ ri, true
		case token.AMPERSAND:
			return li & ri, true
		case token.PIPE:
			return li | ri, true
		case token.TILDE:
			return li &^ ri, true
		case token.LTLT:
			return li << uint(ri), true
		case token.GTGT:
			return li >> uint(ri), true
		}
		return nil, false

	case token.LT, token.LE, token.GT, token.GE:
		return foldCompare(op, l, r)

	case token.EQEQ, token.BANGEQ:
		eq := l == r
		if op == token.BANGEQ {
			eq = !eq
		}
		return eq, true
	}
	return nil, false
}

func foldNumeric(op token.Token, warn io.Writer, l, r interface{}) (interface{}, bool) {
	li, lIsInt := l.(int64)
	ri, rIsInt := r.(int64)
	if lIsInt && rIsInt {
		switch op {
		case token.MINUS:
			return li - ri, true
		case token.STAR:
			return li * ri, true
		case token.SLASHSLASH:
			if ri == 0 {
				warnZeroDiv(warn, "integer division")
				return nil, false
			}
			return li / ri, true
		case token.PERCENT:
			if ri == 0 {
				warnZeroDiv(warn, "integer modulo")
				return nil, false
			}
			return li % ri, true
		case token.SLASH:
			if ri == 0 {
				warnZeroDiv(warn, "division")
				return nil, false
			}
			return float64(li) / float64(ri), true
		}
	}

	lf, lok := asFloat(l)
	rf, rok := asFloat(r)
	if !lok || !rok {
		return nil, false
	}
	switch op {
	case token.MINUS:
		return lf - rf, true
	case token.STAR:
		return lf * rf, true
	case token.SLASH, token.SLASHSLASH:
		if rf == 0 {
			warnZeroDiv(warn, "division")
			return nil, false
		}
		return lf / rf, true
	case token.PERCENT:
		if rf == 0 {
			warnZeroDiv(warn, "modulo")
			return nil, false
		}
		return float64(int64(lf) % int64(rf)), true
	}
	return nil, false
}

func foldCompare(op token.Token, l, r interface{}) (interface{}, bool) {
	if lf, lok := asFloat(l); lok {
		if rf, rok := asFloat(r); rok {
			switch op {
			case token.LT:
				return lf < rf, true
			case token.LE:
				return lf <= rf, true
			case token.GT:
				return lf > rf, true
			case token.GE:
				return lf >= rf, true
			}
		}
	}
	if ls, lok := l.(string); lok {
		if rs, rok := r.(string); rok {
			switch op {
			case token.LT:
				return ls < rs, true
			case token.LE:
				return ls <= rs, true
			case token.GT:
				return ls > rs, true
			case token.GE:
				return ls >= rs, true
			}
		}
	}
	return nil, false
}

func asFloat(v interface{}) (float64, bool) {
	switch v := v.(type) {
	case int64:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}

// warnZeroDiv reports a constant expression the optimizer declines to fold
// because it would divide by zero at compile time; the unfolded operands are
// left in place so the error is raised at run time instead, same as any
// other division by zero.
func warnZeroDiv(w io.Writer, kind string) {
	if w != nil {
		fmt.Fprintf(w, "warning: constant %s by zero left unfolded\n", kind)
	}
}
