package ast

import "github.com/loxcore/loxcore/lang/token"

type (
	// ClassInherit represents the "(expr)" or "!" clause following a class
	// name, naming the parent class to inherit from, if any.
	ClassInherit struct {
		Bang   token.Pos // set if '!' form, no parent
		Lparen token.Pos // 0 if '!' form
		Expr   Expr      // nil if no parent named
		Rparen token.Pos // 0 if '!' form
	}

	// ClassBody represents the fields and methods declared inside a class
	// statement or class expression, between "class Name(...)" and "end".
	ClassBody struct {
		Fields  []*AssignStmt // field declarations, always DeclStmt form
		Methods []*FuncStmt
		End     token.Pos
	}

	// FuncSignature represents a function's parameter list, e.g. "(a, b, ...c)"
	// or the "!" shorthand for a signature with no parameters.
	FuncSignature struct {
		Bang      token.Pos   // set if '!' form, no parameter list
		Lparen    token.Pos   // 0 if '!' form
		Params    []*IdentExpr
		Commas    []token.Pos // len(Params)-1, or len(Params) if DotDotDot is set
		DotDotDot token.Pos   // position of "..." if the last param is variadic
		Rparen    token.Pos   // 0 if '!' form
	}

	// KeyVal represents a single "key: value" entry of a map literal.
	KeyVal struct {
		Lbrack token.Pos // 0 unless the key is a bracketed expression
		Key    Expr
		Rbrack token.Pos // 0 unless the key is a bracketed expression
		Colon  token.Pos
		Value  Expr
	}
)
