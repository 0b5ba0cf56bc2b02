package token

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenString(t *testing.T) {
	for tok := IDENT; tok < maxToken; tok++ {
		if tok == NOT_IN {
			continue
		}
		if tok.String() == "" {
			t.Errorf("missing string representation of token %d", tok)
		}
	}
}

func TestLookupKw(t *testing.T) {
	for name, tok := range Keywords {
		require.Equal(t, tok, LookupKw(name))
		require.True(t, tok.IsKeyword())
	}
	require.Equal(t, IDENT, LookupKw("notAKeyword"))
}

func TestLookupPunct(t *testing.T) {
	for tok := punctStart + 1; tok < punctEnd; tok++ {
		require.Equal(t, tok, LookupPunct(tok.String()))
	}
	require.Equal(t, ILLEGAL, LookupPunct("@@@"))
}

func TestIsAugBinop(t *testing.T) {
	for _, tok := range []Token{PLUSEQ, MINUSEQ, STAREQ, SLASHEQ, PERCENTEQ} {
		require.True(t, tok.IsAugBinop())
	}
	require.False(t, PLUS.IsAugBinop())
	require.False(t, AND.IsAugBinop())
}

func TestIsBinop(t *testing.T) {
	for _, tok := range []Token{PLUS, MINUS, STAR, SLASH, AND, OR, EQEQ, BANGEQ, LT, GE} {
		require.True(t, tok.IsBinop())
	}
	require.False(t, PLUSEQ.IsBinop())
	require.False(t, LPAREN.IsBinop())
	require.False(t, NOT.IsBinop())
}

func TestIsUnop(t *testing.T) {
	for _, tok := range []Token{NOT, TRY, MUST, MINUS, PLUS, TILDE, BANG} {
		require.True(t, tok.IsUnop())
	}
	require.False(t, AND.IsUnop())
	require.False(t, STAR.IsUnop())
}

func TestIsAtom(t *testing.T) {
	for _, tok := range []Token{INT, FLOAT, STRING, NULL, TRUE, FALSE} {
		require.True(t, tok.IsAtom())
	}
	require.False(t, IDENT.IsAtom())
	require.False(t, COMMENT.IsAtom())
	require.False(t, PLUS.IsAtom())
}

func TestLiteral(t *testing.T) {
	val := Value{
		Raw:    "ident",
		String: "string",
		Int:    1,
		Float:  2,
	}

	got := IDENT.Literal(val)
	require.Equal(t, val.Raw, got)
	got = STRING.Literal(val)
	require.Equal(t, `"string"`, got)
	got = COMMENT.Literal(val)
	require.Equal(t, val.String, got)
	got = INT.Literal(val)
	require.Equal(t, "1", got)
	got = FLOAT.Literal(val)
	require.Equal(t, "2", got)
	got = ILLEGAL.Literal(val)
	require.Equal(t, "", got)
}
