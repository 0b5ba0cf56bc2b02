package regex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustCompile(t *testing.T, src string) *Pattern {
	t.Helper()
	p, err := Compile(src, Options{})
	require.NoError(t, err)
	return p
}

func TestLiteralMatch(t *testing.T) {
	p := mustCompile(t, "abc")
	m := p.Find("xxabcyy")
	assert.True(t, m.Matched)
	assert.Equal(t, 2, m.Start)
	assert.Equal(t, 3, m.Len)
}

func TestEmptyPatternMatchesEmptyAndNonEmpty(t *testing.T) {
	p := mustCompile(t, "")
	assert.True(t, p.Find("").Matched)
	assert.True(t, p.Find("hello").Matched)
	assert.Equal(t, 0, p.Find("hello").Start)
	assert.Equal(t, 0, p.Find("hello").Len)
}

func TestDotMatchesAnyChar(t *testing.T) {
	p := mustCompile(t, "a.c")
	assert.True(t, p.Test("abc"))
	assert.True(t, p.Test("azc"))
	assert.False(t, p.Test("ac"))
}

func TestStarGreedyWithBacktrack(t *testing.T) {
	p := mustCompile(t, "a*b")
	m := p.Find("aaab")
	require.True(t, m.Matched)
	assert.Equal(t, 0, m.Start)
	assert.Equal(t, 4, m.Len)
}

func TestPlusRequiresAtLeastOne(t *testing.T) {
	p := mustCompile(t, "a+")
	assert.False(t, p.Test("bbb"))
	m := mustCompile(t, "a+").Find("baaab")
	require.True(t, m.Matched)
	assert.Equal(t, 1, m.Start)
	assert.Equal(t, 3, m.Len)
}

func TestMaybe(t *testing.T) {
	p := mustCompile(t, "colou?r")
	assert.True(t, p.Test("color"))
	assert.True(t, p.Test("colour"))
	assert.False(t, p.Test("colouur"))
}

func TestRepeatN(t *testing.T) {
	p := mustCompile(t, "a{2,3}")
	assert.False(t, p.Test("xax"))
	m := p.Find("xaaaax")
	require.True(t, m.Matched)
	assert.Equal(t, 3, m.Len)
}

func TestOr(t *testing.T) {
	p := mustCompile(t, "cat|dog")
	assert.True(t, p.Test("I have a dog"))
	assert.True(t, p.Test("I have a cat"))
	assert.False(t, p.Test("I have a bird"))
}

func TestCharacterClassRanges(t *testing.T) {
	p := mustCompile(t, "[a-z0-9_]+")
	m := p.Find("***hello_123***")
	require.True(t, m.Matched)
	assert.Equal(t, 3, m.Start)
	assert.Equal(t, 9, m.Len)
}

func TestNegatedCharacterClass(t *testing.T) {
	p := mustCompile(t, "[^0-9]+")
	m := p.Find("123abc456")
	require.True(t, m.Matched)
	assert.Equal(t, 3, m.Start)
	assert.Equal(t, 3, m.Len)
}

func TestEscapeClasses(t *testing.T) {
	assert.True(t, mustCompile(t, `\d+`).Test("abc123"))
	assert.True(t, mustCompile(t, `\s`).Test("a b"))
	assert.True(t, mustCompile(t, `\w+`).Test("_hi9"))
	assert.False(t, mustCompile(t, `\D`).Test("5"))
}

func TestWordBoundary(t *testing.T) {
	p := mustCompile(t, `\bcat\b`)
	assert.True(t, p.Test("a cat sat"))
	assert.False(t, p.Test("concatenate"))
}

func TestAnchors(t *testing.T) {
	assert.True(t, mustCompile(t, "^abc").Test("abc\ndef"))
	assert.False(t, mustCompile(t, `\Aabc`).Test("xabc"))
	assert.True(t, mustCompile(t, "abc$").Test("xx\nabc"))
}

func TestGroupCapture(t *testing.T) {
	p := mustCompile(t, "(a+)(b+)")
	m := p.Find("xxaaabbbyy")
	require.True(t, m.Matched)
	require.Len(t, m.Groups, 2)
	assert.Equal(t, Span{Start: 2, End: 5}, m.Groups[0])
	assert.Equal(t, Span{Start: 5, End: 8}, m.Groups[1])
}

func TestCaseInsensitive(t *testing.T) {
	p, err := Compile("ABC", Options{CaseInsensitive: true})
	require.NoError(t, err)
	assert.True(t, p.Test("xxabcxx"))
}

func TestNoMatch(t *testing.T) {
	p := mustCompile(t, "xyz")
	m := p.Find("abc")
	assert.False(t, m.Matched)
	assert.Equal(t, -1, m.Start)
}
