package token

import (
	gotoken "go/token"
)

// Pos, FileSet, File, Position and NoPos are aliases of the standard
// library's go/token types: there is no reason to reinvent file/line/column
// bookkeeping when go/token already solves it, and every diagnostic emitted
// through go/scanner.ErrorList needs a go/token.Position anyway.
type (
	Pos      = gotoken.Pos
	FileSet  = gotoken.FileSet
	File     = gotoken.File
	Position = gotoken.Position
)

const NoPos = gotoken.NoPos

// NewFileSet creates a new, empty FileSet.
func NewFileSet() *FileSet { return gotoken.NewFileSet() }

// spanner is satisfied by any AST node; defined here (rather than imported
// from ast, which would be a cycle) to keep PosInside/PosAdjacent generic.
type spanner interface {
	Span() (start, end Pos)
}

// PosInside reports whether test's span is fully contained within ref's
// span (inclusive on both ends).
func PosInside(ref, test spanner) bool {
	rs, re := ref.Span()
	ts, te := test.Span()
	return rs <= ts && te <= re
}

// PosAdjacent reports whether test is adjacent to ref within the given file:
// a test that comes after ref must start on the line where ref ends, and a
// test that comes before ref must end on the line where ref starts or on the
// line just above it. Overlapping spans are always adjacent. It is used to
// decide whether a leading/trailing comment attaches to a neighboring
// statement.
func PosAdjacent(ref, test spanner, f *File) bool {
	rs, re := ref.Span()
	ts, te := test.Span()

	if re <= ts {
		// test after ref: same line only
		return f.Line(ts) == f.Line(re)
	}
	if te <= rs {
		// test before ref: same line or the line above
		return f.Line(rs)-f.Line(te) <= 1
	}
	return true // overlapping spans
}

// PosMode controls how FormatPos renders a position.
type PosMode int

const (
	// PosLong renders "filename:line:col".
	PosLong PosMode = iota
	// PosOffsets renders the 0-based byte offset of the position.
	PosOffsets
	// PosRaw renders the raw Pos integer value.
	PosRaw
	// PosNone renders nothing.
	PosNone
)

func (m PosMode) String() string {
	switch m {
	case PosLong:
		return "long"
	case PosOffsets:
		return "offsets"
	case PosRaw:
		return "raw"
	case PosNone:
		return "none"
	default:
		return "unknown"
	}
}

// FormatPos renders pos according to mode, using f to resolve line/column
// information. If withFilename is false, the filename portion (for
// PosLong) is omitted.
func FormatPos(mode PosMode, f *File, pos Pos, withFilename bool) string {
	switch mode {
	case PosOffsets:
		if pos == NoPos {
			return "-"
		}
		return itoa(f.Offset(pos))
	case PosRaw:
		return itoa(int(pos))
	case PosNone:
		return ""
	default: // PosLong
		if pos == NoPos {
			if withFilename {
				return f.Name() + ":-:-"
			}
			return ":-:-"
		}
		p := f.Position(pos)
		if withFilename {
			return p.Filename + ":" + itoa(p.Line) + ":" + itoa(p.Column)
		}
		return ":" + itoa(p.Line) + ":" + itoa(p.Column)
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
