package regex

// Match describes the result of matching a Pattern against a string: whether
// it matched, the byte offset and length of the overall match, and the span
// of each capturing group (in source order; an unmatched optional group has
// Start == -1).
type Match struct {
	Matched    bool
	Start, Len int
	Groups     []Span
}

// Span is the [Start, End) byte range of a capturing group's match, or
// Start == -1 if the group took no part in the match.
type Span struct {
	Start, End int
}

// Find returns the leftmost match of p in s, scanning successive start
// positions until one succeeds or the string is exhausted.
func (p *Pattern) Find(s string) Match {
	if len(p.sequence) == 0 {
		return Match{Matched: true, Start: 0, Len: 0, Groups: spansOf(p)}
	}
	for start := 0; start <= len(s); start++ {
		for _, g := range p.Groups() {
			g.CaptureStart, g.CaptureEnd = -1, -1
		}
		if end, ok := matchSeq(p, p.sequence, s, start); ok {
			return Match{Matched: true, Start: start, Len: end - start, Groups: spansOf(p)}
		}
	}
	return Match{Matched: false, Start: -1, Len: -1}
}

// Test reports whether p matches anywhere in s.
func (p *Pattern) Test(s string) bool { return p.Find(s).Matched }

func spansOf(p *Pattern) []Span {
	groups := p.Groups()
	spans := make([]Span, len(groups))
	for i, g := range groups {
		spans[i] = Span{Start: g.CaptureStart, End: g.CaptureEnd}
	}
	return spans
}

// matchSeq tries to match the sequence seq[0:] starting at pos, returning the
// end position of a successful match. It is the backtracking workhorse: each
// node is matched via matchOne, which is given the "rest of the sequence" as
// a continuation so that greedy operators can retreat one repetition at a
// time until the remainder matches (maximal munch with longest-viable-suffix
// semantics).
func matchSeq(p *Pattern, seq []*Node, s string, pos int) (int, bool) {
	if len(seq) == 0 {
		return pos, true
	}
	return matchOne(p, seq[0], seq[1:], s, pos)
}

// matchOne attempts to match node at pos, then the continuation rest
// immediately following it, backtracking internally for operators that have
// more than one way to consume input (Repeat, RepeatZ, RepeatN, Maybe, Or).
func matchOne(p *Pattern, node *Node, rest []*Node, s string, pos int) (int, bool) {
	switch node.Kind {
	case Atom:
		if pos >= len(s) || !byteEq(s[pos], node.Atom, p.Options.CaseInsensitive) {
			return 0, false
		}
		return matchSeq(p, rest, s, pos+1)

	case Dot:
		if pos >= len(s) {
			return 0, false
		}
		return matchSeq(p, rest, s, pos+1)

	case CClass:
		if pos >= len(s) || !classAccepts(node, s[pos], p.Options.CaseInsensitive) {
			return 0, false
		}
		return matchSeq(p, rest, s, pos+1)

	case EClass:
		if pos >= len(s) {
			if node.EClass == NonWordBoundary {
				return matchSeq(p, rest, s, pos)
			}
			return 0, false
		}
		if eclassAccepts(node.EClass, s, pos) {
			if node.EClass == WordBoundary || node.EClass == NonWordBoundary {
				return matchSeq(p, rest, s, pos) // zero-width assertion
			}
			return matchSeq(p, rest, s, pos+1)
		}
		return 0, false

	case Anchor:
		if !anchorAccepts(node.Anchor, s, pos, p.Options.Multiline) {
			return 0, false
		}
		return matchSeq(p, rest, s, pos)

	case Group:
		end, ok := matchSeqCapture(p, node.Children, s, pos)
		if !ok {
			return 0, false
		}
		// record capture only once the full continuation also succeeds, so a
		// backtrack out of a failed tail does not leave a stale span.
		next, ok := matchSeq(p, rest, s, end)
		if !ok {
			return 0, false
		}
		node.CaptureStart, node.CaptureEnd = pos, end
		return next, true

	case Or:
		if end, ok := matchOne(p, node.Children[0], rest, s, pos); ok {
			return end, true
		}
		return matchOne(p, node.Children[1], rest, s, pos)

	case Maybe:
		// greedy: try consuming first, fall back to skipping it.
		if end, ok := matchOne(p, node.Children[0], rest, s, pos); ok {
			return end, true
		}
		return matchSeq(p, rest, s, pos)

	case Repeat:
		return matchRepeat(p, node.Children[0], rest, s, pos, 1, -1)

	case RepeatZ:
		return matchRepeat(p, node.Children[0], rest, s, pos, 0, -1)

	case RepeatN:
		max := node.RepeatMax
		return matchRepeat(p, node.Children[0], rest, s, pos, node.RepeatMin, max)

	default:
		return 0, false
	}
}

// matchSeqCapture matches a sequence (used for a Group's children) without
// requiring the outer continuation yet; it greedily matches as far as it can
// using the same recursive matcher, trying only the single interpretation of
// "this group's body consumed as much as its own backtracking allows".
func matchSeqCapture(p *Pattern, seq []*Node, s string, pos int) (int, bool) {
	return matchSeq(p, seq, s, pos)
}

// matchRepeat implements +, * and {m,n}: it collects every position reachable
// by repeating node 0..max times (stopping early at max if bounded), then
// tries the continuation from the longest count down to min, the greedy
// "maximal munch, backtrack on tail failure" strategy spec.md documents.
func matchRepeat(p *Pattern, node *Node, rest []*Node, s string, pos int, min, max int) (int, bool) {
	positions := []int{pos}
	cur := pos
	for max < 0 || len(positions)-1 < max {
		end, ok := matchOneNoContinuation(p, node, s, cur)
		if !ok || end == cur {
			// stop on failure, or on a zero-width match (would loop forever)
			break
		}
		cur = end
		positions = append(positions, cur)
	}
	for count := len(positions) - 1; count >= min; count-- {
		if next, ok := matchSeq(p, rest, s, positions[count]); ok {
			return next, true
		}
	}
	return 0, false
}

// matchOneNoContinuation matches a single repetition of node with no
// trailing sequence, used by matchRepeat to probe how far greedy repetition
// can advance before consulting the outer continuation.
func matchOneNoContinuation(p *Pattern, node *Node, s string, pos int) (int, bool) {
	return matchOne(p, node, nil, s, pos)
}

func byteEq(a, b byte, caseInsensitive bool) bool {
	if a == b {
		return true
	}
	if !caseInsensitive {
		return false
	}
	return lower(a) == lower(b)
}

func lower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}
func isWordChar(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || isDigit(c)
}

func eclassAccepts(k EClassKind, s string, pos int) bool {
	switch k {
	case Digit:
		return isDigit(s[pos])
	case NonDigit:
		return !isDigit(s[pos])
	case Space:
		return isSpace(s[pos])
	case NonSpace:
		return !isSpace(s[pos])
	case Word:
		return isWordChar(s[pos])
	case NonWord:
		return !isWordChar(s[pos])
	case WordBoundary:
		return atWordBoundary(s, pos)
	case NonWordBoundary:
		return !atWordBoundary(s, pos)
	}
	return false
}

func atWordBoundary(s string, pos int) bool {
	before := pos > 0 && isWordChar(s[pos-1])
	after := pos < len(s) && isWordChar(s[pos])
	return before != after
}

// classAccepts implements a CClass node's body: a run of literal chars,
// a-z style ranges, and \d \s \w escapes, optionally negated by a leading ^.
func classAccepts(node *Node, c byte, caseInsensitive bool) bool {
	accept := classBodyAccepts(node.Class, c, caseInsensitive)
	if node.Negated {
		return !accept
	}
	return accept
}

func classBodyAccepts(body string, c byte, caseInsensitive bool) bool {
	for i := 0; i < len(body); {
		if body[i] == '\\' && i+1 < len(body) {
			switch body[i+1] {
			case 'd':
				if isDigit(c) {
					return true
				}
				i += 2
				continue
			case 's':
				if isSpace(c) {
					return true
				}
				i += 2
				continue
			case 'w':
				if isWordChar(c) {
					return true
				}
				i += 2
				continue
			default:
				if byteEq(c, body[i+1], caseInsensitive) {
					return true
				}
				i += 2
				continue
			}
		}
		if i+2 < len(body) && body[i+1] == '-' {
			lo, hi := body[i], body[i+2]
			if c >= lo && c <= hi {
				return true
			}
			if caseInsensitive && lower(c) >= lower(lo) && lower(c) <= lower(hi) {
				return true
			}
			i += 3
			continue
		}
		if byteEq(c, body[i], caseInsensitive) {
			return true
		}
		i++
	}
	return false
}

// anchorAccepts implements spec.md's default (always-on) line-boundary
// semantics for ^ and $: ^ pins to start-of-string or just after \n/\r, and $
// pins to end-of-string or just before \n/\r. \A and \Z are the absolute
// (never line-boundary) equivalents. The Multiline option inverts $'s
// leniency, per the source RegexOptions.multiline comment ("don't end on
// \n"): when set, $ requires the true end of the string.
func anchorAccepts(k AnchorKind, s string, pos int, multiline bool) bool {
	switch k {
	case BeginOfString:
		return pos == 0
	case EndOfString:
		return pos == len(s)
	case BeginOfLine:
		return pos == 0 || s[pos-1] == '\n' || s[pos-1] == '\r'
	case EndOfLine:
		if multiline {
			return pos == len(s)
		}
		return pos == len(s) || s[pos] == '\n' || s[pos] == '\r'
	}
	return false
}
