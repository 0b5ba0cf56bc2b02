package machine

import (
	"fmt"

	"github.com/loxcore/loxcore/lang/regex"
)

// A Regex is a compiled pattern value: the underlying pattern tree, the
// source it was compiled from, and its option flags, matching the data
// model's Regex row (compiled pattern tree, source string, option flags).
type Regex struct {
	pattern *regex.Pattern
}

var (
	_ Value    = (*Regex)(nil)
	_ HasAttrs = (*Regex)(nil)
)

func (r *Regex) String() string { return fmt.Sprintf("regex(%q)", r.pattern.Source) }
func (r *Regex) Type() string   { return "regex" }

// Attr exposes "match" and "test" as bound methods, the only two operations
// a Regex value supports from interpreted code.
func (r *Regex) Attr(name string) (Value, error) {
	switch name {
	case "match":
		return NewBuiltin("match", func(th *Thread, args *Tuple) (Value, error) {
			if err := requireArgs("match", args, 1); err != nil {
				return nil, err
			}
			s, ok := args.Index(0).(String)
			if !ok {
				return nil, newErrorInstance(errorClasses["TypeError"], "regex match: expected a string")
			}
			return matchToValue(r.pattern.Find(string(s))), nil
		}), nil
	case "test":
		return NewBuiltin("test", func(th *Thread, args *Tuple) (Value, error) {
			if err := requireArgs("test", args, 1); err != nil {
				return nil, err
			}
			s, ok := args.Index(0).(String)
			if !ok {
				return nil, newErrorInstance(errorClasses["TypeError"], "regex test: expected a string")
			}
			return Bool(r.pattern.Test(string(s))), nil
		}), nil
	}
	return nil, nil
}

func (r *Regex) AttrNames() []string { return []string{"match", "test"} }

// matchToValue converts a regex.Match into the Map a Lox program observes:
// {matched, start, len, groups} where groups is an array of [start, len] (or
// nil for an unmatched optional group) pairs in source order.
func matchToValue(m regex.Match) Value {
	out := NewMap(4)
	out.SetKey(String("matched"), Bool(m.Matched))
	if !m.Matched {
		return out
	}
	out.SetKey(String("start"), Int(m.Start))
	out.SetKey(String("len"), Int(m.Len))
	groups := make([]Value, len(m.Groups))
	for i, g := range m.Groups {
		if g.Start < 0 {
			groups[i] = Nil
			continue
		}
		groups[i] = NewArray([]Value{Int(g.Start), Int(g.End - g.Start)})
	}
	out.SetKey(String("groups"), NewArray(groups))
	return out
}

// regexBuiltin implements the "Regex" constructor: Regex(pattern) or
// Regex(pattern, options), where options is a map with optional
// "caseInsensitive"/"multiline" boolean keys.
func regexBuiltin(th *Thread, args *Tuple) (Value, error) {
	if args.Len() != 1 && args.Len() != 2 {
		return nil, fmt.Errorf("Regex: expected 1 or 2 arguments, got %d", args.Len())
	}
	src, ok := args.Index(0).(String)
	if !ok {
		return nil, newErrorInstance(errorClasses["TypeError"], "Regex: pattern must be a string")
	}
	var opts regex.Options
	if args.Len() == 2 {
		m, ok := args.Index(1).(*Map)
		if !ok {
			return nil, newErrorInstance(errorClasses["TypeError"], "Regex: options must be a map")
		}
		if v, found, _ := m.Get(String("caseInsensitive")); found {
			opts.CaseInsensitive = bool(Truth(v))
		}
		if v, found, _ := m.Get(String("multiline")); found {
			opts.Multiline = bool(Truth(v))
		}
	}
	p, err := regex.Compile(string(src), opts)
	if err != nil {
		return nil, newErrorInstance(errorClasses["SyntaxError"], err.Error())
	}
	re := &Regex{pattern: p}
	th.gcTrack(re)
	return re, nil
}
