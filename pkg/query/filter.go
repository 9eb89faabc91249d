package query

import (
	"slices"
	"strconv"
	"strings"
	"time"
)

// FilterOp is the comparison a filter renders to.
type FilterOp uint8

const (
	// OpEq renders "= $n", or "= ANY($n)" for comma separated values.
	OpEq FilterOp = iota + 1
	// OpMin renders ">= $n".
	OpMin
	// OpBefore renders "< $n".
	OpBefore
)

// Filter is a whitelisted predicate on one SQL expression.
type Filter struct {
	Expr string
	Op   FilterOp
	Kind ColumnKind
	// Enum restricts accepted values for OpEq. Empty accepts anything that parses.
	Enum []string
}

type condition struct {
	sql   string
	value any
}

func (f Filter) compile(name, raw string) (condition, error) {
	if f.Op == OpEq && strings.Contains(raw, ",") {
		parts := strings.Split(raw, ",")
		var values []any
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			v, err := f.parse(name, p)
			if err != nil {
				return condition{}, err
			}
			values = append(values, v)
		}
		if len(values) == 0 {
			return condition{}, Invalid("%s: empty value list", name)
		}
		return condition{sql: f.Expr + " = ANY(%s)", value: typedSlice(f.Kind, values)}, nil
	}

	v, err := f.parse(name, raw)
	if err != nil {
		return condition{}, err
	}
	switch f.Op {
	case OpMin:
		return condition{sql: f.Expr + " >= %s", value: v}, nil
	case OpBefore:
		return condition{sql: f.Expr + " < %s", value: v}, nil
	default:
		return condition{sql: f.Expr + " = %s", value: v}, nil
	}
}

func (f Filter) parse(name, raw string) (any, error) {
	if len(f.Enum) > 0 && !slices.Contains(f.Enum, raw) {
		return nil, Invalid("%s: unsupported value %q", name, raw)
	}
	switch f.Kind {
	case Int:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, Invalid("%s: expected an integer", name)
		}
		return n, nil
	case Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, Invalid("%s: expected true or false", name)
		}
		return b, nil
	case Time:
		return parseTime(name, raw)
	default:
		return raw, nil
	}
}

// minUnixDigits rejects short all-digit values such as compact dates (20240101)
// that would otherwise read as seconds in 1970.
const minUnixDigits = 9

// parseTime accepts RFC3339, a plain date, or unix seconds of at least minUnixDigits digits.
func parseTime(name, raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, nil
	}
	if len(raw) >= minUnixDigits && strings.Trim(raw, "0123456789") == "" {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return time.Unix(n, 0).UTC(), nil
		}
	}
	return time.Time{}, Invalid("%s: expected RFC3339, YYYY-MM-DD or unix seconds", name)
}

func typedSlice(kind ColumnKind, values []any) any {
	switch kind {
	case Int:
		out := make([]int64, len(values))
		for i, v := range values {
			out[i] = v.(int64)
		}
		return out
	case Bool:
		out := make([]bool, len(values))
		for i, v := range values {
			out[i] = v.(bool)
		}
		return out
	case Time:
		out := make([]time.Time, len(values))
		for i, v := range values {
			out[i] = v.(time.Time)
		}
		return out
	default:
		out := make([]string, len(values))
		for i, v := range values {
			out[i] = v.(string)
		}
		return out
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern turns a user term into an ILIKE pattern matching it literally.
func containsPattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}
