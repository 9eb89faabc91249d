package query

import (
	"fmt"
	"strconv"
	"time"
)

const (
	DefaultTake = 50
	MaxTake     = 100
	// MaxSearchLen bounds the search term in characters.
	MaxSearchLen = 64
)

// ColumnKind tells the codec how to carry a key value inside a cursor.
type ColumnKind uint8

const (
	Int ColumnKind = iota + 1
	Text
	Time
	Bool
)

// Column is a whitelisted SQL expression a list can sort, seek or filter on.
type Column struct {
	// Name is the key rows report through Keyed.CursorKey.
	Name string
	Expr string
	Kind ColumnKind
	// Unique columns need no tie-break.
	Unique bool
}

// Paging selects how a list resumes from a cursor.
type Paging uint8

const (
	// Keyset resumes after the last row's composite key. Only valid when sort keys are immutable.
	Keyset Paging = iota
	// Offset resumes with {take, skip}. Used when the sort key changes between fetches.
	Offset
)

// Spec is the static description of one list endpoint: what it may sort on,
// how ties are broken, what it can filter and search.
type Spec struct {
	Entity      string
	Paging      Paging
	Sorts       map[string]Column
	DefaultSort string
	// TieBreak columns are appended to the sort column and are unique together.
	TieBreak []Column
	Search   []string
	Filters  map[string]Filter
}

// ListQuery is the transport-neutral list request.
type ListQuery struct {
	Cursor string
	Take   int
	Sort   string
	Desc   bool
	Search string
	Filter map[string]string
}

// FilterNames lists the filter parameters the spec accepts.
func (s *Spec) FilterNames() []string {
	names := make([]string, 0, len(s.Filters))
	for name := range s.Filters {
		names = append(names, name)
	}
	return names
}

func (s *Spec) orderKeys(sort Column) []Column {
	keys := []Column{sort}
	if sort.Unique {
		return keys
	}
	for _, c := range s.TieBreak {
		if c.Name == sort.Name {
			continue
		}
		keys = append(keys, c)
	}
	return keys
}

func formatKey(kind ColumnKind, v any) (string, error) {
	switch kind {
	case Int:
		switch n := v.(type) {
		case int64:
			return strconv.FormatInt(n, 10), nil
		case int32:
			return strconv.FormatInt(int64(n), 10), nil
		case int:
			return strconv.Itoa(n), nil
		case uint32:
			return strconv.FormatUint(uint64(n), 10), nil
		case uint64:
			return strconv.FormatUint(n, 10), nil
		}
	case Text:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case Time:
		if t, ok := v.(time.Time); ok {
			return t.UTC().Format(time.RFC3339Nano), nil
		}
	case Bool:
		if b, ok := v.(bool); ok {
			return strconv.FormatBool(b), nil
		}
	}
	return "", fmt.Errorf("unsupported key value %T for column kind %d", v, kind)
}

func parseKey(kind ColumnKind, s string) (any, error) {
	switch kind {
	case Int:
		return strconv.ParseInt(s, 10, 64)
	case Text:
		return s, nil
	case Time:
		return time.Parse(time.RFC3339Nano, s)
	case Bool:
		return strconv.ParseBool(s)
	}
	return nil, fmt.Errorf("unknown column kind %d", kind)
}
