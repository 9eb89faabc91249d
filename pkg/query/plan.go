package query

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/canopy-network/explorerx/pkg/utils"
)

// Args accumulates positional parameters for one statement.
type Args struct {
	values []any
}

// Add binds v and returns its placeholder.
func (a *Args) Add(v any) string {
	a.values = append(a.values, v)
	return "$" + strconv.Itoa(len(a.values))
}

func (a *Args) Values() []any { return a.values }

// Plan is a validated list request ready to render against a base query.
// Building the same ListQuery twice yields the same SQL and arguments.
type Plan struct {
	Entity string
	SortBy string
	Desc   bool
	Take   int
	// Skip is the row offset for Offset paging.
	Skip int

	paging     Paging
	keys       []Column
	after      []any
	conds      []condition
	searchExpr []string
	pattern    string
	context    string
}

// Plan validates q against the spec and composes the query plan.
func (s *Spec) Plan(q ListQuery) (*Plan, error) {
	if q.Take <= 0 {
		return nil, Invalid("take must be a positive integer")
	}
	take := min(q.Take, MaxTake)

	sortName := q.Sort
	if sortName == "" {
		sortName = s.DefaultSort
	}
	sortCol, ok := s.Sorts[sortName]
	if !ok {
		return nil, Invalid("unsupported sort %q", q.Sort)
	}

	p := &Plan{
		Entity: s.Entity,
		SortBy: sortName,
		Desc:   q.Desc,
		Take:   take,
		paging: s.Paging,
		keys:   s.orderKeys(sortCol),
	}

	names := make([]string, 0, len(q.Filter))
	for name, raw := range q.Filter {
		if strings.TrimSpace(raw) != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	fingerprint := []string{s.Entity, sortName, strconv.FormatBool(q.Desc)}
	for _, name := range names {
		f, ok := s.Filters[name]
		if !ok {
			return nil, Invalid("unsupported filter %q", name)
		}
		raw := strings.TrimSpace(q.Filter[name])
		c, err := f.compile(name, raw)
		if err != nil {
			return nil, err
		}
		p.conds = append(p.conds, c)
		fingerprint = append(fingerprint, name+"="+raw)
	}

	if term := strings.TrimSpace(q.Search); term != "" {
		if len(s.Search) == 0 {
			return nil, Invalid("search is not supported for %s", s.Entity)
		}
		if utf8.RuneCountInString(term) > MaxSearchLen {
			return nil, Invalid("search must be at most %d characters", MaxSearchLen)
		}
		p.searchExpr = s.Search
		p.pattern = containsPattern(term)
		fingerprint = append(fingerprint, "search="+term)
	}
	p.context = utils.Fingerprint(fingerprint...)

	if q.Cursor != "" {
		if err := p.resume(q.Cursor); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Plan) resume(token string) error {
	c, err := DecodeCursor(token)
	if err != nil {
		return err
	}
	if c.Entity != p.Entity {
		return InvalidCursor("cursor was issued for %s, not %s", c.Entity, p.Entity)
	}
	if c.Context != p.context {
		return InvalidCursor("cursor was issued for a different sort, filter or search")
	}

	if p.paging == Offset {
		if !c.IsOffset() {
			return InvalidCursor("expected an offset cursor")
		}
		p.Skip = c.Skip
		return nil
	}

	if c.IsOffset() || len(c.Keys) != len(p.keys) {
		return InvalidCursor("cursor key shape does not match %s", p.Entity)
	}
	p.after = make([]any, len(p.keys))
	for i, col := range p.keys {
		v, err := parseKey(col.Kind, c.Keys[i])
		if err != nil {
			return InvalidCursor("cursor key %s is malformed", col.Name)
		}
		p.after[i] = v
	}
	return nil
}

// After returns the decoded seek key, nil on the first page.
func (p *Plan) After() []any { return p.after }

// Conditions renders every active predicate, binding values into args.
func (p *Plan) Conditions(args *Args) []string {
	var out []string
	for _, c := range p.conds {
		out = append(out, fmt.Sprintf(c.sql, args.Add(c.value)))
	}
	if p.pattern != "" {
		ph := args.Add(p.pattern)
		ors := make([]string, len(p.searchExpr))
		for i, expr := range p.searchExpr {
			ors[i] = expr + " ILIKE " + ph
		}
		out = append(out, "("+strings.Join(ors, " OR ")+")")
	}
	if p.after != nil {
		out = append(out, p.seek(args))
	}
	return out
}

// seek renders (k1 op v1) OR (k1 = v1 AND k2 op v2) OR ...
func (p *Plan) seek(args *Args) string {
	op := ">"
	if p.Desc {
		op = "<"
	}
	ph := make([]string, len(p.keys))
	for i := range p.keys {
		ph[i] = args.Add(p.after[i])
	}
	ors := make([]string, len(p.keys))
	for i := range p.keys {
		ands := make([]string, 0, i+1)
		for j := 0; j < i; j++ {
			ands = append(ands, p.keys[j].Expr+" = "+ph[j])
		}
		ands = append(ands, p.keys[i].Expr+" "+op+" "+ph[i])
		ors[i] = "(" + strings.Join(ands, " AND ") + ")"
	}
	return "(" + strings.Join(ors, " OR ") + ")"
}

// Where renders " WHERE ..." or an empty string.
func (p *Plan) Where(args *Args) string {
	conds := p.Conditions(args)
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

// OrderBy renders the sort column followed by the tie-break, all in one direction.
func (p *Plan) OrderBy() string {
	dir := " ASC"
	if p.Desc {
		dir = " DESC"
	}
	parts := make([]string, len(p.keys))
	for i, k := range p.keys {
		parts[i] = k.Expr + dir
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}

// Limit renders the take+1 overfetch and, for offset paging, the skip.
func (p *Plan) Limit(args *Args) string {
	out := " LIMIT " + args.Add(p.Take+1)
	if p.paging == Offset && p.Skip > 0 {
		out += " OFFSET " + args.Add(p.Skip)
	}
	return out
}

// SQL renders base followed by the plan's WHERE, ORDER BY and LIMIT.
// base must not carry its own WHERE clause; wrap it in a subquery if it does.
func (p *Plan) SQL(base string, args *Args) string {
	return base + p.Where(args) + p.OrderBy() + p.Limit(args)
}
