package query

import "fmt"

// Keyed rows report the value of a key column by its Column.Name.
type Keyed interface {
	CursorKey(column string) any
}

// Paginate trims the take+1 overfetch and encodes the next cursor from the
// last retained row. rows must be the store result for p, in plan order.
func Paginate[T Keyed](p *Plan, rows []T) (Page[T], error) {
	if rows == nil {
		rows = []T{}
	}
	if len(rows) <= p.Take {
		return Page[T]{Items: rows}, nil
	}

	rows = rows[:p.Take]
	next, err := p.nextCursor(rows[len(rows)-1])
	if err != nil {
		return Page[T]{}, err
	}
	token := next.Encode()
	return Page[T]{Items: rows, NextCursor: &token}, nil
}

func (p *Plan) nextCursor(last Keyed) (Cursor, error) {
	c := Cursor{Entity: p.Entity, Context: p.context}
	if p.paging == Offset {
		c.Take = p.Take
		c.Skip = p.Skip + p.Take
		return c, nil
	}
	c.Keys = make([]string, len(p.keys))
	for i, col := range p.keys {
		s, err := formatKey(col.Kind, last.CursorKey(col.Name))
		if err != nil {
			return Cursor{}, fmt.Errorf("%s cursor key %s: %w", p.Entity, col.Name, err)
		}
		c.Keys[i] = s
	}
	return c, nil
}
