package query

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var blockSpec = &Spec{
	Entity:      "blocks",
	Sorts:       map[string]Column{"height": {Name: "height", Expr: "b.height", Kind: Int, Unique: true}},
	DefaultSort: "height",
	Search:      []string{"b.hash", "b.proposer_address"},
	Filters: map[string]Filter{
		"proposer": {Expr: "b.proposer_address", Op: OpEq, Kind: Text},
		"minTxs":   {Expr: "b.num_txs", Op: OpMin, Kind: Int},
	},
}

var txSpec = &Spec{
	Entity: "transactions",
	Sorts: map[string]Column{
		"height": {Name: "height", Expr: "t.height", Kind: Int},
		"time":   {Name: "time", Expr: "t.time", Kind: Time},
	},
	DefaultSort: "height",
	TieBreak: []Column{
		{Name: "height", Expr: "t.height", Kind: Int},
		{Name: "tx_index", Expr: "t.tx_index", Kind: Int},
	},
	Filters: map[string]Filter{
		"status":  {Expr: "t.status", Op: OpEq, Kind: Text, Enum: []string{"success", "failed"}},
		"success": {Expr: "t.success", Op: OpEq, Kind: Bool},
		"after":   {Expr: "t.time", Op: OpMin, Kind: Time},
		"before":  {Expr: "t.time", Op: OpBefore, Kind: Time},
	},
}

var validatorSpec = &Spec{
	Entity:      "validators",
	Paging:      Offset,
	Sorts:       map[string]Column{"votingPower": {Name: "tokens", Expr: "v.tokens", Kind: Int}},
	DefaultSort: "votingPower",
	TieBreak:    []Column{{Name: "operator_address", Expr: "v.operator_address", Kind: Text, Unique: true}},
}

type blockRow struct{ Height int64 }

func (b blockRow) CursorKey(string) any { return b.Height }

type txRow struct {
	Height int64
	Index  int32
	Time   time.Time
}

func (t txRow) CursorKey(col string) any {
	switch col {
	case "height":
		return t.Height
	case "tx_index":
		return t.Index
	case "time":
		return t.Time
	}
	return nil
}

// fetchTx mimics the store: order by (height, tx_index), seek past the plan's key, take+1.
func fetchTx(p *Plan, table []txRow) []txRow {
	rows := slices.Clone(table)
	slices.SortFunc(rows, func(a, b txRow) int {
		c := cmpTx(a, b)
		if p.Desc {
			return -c
		}
		return c
	})
	var out []txRow
	for _, r := range rows {
		if after := p.After(); after != nil {
			pos := txRow{Height: after[0].(int64), Index: int32(after[1].(int64))}
			c := cmpTx(r, pos)
			if (p.Desc && c >= 0) || (!p.Desc && c <= 0) {
				continue
			}
		}
		out = append(out, r)
		if len(out) == p.Take+1 {
			break
		}
	}
	return out
}

func cmpTx(a, b txRow) int {
	if a.Height != b.Height {
		if a.Height < b.Height {
			return -1
		}
		return 1
	}
	return int(a.Index) - int(b.Index)
}

func TestPageSizeTwoWalk(t *testing.T) {
	heights := []int64{10, 9, 8, 7, 6}
	fetch := func(p *Plan) []blockRow {
		var out []blockRow
		for _, h := range heights {
			if after := p.After(); after != nil && h >= after[0].(int64) {
				continue
			}
			out = append(out, blockRow{h})
			if len(out) == p.Take+1 {
				break
			}
		}
		return out
	}

	var got [][]int64
	cursor := ""
	for i := 0; i < 5; i++ {
		p, err := blockSpec.Plan(ListQuery{Take: 2, Desc: true, Cursor: cursor})
		require.NoError(t, err)
		page, err := Paginate(p, fetch(p))
		require.NoError(t, err)
		var hs []int64
		for _, b := range page.Items {
			hs = append(hs, b.Height)
		}
		got = append(got, hs)
		if !page.HasNextPage() {
			break
		}
		cursor = *page.NextCursor
	}
	assert.Equal(t, [][]int64{{10, 9}, {8, 7}, {6}}, got)
}

func TestCompositeWalkIsExhaustiveUnderAppends(t *testing.T) {
	var table []txRow
	for h := int64(1); h <= 7; h++ {
		for i := int32(0); i < int32(h%3)+1; i++ {
			table = append(table, txRow{Height: h, Index: i})
		}
	}
	original := slices.Clone(table)

	for _, desc := range []bool{true, false} {
		for _, take := range []int{1, 2, 3, 5} {
			table := slices.Clone(original)
			seen := map[[2]int64]bool{}
			var walked []txRow
			cursor := ""
			for {
				p, err := txSpec.Plan(ListQuery{Take: take, Desc: desc, Cursor: cursor})
				require.NoError(t, err)
				page, err := Paginate(p, fetchTx(p, table))
				require.NoError(t, err)
				require.LessOrEqual(t, len(page.Items), take)
				for _, r := range page.Items {
					k := [2]int64{r.Height, int64(r.Index)}
					require.False(t, seen[k], "duplicate %v", k)
					seen[k] = true
					walked = append(walked, r)
				}
				if !page.HasNextPage() {
					break
				}
				cursor = *page.NextCursor
				if desc {
					// The indexer appends newer rows between fetches.
					table = append(table, txRow{Height: 100 + int64(len(table)), Index: 0})
				}
			}

			assert.Len(t, walked, len(original), "desc=%v take=%d", desc, take)
			assert.True(t, slices.IsSortedFunc(walked, func(a, b txRow) int {
				if desc {
					return -cmpTx(a, b)
				}
				return cmpTx(a, b)
			}))
		}
	}
}

func TestPlanSQL(t *testing.T) {
	p, err := txSpec.Plan(ListQuery{
		Take:   20,
		Desc:   true,
		Filter: map[string]string{"status": "success,failed", "after": "2024-01-01", "success": ""},
	})
	require.NoError(t, err)
	next, err := p.nextCursor(txRow{Height: 42, Index: 3})
	require.NoError(t, err)

	p, err = txSpec.Plan(ListQuery{
		Take:   20,
		Desc:   true,
		Cursor: next.Encode(),
		Filter: map[string]string{"status": "success,failed", "after": "2024-01-01"},
	})
	require.NoError(t, err)

	args := &Args{}
	sql := p.SQL("SELECT * FROM transactions t", args)
	assert.Equal(t,
		"SELECT * FROM transactions t WHERE t.time >= $1 AND t.status = ANY($2)"+
			" AND ((t.height < $3) OR (t.height = $3 AND t.tx_index < $4))"+
			" ORDER BY t.height DESC, t.tx_index DESC LIMIT $5",
		sql)
	assert.Equal(t, []any{
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		[]string{"success", "failed"},
		int64(42), int64(3), 21,
	}, args.Values())
}

func TestPlanIsDeterministic(t *testing.T) {
	q := ListQuery{Take: 5, Desc: true, Search: "abc", Filter: map[string]string{"proposer": "x", "minTxs": "2"}}
	var sqls []string
	for i := 0; i < 10; i++ {
		p, err := blockSpec.Plan(q)
		require.NoError(t, err)
		sqls = append(sqls, p.SQL("SELECT height FROM blocks b", &Args{}))
	}
	for _, s := range sqls {
		assert.Equal(t, sqls[0], s)
	}
	assert.Equal(t,
		"SELECT height FROM blocks b WHERE b.num_txs >= $1 AND b.proposer_address = $2"+
			" AND (b.hash ILIKE $3 OR b.proposer_address ILIKE $3) ORDER BY b.height DESC LIMIT $4",
		sqls[0])
}

func TestUniqueSortSkipsTieBreak(t *testing.T) {
	p, err := validatorSpec.Plan(ListQuery{Take: 10, Desc: true})
	require.NoError(t, err)
	assert.Equal(t, " ORDER BY v.tokens DESC, v.operator_address DESC", p.OrderBy())

	p, err = blockSpec.Plan(ListQuery{Take: 10})
	require.NoError(t, err)
	assert.Equal(t, " ORDER BY b.height ASC", p.OrderBy())
}

func TestSearchEscapesLikeMetacharacters(t *testing.T) {
	p, err := blockSpec.Plan(ListQuery{Take: 1, Search: `50%_a\b`})
	require.NoError(t, err)
	args := &Args{}
	p.Where(args)
	assert.Equal(t, []any{`%50\%\_a\\b%`}, args.Values())
}

func TestOffsetPaging(t *testing.T) {
	p, err := validatorSpec.Plan(ListQuery{Take: 2, Desc: true})
	require.NoError(t, err)
	rows := []blockRow{{1}, {2}, {3}}
	page, err := Paginate(p, rows)
	require.NoError(t, err)
	require.True(t, page.HasNextPage())

	c, err := DecodeCursor(*page.NextCursor)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Take)
	assert.Equal(t, 2, c.Skip)

	p, err = validatorSpec.Plan(ListQuery{Take: 2, Desc: true, Cursor: *page.NextCursor})
	require.NoError(t, err)
	args := &Args{}
	assert.Equal(t, " LIMIT $1 OFFSET $2", p.Limit(args))
	assert.Equal(t, []any{3, 2}, args.Values())
}

func TestPlanValidation(t *testing.T) {
	blockCursor, err := blockSpec.Plan(ListQuery{Take: 1, Desc: true})
	require.NoError(t, err)
	page, err := Paginate(blockCursor, []blockRow{{5}, {4}})
	require.NoError(t, err)
	token := *page.NextCursor

	cases := []struct {
		name string
		spec *Spec
		q    ListQuery
		kind Kind
	}{
		{"zero take", blockSpec, ListQuery{Take: 0}, KindValidation},
		{"negative take", blockSpec, ListQuery{Take: -3}, KindValidation},
		{"unknown sort", blockSpec, ListQuery{Take: 1, Sort: "hash"}, KindValidation},
		{"unknown filter", blockSpec, ListQuery{Take: 1, Filter: map[string]string{"foo": "1"}}, KindValidation},
		{"bad int filter", blockSpec, ListQuery{Take: 1, Filter: map[string]string{"minTxs": "lots"}}, KindValidation},
		{"bad enum", txSpec, ListQuery{Take: 1, Filter: map[string]string{"status": "pending"}}, KindValidation},
		{"search too long", blockSpec, ListQuery{Take: 1, Search: string(make([]byte, 65))}, KindValidation},
		{"search unsupported", txSpec, ListQuery{Take: 1, Search: "x"}, KindValidation},
		{"garbage cursor", blockSpec, ListQuery{Take: 1, Cursor: "!!!"}, KindInvalidCursor},
		{"cursor for another entity", txSpec, ListQuery{Take: 1, Desc: true, Cursor: token}, KindInvalidCursor},
		{"cursor with other direction", blockSpec, ListQuery{Take: 1, Desc: false, Cursor: token}, KindInvalidCursor},
		{"cursor with other filter", blockSpec, ListQuery{Take: 1, Desc: true, Cursor: token, Filter: map[string]string{"minTxs": "1"}}, KindInvalidCursor},
		{"keyset cursor on offset list", validatorSpec, ListQuery{Take: 1, Desc: true, Cursor: token}, KindInvalidCursor},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.spec.Plan(tc.q)
			require.Error(t, err)
			assert.Equal(t, tc.kind, KindOf(err))
		})
	}

	_, err = blockSpec.Plan(ListQuery{Take: 1, Desc: true, Cursor: token})
	assert.NoError(t, err)
}

func TestTakeIsClamped(t *testing.T) {
	p, err := blockSpec.Plan(ListQuery{Take: 5000})
	require.NoError(t, err)
	assert.Equal(t, MaxTake, p.Take)
}

func TestCursorRoundTrip(t *testing.T) {
	ts := time.Date(2025, 3, 4, 5, 6, 7, 891, time.UTC)
	spec := &Spec{
		Entity:      "transactions",
		Sorts:       map[string]Column{"time": {Name: "time", Expr: "t.time", Kind: Time}},
		DefaultSort: "time",
		TieBreak:    txSpec.TieBreak,
	}
	p, err := spec.Plan(ListQuery{Take: 1, Desc: true})
	require.NoError(t, err)
	page, err := Paginate(p, []txRow{{Height: 9, Index: 1, Time: ts}, {Height: 8}})
	require.NoError(t, err)

	resumed, err := spec.Plan(ListQuery{Take: 1, Desc: true, Cursor: *page.NextCursor})
	require.NoError(t, err)
	assert.Equal(t, []any{ts, int64(9), int64(1)}, resumed.After())
}

func TestDecodeCursorRejectsMixedShape(t *testing.T) {
	_, err := DecodeCursor(Cursor{Entity: "blocks", Context: "x", Keys: []string{"1"}, Skip: 3}.Encode())
	assert.True(t, errors.Is(err, ErrInvalidCursor))
	_, err = DecodeCursor(Cursor{Entity: "blocks", Context: "x"}.Encode())
	assert.True(t, errors.Is(err, ErrInvalidCursor))
}

func TestPaginateEmpty(t *testing.T) {
	p, err := blockSpec.Plan(ListQuery{Take: 3})
	require.NoError(t, err)
	page, err := Paginate[blockRow](p, nil)
	require.NoError(t, err)
	assert.NotNil(t, page.Items)
	assert.Nil(t, page.NextCursor)
}

func TestErrorKinds(t *testing.T) {
	err := StoreFailure("ListBlocks", errors.New("conn reset"))
	assert.True(t, errors.Is(err, ErrStore))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "ListBlocks: query failed: conn reset", err.Error())
	assert.Equal(t, KindNotFound, KindOf(NotFound("block %d", 3)))
	assert.Equal(t, Kind(0), KindOf(errors.New("plain")))
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want time.Time
		ok   bool
	}{
		{"rfc3339", "2024-01-01T12:00:00+02:00", time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), true},
		{"date", "2024-01-01", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), true},
		{"unix seconds", "1704067200", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), true},
		{"compact date", "20240101", time.Time{}, false},
		{"negative", "-1704067200", time.Time{}, false},
		{"garbage", "yesterday", time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseTime("after", tt.raw)
			if !tt.ok {
				assert.ErrorIs(t, err, ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %v", got)
		})
	}
}
