package query

// Page is the list envelope. NextCursor is set only when more rows exist.
type Page[T any] struct {
	Items      []T     `json:"items"`
	NextCursor *string `json:"nextCursor,omitempty"`
}

func (p Page[T]) HasNextPage() bool { return p.NextCursor != nil }

// Item is the detail envelope.
type Item[T any] struct {
	Item *T `json:"item"`
}
