package query

import (
	"encoding/base64"
	"encoding/json"
)

// Cursor is the decoded form of a page token. Keyset cursors carry the
// last row's composite key; offset cursors carry take and skip.
type Cursor struct {
	Entity string `json:"e"`
	// Context fingerprints the sort, direction, filters and search the cursor was issued under.
	Context string   `json:"c"`
	Keys    []string `json:"k,omitempty"`
	Take    int      `json:"t,omitempty"`
	Skip    int      `json:"s,omitempty"`
}

// Encode returns the opaque URL-safe token.
func (c Cursor) Encode() string {
	b, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(b)
}

// IsOffset reports whether the cursor resumes by offset.
func (c Cursor) IsOffset() bool { return len(c.Keys) == 0 }

// DecodeCursor parses a token produced by Encode.
func DecodeCursor(token string) (Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, InvalidCursor("cursor is not valid base64")
	}
	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return Cursor{}, InvalidCursor("cursor payload is malformed")
	}
	if c.Entity == "" || c.Context == "" {
		return Cursor{}, InvalidCursor("cursor payload is incomplete")
	}
	if c.IsOffset() && (c.Take <= 0 || c.Skip <= 0) {
		return Cursor{}, InvalidCursor("offset cursor needs positive take and skip")
	}
	if !c.IsOffset() && (c.Take != 0 || c.Skip != 0) {
		return Cursor{}, InvalidCursor("cursor mixes key and offset positions")
	}
	return c, nil
}
