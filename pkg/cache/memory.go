package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
)

type entry struct {
	raw     []byte
	expires time.Time
}

// Memory is an in-process Cache. Values are stored as JSON so callers get
// the same copy semantics as with Redis.
type Memory struct {
	entries *xsync.Map[string, entry]
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{entries: xsync.NewMap[string, entry](), now: time.Now}
}

func (m *Memory) Get(_ context.Context, key string, dest any) (bool, error) {
	e, ok := m.entries.Load(key)
	if !ok {
		return false, nil
	}
	if !m.now().Before(e.expires) {
		m.entries.Delete(key)
		return false, nil
	}
	if err := json.Unmarshal(e.raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (m *Memory) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries.Store(key, entry{raw: raw, expires: m.now().Add(ttl)})
	return nil
}

// Sweep drops expired entries.
func (m *Memory) Sweep() int {
	now := m.now()
	removed := 0
	m.entries.Range(func(key string, e entry) bool {
		if !now.Before(e.expires) {
			m.entries.Delete(key)
			removed++
		}
		return true
	})
	return removed
}

func (m *Memory) Len() int { return m.entries.Size() }
