package dataset

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toxidity-18/Marketing-Data-Engine/domain/core"
	"github.com/toxidity-18/Marketing-Data-Engine/domain/table"
	"github.com/toxidity-18/Marketing-Data-Engine/internal"
)

func newStore(capacity int, ttl time.Duration) *MemoryStore {
	return NewMemoryStore(StorageConfig{Capacity: capacity, TTL: ttl}, nil, internal.NewLogger(internal.LogLevelError))
}

func TestMemoryStorePutGet(t *testing.T) {
	s := newStore(4, time.Hour)
	h := s.Put(StoredTable{Table: table.New(3), Source: "a.csv", Kind: "upload"})
	assert.Contains(t, h.String(), "upload_")

	e, err := s.Get(h)
	require.NoError(t, err)
	assert.Equal(t, "a.csv", e.Source)
	assert.False(t, e.CreatedAt.IsZero())

	_, err = s.Get("missing")
	assert.True(t, core.IsNotFoundError(err))
}

func TestMemoryStoreLastWriterWins(t *testing.T) {
	s := newStore(4, 0)
	h := s.Put(StoredTable{Table: table.New(1), Kind: "upload"})
	s.Put(StoredTable{Handle: h, Table: table.New(5), Kind: "normalized"})

	e, err := s.Get(h)
	require.NoError(t, err)
	assert.Equal(t, 5, e.Table.NumRows())
	assert.Equal(t, 1, s.Len())
}

func TestMemoryStoreEvictsLeastRecentlyUsed(t *testing.T) {
	s := newStore(2, 0)
	first := s.Put(StoredTable{Table: table.New(1), Kind: "upload"})
	second := s.Put(StoredTable{Table: table.New(1), Kind: "upload"})

	_, err := s.Get(first)
	require.NoError(t, err)
	third := s.Put(StoredTable{Table: table.New(1), Kind: "upload"})

	assert.Equal(t, 2, s.Len())
	_, err = s.Get(second)
	assert.Error(t, err, "second was least recently used")
	_, err = s.Get(third)
	assert.NoError(t, err)
}

func TestMemoryStorePutRefreshesLifetime(t *testing.T) {
	s := newStore(4, 200*time.Millisecond)
	entry := StoredTable{Handle: "upload_fixed", Table: table.New(1), Kind: "upload"}
	s.Put(entry)
	time.Sleep(120 * time.Millisecond)
	s.Put(entry)
	time.Sleep(120 * time.Millisecond)

	_, err := s.Get("upload_fixed")
	assert.NoError(t, err, "second Put restarted the lifetime")
}

// Reads in the polling loop must not keep the entry alive
func TestMemoryStoreExpires(t *testing.T) {
	s := newStore(4, 20*time.Millisecond)
	h := s.Put(StoredTable{Table: table.New(1), Kind: "upload"})
	assert.Eventually(t, func() bool {
		_, err := s.Get(h)
		return err != nil
	}, time.Second, 10*time.Millisecond)
}

func TestMemoryStoreListAndDelete(t *testing.T) {
	s := newStore(4, 0)
	h := s.Put(StoredTable{Table: table.New(2), Source: "x.csv", Kind: "upload"})
	list := s.List()
	require.Len(t, list, 1)
	assert.Equal(t, 2, list[0].Rows)

	assert.True(t, s.Delete(h))
	assert.False(t, s.Delete(h))
	assert.Zero(t, s.Len())
}
