package dataset

import (
	"sort"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/toxidity-18/Marketing-Data-Engine/domain/core"
	"github.com/toxidity-18/Marketing-Data-Engine/domain/table"
	"github.com/toxidity-18/Marketing-Data-Engine/internal"
)

// StoredTable is a table held under a handle together with where it came from
type StoredTable struct {
	Handle    core.Handle       `json:"handle"`
	Table     *table.Table      `json:"-"`
	Source    string            `json:"source"`
	Platform  string            `json:"platform,omitempty"`
	Kind      string            `json:"kind"` // upload, normalized, merged, aggregated
	Meta      map[string]string `json:"meta,omitempty"`
	CreatedAt core.Timestamp    `json:"created_at"`
}

// TableInfo summarizes a stored table for listings
type TableInfo struct {
	Handle    core.Handle    `json:"handle"`
	Source    string         `json:"source"`
	Platform  string         `json:"platform,omitempty"`
	Kind      string         `json:"kind"`
	Rows      int            `json:"rows"`
	Columns   int            `json:"columns"`
	CreatedAt core.Timestamp `json:"created_at"`
}

// TableStore defines the interface for handle-keyed table storage
type TableStore interface {
	Put(entry StoredTable) core.Handle
	Get(handle core.Handle) (*StoredTable, error)
	Delete(handle core.Handle) bool
	List() []TableInfo
	Len() int
}

// StorageConfig bounds the in-memory store
type StorageConfig struct {
	Capacity int           // maximum number of tables
	TTL      time.Duration // lifetime since the last Put; reads do not extend it. 0 keeps tables until evicted by capacity
}

// DefaultStorageConfig returns sensible defaults
func DefaultStorageConfig() StorageConfig {
	return StorageConfig{Capacity: 64, TTL: 2 * time.Hour}
}

// MemoryStore keeps tables in a capacity and TTL bounded LRU cache. Writes to the same
// handle replace the previous table.
type MemoryStore struct {
	cache  *expirable.LRU[core.Handle, *StoredTable]
	clock  core.Clock
	logger *internal.Logger
}

var _ TableStore = (*MemoryStore)(nil)

// NewMemoryStore creates a bounded store
func NewMemoryStore(config StorageConfig, clock core.Clock, logger *internal.Logger) *MemoryStore {
	if config.Capacity <= 0 {
		config.Capacity = DefaultStorageConfig().Capacity
	}
	if clock == nil {
		clock = core.SystemClock()
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	s := &MemoryStore{clock: clock, logger: logger}
	s.cache = expirable.NewLRU[core.Handle, *StoredTable](config.Capacity, func(h core.Handle, e *StoredTable) {
		s.logger.Debug("[Storage] evicted %s (%s)", h, e.Source)
	}, config.TTL)
	return s
}

// Put stores a table, generating a handle from its kind when none is set
func (s *MemoryStore) Put(entry StoredTable) core.Handle {
	if entry.Handle == "" {
		entry.Handle = core.NewHandle(entry.Kind)
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = core.NewTimestamp(s.clock())
	}
	s.cache.Add(entry.Handle, &entry)
	s.logger.Debug("[Storage] stored %s (%d rows)", entry.Handle, rowsOf(entry.Table))
	return entry.Handle
}

// Get returns the table stored under handle
func (s *MemoryStore) Get(handle core.Handle) (*StoredTable, error) {
	e, ok := s.cache.Get(handle)
	if !ok {
		return nil, core.NewNotFoundError("table", handle.String())
	}
	return e, nil
}

// Delete removes a handle and reports whether it existed
func (s *MemoryStore) Delete(handle core.Handle) bool {
	return s.cache.Remove(handle)
}

// List summarizes the live tables, oldest first
func (s *MemoryStore) List() []TableInfo {
	entries := s.cache.Values()
	out := make([]TableInfo, 0, len(entries))
	for _, e := range entries {
		out = append(out, TableInfo{
			Handle:    e.Handle,
			Source:    e.Source,
			Platform:  e.Platform,
			Kind:      e.Kind,
			Rows:      rowsOf(e.Table),
			Columns:   colsOf(e.Table),
			CreatedAt: e.CreatedAt,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Len returns the number of live tables
func (s *MemoryStore) Len() int {
	return s.cache.Len()
}

func rowsOf(t *table.Table) int {
	if t == nil {
		return 0
	}
	return t.NumRows()
}

func colsOf(t *table.Table) int {
	if t == nil {
		return 0
	}
	return t.NumColumns()
}
