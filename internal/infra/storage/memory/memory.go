package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/vietddude/curator/internal/core/domain"
	"github.com/vietddude/curator/internal/infra/storage"
)

type MemoryStorage struct {
	cursors     map[domain.RecordType]*domain.Cursor
	checkpoints map[domain.RecordType][]domain.Record
	writes      map[domain.RecordType]int
	mu          sync.RWMutex
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		cursors:     make(map[domain.RecordType]*domain.Cursor),
		checkpoints: make(map[domain.RecordType][]domain.Record),
		writes:      make(map[domain.RecordType]int),
	}
}

// -----------------------------------------------------------------------------
// Cursor Repository
// -----------------------------------------------------------------------------

type CursorRepo struct {
	store *MemoryStorage
}

func NewCursorRepo(store *MemoryStorage) *CursorRepo {
	return &CursorRepo{store: store}
}

func (r *CursorRepo) Get(ctx context.Context, recordType domain.RecordType) (*domain.Cursor, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	c, ok := r.store.cursors[recordType]
	if !ok {
		return nil, storage.ErrCursorNotFound
	}
	return copyCursor(c), nil
}

func (r *CursorRepo) Save(ctx context.Context, cursor *domain.Cursor) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.cursors[cursor.RecordType] = copyCursor(cursor)
	return nil
}

func (r *CursorRepo) List(ctx context.Context) ([]*domain.Cursor, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	keys := slices.Sorted(maps.Keys(r.store.cursors))
	out := make([]*domain.Cursor, 0, len(keys))
	for _, k := range keys {
		out = append(out, copyCursor(r.store.cursors[k]))
	}
	return out, nil
}

func copyCursor(c *domain.Cursor) *domain.Cursor {
	cp := *c
	cp.Metadata = maps.Clone(c.Metadata)
	return &cp
}

// -----------------------------------------------------------------------------
// Checkpoint Repository
// -----------------------------------------------------------------------------

type CheckpointRepo struct {
	store *MemoryStorage
}

func NewCheckpointRepo(store *MemoryStorage) *CheckpointRepo {
	return &CheckpointRepo{store: store}
}

func (r *CheckpointRepo) Write(ctx context.Context, recordType domain.RecordType, records []domain.Record) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.checkpoints[recordType] = slices.Clone(records)
	r.store.writes[recordType]++
	return nil
}

func (r *CheckpointRepo) Load(ctx context.Context, recordType domain.RecordType) ([]domain.Record, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	records, ok := r.store.checkpoints[recordType]
	if !ok {
		return nil, storage.ErrCheckpointNotFound
	}
	return slices.Clone(records), nil
}

// Writes returns how many checkpoints were written for a record type.
func (r *CheckpointRepo) Writes(recordType domain.RecordType) int {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return r.store.writes[recordType]
}
