package storage

import (
	"context"
	"errors"

	"github.com/vietddude/curator/internal/core/domain"
)

var (
	// ErrCursorNotFound is returned when a cursor doesn't exist
	ErrCursorNotFound = errors.New("cursor not found")

	// ErrCheckpointNotFound is returned when no checkpoint was written for a record type
	ErrCheckpointNotFound = errors.New("checkpoint not found")
)

// CursorRepository handles collector cursor persistence
type CursorRepository interface {
	// Get retrieves the cursor for a record type
	Get(ctx context.Context, recordType domain.RecordType) (*domain.Cursor, error)

	// Save saves/updates the cursor
	Save(ctx context.Context, cursor *domain.Cursor) error

	// List retrieves every stored cursor
	List(ctx context.Context) ([]*domain.Cursor, error)
}

// CheckpointRepository persists full snapshots of a collected dataset.
// Every Write replaces the previous snapshot for the same record type.
type CheckpointRepository interface {
	// Write overwrites the checkpoint for a record type
	Write(ctx context.Context, recordType domain.RecordType, records []domain.Record) error

	// Load reads the last checkpoint for a record type
	Load(ctx context.Context, recordType domain.RecordType) ([]domain.Record, error)
}
