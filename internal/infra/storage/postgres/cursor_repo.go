package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/vietddude/curator/internal/core/domain"
	"github.com/vietddude/curator/internal/infra/storage"
)

// cursorRow mirrors the cursors table.
type cursorRow struct {
	RecordType     string    `db:"record_type"`
	Page           int       `db:"page"`
	CheckpointPage int       `db:"checkpoint_page"`
	Records        int       `db:"records"`
	RunID          string    `db:"run_id"`
	State          string    `db:"state"`
	Metadata       []byte    `db:"metadata"`
	UpdatedAt      time.Time `db:"updated_at"`
}

const upsertCursor = `
INSERT INTO cursors (record_type, page, checkpoint_page, records, run_id, state, metadata, updated_at)
VALUES (:record_type, :page, :checkpoint_page, :records, :run_id, :state, :metadata, :updated_at)
ON CONFLICT (record_type) DO UPDATE SET
    page = EXCLUDED.page,
    checkpoint_page = EXCLUDED.checkpoint_page,
    records = EXCLUDED.records,
    run_id = EXCLUDED.run_id,
    state = EXCLUDED.state,
    metadata = EXCLUDED.metadata,
    updated_at = EXCLUDED.updated_at`

const selectCursor = `
SELECT record_type, page, checkpoint_page, records, run_id, state, metadata, updated_at
FROM cursors`

// CursorRepo implements storage.CursorRepository using PostgreSQL.
type CursorRepo struct {
	db *DB
}

// NewCursorRepo creates a new PostgreSQL cursor repository.
func NewCursorRepo(db *DB) *CursorRepo {
	return &CursorRepo{db: db}
}

// Save saves a cursor to the database.
func (r *CursorRepo) Save(ctx context.Context, cursor *domain.Cursor) error {
	meta := cursor.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to encode cursor metadata: %w", err)
	}

	updatedAt := cursor.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	_, err = r.db.NamedExecContext(ctx, upsertCursor, cursorRow{
		RecordType:     string(cursor.RecordType),
		Page:           cursor.Page,
		CheckpointPage: cursor.CheckpointPage,
		Records:        cursor.Records,
		RunID:          cursor.RunID,
		State:          string(cursor.State),
		Metadata:       metaJSON,
		UpdatedAt:      updatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to save cursor: %w", err)
	}
	return nil
}

// Get retrieves a cursor by record type.
func (r *CursorRepo) Get(ctx context.Context, recordType domain.RecordType) (*domain.Cursor, error) {
	var row cursorRow
	err := r.db.GetContext(ctx, &row, selectCursor+" WHERE record_type = $1", string(recordType))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrCursorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cursor: %w", err)
	}
	return row.toDomain()
}

// List retrieves every cursor ordered by record type.
func (r *CursorRepo) List(ctx context.Context) ([]*domain.Cursor, error) {
	var rows []cursorRow
	if err := r.db.SelectContext(ctx, &rows, selectCursor+" ORDER BY record_type"); err != nil {
		return nil, fmt.Errorf("failed to list cursors: %w", err)
	}

	cursors := make([]*domain.Cursor, 0, len(rows))
	for _, row := range rows {
		c, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		cursors = append(cursors, c)
	}
	return cursors, nil
}

func (row cursorRow) toDomain() (*domain.Cursor, error) {
	meta := map[string]any{}
	if len(row.Metadata) > 0 {
		if err := json.Unmarshal(row.Metadata, &meta); err != nil {
			return nil, fmt.Errorf("failed to decode cursor metadata: %w", err)
		}
	}
	return &domain.Cursor{
		RecordType:     domain.RecordType(row.RecordType),
		Page:           row.Page,
		CheckpointPage: row.CheckpointPage,
		Records:        row.Records,
		RunID:          row.RunID,
		State:          domain.CursorState(row.State),
		Metadata:       meta,
		UpdatedAt:      row.UpdatedAt,
	}, nil
}
