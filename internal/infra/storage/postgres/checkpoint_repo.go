package postgres

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/vietddude/curator/internal/core/domain"
	"github.com/vietddude/curator/internal/indexing/metrics"
	"github.com/vietddude/curator/internal/infra/storage"
)

const insertBatchSize = 500

// CheckpointRepo implements storage.CheckpointRepository using PostgreSQL.
// A write replaces every row of the record type inside one transaction.
type CheckpointRepo struct {
	db *DB
}

// NewCheckpointRepo creates a new PostgreSQL checkpoint repository.
func NewCheckpointRepo(db *DB) *CheckpointRepo {
	return &CheckpointRepo{db: db}
}

type checkpointRow struct {
	RecordType string `db:"record_type"`
	Position   int    `db:"position"`
	Payload    []byte `db:"payload"`
}

// Write overwrites the checkpoint for a record type.
func (r *CheckpointRepo) Write(ctx context.Context, recordType domain.RecordType, records []domain.Record) error {
	start := time.Now()
	defer func() {
		metrics.DBQueryDuration.WithLabelValues("checkpoint_write").Observe(time.Since(start).Seconds())
	}()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin checkpoint tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, "DELETE FROM checkpoints WHERE record_type = $1", string(recordType)); err != nil {
		return fmt.Errorf("failed to clear checkpoint: %w", err)
	}

	batch := make([]checkpointRow, 0, insertBatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		_, err := tx.NamedExecContext(ctx,
			"INSERT INTO checkpoints (record_type, position, payload) VALUES (:record_type, :position, :payload)",
			batch)
		batch = batch[:0]
		return err
	}

	for i, rec := range records {
		payload, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to encode record %d: %w", i, err)
		}
		batch = append(batch, checkpointRow{
			RecordType: string(recordType),
			Position:   i,
			Payload:    payload,
		})
		if len(batch) == insertBatchSize {
			if err := flush(); err != nil {
				return fmt.Errorf("failed to insert checkpoint rows: %w", err)
			}
		}
	}
	if err := flush(); err != nil {
		return fmt.Errorf("failed to insert checkpoint rows: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit checkpoint: %w", err)
	}
	return nil
}

// Load reads the checkpoint for a record type in its original order. An
// empty snapshot is indistinguishable from a missing one.
func (r *CheckpointRepo) Load(ctx context.Context, recordType domain.RecordType) ([]domain.Record, error) {
	start := time.Now()
	defer func() {
		metrics.DBQueryDuration.WithLabelValues("checkpoint_load").Observe(time.Since(start).Seconds())
	}()

	var payloads [][]byte
	err := r.db.SelectContext(ctx, &payloads,
		"SELECT payload FROM checkpoints WHERE record_type = $1 ORDER BY position",
		string(recordType))
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	if len(payloads) == 0 {
		return nil, storage.ErrCheckpointNotFound
	}

	records := make([]domain.Record, 0, len(payloads))
	for _, p := range payloads {
		dec := json.NewDecoder(bytes.NewReader(p))
		dec.UseNumber()
		var rec domain.Record
		if err := dec.Decode(&rec); err != nil {
			return nil, fmt.Errorf("failed to decode checkpoint row: %w", err)
		}
		records = append(records, rec)
	}
	return records, nil
}
