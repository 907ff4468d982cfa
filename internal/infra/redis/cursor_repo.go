package redis

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/vietddude/curator/internal/core/domain"
	"github.com/vietddude/curator/internal/infra/storage"
)

const defaultKeyPrefix = "curator"

// CursorRepo implements storage.CursorRepository with one hash per record type
// and a set indexing the known record types.
type CursorRepo struct {
	rdb    *redis.Client
	prefix string
}

// NewCursorRepo creates a new Redis-backed cursor repository.
func NewCursorRepo(client *Client, prefix string) *CursorRepo {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &CursorRepo{
		rdb:    client.rdb,
		prefix: prefix,
	}
}

// Key helpers
func (r *CursorRepo) cursorKey(recordType domain.RecordType) string {
	return fmt.Sprintf("%s:cursor:%s", r.prefix, recordType)
}

func (r *CursorRepo) indexKey() string {
	return fmt.Sprintf("%s:cursors", r.prefix)
}

// Save stores the cursor fields and registers the record type.
func (r *CursorRepo) Save(ctx context.Context, c *domain.Cursor) error {
	meta, err := json.Marshal(c.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal cursor metadata: %w", err)
	}
	updatedAt := c.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	pipe := r.rdb.TxPipeline()
	pipe.HSet(ctx, r.cursorKey(c.RecordType), map[string]any{
		"page":            c.Page,
		"checkpoint_page": c.CheckpointPage,
		"records":         c.Records,
		"run_id":          c.RunID,
		"state":           string(c.State),
		"metadata":        string(meta),
		"updated_at":      updatedAt.UnixMilli(),
	})
	pipe.SAdd(ctx, r.indexKey(), string(c.RecordType))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save cursor: %w", err)
	}
	return nil
}

// Get retrieves the cursor for a record type.
func (r *CursorRepo) Get(ctx context.Context, recordType domain.RecordType) (*domain.Cursor, error) {
	fields, err := r.rdb.HGetAll(ctx, r.cursorKey(recordType)).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall failed: %w", err)
	}
	if len(fields) == 0 {
		return nil, storage.ErrCursorNotFound
	}
	return parseCursor(recordType, fields)
}

// List retrieves every registered cursor ordered by record type.
func (r *CursorRepo) List(ctx context.Context) ([]*domain.Cursor, error) {
	members, err := r.rdb.SMembers(ctx, r.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("smembers failed: %w", err)
	}
	slices.Sort(members)

	cursors := make([]*domain.Cursor, 0, len(members))
	for _, m := range members {
		c, err := r.Get(ctx, domain.RecordType(m))
		if err == storage.ErrCursorNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		cursors = append(cursors, c)
	}
	return cursors, nil
}

func parseCursor(recordType domain.RecordType, fields map[string]string) (*domain.Cursor, error) {
	c := &domain.Cursor{
		RecordType: recordType,
		RunID:      fields["run_id"],
		State:      domain.CursorState(fields["state"]),
		Metadata:   map[string]any{},
	}

	ints := []struct {
		field string
		dst   *int
	}{
		{"page", &c.Page},
		{"checkpoint_page", &c.CheckpointPage},
		{"records", &c.Records},
	}
	for _, f := range ints {
		v, err := strconv.Atoi(fields[f.field])
		if err != nil {
			return nil, fmt.Errorf("invalid cursor field %s: %w", f.field, err)
		}
		*f.dst = v
	}

	if ms, err := strconv.ParseInt(fields["updated_at"], 10, 64); err == nil {
		c.UpdatedAt = time.UnixMilli(ms)
	}
	if raw := fields["metadata"]; raw != "" && raw != "null" {
		if err := json.Unmarshal([]byte(raw), &c.Metadata); err != nil {
			return nil, fmt.Errorf("invalid cursor metadata: %w", err)
		}
	}
	return c, nil
}
