// Package csvfile stores checkpoints as one CSV file per record type.
//
// Every write is a full rewrite: the dataset is rendered into a temporary
// file in the target directory, synced, and renamed over the previous
// checkpoint so a crash never leaves a truncated file behind.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/vietddude/curator/internal/core/domain"
	"github.com/vietddude/curator/internal/infra/storage"
)

// Store implements storage.CheckpointRepository on the local filesystem.
type Store struct {
	dir string
}

// NewStore creates a store writing into dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Path returns the checkpoint file for a record type.
func (s *Store) Path(recordType domain.RecordType) string {
	return filepath.Join(s.dir, string(recordType)+".csv")
}

// Write renders records to <dir>/<record_type>.csv, replacing any previous file.
func (s *Store) Write(ctx context.Context, recordType domain.RecordType, records []domain.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create checkpoint dir: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+string(recordType)+"-*.csv.tmp")
	if err != nil {
		return fmt.Errorf("create temp checkpoint: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		// no-op after a successful rename
		_ = os.Remove(tmpName)
	}()

	if err := Encode(tmp, records); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close checkpoint: %w", err)
	}
	if err := os.Rename(tmpName, s.Path(recordType)); err != nil {
		return fmt.Errorf("replace checkpoint: %w", err)
	}
	return nil
}

// Load reads the checkpoint for a record type. Cells come back as strings;
// empty cells are treated as absent keys.
func (s *Store) Load(ctx context.Context, recordType domain.RecordType) ([]domain.Record, error) {
	f, err := os.Open(s.Path(recordType))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, storage.ErrCheckpointNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open checkpoint: %w", err)
	}
	defer f.Close()

	return Decode(f)
}

// Encode writes records as CSV. The header is the sorted union of every
// record's top-level keys, so identical input always yields identical bytes.
func Encode(w io.Writer, records []domain.Record) error {
	columns := Columns(records)
	cw := csv.NewWriter(w)

	if err := cw.Write(columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	row := make([]string, len(columns))
	for i, rec := range records {
		for j, col := range columns {
			cell, err := formatCell(rec[col])
			if err != nil {
				return fmt.Errorf("record %d column %q: %w", i, col, err)
			}
			row[j] = cell
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// Decode reads CSV produced by Encode.
func Decode(r io.Reader) ([]domain.Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return []domain.Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	records := []domain.Record{}
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if len(row) != len(header) {
			return nil, fmt.Errorf("row has %d columns, want %d", len(row), len(header))
		}
		rec := make(domain.Record, len(header))
		for i, col := range header {
			if row[i] != "" {
				rec[col] = row[i]
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

// Columns returns the sorted union of top-level keys.
func Columns(records []domain.Record) []string {
	seen := make(map[string]struct{})
	for _, rec := range records {
		for k := range rec {
			seen[k] = struct{}{}
		}
	}
	columns := make([]string, 0, len(seen))
	for k := range seen {
		columns = append(columns, k)
	}
	slices.Sort(columns)
	return columns
}

func formatCell(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "", nil
	case string:
		return val, nil
	case bool:
		return strconv.FormatBool(val), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(val), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case json.Number:
		return val.String(), nil
	case map[string]any, []any:
		b, err := json.Marshal(val)
		if err != nil {
			return "", err
		}
		return string(b), nil
	case fmt.Stringer:
		return val.String(), nil
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}
