package recommend

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/vietddude/curator/internal/core/domain"
)

// MetadataSource loads the metadata table.
type MetadataSource interface {
	Load(ctx context.Context) (domain.MetadataTable, error)
}

// FileMetadata reads a JSON array of records from disk on every Load.
type FileMetadata struct {
	path string
}

// NewFileMetadata creates a loader for path.
func NewFileMetadata(path string) *FileMetadata {
	return &FileMetadata{path: path}
}

// Load reads and parses the file.
func (f *FileMetadata) Load(ctx context.Context) (domain.MetadataTable, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	return ParseMetadata(data)
}

// ParseMetadata decodes a JSON array of objects keyed by "id". Columns that
// are absent, null or of the wrong type are left unset on the row; extra
// columns are ignored. The first row wins for a duplicated id.
func ParseMetadata(data []byte) (domain.MetadataTable, error) {
	var raw []map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}

	table := make(domain.MetadataTable, len(raw))
	for i, obj := range raw {
		id, ok := intValue(obj["id"])
		if !ok {
			return nil, fmt.Errorf("metadata row %d: missing or invalid id", i)
		}
		if _, dup := table[id]; dup {
			continue
		}

		row := domain.MetadataRow{ID: id, Columns: make(map[string]bool)}
		if s, ok := obj[domain.ColumnTitle].(string); ok {
			row.Title = s
			row.Columns[domain.ColumnTitle] = true
		}
		if s, ok := obj[domain.ColumnLink].(string); ok {
			row.Link = s
			row.Columns[domain.ColumnLink] = true
		}
		if s, ok := obj[domain.ColumnNSFW].(string); ok {
			row.NSFW = s
			row.Columns[domain.ColumnNSFW] = true
		}
		if f, ok := floatValue(obj[domain.ColumnMean]); ok {
			row.Mean = f
			row.Columns[domain.ColumnMean] = true
		}
		table[id] = row
	}
	return table, nil
}

func intValue(v any) (int64, bool) {
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n, true
		}
		f, err := x.Float64()
		if err != nil || f != float64(int64(f)) {
			return 0, false
		}
		return int64(f), true
	case string:
		n, err := strconv.ParseInt(x, 10, 64)
		return n, err == nil
	}
	return 0, false
}

func floatValue(v any) (float64, bool) {
	switch x := v.(type) {
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil
	}
	return 0, false
}
