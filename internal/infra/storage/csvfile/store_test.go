package csvfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/vietddude/curator/internal/core/domain"
	"github.com/vietddude/curator/internal/infra/storage"
)

func sampleRecords() []domain.Record {
	return []domain.Record{
		{
			"id":        json.Number("1"),
			"name":      "alice",
			"updatedAt": json.Number("1700000000"),
			"statistics": map[string]any{
				"anime": map[string]any{"meanScore": json.Number("78.5")},
			},
		},
		{
			"id":     json.Number("2"),
			"name":   "bob, the \"second\"",
			"genres": []any{"Action", "Drama"},
		},
	}
}

func TestEncode_HeaderAndRows(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, sampleRecords()); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	want := "genres,id,name,statistics,updatedAt\n" +
		",1,alice,\"{\"\"anime\"\":{\"\"meanScore\"\":78.5}}\",1700000000\n" +
		"\"[\"\"Action\"\",\"\"Drama\"\"]\",2,\"bob, the \"\"second\"\"\",,\n"
	if buf.String() != want {
		t.Errorf("unexpected csv:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestStore_WriteIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	ctx := context.Background()

	if err := store.Write(ctx, domain.RecordTypeUsers, sampleRecords()); err != nil {
		t.Fatalf("first write failed: %v", err)
	}
	first, err := os.ReadFile(store.Path(domain.RecordTypeUsers))
	if err != nil {
		t.Fatalf("read first: %v", err)
	}

	if err := store.Write(ctx, domain.RecordTypeUsers, sampleRecords()); err != nil {
		t.Fatalf("second write failed: %v", err)
	}
	second, err := os.ReadFile(store.Path(domain.RecordTypeUsers))
	if err != nil {
		t.Fatalf("read second: %v", err)
	}

	if !bytes.Equal(first, second) {
		t.Errorf("checkpoints differ:\n%s\n---\n%s", first, second)
	}
}

func TestStore_WriteOverwrites(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	ctx := context.Background()

	if err := store.Write(ctx, domain.RecordTypeMedia, sampleRecords()); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := store.Write(ctx, domain.RecordTypeMedia, sampleRecords()[:1]); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	records, err := store.Load(ctx, domain.RecordTypeMedia)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("expected 1 record after overwrite, got %d", len(records))
	}

	// No temp files left behind
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "media.csv" {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("unexpected files in checkpoint dir: %v", names)
	}
}

func TestStore_LoadRoundTripIsStable(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	ctx := context.Background()

	if err := store.Write(ctx, domain.RecordTypeUsers, sampleRecords()); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	original, _ := os.ReadFile(store.Path(domain.RecordTypeUsers))

	loaded, err := store.Load(ctx, domain.RecordTypeUsers)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded[1]["statistics"] != nil {
		t.Errorf("empty cell should load as absent key, got %v", loaded[1]["statistics"])
	}

	if err := store.Write(ctx, domain.RecordTypeUsers, loaded); err != nil {
		t.Fatalf("rewrite failed: %v", err)
	}
	rewritten, _ := os.ReadFile(store.Path(domain.RecordTypeUsers))
	if !bytes.Equal(original, rewritten) {
		t.Errorf("reloaded checkpoint rendered differently:\n%s\n---\n%s", original, rewritten)
	}
}

func TestStore_LoadMissing(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "nested"))
	_, err := store.Load(context.Background(), domain.RecordTypeUsers)
	if !errors.Is(err, storage.ErrCheckpointNotFound) {
		t.Errorf("expected ErrCheckpointNotFound, got %v", err)
	}
}

func TestStore_WriteEmptyDataset(t *testing.T) {
	store := NewStore(t.TempDir())
	ctx := context.Background()

	if err := store.Write(ctx, domain.RecordTypeUsers, nil); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	records, err := store.Load(ctx, domain.RecordTypeUsers)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected empty dataset, got %d records", len(records))
	}
}
