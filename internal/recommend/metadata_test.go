package recommend

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/vietddude/curator/internal/core/domain"
)

const sampleMetadata = `[
  {"id": 1, "title": "Cowboy Bebop", "link": "https://myanimelist.net/anime/1", "mean": 8.75, "nsfw": "white", "rank": 46},
  {"id": 5114, "title": "Fullmetal Alchemist: Brotherhood", "link": "https://myanimelist.net/anime/5114", "mean": 9.1, "nsfw": "white"},
  {"id": 30, "title": "Neon Genesis Evangelion", "link": "https://myanimelist.net/anime/30", "mean": null, "nsfw": "gray"},
  {"id": 1.0, "title": "duplicate", "link": "x", "mean": 1, "nsfw": "black"}
]`

func TestParseMetadata(t *testing.T) {
	table, err := ParseMetadata([]byte(sampleMetadata))
	if err != nil {
		t.Fatalf("ParseMetadata failed: %v", err)
	}
	if len(table) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(table))
	}

	bebop := table[1]
	if bebop.Title != "Cowboy Bebop" || bebop.Mean != 8.75 || bebop.NSFW != "white" {
		t.Errorf("unexpected row: %+v", bebop)
	}
	for _, col := range []string{domain.ColumnTitle, domain.ColumnLink, domain.ColumnMean, domain.ColumnNSFW} {
		if !bebop.Has(col) {
			t.Errorf("expected column %q present", col)
		}
	}

	eva := table[30]
	if eva.Has(domain.ColumnMean) {
		t.Error("null mean must not count as present")
	}
	if !eva.Has(domain.ColumnTitle) {
		t.Error("expected title present")
	}
}

func TestParseMetadata_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", "id,title\n1,a"},
		{"object not array", `{"id": 1}`},
		{"missing id", `[{"title": "a"}]`},
		{"fractional id", `[{"id": 1.5}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseMetadata([]byte(tt.data)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestFileMetadata_LoadsFreshEachCall(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mal_anime_data.json")
	if err := os.WriteFile(path, []byte(`[{"id": 1, "title": "A"}]`), 0o644); err != nil {
		t.Fatal(err)
	}

	src := NewFileMetadata(path)
	first, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if err := os.WriteFile(path, []byte(`[{"id": 1, "title": "B"}, {"id": 2, "title": "C"}]`), 0o644); err != nil {
		t.Fatal(err)
	}
	second, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if first[1].Title != "A" || second[1].Title != "B" || len(second) != 2 {
		t.Errorf("expected a fresh read, got %v then %v", first, second)
	}

	if _, err := NewFileMetadata(filepath.Join(t.TempDir(), "missing.json")).Load(context.Background()); err == nil {
		t.Error("expected error for missing file")
	}
}
