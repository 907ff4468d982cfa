package recommend

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/vietddude/curator/internal/core/domain"
)

func TestHTTPRecommender_Run(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/recommend" {
			t.Errorf("expected /recommend, got %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("unexpected authorization header %q", got)
		}

		var q Query
		if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
			t.Errorf("decode query: %v", err)
		}
		want := Query{Search: "Frieren", AnimeMode: true, Autoselect: true, Limit: 10}
		if q != want {
			t.Errorf("expected %+v, got %+v", want, q)
		}

		_, _ = io.WriteString(w, `{"results":[{"id":52991,"distance":9.12},{"id":5114,"distance":8.4}]}`)
	}))
	defer server.Close()

	rec := NewHTTPRecommender(server.URL+"/", "secret", 5*time.Second)
	got, err := rec.Run(context.Background(), NewQuery(domain.ModeAnime, "Frieren", 10))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	want := []domain.Candidate{domain.NewCandidate(52991, 9.12), domain.NewCandidate(5114, 8.4)}
	if len(got) != len(want) {
		t.Fatalf("Run() returned %d candidates, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].ID != want[i].ID || got[i].Distance == nil || *got[i].Distance != *want[i].Distance {
			t.Errorf("candidate %d = %+v, want id %d distance %v", i, got[i], want[i].ID, *want[i].Distance)
		}
	}
}

func TestHTTPRecommender_MissingDistance(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"results":[{"id":1},{"id":2,"distance":null},{"id":3,"score":7.5},{"id":4,"distance":6.1}]}`)
	}))
	defer server.Close()

	rec := NewHTTPRecommender(server.URL, "", 5*time.Second)
	got, err := rec.Run(context.Background(), NewQuery(domain.ModeUser, "someone", 10))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("expected 4 candidates, got %d", len(got))
	}
	for i := 0; i < 3; i++ {
		if got[i].Distance != nil {
			t.Errorf("candidate %d: expected nil distance, got %v", got[i].ID, *got[i].Distance)
		}
	}
	if got[3].Distance == nil || *got[3].Distance != 6.1 {
		t.Errorf("candidate 4: expected distance 6.1, got %+v", got[3])
	}

	table := domain.MetadataTable{}
	for id := int64(1); id <= 4; id++ {
		table[id] = fullRow(id, "t")
	}
	for i := 0; i < 3; i++ {
		if _, err := Merge(got[i:i+1], table, 10); !errors.Is(err, ErrIncompleteJoin) {
			t.Errorf("candidate %d: expected ErrIncompleteJoin, got %v", got[i].ID, err)
		}
	}
	recs, err := Merge(got[3:], table, 10)
	if err != nil || len(recs) != 1 || recs[0].MatchPct != 61 {
		t.Errorf("expected one 61%% match, got %+v, %v", recs, err)
	}
}

func TestHTTPRecommender_StatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, ErrInvalidCredential},
		{http.StatusForbidden, ErrInvalidCredential},
		{http.StatusTooManyRequests, ErrRateLimitExceeded},
		{http.StatusNotFound, ErrSubjectNotFound},
		{http.StatusInternalServerError, nil},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, "nope")
			}))
			defer server.Close()

			_, err := NewHTTPRecommender(server.URL, "t", time.Second).Run(context.Background(), NewQuery(domain.ModeUser, "x", 10))
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
			if tt.want == nil {
				for _, sentinel := range []error{ErrInvalidCredential, ErrRateLimitExceeded, ErrSubjectNotFound} {
					if errors.Is(err, sentinel) {
						t.Errorf("unexpected sentinel %v", sentinel)
					}
				}
				if !strings.Contains(err.Error(), "500") {
					t.Errorf("expected status in error, got %v", err)
				}
			}
		})
	}
}

func TestRender(t *testing.T) {
	recs := []domain.Recommendation{
		{Title: "Cowboy Bebop", MatchPct: 91, Link: "https://myanimelist.net/anime/1", Mean: 8.756, NSFW: "white"},
		{Title: "Redline", MatchPct: 88, Link: "https://myanimelist.net/anime/6675", Mean: 8.2, NSFW: "black"},
	}

	var buf bytes.Buffer
	Render(&buf, Result{Kind: KindOK, Search: "bebop", Recommendations: recs})
	out := buf.String()
	for _, want := range []string{"Cowboy Bebop", "91%", "8.76", "SFW", "NSFW", "Search: bebop"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}

	buf.Reset()
	Render(&buf, Result{Kind: KindRateLimited})
	if strings.TrimSpace(buf.String()) != "The bot is currently rate limited. Please try again later." {
		t.Errorf("unexpected message output %q", buf.String())
	}
}

func TestFormatMean(t *testing.T) {
	tests := map[float64]string{
		8.1:   "8.1",
		8.756: "8.76",
		9:     "9",
	}
	for in, want := range tests {
		if got := FormatMean(in); got != want {
			t.Errorf("FormatMean(%v) = %q, want %q", in, got, want)
		}
	}
}
