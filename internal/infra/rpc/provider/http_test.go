package provider

import (
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

func mediaRequest(page int) domain.PageRequest {
	return domain.PageRequest{
		RecordType: domain.RecordTypeMedia,
		Page:       page,
		PerPage:    100,
		Query:      "query ($page: Int, $perPage: Int) { Page { media { id } } }",
	}
}

func TestHTTPProvider_FetchPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected method POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected json content type, got %q", ct)
		}

		var body struct {
			Query     string         `json:"query"`
			Variables map[string]int `json:"variables"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("failed to decode body: %v", err)
			return
		}
		if body.Variables["page"] != 7 || body.Variables["perPage"] != 100 {
			t.Errorf("unexpected variables: %v", body.Variables)
		}
		if !strings.Contains(body.Query, "media") {
			t.Errorf("unexpected query: %s", body.Query)
		}

		_, _ = io.WriteString(w, `{"data":{"Page":{"pageInfo":{"hasNextPage":true},"media":[{"id":21,"meanScore":87,"title":{"romaji":"One Piece"}},{"id":5114,"meanScore":90}]}}}`)
	}))
	defer server.Close()

	p := NewHTTPProvider("anilist-mock", server.URL, 5*time.Second)
	defer p.Close()

	page, err := p.FetchPage(context.Background(), mediaRequest(7))
	if err != nil {
		t.Fatalf("FetchPage failed: %v", err)
	}
	if page.Number != 7 {
		t.Errorf("expected page number 7, got %d", page.Number)
	}
	if !page.HasNextPage {
		t.Error("expected hasNextPage")
	}
	if len(page.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(page.Records))
	}
	if id, ok := page.Records[0]["id"].(json.Number); !ok || id.String() != "21" {
		t.Errorf("expected id json.Number 21, got %#v", page.Records[0]["id"])
	}
	if _, ok := page.Records[0]["title"].(map[string]any); !ok {
		t.Errorf("expected nested title object, got %#v", page.Records[0]["title"])
	}

	health := p.GetHealth()
	if health.Requests != 1 || health.Failures != 0 {
		t.Errorf("unexpected health counters: %+v", health)
	}
}

func TestHTTPProvider_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		class  ErrorClass
	}{
		{"server error", http.StatusInternalServerError, "boom", ClassStatus},
		{"rate limited", http.StatusTooManyRequests, `{"errors":[{"message":"Too Many Requests."}]}`, ClassStatus},
		{"not json", http.StatusOK, "<html>", ClassDecode},
		{"graphql errors", http.StatusOK, `{"data":null,"errors":[{"message":"Internal Server Error"}]}`, ClassDecode},
		{"missing page info", http.StatusOK, `{"data":{"Page":{"media":[]}}}`, ClassDecode},
		{"missing list", http.StatusOK, `{"data":{"Page":{"pageInfo":{"hasNextPage":false}}}}`, ClassDecode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer server.Close()

			p := NewHTTPProvider("anilist-mock", server.URL, 5*time.Second)
			_, err := p.FetchPage(context.Background(), mediaRequest(1))
			if err == nil {
				t.Fatal("expected error")
			}
			if got := Classify(err); got != tt.class {
				t.Errorf("Classify() = %s, want %s (err: %v)", got, tt.class, err)
			}
			if p.GetHealth().Failures != 1 {
				t.Errorf("expected failure recorded")
			}
		})
	}
}

func TestHTTPProvider_RateLimitMarksThrottled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "60")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	p := NewHTTPProvider("anilist-mock", server.URL, 5*time.Second)
	_, err := p.FetchPage(context.Background(), mediaRequest(1))

	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 StatusError, got %v", err)
	}
	if !IsRateLimited(err) {
		t.Error("expected IsRateLimited")
	}
	if p.IsAvailable() {
		t.Error("expected provider unavailable while throttled")
	}
}

func TestHTTPProvider_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	p := NewHTTPProvider("anilist-mock", url, time.Second)
	_, err := p.FetchPage(context.Background(), mediaRequest(1))
	if err == nil {
		t.Fatal("expected error")
	}
	if got := Classify(err); got != ClassTransport {
		t.Errorf("Classify() = %s, want transport", got)
	}
}

func TestDecodePage_EmptyList(t *testing.T) {
	page, err := DecodePage([]byte(`{"data":{"Page":{"pageInfo":{"hasNextPage":false},"users":[]}}}`), domain.RecordTypeUsers)
	if err != nil {
		t.Fatalf("DecodePage failed: %v", err)
	}
	if page.HasNextPage {
		t.Error("expected no next page")
	}
	if page.Records == nil || len(page.Records) != 0 {
		t.Errorf("expected empty non-nil records, got %#v", page.Records)
	}
}
