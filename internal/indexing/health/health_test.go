package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/vietddude/curator/internal/core/cursor"
	"github.com/vietddude/curator/internal/core/domain"
	"github.com/vietddude/curator/internal/infra/rpc/provider"
)

// =============================================================================
// Stubs
// =============================================================================

type stubCursors struct {
	cursors []*domain.Cursor
	err     error
}

func (s *stubCursors) List(ctx context.Context) ([]*domain.Cursor, error) {
	return s.cursors, s.err
}

func (s *stubCursors) GetMetrics(rt domain.RecordType) cursor.Metrics {
	return cursor.Metrics{PagesPerSecond: 0.3}
}

type stubUpstream struct {
	available bool
}

func (s *stubUpstream) GetHealth() provider.HealthStatus {
	return provider.HealthStatus{Available: s.available, Requests: 10}
}

func (s *stubUpstream) IsAvailable() bool { return s.available }

func cursorIn(rt domain.RecordType, state cursor.State) *domain.Cursor {
	return &domain.Cursor{RecordType: rt, State: state, Page: 12, CheckpointPage: 10, Records: 1000}
}

// =============================================================================
// Tests
// =============================================================================

func TestMonitor_Status(t *testing.T) {
	tests := []struct {
		name      string
		states    []cursor.State
		available bool
		want      SystemStatus
	}{
		{"fetching", []cursor.State{cursor.StateFetching}, true, StatusHealthy},
		{"done and paused", []cursor.State{cursor.StateDone, cursor.StatePaused}, true, StatusHealthy},
		{"retrying", []cursor.State{cursor.StateDone, cursor.StateRetrying}, true, StatusDegraded},
		{"upstream throttled", []cursor.State{cursor.StateFetching}, false, StatusDegraded},
		{"aborted", []cursor.State{cursor.StateRetrying, cursor.StateAborted}, true, StatusCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &stubCursors{}
			for i, st := range tt.states {
				src.cursors = append(src.cursors, cursorIn(domain.RecordTypes[i], st))
			}
			monitor := NewMonitor(src, &stubUpstream{available: tt.available}, 0)

			report := monitor.CheckHealth(context.Background())
			if report.SystemStatus != tt.want {
				t.Errorf("expected %s, got %s", tt.want, report.SystemStatus)
			}
			if len(report.Collectors) != len(tt.states) {
				t.Errorf("expected %d collectors, got %d", len(tt.states), len(report.Collectors))
			}
		})
	}
}

func TestMonitor_CursorListFailure(t *testing.T) {
	monitor := NewMonitor(&stubCursors{err: errors.New("db down")}, nil, 0)

	report := monitor.CheckHealth(context.Background())
	if report.SystemStatus != StatusCritical {
		t.Errorf("expected critical, got %s", report.SystemStatus)
	}
}

func TestMonitor_CachesReport(t *testing.T) {
	src := &stubCursors{cursors: []*domain.Cursor{cursorIn(domain.RecordTypeUsers, cursor.StateFetching)}}
	monitor := NewMonitor(src, nil, time.Hour)

	first := monitor.CheckHealth(context.Background())
	src.cursors[0] = cursorIn(domain.RecordTypeUsers, cursor.StateAborted)
	second := monitor.CheckHealth(context.Background())

	if first != second || second.SystemStatus != StatusHealthy {
		t.Error("expected cached report within TTL")
	}
}

func TestServer_Endpoints(t *testing.T) {
	src := &stubCursors{cursors: []*domain.Cursor{cursorIn(domain.RecordTypeMedia, cursor.StateAborted)}}
	server := NewServer(NewMonitor(src, &stubUpstream{available: true}, 0), 0)
	server.Handle("/extra", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 for critical status, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/detailed", nil))
	var report HealthReport
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatalf("decode detailed report: %v", err)
	}
	media, ok := report.Collectors["media"]
	if !ok || media.State != "aborted" || media.Records != 1000 {
		t.Errorf("unexpected detailed report: %+v", report)
	}
	if report.Upstream == nil || report.Upstream.Requests != 10 {
		t.Errorf("expected upstream health in report, got %+v", report.Upstream)
	}

	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected metrics endpoint, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/extra", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("expected mounted handler, got %d", rec.Code)
	}
}
