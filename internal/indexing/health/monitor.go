package health

import (
	"context"
	"sync"
	"time"

	"github.com/vietddude/curator/internal/core/cursor"
	"github.com/vietddude/curator/internal/core/domain"
	"github.com/vietddude/curator/internal/infra/rpc/provider"
)

// CursorSource exposes collector progress.
type CursorSource interface {
	List(ctx context.Context) ([]*domain.Cursor, error)
	GetMetrics(recordType domain.RecordType) cursor.Metrics
}

// UpstreamSource exposes the GraphQL provider health.
type UpstreamSource interface {
	GetHealth() provider.HealthStatus
	IsAvailable() bool
}

// Monitor aggregates health status from the collector cursors and upstream.
type Monitor struct {
	cursors    CursorSource
	upstream   UpstreamSource
	cacheTTL   time.Duration
	lastCheck  time.Time
	lastReport *HealthReport
	mu         sync.Mutex
}

// NewMonitor creates a new health monitor. upstream may be nil when the
// process does not collect.
func NewMonitor(cursors CursorSource, upstream UpstreamSource, cacheTTL time.Duration) *Monitor {
	return &Monitor{
		cursors:  cursors,
		upstream: upstream,
		cacheTTL: cacheTTL,
	}
}

// CheckHealth builds a report, reusing the last one within the cache TTL.
func (m *Monitor) CheckHealth(ctx context.Context) *HealthReport {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.lastReport != nil && time.Since(m.lastCheck) < m.cacheTTL {
		return m.lastReport
	}

	report := &HealthReport{
		SystemStatus: StatusHealthy,
		Collectors:   make(map[string]CollectorHealth),
	}

	upstreamDown := false
	if m.upstream != nil {
		h := m.upstream.GetHealth()
		report.Upstream = &h
		upstreamDown = !m.upstream.IsAvailable() || !h.Available
		if upstreamDown {
			report.SystemStatus = StatusDegraded
		}
	}

	cursors, err := m.cursors.List(ctx)
	if err != nil {
		report.SystemStatus = StatusCritical
		return report
	}

	for _, c := range cursors {
		metrics := m.cursors.GetMetrics(c.RecordType)
		health := CollectorHealth{
			RecordType:     string(c.RecordType),
			Status:         evaluate(c.State, upstreamDown),
			State:          string(c.State),
			Page:           c.Page,
			CheckpointPage: c.CheckpointPage,
			Records:        c.Records,
			PagesPerSecond: metrics.PagesPerSecond,
			LastAbortAt:    metrics.LastAbortAt,
			UpdatedAt:      c.UpdatedAt,
		}
		report.Collectors[health.RecordType] = health
		report.SystemStatus = worst(report.SystemStatus, health.Status)
	}

	m.lastCheck = time.Now()
	m.lastReport = report
	return report
}

func evaluate(state domain.CursorState, upstreamDown bool) SystemStatus {
	switch {
	case state == cursor.StateAborted:
		return StatusCritical
	case state == cursor.StateRetrying:
		return StatusDegraded
	case upstreamDown && state == cursor.StateFetching:
		return StatusDegraded
	default:
		return StatusHealthy
	}
}

func worst(a, b SystemStatus) SystemStatus {
	rank := map[SystemStatus]int{StatusHealthy: 0, StatusDegraded: 1, StatusCritical: 2}
	if rank[b] > rank[a] {
		return b
	}
	return a
}
