// Package health provides system health monitoring and status reporting.
package health

import (
	"time"

	"github.com/vietddude/curator/internal/infra/rpc/provider"
)

// SystemStatus represents the overall health state of the system or a component.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusDegraded SystemStatus = "degraded"
	StatusCritical SystemStatus = "critical"
)

// CollectorHealth contains progress for one record type.
type CollectorHealth struct {
	RecordType     string       `json:"record_type"`
	Status         SystemStatus `json:"status"`
	State          string       `json:"state"`
	Page           int          `json:"page"`
	CheckpointPage int          `json:"checkpoint_page"`
	Records        int          `json:"records"`
	PagesPerSecond float64      `json:"pages_per_second"`
	LastAbortAt    *time.Time   `json:"last_abort_at,omitempty"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// HealthReport contains the full system health report.
type HealthReport struct {
	SystemStatus SystemStatus               `json:"system_status"`
	Collectors   map[string]CollectorHealth `json:"collectors"`
	Upstream     *provider.HealthStatus     `json:"upstream,omitempty"`
}
