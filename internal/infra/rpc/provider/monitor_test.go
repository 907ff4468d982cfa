package provider

import (
	"testing"
	"time"
)

func TestMonitorRequestWindow(t *testing.T) {
	m := NewProviderMonitor()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	m.RecordRequest(100 * time.Millisecond)
	for i := 0; i < 100; i++ {
		m.RecordRequest(50 * time.Millisecond)
	}

	stats := m.GetStats()
	if stats.RequestsLast1Hour != 101 {
		t.Errorf("Expected 101 requests, got %d", stats.RequestsLast1Hour)
	}

	// Requests older than the window fall out on the next record
	now = now.Add(2 * time.Hour)
	m.RecordRequest(50 * time.Millisecond)

	stats = m.GetStats()
	if stats.RequestsLast1Hour != 1 {
		t.Errorf("Expected 1 request after window slide, got %d", stats.RequestsLast1Hour)
	}
}

func TestMonitorThrottle(t *testing.T) {
	tests := []struct {
		name       string
		retryAfter string
		want       time.Duration
	}{
		{"delta seconds", "30", 30 * time.Second},
		{"missing header", "", time.Minute},
		{"http date falls back", "Wed, 21 Oct 2015 07:28:00 GMT", time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewProviderMonitor()
			now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
			m.now = func() time.Time { return now }

			m.RecordThrottle(tt.retryAfter)

			if got := m.CheckProviderStatus(); got != StatusThrottled {
				t.Errorf("expected throttled, got %s", got)
			}
			if got := m.GetRetryAfter(); got != tt.want {
				t.Errorf("expected retry after %v, got %v", tt.want, got)
			}

			now = now.Add(tt.want)
			if got := m.CheckProviderStatus(); got != StatusHealthy {
				t.Errorf("expected healthy once retry-after elapsed, got %s", got)
			}
		})
	}
}

func TestMonitorDegradedOnSlowResponses(t *testing.T) {
	m := NewProviderMonitor()
	for i := 0; i < 11; i++ {
		m.RecordRequest(5 * time.Second)
	}
	if got := m.CheckProviderStatus(); got != StatusDegraded {
		t.Errorf("expected degraded, got %s", got)
	}
}
