// Package cursor tracks the collection position for each record type.
//
// # Purpose
//
// The cursor acts as a "bookmark" that remembers where the collector is in
// each paginated dataset:
//   - Page: the last page appended to the in-memory dataset
//   - CheckpointPage / Records: what the last durable checkpoint covers
//   - State: control behavior (fetching, retrying, paused, done, aborted)
//
// # Key Features
//
// State Machine - Only allows valid transitions:
//
//	INIT → FETCHING → RETRYING → FETCHING (valid)
//	DONE → RETRYING (invalid - a finished run cannot retry)
//
// Gap Detection - When you call Advance(7) but cursor is at page 4,
// it returns ErrPageGap so you know pages 5-6 were never appended.
//
// Resume Safety - A run resumes from CheckpointPage + 1 using the records of
// the last checkpoint, never from Page, which may not be durable yet.
//
// # Quick Start
//
//	manager := cursor.NewManager(cursorRepo)
//
//	// Initialize cursor before seeding page 1
//	c, _ := manager.Initialize(ctx, domain.RecordTypeMedia, 1, runID)
//
//	manager.SetState(ctx, domain.RecordTypeMedia, cursor.StateFetching, "collector started")
//	manager.Advance(ctx, domain.RecordTypeMedia, 1)  // ✓ OK
//	manager.Advance(ctx, domain.RecordTypeMedia, 3)  // ✗ ErrPageGap
//
//	// After writing a checkpoint
//	manager.Checkpointed(ctx, domain.RecordTypeMedia, 1, 100)
//
// # Package Structure
//
//   - state.go   - State machine definitions and valid transitions
//   - manager.go - Core Manager implementation with gap detection
//   - metrics.go - Performance metrics (pages/sec, state history)
package cursor

import (
	"github.com/vietddude/curator/internal/core/domain"
	"github.com/vietddude/curator/internal/infra/storage"
)

// =============================================================================
// Re-exported types from domain package
// =============================================================================

// Cursor represents the collection position for a record type.
type Cursor = domain.Cursor

// CursorState represents the current state of the cursor.
type CursorState = domain.CursorState

// State constants re-exported for convenience.
const (
	StateInit     = domain.CursorStateInit
	StateFetching = domain.CursorStateFetching
	StateRetrying = domain.CursorStateRetrying
	StatePaused   = domain.CursorStatePaused
	StateDone     = domain.CursorStateDone
	StateAborted  = domain.CursorStateAborted
)

// =============================================================================
// Constructor functions
// =============================================================================

// NewManager creates a new cursor manager with the given repository.
func NewManager(repo storage.CursorRepository) *DefaultManager {
	return &DefaultManager{
		repo:            repo,
		pageTimeHistory: make(map[domain.RecordType]*MetricsCollector),
	}
}

// NewMetricsCollector creates a new metrics collector with the given window size.
func NewMetricsCollector(windowSize int) *MetricsCollector {
	if windowSize <= 0 {
		windowSize = 100
	}
	return &MetricsCollector{
		windowSize:  windowSize,
		pageTimes:   make([]pageRecord, 0, windowSize),
		transitions: make([]Transition, 0, 10),
	}
}
