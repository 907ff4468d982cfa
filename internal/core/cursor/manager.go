package cursor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/vietddude/curator/internal/core/domain"
	"github.com/vietddude/curator/internal/infra/storage"
)

var (
	// ErrCursorNotFound is returned when a cursor doesn't exist.
	ErrCursorNotFound = storage.ErrCursorNotFound

	// ErrPageGap is returned when a gap is detected during Advance.
	ErrPageGap = errors.New("page gap detected")

	// ErrCursorPaused is returned when trying to advance a paused cursor.
	ErrCursorPaused = errors.New("cursor is paused")

	// ErrCursorFinished is returned when trying to advance a done or aborted cursor.
	ErrCursorFinished = errors.New("cursor run is finished")
)

// Manager handles cursor operations with state machine enforcement.
type Manager interface {
	// Get retrieves the current cursor for a record type.
	Get(ctx context.Context, recordType domain.RecordType) (*domain.Cursor, error)

	// List retrieves all cursors.
	List(ctx context.Context) ([]*domain.Cursor, error)

	// Initialize creates a fresh cursor positioned before startPage.
	Initialize(ctx context.Context, recordType domain.RecordType, startPage int, runID string) (*domain.Cursor, error)

	// Advance moves cursor forward one page (validates sequential).
	Advance(ctx context.Context, recordType domain.RecordType, page int) error

	// Checkpointed records what the latest durable checkpoint covers.
	Checkpointed(ctx context.Context, recordType domain.RecordType, page, records int) error

	// SetState transitions cursor to new state (validates transition).
	SetState(ctx context.Context, recordType domain.RecordType, newState State, reason string) error

	// Reset rewrites the cursor position, e.g. from the operator CLI.
	Reset(ctx context.Context, recordType domain.RecordType, page int) error

	// SetMetadata updates cursor metadata.
	SetMetadata(ctx context.Context, recordType domain.RecordType, key string, value any) error

	// GetMetrics returns performance metrics for a record type.
	GetMetrics(recordType domain.RecordType) Metrics

	// SetStateChangeCallback registers callback for state changes.
	SetStateChangeCallback(fn func(recordType domain.RecordType, t Transition))
}

// DefaultManager implements Manager with state machine enforcement.
type DefaultManager struct {
	repo            storage.CursorRepository
	mu              sync.RWMutex
	stateCallback   func(domain.RecordType, Transition)
	pageTimeHistory map[domain.RecordType]*MetricsCollector
}

// Get retrieves the current cursor for a record type.
func (m *DefaultManager) Get(ctx context.Context, recordType domain.RecordType) (*domain.Cursor, error) {
	return m.repo.Get(ctx, recordType)
}

// List retrieves all cursors.
func (m *DefaultManager) List(ctx context.Context) ([]*domain.Cursor, error) {
	return m.repo.List(ctx)
}

// Initialize creates a new cursor positioned just before startPage.
func (m *DefaultManager) Initialize(
	ctx context.Context,
	recordType domain.RecordType,
	startPage int,
	runID string,
) (*domain.Cursor, error) {
	if startPage < 1 {
		return nil, fmt.Errorf("start page must be positive, got %d", startPage)
	}

	cursor := &domain.Cursor{
		RecordType:     recordType,
		Page:           startPage - 1,
		CheckpointPage: startPage - 1,
		RunID:          runID,
		UpdatedAt:      time.Now(),
		State:          domain.CursorStateInit,
		Metadata:       make(map[string]any),
	}

	if err := m.repo.Save(ctx, cursor); err != nil {
		return nil, fmt.Errorf("failed to save cursor: %w", err)
	}

	m.mu.Lock()
	m.pageTimeHistory[recordType] = NewMetricsCollector(100)
	m.mu.Unlock()

	return cursor, nil
}

// Advance moves cursor forward after a page was appended.
func (m *DefaultManager) Advance(ctx context.Context, recordType domain.RecordType, page int) error {
	cursor, err := m.repo.Get(ctx, recordType)
	if err != nil {
		return fmt.Errorf("failed to get cursor: %w", err)
	}

	// Validate state allows advancement
	switch cursor.State {
	case domain.CursorStatePaused:
		return ErrCursorPaused
	case domain.CursorStateDone, domain.CursorStateAborted:
		return ErrCursorFinished
	}

	// Re-delivery of the page we already hold
	if page == cursor.Page {
		return nil
	}
	if page != cursor.Page+1 {
		return fmt.Errorf("%w: expected page %d, got %d", ErrPageGap, cursor.Page+1, page)
	}

	cursor.Page = page
	cursor.UpdatedAt = time.Now()
	if err := m.repo.Save(ctx, cursor); err != nil {
		return fmt.Errorf("failed to update cursor: %w", err)
	}

	m.mu.Lock()
	if collector, ok := m.pageTimeHistory[recordType]; ok {
		collector.RecordPage(page, cursor.UpdatedAt)
	}
	m.mu.Unlock()

	return nil
}

// Checkpointed records the page and record count covered by the latest checkpoint.
func (m *DefaultManager) Checkpointed(ctx context.Context, recordType domain.RecordType, page, records int) error {
	cursor, err := m.repo.Get(ctx, recordType)
	if err != nil {
		return fmt.Errorf("failed to get cursor: %w", err)
	}
	if page > cursor.Page {
		return fmt.Errorf("checkpoint page %d is ahead of cursor page %d", page, cursor.Page)
	}

	cursor.CheckpointPage = page
	cursor.Records = records
	cursor.UpdatedAt = time.Now()
	if err := m.repo.Save(ctx, cursor); err != nil {
		return fmt.Errorf("failed to update cursor: %w", err)
	}
	return nil
}

// SetState transitions cursor to a new state.
func (m *DefaultManager) SetState(
	ctx context.Context,
	recordType domain.RecordType,
	newState State,
	reason string,
) error {
	cursor, err := m.repo.Get(ctx, recordType)
	if err != nil {
		return fmt.Errorf("failed to get cursor: %w", err)
	}

	// Validate transition
	if !CanTransition(cursor.State, newState) {
		return fmt.Errorf(
			"%w: cannot transition from %s to %s",
			ErrInvalidTransition,
			cursor.State,
			newState,
		)
	}

	transition := NewTransition(cursor.State, newState, reason)

	cursor.State = newState
	cursor.UpdatedAt = transition.Timestamp
	if err := m.repo.Save(ctx, cursor); err != nil {
		return fmt.Errorf("failed to update state: %w", err)
	}

	m.mu.Lock()
	collector, ok := m.pageTimeHistory[recordType]
	if !ok {
		collector = NewMetricsCollector(100)
		m.pageTimeHistory[recordType] = collector
	}
	collector.RecordTransition(transition)
	callback := m.stateCallback
	m.mu.Unlock()

	if callback != nil {
		callback(recordType, transition)
	}

	return nil
}

// Reset rewrites the cursor so the next resumed run starts after page.
func (m *DefaultManager) Reset(ctx context.Context, recordType domain.RecordType, page int) error {
	if page < 0 {
		return fmt.Errorf("page must not be negative, got %d", page)
	}

	cursor, err := m.repo.Get(ctx, recordType)
	if errors.Is(err, storage.ErrCursorNotFound) {
		cursor = &domain.Cursor{RecordType: recordType, Metadata: make(map[string]any)}
	} else if err != nil {
		return fmt.Errorf("failed to get cursor: %w", err)
	}

	cursor.Page = page
	cursor.CheckpointPage = page
	cursor.State = domain.CursorStateInit
	cursor.UpdatedAt = time.Now()
	if err := m.repo.Save(ctx, cursor); err != nil {
		return fmt.Errorf("failed to reset cursor: %w", err)
	}

	m.mu.Lock()
	if collector, ok := m.pageTimeHistory[recordType]; ok {
		collector.Reset()
	} else {
		m.pageTimeHistory[recordType] = NewMetricsCollector(100)
	}
	m.mu.Unlock()
	return nil
}

// SetMetadata updates cursor metadata.
func (m *DefaultManager) SetMetadata(
	ctx context.Context,
	recordType domain.RecordType,
	key string,
	value any,
) error {
	cursor, err := m.repo.Get(ctx, recordType)
	if err != nil {
		return fmt.Errorf("failed to get cursor: %w", err)
	}

	if cursor.Metadata == nil {
		cursor.Metadata = make(map[string]any)
	}
	cursor.Metadata[key] = value

	return m.repo.Save(ctx, cursor)
}

// GetMetrics returns performance metrics for a record type.
func (m *DefaultManager) GetMetrics(recordType domain.RecordType) Metrics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if collector, ok := m.pageTimeHistory[recordType]; ok {
		return collector.GetMetrics()
	}

	return Metrics{}
}

// SetStateChangeCallback registers a callback for state changes.
func (m *DefaultManager) SetStateChangeCallback(fn func(recordType domain.RecordType, t Transition)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stateCallback = fn
}
