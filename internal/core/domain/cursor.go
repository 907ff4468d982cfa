package domain

import "time"

// Cursor represents the collection position for one record type.
type Cursor struct {
	RecordType     RecordType
	Page           int // last page appended to the in-memory dataset
	CheckpointPage int // last page covered by a durable checkpoint
	Records        int // records covered by that checkpoint
	RunID          string
	UpdatedAt      time.Time
	State          CursorState
	Metadata       map[string]any
}

type CursorState string

const (
	CursorStateInit     CursorState = "init"
	CursorStateFetching CursorState = "fetching"
	CursorStateRetrying CursorState = "retrying"
	CursorStatePaused   CursorState = "paused"
	CursorStateDone     CursorState = "done"
	CursorStateAborted  CursorState = "aborted"
)
