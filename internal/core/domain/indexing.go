package domain

import "time"

// IndexState is the lifecycle state of one library file.
type IndexState string

// File indexing states. Transitions are strictly ordered:
// pending -> indexing -> {completed | failed}. A file re-enters
// indexing only after an explicit reset back to pending.
const (
	IndexStatePending   IndexState = "pending"
	IndexStateIndexing  IndexState = "indexing"
	IndexStateCompleted IndexState = "completed"
	IndexStateFailed    IndexState = "failed"
)

// IsValid returns true if the state is recognised.
func (s IndexState) IsValid() bool {
	switch s {
	case IndexStatePending, IndexStateIndexing, IndexStateCompleted, IndexStateFailed:
		return true
	default:
		return false
	}
}

// Terminal returns true for states that end a file's indexing run.
func (s IndexState) Terminal() bool {
	return s == IndexStateCompleted || s == IndexStateFailed
}

// CanTransitionTo reports whether moving from s to next respects the
// ordered lifecycle. Reverting to pending is allowed only from indexing
// (explicit reset) and from failed (retry after an external fix).
func (s IndexState) CanTransitionTo(next IndexState) bool {
	switch s {
	case IndexStatePending:
		return next == IndexStateIndexing
	case IndexStateIndexing:
		return next.Terminal() || next == IndexStatePending
	case IndexStateFailed:
		return next == IndexStatePending
	case IndexStateCompleted:
		return false
	default:
		return false
	}
}

// IndexingStatus tracks the indexing state of one library file.
// Transitions are owned exclusively by the indexer service.
type IndexingStatus struct {
	// FilePath is the absolute path of the file (primary key).
	FilePath string

	// State is the current lifecycle state.
	State IndexState

	// IndexedAt is when indexing completed (zero until then).
	IndexedAt time.Time

	// ErrorMessage holds the failure detail when State is failed.
	ErrorMessage string

	// CreatedAt is when the file was first discovered.
	CreatedAt time.Time
}

// IndexingProgress summarises library indexing for a progress indicator.
type IndexingProgress struct {
	Pending   int
	Indexing  int
	Completed int
	Failed    int
}

// Total returns the number of discovered files.
func (p IndexingProgress) Total() int {
	return p.Pending + p.Indexing + p.Completed + p.Failed
}

// BatchSummary reports the outcome of one indexing batch run.
type BatchSummary struct {
	// Processed is the number of files committed as completed.
	Processed int

	// Failed is the number of files marked failed.
	Failed int

	// Remaining is the number of pending files left after the run.
	Remaining int

	// Passages is the number of passages committed during the run.
	Passages int

	// Cancelled is true when the run stopped at a cancellation checkpoint.
	Cancelled bool
}
