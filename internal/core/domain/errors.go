package domain

import (
	"errors"
	"fmt"
	"time"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates a file format outside the closed set.
	ErrUnsupportedType = errors.New("unsupported file type")

	// ErrDecode indicates a file could not be decoded as UTF-8 or Latin-1.
	// The file is skipped; the batch continues.
	ErrDecode = errors.New("undecodable file encoding")

	// ErrParse indicates a structurally corrupt document (e.g. a broken PDF).
	// The file is skipped; the batch continues.
	ErrParse = errors.New("malformed document structure")

	// ErrEmbeddingUnavailable indicates the embedding provider is not
	// configured or failed to initialise. This is a degraded-mode signal,
	// not a failure: structural-only scoring and selection proceed.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrEmbeddingDimension indicates a stored or computed vector does not
	// match the provider's dimensionality. This is a hard error.
	ErrEmbeddingDimension = errors.New("embedding dimensionality mismatch")

	// ErrNoPassagesAvailable indicates selection found nothing even after
	// widening the exclusion window. An expected steady state, not fatal.
	ErrNoPassagesAvailable = errors.New("no unseen passages available")

	// ErrIndexingInProgress indicates a batch run already holds the
	// indexing lock. The caller is told, never queued.
	ErrIndexingInProgress = errors.New("indexing already in progress")
)

// TimeoutError reports a per-file extraction exceeding its wall-clock
// budget. It carries the elapsed time and the last page processed so the
// failure detail survives into the indexing status.
type TimeoutError struct {
	// Path is the file that timed out.
	Path string

	// Elapsed is the wall-clock time spent before abandoning the file.
	Elapsed time.Duration

	// LastPage is the last page fully processed (0 if none).
	LastPage int
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("extraction timed out after %s (last page %d): %s",
		e.Elapsed.Round(time.Second), e.LastPage, e.Path)
}

// NewTimeoutError creates a timeout error for a file.
func NewTimeoutError(path string, elapsed time.Duration, lastPage int) *TimeoutError {
	return &TimeoutError{Path: path, Elapsed: elapsed, LastPage: lastPage}
}

// CancelledError summarises a cooperatively cancelled indexing run:
// how many files finished before the checkpoint and how many were left
// pending. The run is resumable; nothing was partially committed.
type CancelledError struct {
	// Completed is the number of files committed before cancellation.
	Completed int

	// Pending is the number of files left awaiting indexing.
	Pending int
}

// Error implements the error interface.
func (e *CancelledError) Error() string {
	return fmt.Sprintf("indexing cancelled: %d files completed, %d left pending",
		e.Completed, e.Pending)
}
