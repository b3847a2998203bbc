// Package memory provides in-memory implementations of the metadata
// store interfaces, used in tests and ephemeral runs. All stores are
// safe for concurrent use.
package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/custodia-labs/passage-cli/internal/core/domain"
	"github.com/custodia-labs/passage-cli/internal/core/ports/driven"
)

// Store bundles all in-memory sub-stores over shared state.
type Store struct {
	mu       sync.RWMutex
	passages map[string]domain.Passage
	status   map[string]domain.IndexingStatus
	sessions map[string]map[string]struct{} // date -> passage ids
	saved    []savedEntry
	events   []usageEvent
	order    []string // status insertion order
}

type savedEntry struct {
	passageID string
	savedAt   time.Time
}

type usageEvent struct {
	action    string
	passageID string
	createdAt time.Time
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		passages: make(map[string]domain.Passage),
		status:   make(map[string]domain.IndexingStatus),
		sessions: make(map[string]map[string]struct{}),
	}
}

// PassageStore returns a PassageStore view of this store.
func (s *Store) PassageStore() driven.PassageStore { return &passageStore{s} }

// IndexStatusStore returns an IndexStatusStore view of this store.
func (s *Store) IndexStatusStore() driven.IndexStatusStore { return &indexStatusStore{s} }

// SessionStore returns a SessionStore view of this store.
func (s *Store) SessionStore() driven.SessionStore { return &sessionStore{s} }

// SavedStore returns a SavedStore view of this store.
func (s *Store) SavedStore() driven.SavedStore { return &savedStore{s} }

// UsageStore returns a UsageStore view of this store.
func (s *Store) UsageStore() driven.UsageStore { return &usageStore{s} }

// ==================== Passage Store ====================

type passageStore struct{ s *Store }

var _ driven.PassageStore = (*passageStore)(nil)

func (ps *passageStore) CommitFile(_ context.Context, filePath string, passages []domain.Passage) error {
	ps.s.mu.Lock()
	defer ps.s.mu.Unlock()

	for id, p := range ps.s.passages {
		if p.SourceFile == filePath {
			delete(ps.s.passages, id)
		}
	}
	for _, p := range passages {
		ps.s.passages[p.ID] = p
	}

	ps.s.setStateLocked(filePath, domain.IndexStateCompleted, "")
	return nil
}

func (ps *passageStore) Get(_ context.Context, id string) (*domain.Passage, error) {
	ps.s.mu.RLock()
	defer ps.s.mu.RUnlock()

	p, ok := ps.s.passages[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (ps *passageStore) List(_ context.Context) ([]domain.Passage, error) {
	ps.s.mu.RLock()
	defer ps.s.mu.RUnlock()

	out := make([]domain.Passage, 0, len(ps.s.passages))
	for _, p := range ps.s.passages {
		out = append(out, p)
	}
	return out, nil
}

func (ps *passageStore) ListEmbedded(_ context.Context) ([]domain.Passage, error) {
	ps.s.mu.RLock()
	defer ps.s.mu.RUnlock()

	var out []domain.Passage
	for _, p := range ps.s.passages {
		if len(p.Embedding) > 0 {
			out = append(out, p)
		}
	}
	return out, nil
}

func (ps *passageStore) Random(_ context.Context, exclude map[string]struct{}) (*domain.Passage, error) {
	ps.s.mu.RLock()
	defer ps.s.mu.RUnlock()

	var eligible []domain.Passage
	for _, p := range ps.s.passages {
		if _, shown := exclude[p.ID]; shown {
			continue
		}
		if st, ok := ps.s.status[p.SourceFile]; !ok || st.State != domain.IndexStateCompleted {
			continue
		}
		eligible = append(eligible, p)
	}
	if len(eligible) == 0 {
		return nil, domain.ErrNoPassagesAvailable
	}

	p := eligible[rand.Intn(len(eligible))]
	return &p, nil
}

func (ps *passageStore) SetEmbedding(_ context.Context, id string, embedding []float32) error {
	ps.s.mu.Lock()
	defer ps.s.mu.Unlock()

	p, ok := ps.s.passages[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.Embedding = embedding
	ps.s.passages[id] = p
	return nil
}

func (ps *passageStore) Count(_ context.Context) (int, error) {
	ps.s.mu.RLock()
	defer ps.s.mu.RUnlock()
	return len(ps.s.passages), nil
}

// ==================== Index Status Store ====================

type indexStatusStore struct{ s *Store }

var _ driven.IndexStatusStore = (*indexStatusStore)(nil)

func (is *indexStatusStore) Get(_ context.Context, filePath string) (*domain.IndexingStatus, error) {
	is.s.mu.RLock()
	defer is.s.mu.RUnlock()

	st, ok := is.s.status[filePath]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &st, nil
}

func (is *indexStatusStore) Upsert(_ context.Context, filePath string) error {
	is.s.mu.Lock()
	defer is.s.mu.Unlock()

	if _, ok := is.s.status[filePath]; ok {
		return nil
	}
	is.s.status[filePath] = domain.IndexingStatus{
		FilePath:  filePath,
		State:     domain.IndexStatePending,
		CreatedAt: time.Now().UTC(),
	}
	is.s.order = append(is.s.order, filePath)
	return nil
}

func (is *indexStatusStore) SetState(_ context.Context, filePath string, state domain.IndexState, errorMessage string) error {
	is.s.mu.Lock()
	defer is.s.mu.Unlock()

	is.s.setStateLocked(filePath, state, errorMessage)
	return nil
}

// setStateLocked requires s.mu held for writing.
func (s *Store) setStateLocked(filePath string, state domain.IndexState, errorMessage string) {
	st, ok := s.status[filePath]
	if !ok {
		st = domain.IndexingStatus{FilePath: filePath, CreatedAt: time.Now().UTC()}
		s.order = append(s.order, filePath)
	}
	st.State = state
	st.ErrorMessage = errorMessage
	if state == domain.IndexStateCompleted {
		st.IndexedAt = time.Now().UTC()
	}
	s.status[filePath] = st
}

func (is *indexStatusStore) Pending(_ context.Context, limit int) ([]string, error) {
	is.s.mu.RLock()
	defer is.s.mu.RUnlock()

	var out []string
	for _, path := range is.s.order {
		if is.s.status[path].State != domain.IndexStatePending {
			continue
		}
		out = append(out, path)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (is *indexStatusStore) Progress(_ context.Context) (domain.IndexingProgress, error) {
	is.s.mu.RLock()
	defer is.s.mu.RUnlock()

	var progress domain.IndexingProgress
	for _, st := range is.s.status {
		switch st.State {
		case domain.IndexStatePending:
			progress.Pending++
		case domain.IndexStateIndexing:
			progress.Indexing++
		case domain.IndexStateCompleted:
			progress.Completed++
		case domain.IndexStateFailed:
			progress.Failed++
		}
	}
	return progress, nil
}

// ==================== Session Store ====================

type sessionStore struct{ s *Store }

var _ driven.SessionStore = (*sessionStore)(nil)

func (ss *sessionStore) RecordShown(_ context.Context, date string, passageID string) error {
	ss.s.mu.Lock()
	defer ss.s.mu.Unlock()

	day, ok := ss.s.sessions[date]
	if !ok {
		day = make(map[string]struct{})
		ss.s.sessions[date] = day
	}
	day[passageID] = struct{}{}
	return nil
}

func (ss *sessionStore) ShownSince(_ context.Context, cutoffDate string) ([]string, error) {
	ss.s.mu.RLock()
	defer ss.s.mu.RUnlock()

	seen := make(map[string]struct{})
	var out []string
	for date, ids := range ss.s.sessions {
		if date < cutoffDate {
			continue
		}
		for id := range ids {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out, nil
}

func (ss *sessionStore) Clear(_ context.Context) error {
	ss.s.mu.Lock()
	defer ss.s.mu.Unlock()

	ss.s.sessions = make(map[string]map[string]struct{})
	return nil
}

// ==================== Saved Store ====================

type savedStore struct{ s *Store }

var _ driven.SavedStore = (*savedStore)(nil)

func (sv *savedStore) Save(_ context.Context, passageID string) error {
	sv.s.mu.Lock()
	defer sv.s.mu.Unlock()

	sv.s.saved = append(sv.s.saved, savedEntry{passageID: passageID, savedAt: time.Now().UTC()})
	return nil
}

func (sv *savedStore) List(_ context.Context) ([]string, error) {
	sv.s.mu.RLock()
	defer sv.s.mu.RUnlock()

	out := make([]string, 0, len(sv.s.saved))
	for i := len(sv.s.saved) - 1; i >= 0; i-- {
		out = append(out, sv.s.saved[i].passageID)
	}
	return out, nil
}

// ==================== Usage Store ====================

type usageStore struct{ s *Store }

var _ driven.UsageStore = (*usageStore)(nil)

func (us *usageStore) Record(_ context.Context, action string, passageID string) error {
	us.s.mu.Lock()
	defer us.s.mu.Unlock()

	us.s.events = append(us.s.events, usageEvent{
		action:    action,
		passageID: passageID,
		createdAt: time.Now().UTC(),
	})
	return nil
}
