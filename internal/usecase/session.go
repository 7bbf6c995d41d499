package usecase

import (
	"sync"
	"time"

	"go.ngs.io/gridquery/internal/domain"
)

// Resident is the dataset currently loaded in a Session.
type Resident struct {
	Dataset    *domain.Dataset
	Roles      domain.Roles
	Path       string
	Generation uint64
	LoadedAt   time.Time
}

// Session holds the single resident dataset.
//
// Replace takes the write lock; queries run under the read lock for their
// whole duration, so a query never observes a dataset swapped out from under
// it. Each Replace bumps the generation, which clients may echo back to
// detect that the dataset they inspected is gone.
type Session struct {
	mu  sync.RWMutex
	cur *Resident
	gen uint64
}

// NewSession returns an empty session.
func NewSession() *Session { return &Session{} }

// Replace makes ds the resident dataset.
func (s *Session) Replace(ds *domain.Dataset, roles domain.Roles, path string) *Resident {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.cur = &Resident{
		Dataset:    ds,
		Roles:      roles,
		Path:       path,
		Generation: s.gen,
		LoadedAt:   time.Now().UTC(),
	}
	return s.cur
}

// View calls fn with the resident dataset under the read lock. It returns
// ErrNoDatasetLoaded before the first Replace, and ErrDatasetReplaced when
// generation is non-zero and no longer current.
func (s *Session) View(generation uint64, fn func(*Resident) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cur == nil {
		return domain.ErrNoDatasetLoaded
	}
	if generation != 0 && generation != s.cur.Generation {
		return domain.ErrDatasetReplaced
	}
	return fn(s.cur)
}

// Current returns the resident dataset, if any.
func (s *Session) Current() (*Resident, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur, s.cur != nil
}
