package approval

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/yourusername/netreconcile/internal/models"
)

// MemoryStore keeps approvals for the lifetime of the process
type MemoryStore struct {
	mu        sync.Mutex
	pending   map[string]Pending
	decisions map[string]bool
	now       func() time.Time
}

// NewMemoryStore creates an empty in-process store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		pending:   map[string]Pending{},
		decisions: map[string]bool{},
		now:       time.Now,
	}
}

func (s *MemoryStore) RecordPending(_ context.Context, d models.DiffResult) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := Key(d)
	if _, ok := s.pending[key]; ok {
		return false, nil
	}
	s.pending[key] = Pending{Key: key, Diff: d, RequestedAt: s.now().UTC()}
	return true, nil
}

func (s *MemoryStore) ListPending(_ context.Context) ([]Pending, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Pending, 0, len(s.pending))
	for _, p := range s.pending {
		out = append(out, p)
	}
	sortPending(out)
	return out, nil
}

func (s *MemoryStore) Decide(_ context.Context, key string, approve bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pending[key]; !ok {
		return ErrNotFound
	}
	delete(s.pending, key)
	s.decisions[key] = approve
	return nil
}

func (s *MemoryStore) Decision(_ context.Context, key string) (bool, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	approved, ok := s.decisions[key]
	return approved, ok, nil
}

func (s *MemoryStore) Forget(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, key)
	delete(s.decisions, key)
	return nil
}

// sortPending orders oldest first, then by key
func sortPending(p []Pending) {
	sort.Slice(p, func(i, j int) bool {
		if !p[i].RequestedAt.Equal(p[j].RequestedAt) {
			return p[i].RequestedAt.Before(p[j].RequestedAt)
		}
		return p[i].Key < p[j].Key
	})
}
