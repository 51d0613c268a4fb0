package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/nvandessel/paysim/internal/models"
)

var _ RunStore = (*InMemoryRunStore)(nil)

// InMemoryRunStore implements RunStore for testing and for MCP sessions
// started without a database.
type InMemoryRunStore struct {
	mu   sync.RWMutex
	runs map[string]*Run
}

// NewInMemoryRunStore creates a new in-memory store.
func NewInMemoryRunStore() *InMemoryRunStore {
	return &InMemoryRunStore{runs: make(map[string]*Run)}
}

// SaveRun stores a copy of run.
func (s *InMemoryRunStore) SaveRun(ctx context.Context, run *Run) error {
	if run == nil || run.ID == "" {
		return fmt.Errorf("run must have an id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = copyRun(run)
	return nil
}

// GetRun returns a copy of the stored run.
func (s *InMemoryRunStore) GetRun(ctx context.Context, id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return copyRun(run), nil
}

// ListRuns returns run summaries, newest first.
func (s *InMemoryRunStore) ListRuns(ctx context.Context) ([]RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]RunSummary, 0, len(s.runs))
	for _, run := range s.runs {
		out = append(out, run.Summary())
	}
	slices.SortFunc(out, func(a, b RunSummary) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

// DeleteRun removes a run.
func (s *InMemoryRunStore) DeleteRun(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[id]; !ok {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	delete(s.runs, id)
	return nil
}

// Close is a no-op.
func (s *InMemoryRunStore) Close() error {
	return nil
}

func copyRun(run *Run) *Run {
	out := *run
	out.Initial = run.Initial.Clone()
	out.Final = run.Final.Clone()
	out.Reviews = make([][]models.ReviewRecord, len(run.Reviews))
	for i, records := range run.Reviews {
		out.Reviews[i] = slices.Clone(records)
	}
	out.Snapshots = slices.Clone(run.Snapshots)
	return &out
}
