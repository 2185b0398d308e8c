package ledger

import (
	"context"
	"sort"
	"sync"

	"github.com/cleared-dev/acctree/internal/model"
)

// MemoryStore is a Store held in memory. Tests use it in place of FSStore.
type MemoryStore struct {
	mu      sync.RWMutex
	reports map[string][]model.AccountRecord
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{reports: make(map[string][]model.AccountRecord)}
}

func (s *MemoryStore) ListReports(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.reports))
	for id := range s.reports {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *MemoryStore) ReadReport(ctx context.Context, reportID string) ([]model.AccountRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records, ok := s.reports[reportID]
	if !ok {
		return nil, &model.ErrNotFound{Resource: "report", ID: reportID}
	}
	return append([]model.AccountRecord(nil), records...), nil
}

func (s *MemoryStore) WriteReport(ctx context.Context, reportID string, records []model.AccountRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[reportID] = append([]model.AccountRecord(nil), records...)
	return nil
}

// ApplyTag updates every matching record under one lock.
func (s *MemoryStore) ApplyTag(ctx context.Context, code model.AccountCode, tag model.Tag) ([]model.RecordRef, error) {
	if err := ctx.Err(); err != nil {
		return nil, &model.PropagationError{Code: code, Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.reports))
	for id := range s.reports {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var all []model.RecordRef
	for _, id := range ids {
		all = append(all, retag(s.reports[id], code, tag)...)
	}
	return all, nil
}
