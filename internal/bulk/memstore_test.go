package bulk

import (
	"context"
	"sync"
)

// memStore is an in-memory ProgressStore fake for coordinator tests,
// mirroring the teacher's storage/memory test-double idiom.
type memStore struct {
	mu   sync.Mutex
	data map[string]Progress
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string]Progress)}
}

func (m *memStore) Upsert(_ context.Context, p Progress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[p.OperationID] = p
	return nil
}

func (m *memStore) Get(_ context.Context, operationID string) (Progress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.data[operationID]
	if !ok {
		return Progress{}, ErrNotFound
	}
	return p, nil
}

func (m *memStore) ListActive(ctx context.Context) ([]Progress, error) {
	return m.ListByStatus(ctx, StatusInitializing, StatusDiscovering, StatusCrawling, StatusPaused, StatusResuming)
}

func (m *memStore) ListByStatus(_ context.Context, statuses ...Status) ([]Progress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := make(map[Status]bool, len(statuses))
	for _, s := range statuses {
		want[s] = true
	}
	var out []Progress
	for _, p := range m.data {
		if want[p.Status] {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) Delete(_ context.Context, operationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[operationID]; !ok {
		return ErrNotFound
	}
	delete(m.data, operationID)
	return nil
}

var _ ProgressStore = (*memStore)(nil)
