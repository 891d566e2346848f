package store

import (
	"context"
	"sync"
)

// Compile-time interface check.
var _ Store = (*Memory)(nil)

// Memory is a concurrency-safe in-memory Store. Records are kept in
// insertion order and copied on the way in and out.
type Memory struct {
	mu      sync.RWMutex
	records map[string]*Record
	order   []string
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{records: make(map[string]*Record)}
}

func (m *Memory) Save(_ context.Context, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[rec.ID]; !ok {
		m.order = append(m.order, rec.ID)
	}
	m.records[rec.ID] = copyRecord(rec)
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyRecord(rec), nil
}

func (m *Memory) List(_ context.Context) ([]Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Summary, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, Summarize(m.records[id]))
	}
	return out, nil
}

func (m *Memory) PutStage(_ context.Context, runID string, doc StageDoc, state string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[runID]
	if !ok {
		return ErrNotFound
	}
	rec.SetStage(copyDoc(doc))
	if state != "" {
		rec.State = state
	}
	if doc.UpdatedAt.After(rec.UpdatedAt) {
		rec.UpdatedAt = doc.UpdatedAt
	}
	return nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[id]; !ok {
		return ErrNotFound
	}
	delete(m.records, id)
	for i, v := range m.order {
		if v == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *Memory) Close() error { return nil }
