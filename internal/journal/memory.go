package journal

import (
	"context"
	"sync"
)

// Memory keeps the most recent records in memory. A limit of zero keeps
// everything.
type Memory struct {
	mu      sync.RWMutex
	limit   int
	records []Record
}

func NewMemory(limit int) *Memory {
	return &Memory{limit: limit}
}

func (m *Memory) Write(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	if m.limit > 0 && len(m.records) > m.limit {
		m.records = m.records[len(m.records)-m.limit:]
	}
	return nil
}

func (m *Memory) Records(context.Context) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Record, len(m.records))
	copy(out, m.records)
	return out, nil
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

func (m *Memory) Close() error { return nil }
