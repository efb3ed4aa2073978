package store

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/Brownie44l1/cancer-api/internal/prediction"
)

// Memory keeps records in process memory. It backs local runs without a
// database and the HTTP tests.
type Memory struct {
	mu      sync.RWMutex
	records []prediction.Record
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Create(_ context.Context, rec prediction.Record) (prediction.Record, error) {
	rec.ID = uuid.NewString()

	m.mu.Lock()
	m.records = append(m.records, rec)
	m.mu.Unlock()
	return rec, nil
}

func (m *Memory) List(_ context.Context) ([]prediction.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]prediction.Record, len(m.records))
	copy(out, m.records)
	return out, nil
}
