package storage

import (
	"context"
	"fmt"
	"sync"
)

// MemoryKV is an in-process KV medium used by tests and the memory backend.
type MemoryKV struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string][]byte)}
}

func (m *MemoryKV) Get(_ context.Context, namespace string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	payload, ok := m.data[namespace]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoRecord, namespace)
	}
	out := append([]byte(nil), payload...)
	return out, nil
}

func (m *MemoryKV) Put(_ context.Context, namespace string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[namespace] = append([]byte(nil), payload...)
	return nil
}

func (m *MemoryKV) Close() error {
	return nil
}
