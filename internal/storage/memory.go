package storage

import (
	"context"
	"sync"
)

// Memory keeps documents in process memory. It backs tests and is the
// development default when no database is configured.
type Memory struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{docs: make(map[string][]byte)}
}

func (m *Memory) Load(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.docs[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	out := make([]byte, len(doc))
	copy(out, doc)
	return out, nil
}

func (m *Memory) Save(_ context.Context, key string, data []byte) error {
	doc := make([]byte, len(data))
	copy(doc, data)

	m.mu.Lock()
	m.docs[key] = doc
	m.mu.Unlock()
	return nil
}
