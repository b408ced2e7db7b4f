package settings

import (
	"fmt"
	"sync"
)

// OpenKV opens the durable backend named by backend ("sqlite", "badger"
// or "memory") at path.
func OpenKV(backend, path string) (KV, error) {
	switch backend {
	case "sqlite", "":
		return NewSQLiteKV(path)
	case "badger":
		return NewBadgerKV(path)
	case "memory":
		return NewMemoryKV(), nil
	default:
		return nil, fmt.Errorf("unknown settings backend: %s", backend)
	}
}

// MemoryKV is a process-local KV used for demo sessions and tests
type MemoryKV struct {
	mu     sync.Mutex
	data   map[string]string
	writes int
}

// NewMemoryKV creates an empty in-memory store
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string]string)}
}

// Read implements KV
func (m *MemoryKV) Read(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

// Write implements KV
func (m *MemoryKV) Write(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.writes++
	return nil
}

// Writes returns how many writes reached the store
func (m *MemoryKV) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// Close implements KV
func (m *MemoryKV) Close() error {
	return nil
}
