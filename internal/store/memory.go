// ABOUTME: In-memory backend for the session store
// ABOUTME: Used by tests and by --store memory for throwaway sessions

package store

import "sync"

// MemoryBackend keeps keys in process memory. Nothing survives a restart.
type MemoryBackend struct {
	values sync.Map
}

// NewMemoryBackend creates an empty in-memory backend
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

func (m *MemoryBackend) Get(key string) (string, bool, error) {
	v, ok := m.values.Load(key)
	if !ok {
		return "", false, nil
	}
	return v.(string), true, nil
}

func (m *MemoryBackend) Set(key, value string) error {
	m.values.Store(key, value)
	return nil
}

func (m *MemoryBackend) Delete(keys ...string) error {
	for _, k := range keys {
		m.values.Delete(k)
	}
	return nil
}

func (m *MemoryBackend) Close() error {
	return nil
}
