// Package repository provides the storage backends behind settings.Repository.
package repository

import (
	"context"
	"sync"
)

// Memory keeps settings in process. It backs the file store and tests.
type Memory struct {
	mu     sync.RWMutex
	values map[string]map[string]string
}

// NewMemory returns a store seeded with a copy of values (scope -> key -> value).
func NewMemory(values map[string]map[string]string) *Memory {
	m := &Memory{values: make(map[string]map[string]string, len(values))}
	for scope, kv := range values {
		inner := make(map[string]string, len(kv))
		for k, v := range kv {
			inner[k] = v
		}
		m.values[scope] = inner
	}
	return m
}

func (m *Memory) Get(_ context.Context, scope, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[scope][key]
	return v, ok, nil
}

func (m *Memory) Upsert(_ context.Context, scope, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values[scope] == nil {
		m.values[scope] = map[string]string{}
	}
	m.values[scope][key] = value
	return nil
}

// Dump returns a deep copy of every stored value.
func (m *Memory) Dump() map[string]map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]map[string]string, len(m.values))
	for scope, kv := range m.values {
		inner := make(map[string]string, len(kv))
		for k, v := range kv {
			inner[k] = v
		}
		out[scope] = inner
	}
	return out
}
