package blobstore

import (
	"bytes"
	"context"
	"fmt"
	"sync"
)

// Memory is an in-process Store for tests and dry runs.
type Memory struct {
	mu      sync.RWMutex
	objects map[string]Object
}

func NewMemory() *Memory {
	return &Memory{objects: make(map[string]Object)}
}

func (m *Memory) Put(_ context.Context, key string, obj Object) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = Object{Data: bytes.Clone(obj.Data), ContentType: obj.ContentType}
	return nil
}

func (m *Memory) Get(_ context.Context, key string) (Object, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	if !ok {
		return Object{}, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return Object{Data: bytes.Clone(obj.Data), ContentType: obj.ContentType}, nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *Memory) Ping(context.Context) error { return nil }

// Len returns the number of stored objects.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
