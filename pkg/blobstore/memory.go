package blobstore

import (
	"context"
	"sync"
	"time"

	"github.com/jacktea/mofs/pkg/native"
)

// MemoryStore keeps blobs in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string]memBlob
	// Now stamps Meta.Created when the caller leaves it zero.
	Now func() time.Time
}

type memBlob struct {
	data []byte
	meta Meta
}

// NewMemory returns an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{blobs: make(map[string]memBlob), Now: time.Now}
}

func (m *MemoryStore) Put(ctx context.Context, data []byte, meta Meta) (string, error) {
	buf := make([]byte, len(data))
	copy(buf, data)
	meta.Size = int64(len(buf))
	if meta.Created.IsZero() {
		meta.Created = m.Now()
	}
	id := NewID()
	m.mu.Lock()
	m.blobs[id] = memBlob{data: buf, meta: meta}
	m.mu.Unlock()
	return id, nil
}

func (m *MemoryStore) Stat(ctx context.Context, id string) (Meta, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.blobs[id]
	if !ok {
		return Meta{}, native.ErrNotFound
	}
	return b.meta, nil
}

func (m *MemoryStore) ReadRange(ctx context.Context, id string, offset, size int64) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.blobs[id]
	if !ok {
		return nil, native.ErrNotFound
	}
	return clip(b.data, offset, size)
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.blobs[id]; !ok {
		return native.ErrNotFound
	}
	delete(m.blobs, id)
	return nil
}

func (m *MemoryStore) Close() error { return nil }
