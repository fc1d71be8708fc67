// Package blobstore holds the bytes behind backend blob handles, keyed by
// blob id.
package blobstore

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jacktea/mofs/pkg/native"
)

// Meta describes a stored blob.
type Meta struct {
	Size         int64     `json:"size"`
	Type         string    `json:"type,omitempty"`
	Name         string    `json:"name,omitempty"`
	LastModified int64     `json:"lastModified,omitempty"`
	Created      time.Time `json:"created"`
}

// Store persists blob bytes until Delete is called.
type Store interface {
	Put(ctx context.Context, data []byte, meta Meta) (string, error)
	Stat(ctx context.Context, id string) (Meta, error)
	// ReadRange returns size bytes starting at offset. A negative size reads
	// to the end.
	ReadRange(ctx context.Context, id string, offset, size int64) ([]byte, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

// NewID allocates a blob id.
func NewID() string {
	return uuid.NewString()
}

func clip(data []byte, offset, size int64) ([]byte, error) {
	n := int64(len(data))
	if offset < 0 || offset > n {
		return nil, native.ErrOutOfRange
	}
	end := n
	if size >= 0 && offset+size < n {
		end = offset + size
	}
	out := make([]byte, end-offset)
	copy(out, data[offset:end])
	return out, nil
}
