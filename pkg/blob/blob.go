// Package blob models in-flight binary data held by a backend. A Blob is an
// owned handle: every Blob obtained from the façade, Slice or Dup must be
// closed exactly once. Slices and duplicates share the backend allocation,
// which is released when the last handle referring to it is closed.
package blob

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jacktea/mofs/pkg/native"
	"github.com/jacktea/mofs/pkg/xerrors"
)

// ErrClosed is returned when a closed handle is used.
var ErrClosed = xerrors.ErrClosed

// ReleaseFunc frees the backend allocation with the given id.
type ReleaseFunc func(id string) error

type backing struct {
	id      string
	refs    atomic.Int64
	release ReleaseFunc
}

func (b *backing) acquire() { b.refs.Add(1) }

func (b *backing) drop() error {
	if b.refs.Add(-1) != 0 {
		return nil
	}
	if b.release == nil {
		return nil
	}
	return b.release(b.id)
}

// Blob is a handle to a byte range of a backend allocation.
type Blob struct {
	mu     sync.Mutex
	data   native.BlobData
	back   *backing
	closed bool
}

// New takes ownership of a fresh backend allocation. release is invoked
// once, when the last handle sharing the allocation is closed.
func New(data native.BlobData, release ReleaseFunc) *Blob {
	back := &backing{id: data.ID, release: release}
	back.acquire()
	return &Blob{data: data, back: back}
}

// Data returns the wire description of the handle.
func (b *Blob) Data() (native.BlobData, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return native.BlobData{}, ErrClosed
	}
	return b.data, nil
}

// ID returns the backend allocation id.
func (b *Blob) ID() string { return b.data.ID }

// Offset returns the start of the handle's range within the allocation.
func (b *Blob) Offset() int64 { return b.data.Offset }

// Size returns the length of the handle's range.
func (b *Blob) Size() int64 { return b.data.Size }

// Type returns the MIME type, or "" if unknown.
func (b *Blob) Type() string { return b.data.Type }

// Name returns the originating file name, if any.
func (b *Blob) Name() string { return b.data.Name }

// LastModified returns the modification time recorded for the blob, or the
// zero time.
func (b *Blob) LastModified() time.Time {
	if b.data.LastModified == 0 {
		return time.Time{}
	}
	return time.UnixMilli(b.data.LastModified)
}

// Closed reports whether Close has been called.
func (b *Blob) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// Slice returns a new handle over [start, end) of b. Negative positions count
// back from the end; both are clipped to [0, Size]. The slice must be closed
// independently of b.
func (b *Blob) Slice(start, end int64) (*Blob, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}
	size := b.data.Size
	start = clip(start, size)
	end = clip(end, size)
	if end < start {
		end = start
	}
	data := b.data
	data.Offset += start
	data.Size = end - start
	b.back.acquire()
	return &Blob{data: data, back: b.back}, nil
}

// Dup returns a handle over the same range with an independent lifetime.
func (b *Blob) Dup() (*Blob, error) {
	return b.Slice(0, b.Size())
}

// Close releases the handle. Closing a handle twice is an error.
func (b *Blob) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	b.closed = true
	b.mu.Unlock()
	if err := b.back.drop(); err != nil {
		return fmt.Errorf("release blob %s: %w", b.data.ID, err)
	}
	return nil
}

func clip(pos, size int64) int64 {
	if pos < 0 {
		pos += size
	}
	if pos < 0 {
		return 0
	}
	if pos > size {
		return size
	}
	return pos
}
