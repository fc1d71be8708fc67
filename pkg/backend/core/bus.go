package core

import "sync"

// Bus fans a notification out to attached listeners and remembers the most
// recent one.
type Bus[T any] struct {
	mu        sync.Mutex
	last      *T
	next      int
	listeners map[int]func(T)
}

// Publish records v as the latest value and delivers it to every listener.
func (b *Bus[T]) Publish(v T) {
	b.mu.Lock()
	b.last = &v
	fns := make([]func(T), 0, len(b.listeners))
	for _, fn := range b.listeners {
		fns = append(fns, fn)
	}
	b.mu.Unlock()
	for _, fn := range fns {
		fn(v)
	}
}

// SetLast records v without notifying anyone.
func (b *Bus[T]) SetLast(v T) {
	b.mu.Lock()
	b.last = &v
	b.mu.Unlock()
}

// Last returns a copy of the latest value, or nil.
func (b *Bus[T]) Last() *T {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.last == nil {
		return nil
	}
	v := *b.last
	return &v
}

// Listen attaches fn until the returned func runs.
func (b *Bus[T]) Listen(fn func(T)) (remove func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.listeners == nil {
		b.listeners = make(map[int]func(T))
	}
	id := b.next
	b.next++
	b.listeners[id] = fn
	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.listeners, id)
			b.mu.Unlock()
		})
	}
}

// Len reports the number of attached listeners.
func (b *Bus[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners)
}
