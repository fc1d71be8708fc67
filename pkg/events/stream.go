// Package events implements a single-subscriber event stream that replays a
// pending value from ambient state once per process lifetime before
// switching to live notifications.
package events

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/go-logr/logr"
)

// ErrBusy is returned when a second subscriber attaches to an active stream.
var ErrBusy = errors.New("events: stream already has a subscriber")

// Source adapts one backend's native notification channel.
type Source[T any] interface {
	// Pending returns the value the process was launched or resumed with.
	Pending(ctx context.Context) (T, bool, error)
	// Listen attaches fn to the live channel and returns a detach func.
	Listen(fn func(T)) (detach func())
}

// Stream is idle until Subscribe is called and active until the returned
// unsubscribe func runs. The pending value is replayed on the first
// subscription only; the replay flag survives unsubscribe.
type Stream[T any] struct {
	src      Source[T]
	log      logr.Logger
	replayed atomic.Bool

	mu     sync.Mutex
	active *subscription[T]
}

// New builds a stream over src. A nil src yields a stream that accepts
// subscribers but never emits.
func New[T any](src Source[T], log logr.Logger) *Stream[T] {
	if log.GetSink() == nil {
		log = logr.Discard()
	}
	return &Stream[T]{src: src, log: log}
}

// Active reports whether a subscriber is attached.
func (s *Stream[T]) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active != nil
}

// Subscribe attaches handler. Emissions to one subscriber are serialized.
func (s *Stream[T]) Subscribe(ctx context.Context, handler func(T)) (unsubscribe func(), err error) {
	if handler == nil {
		return nil, errors.New("events: nil handler")
	}
	sub := &subscription[T]{stream: s, handler: handler}
	s.mu.Lock()
	if s.active != nil {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	s.active = sub
	s.mu.Unlock()
	s.log.V(1).Info("subscribe")

	if s.src == nil {
		return sub.cancel, nil
	}
	if s.replayed.CompareAndSwap(false, true) {
		v, ok, err := s.src.Pending(ctx)
		switch {
		case err != nil:
			s.log.Error(err, "query pending event")
		case ok:
			s.log.V(1).Info("replay pending event")
			sub.emit(v)
		}
	}
	sub.setDetach(s.src.Listen(sub.emit))
	return sub.cancel, nil
}

// Channel subscribes and forwards events to the returned channel until ctx
// is done. Events are dropped when the buffer is full. The replay is sent
// before Channel returns, so buffer is raised to at least 1.
func (s *Stream[T]) Channel(ctx context.Context, buffer int) (<-chan T, error) {
	if buffer < 1 {
		buffer = 1
	}
	out := make(chan T, buffer)
	var closeOnce sync.Once
	var mu sync.Mutex
	closed := false
	unsubscribe, err := s.Subscribe(ctx, func(v T) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case out <- v:
		default:
			s.log.Info("dropping event, consumer too slow")
		}
	})
	if err != nil {
		return nil, err
	}
	go func() {
		<-ctx.Done()
		unsubscribe()
		closeOnce.Do(func() {
			mu.Lock()
			closed = true
			close(out)
			mu.Unlock()
		})
	}()
	return out, nil
}

type subscription[T any] struct {
	stream  *Stream[T]
	handler func(T)
	emitMu  sync.Mutex
	done    atomic.Bool
	once    sync.Once

	detachMu sync.Mutex
	detach   func()
}

func (sub *subscription[T]) emit(v T) {
	if sub.done.Load() {
		return
	}
	sub.emitMu.Lock()
	defer sub.emitMu.Unlock()
	if sub.done.Load() {
		return
	}
	sub.handler(v)
}

func (sub *subscription[T]) setDetach(detach func()) {
	sub.detachMu.Lock()
	if sub.done.Load() {
		sub.detachMu.Unlock()
		if detach != nil {
			detach()
		}
		return
	}
	sub.detach = detach
	sub.detachMu.Unlock()
}

func (sub *subscription[T]) cancel() {
	sub.once.Do(func() {
		sub.done.Store(true)
		sub.detachMu.Lock()
		detach := sub.detach
		sub.detach = nil
		sub.detachMu.Unlock()
		if detach != nil {
			detach()
		}
		s := sub.stream
		s.mu.Lock()
		if s.active == sub {
			s.active = nil
		}
		s.mu.Unlock()
		s.log.V(1).Info("unsubscribe")
	})
}
