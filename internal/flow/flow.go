// Package flow provides the small set of reactive primitives the repository
// layer is built on: cold cancellable streams, hot state holders, and change
// signals. Every channel involved is conflated — buffer of one, overwrite on
// full — so a slow consumer only ever observes the latest value and never a
// backlog.
package flow

import (
	"context"
	"sync"
)

// offer delivers v into a buffer-1 channel without ever blocking, dropping
// the stale buffered value if the consumer has fallen behind.
func offer[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
			select {
			case <-ch:
			default:
			}
		}
	}
}

// Subscription is one live subscription to a Stream or State. Values arrive
// on C; Cancel releases the subscription and propagates cancellation into
// whatever work (HTTP calls, index queries) feeds it.
type Subscription[T any] struct {
	C      <-chan T
	cancel context.CancelFunc
}

// Cancel terminates the subscription. Safe to call more than once.
func (s *Subscription[T]) Cancel() {
	s.cancel()
}

// Stream is a cold stream: each Subscribe starts an independent run of the
// producer function with its own context.
type Stream[T any] struct {
	run func(ctx context.Context, emit func(T))
}

// New creates a stream from a producer function. The producer must return
// when ctx is done; emissions after cancellation are dropped.
func New[T any](run func(ctx context.Context, emit func(T))) *Stream[T] {
	return &Stream[T]{run: run}
}

// Of creates a stream that emits the given values and completes
func Of[T any](values ...T) *Stream[T] {
	return New(func(ctx context.Context, emit func(T)) {
		for _, v := range values {
			emit(v)
		}
	})
}

// Subscribe starts the producer and returns a conflated subscription
func (s *Stream[T]) Subscribe(ctx context.Context) *Subscription[T] {
	ctx, cancel := context.WithCancel(ctx)
	ch := make(chan T, 1)
	go s.run(ctx, func(v T) {
		if ctx.Err() != nil {
			return
		}
		offer(ch, v)
	})
	return &Subscription[T]{C: ch, cancel: cancel}
}

// State is a hot holder of one current value. Watchers receive the current
// value immediately and every update after it. Published values are treated
// as immutable: updates replace the value, never mutate it in place.
type State[T any] struct {
	mu    sync.Mutex
	value T
	subs  map[int]chan T
	next  int
}

// NewState creates a state holder with an initial value
func NewState[T any](initial T) *State[T] {
	return &State[T]{value: initial, subs: make(map[int]chan T)}
}

// Get returns the current value
func (s *State[T]) Get() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Set publishes a new value to all watchers
func (s *State[T]) Set(v T) {
	s.mu.Lock()
	s.value = v
	for _, ch := range s.subs {
		offer(ch, v)
	}
	s.mu.Unlock()
}

// Watch subscribes to the state. The current value is delivered first.
func (s *State[T]) Watch(ctx context.Context) *Subscription[T] {
	ctx, cancel := context.WithCancel(ctx)
	ch := make(chan T, 1)

	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = ch
	ch <- s.value
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}()

	return &Subscription[T]{C: ch, cancel: cancel}
}

// Stream adapts the state into a cold stream of its values
func (s *State[T]) Stream() *Stream[T] {
	return New(func(ctx context.Context, emit func(T)) {
		sub := s.Watch(ctx)
		defer sub.Cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case v := <-sub.C:
				emit(v)
			}
		}
	})
}

// Signal is a broadcast change notification with no payload. Watchers get
// one delivery immediately on subscription and one (conflated) delivery per
// Raise after that, which is exactly the shape needed to run a fetch once
// and re-run it on every upstream mutation.
type Signal struct {
	state *State[uint64]
}

// NewSignal creates a signal
func NewSignal() *Signal {
	return &Signal{state: NewState[uint64](0)}
}

// Raise notifies all watchers
func (s *Signal) Raise() {
	s.state.Set(s.state.Get() + 1)
}

// Watch subscribes to the signal; the subscription fires once immediately
func (s *Signal) Watch(ctx context.Context) *Subscription[uint64] {
	return s.state.Watch(ctx)
}

// Relaunch builds a stream that executes run once on subscription and again
// every time sig is raised, with the previous execution's emissions simply
// superseded. run must honor ctx.
func Relaunch[T any](sig *Signal, run func(ctx context.Context, emit func(T))) *Stream[T] {
	return New(func(ctx context.Context, emit func(T)) {
		sub := sig.Watch(ctx)
		defer sub.Cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case <-sub.C:
				run(ctx, emit)
			}
		}
	})
}

// SwitchMap projects each value of a state into an inner stream, forwarding
// the inner stream's emissions and switching — cancelling the previous inner
// subscription — whenever the state changes. This is what re-routes open
// result streams when the provider set or the navigation selection changes.
func SwitchMap[S, T any](state *State[S], project func(S) *Stream[T]) *Stream[T] {
	return New(func(ctx context.Context, emit func(T)) {
		src := state.Watch(ctx)
		defer src.Cancel()

		var innerCancel context.CancelFunc
		defer func() {
			if innerCancel != nil {
				innerCancel()
			}
		}()

		// A superseded forwarder may already hold a value received before
		// its cancellation; the generation check keeps it from emitting
		// after the switch.
		var mu sync.Mutex
		var generation uint64

		for {
			select {
			case <-ctx.Done():
				return
			case v := <-src.C:
				if innerCancel != nil {
					innerCancel()
				}
				innerCtx, cancel := context.WithCancel(ctx)
				innerCancel = cancel

				mu.Lock()
				generation++
				current := generation
				mu.Unlock()

				inner := project(v).Subscribe(innerCtx)
				go func() {
					for {
						select {
						case <-innerCtx.Done():
							return
						case x := <-inner.C:
							mu.Lock()
							if generation == current {
								emit(x)
							}
							mu.Unlock()
						}
					}
				}()
			}
		}
	})
}
