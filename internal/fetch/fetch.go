// Package fetch models the pending/success/error lifecycle of a remote read.
//
// [State] is an immutable value: the constructors are the only way to build one, so data is present exactly when
// the phase is Success and a message exactly when it is Error.
//
// [Tracker] owns the state for one mounted view. Every trigger hands out a [Ticket]; a result is applied only if
// its ticket is still current, so a slow response for an old parameter can never overwrite a newer one. A tracker
// is owned by a single event loop and is not safe for concurrent use.
package fetch

import "context"

// Phase is where a fetch is in its lifecycle.
type Phase int

const (
	PhasePending Phase = iota
	PhaseSuccess
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseSuccess:
		return "success"
	case PhaseError:
		return "error"
	default:
		return "pending"
	}
}

// State is the outcome of one fetch.
type State[T any] struct {
	phase   Phase
	data    T
	message string
}

// Pending returns a state with no data and no message.
func Pending[T any]() State[T] {
	return State[T]{phase: PhasePending}
}

// Succeeded returns a state holding data.
func Succeeded[T any](data T) State[T] {
	return State[T]{phase: PhaseSuccess, data: data}
}

// Failed returns a state holding a user-facing message.
func Failed[T any](message string) State[T] {
	return State[T]{phase: PhaseError, message: message}
}

func (s State[T]) Phase() Phase    { return s.phase }
func (s State[T]) Pending() bool   { return s.phase == PhasePending }
func (s State[T]) Succeeded() bool { return s.phase == PhaseSuccess }
func (s State[T]) Failed() bool    { return s.phase == PhaseError }

// Data returns the fetched value and whether the state holds one.
func (s State[T]) Data() (T, bool) {
	return s.data, s.phase == PhaseSuccess
}

// Message returns the error message, or "" unless the state is an error.
func (s State[T]) Message() string {
	return s.message
}

// Ticket identifies one trigger of a [Tracker].
type Ticket[K comparable] struct {
	Key        K
	generation uint64
}

// Tracker runs the fetch lifecycle for one view, keyed by the parameter that drives the fetch.
type Tracker[K comparable, T any] struct {
	state      State[T]
	key        K
	started    bool
	generation uint64
	abandoned  bool
	cancel     context.CancelFunc
}

// NewTracker returns a tracker in the Pending state that has not started.
func NewTracker[K comparable, T any]() *Tracker[K, T] {
	return &Tracker[K, T]{state: Pending[T]()}
}

// Begin starts a fetch for key, unconditionally. The state becomes Pending and any in-flight fetch is cancelled.
//
// The returned context is cancelled when the fetch is superseded or the tracker is abandoned.
func (t *Tracker[K, T]) Begin(ctx context.Context, key K) (Ticket[K], context.Context) {
	if t.cancel != nil {
		t.cancel()
	}

	t.generation++
	t.key = key
	t.started = true
	t.abandoned = false
	t.state = Pending[T]()

	ctx, t.cancel = context.WithCancel(ctx)
	return Ticket[K]{Key: key, generation: t.generation}, ctx
}

// Trigger starts a fetch only when key differs from the current one or nothing has started yet.
func (t *Tracker[K, T]) Trigger(ctx context.Context, key K) (Ticket[K], context.Context, bool) {
	if t.started && !t.abandoned && t.key == key {
		return Ticket[K]{}, nil, false
	}
	ticket, ctx := t.Begin(ctx, key)
	return ticket, ctx, true
}

// Current reports whether ticket belongs to the latest live fetch.
func (t *Tracker[K, T]) Current(ticket Ticket[K]) bool {
	return !t.abandoned && t.started && ticket.generation == t.generation
}

// Resolve records data for ticket. Stale tickets are dropped and reported as false.
func (t *Tracker[K, T]) Resolve(ticket Ticket[K], data T) bool {
	if !t.Current(ticket) || !t.state.Pending() {
		return false
	}
	t.state = Succeeded(data)
	t.release()
	return true
}

// Reject records an error message for ticket. Stale tickets are dropped and reported as false.
func (t *Tracker[K, T]) Reject(ticket Ticket[K], message string) bool {
	if !t.Current(ticket) || !t.state.Pending() {
		return false
	}
	t.state = Failed[T](message)
	t.release()
	return true
}

// Abandon stops tracking. In-flight work is cancelled and its results are discarded.
func (t *Tracker[K, T]) Abandon() {
	t.abandoned = true
	t.release()
}

func (t *Tracker[K, T]) release() {
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
}

// State returns the current state.
func (t *Tracker[K, T]) State() State[T] {
	return t.state
}

// Key returns the key of the latest fetch.
func (t *Tracker[K, T]) Key() K {
	return t.key
}
