// Package mailbox provides a one-shot, read-once completion cell.
//
// A [Mailbox] is a rendezvous point between exactly one writer and exactly one reader: it is resolved at most once
// (with a value or an error) and read at most once. It is single-slot and unbuffered; it is not a queue.
//
// State transitions:
//
//	Pending ──Succeed──▶ Succeeded ──Read──▶ Consumed
//	   │                                        ▲
//	   └───Fail/Abandon──▶ Failed ───Read───────┘
package mailbox

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrAlreadyResolved is returned when resolving a mailbox that already holds a value or error.
	ErrAlreadyResolved = errors.New("mailbox already resolved")
	// ErrAlreadyConsumed is returned when reading a mailbox whose result was already handed out.
	ErrAlreadyConsumed = errors.New("mailbox already consumed")
	// ErrAbandoned is the failure stored when the owner gives up on a pending mailbox.
	ErrAbandoned = errors.New("mailbox abandoned")
)

// State is the lifecycle position of a [Mailbox].
type State int

const (
	Pending State = iota
	Succeeded
	Failed
	Consumed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case Consumed:
		return "consumed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Mailbox holds at most one success value or failure, written at most once and read at most once.
// The zero value is not usable; create one with [New].
type Mailbox[T any] struct {
	mu    sync.Mutex
	state State
	value T
	err   error
	done  chan struct{}
}

// New creates a mailbox in the [Pending] state.
func New[T any]() *Mailbox[T] {
	return &Mailbox[T]{done: make(chan struct{})}
}

// Succeed resolves the mailbox with v. It returns [ErrAlreadyResolved], leaving the stored result untouched, if the
// mailbox was resolved before.
func (m *Mailbox[T]) Succeed(v T) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != Pending {
		return ErrAlreadyResolved
	}

	m.state = Succeeded
	m.value = v
	close(m.done)
	return nil
}

// Fail resolves the mailbox with err. It returns [ErrAlreadyResolved], leaving the stored result untouched, if the
// mailbox was resolved before. A nil err is rejected.
func (m *Mailbox[T]) Fail(err error) error {
	if err == nil {
		return errors.New("mailbox: Fail called with nil error")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != Pending {
		return ErrAlreadyResolved
	}

	m.state = Failed
	m.err = err
	close(m.done)
	return nil
}

// Abandon fails a pending mailbox with [ErrAbandoned] so suspended readers unwind. It reports whether the mailbox
// was still pending; resolved mailboxes are left as they are.
func (m *Mailbox[T]) Abandon() bool {
	return m.Fail(ErrAbandoned) == nil
}

// Read blocks until the mailbox is resolved or ctx is done, then hands out the result exactly once.
//
// A successful resolution returns the value; a failed one returns the stored error. Either way the mailbox moves to
// [Consumed] and every later Read returns [ErrAlreadyConsumed]. If ctx ends first the mailbox is left unchanged and
// the context error is returned.
func (m *Mailbox[T]) Read(ctx context.Context) (T, error) {
	var zero T

	select {
	case <-m.done:
	case <-ctx.Done():
		return zero, fmt.Errorf("mailbox read interrupted: %w", ctx.Err())
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case Succeeded:
		v := m.value
		m.value = zero
		m.state = Consumed
		return v, nil
	case Failed:
		err := m.err
		m.err = nil
		m.state = Consumed
		return zero, err
	default:
		return zero, ErrAlreadyConsumed
	}
}

// State returns the current lifecycle state.
func (m *Mailbox[T]) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Done returns a channel that is closed once the mailbox is resolved.
func (m *Mailbox[T]) Done() <-chan struct{} {
	return m.done
}
