// package pubsub fans messages out to named subscribers.
//
// Each subscriber owns an unbounded queue drained by its own goroutine, so a slow consumer only delays itself and
// publishing never blocks. Handlers may publish back into the bus they are subscribed to. Messages reach a subscriber in
// the order they were published.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/songbot/internal/messages"
)

// DefaultBufferSize is the backlog a subscriber queue reaches before the bus warns about it.
const DefaultBufferSize = 64

var ErrBusClosed = errors.New("bus closed")

// Option configures a [Bus].
type Option func(*Bus)

// WithBufferSize sets the initial queue capacity and backlog warning threshold of subscribers created after it is
// applied. Queues grow past it rather than blocking publishers.
func WithBufferSize(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.bufferSize = n
		}
	}
}

// Bus delivers every published message to every live subscriber.
type Bus struct {
	logger     *log.Logger
	bufferSize int

	mu     sync.RWMutex
	subs   map[uint64]*subscriber
	nextID uint64
	closed bool
	wg     sync.WaitGroup
}

type subscriber struct {
	name    string
	handler messages.Handler
	warnAt  int

	mu     sync.Mutex
	queue  []messages.Message
	warned bool
	signal chan struct{}

	quit chan struct{}
	once sync.Once
}

func (s *subscriber) stop() {
	s.once.Do(func() { close(s.quit) })
}

// push appends msg and wakes the subscriber goroutine. It reports whether the backlog just crossed warnAt.
func (s *subscriber) push(msg messages.Message) (backlog int, crossed bool) {
	s.mu.Lock()
	s.queue = append(s.queue, msg)
	backlog = len(s.queue)
	if backlog > s.warnAt && !s.warned {
		s.warned, crossed = true, true
	}
	s.mu.Unlock()

	select {
	case s.signal <- struct{}{}:
	default:
	}
	return backlog, crossed
}

// take removes and returns everything queued so far.
func (s *subscriber) take() []messages.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	batch := s.queue
	s.queue = make([]messages.Message, 0, s.warnAt)
	s.warned = false
	return batch
}

// New creates an open bus.
func New(logger *log.Logger, opts ...Option) *Bus {
	b := &Bus{
		logger:     logger,
		bufferSize: DefaultBufferSize,
		subs:       make(map[uint64]*subscriber),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish queues msg for every subscriber and returns without waiting for delivery. It fails only when ctx is already
// done or the bus is closed.
func (b *Bus) Publish(ctx context.Context, msg messages.Message) error {
	if msg == nil {
		return messages.ErrNilMessage
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("publish %s: %w", msg.Kind(), err)
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrBusClosed
	}
	targets := make([]*subscriber, 0, len(b.subs))
	for _, s := range b.subs {
		targets = append(targets, s)
	}
	b.mu.RUnlock()

	for _, s := range targets {
		if backlog, crossed := s.push(msg); crossed {
			b.logger.Warn("subscriber falling behind", "subscriber", s.name, "backlog", backlog)
		}
	}
	return nil
}

// Subscribe starts delivering messages to handler until ctx is done, the returned func is called, or the bus closes.
//
// Handler errors are logged and do not stop delivery.
func (b *Bus) Subscribe(ctx context.Context, name string, handler messages.Handler) (unsubscribe func()) {
	s := &subscriber{
		name:    name,
		handler: handler,
		warnAt:  b.bufferSize,
		queue:   make([]messages.Message, 0, b.bufferSize),
		signal:  make(chan struct{}, 1),
		quit:    make(chan struct{}),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		b.logger.Warn("subscribe on closed bus", "subscriber", name)
		return func() {}
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = s
	b.wg.Add(1)
	b.mu.Unlock()

	go func() {
		defer b.wg.Done()
		defer b.remove(id)
		b.run(ctx, s)
	}()

	b.logger.Debug("subscribed", "subscriber", name)
	return s.stop
}

// Subscribers returns the number of live subscribers.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close stops every subscriber and waits for in-flight handlers to return. Messages still queued are delivered first.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		b.wg.Wait()
		return
	}
	b.closed = true
	for _, s := range b.subs {
		s.stop()
	}
	b.mu.Unlock()

	b.wg.Wait()
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	delete(b.subs, id)
	b.mu.Unlock()
}

func (b *Bus) run(ctx context.Context, s *subscriber) {
	for {
		select {
		case <-s.signal:
			for _, msg := range s.take() {
				b.deliver(ctx, s, msg)
			}
		case <-s.quit:
			b.drain(ctx, s)
			return
		case <-ctx.Done():
			return
		}
	}
}

// drain delivers what is left, including messages queued while draining.
func (b *Bus) drain(ctx context.Context, s *subscriber) {
	for {
		batch := s.take()
		if len(batch) == 0 {
			return
		}
		for _, msg := range batch {
			b.deliver(ctx, s, msg)
		}
	}
}

func (b *Bus) deliver(ctx context.Context, s *subscriber, msg messages.Message) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("handler panicked", "subscriber", s.name, "kind", msg.Kind(), "panic", r)
		}
	}()

	if err := messages.Dispatch(ctx, msg, s.handler); err != nil {
		b.logger.Error("handler failed", "subscriber", s.name, "kind", msg.Kind(), "error", err)
	}
}
