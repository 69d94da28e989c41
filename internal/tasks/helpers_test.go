package tasks

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/require"

	"github.com/desertthunder/songbot/internal/messages"
	"github.com/desertthunder/songbot/internal/models"
	"github.com/desertthunder/songbot/internal/repositories"
	"github.com/desertthunder/songbot/internal/shared"
)

const wait = 2 * time.Second

var testTrack = models.Track{
	ID:         "4uLU6hMCjMI75M1A2tKUQC",
	Name:       "Never Gonna Give You Up",
	Artists:    []string{"Rick Astley"},
	Album:      "Whenever You Need Somebody",
	DurationMS: 213573,
	URI:        "spotify:track:4uLU6hMCjMI75M1A2tKUQC",
}

const testLink = "https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC?si=abc"

func testLogger() *log.Logger {
	return log.NewWithOptions(&bytes.Buffer{}, log.Options{Level: log.DebugLevel})
}

// fakeBus records published messages.
type fakeBus struct {
	mu   sync.Mutex
	msgs []messages.Message
	ch   chan messages.Message
	err  error
}

func newFakeBus() *fakeBus {
	return &fakeBus{ch: make(chan messages.Message, 256)}
}

func (b *fakeBus) Publish(ctx context.Context, msg messages.Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.msgs = append(b.msgs, msg)
	select {
	case b.ch <- msg:
	default:
	}
	return nil
}

func (b *fakeBus) published() []messages.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]messages.Message(nil), b.msgs...)
}

func (b *fakeBus) next(t *testing.T) messages.Message {
	t.Helper()
	select {
	case m := <-b.ch:
		return m
	case <-time.After(wait):
		t.Fatal("nothing published")
		return nil
	}
}

func (b *fakeBus) quiet(t *testing.T, d time.Duration) {
	t.Helper()
	select {
	case m := <-b.ch:
		t.Fatalf("unexpected publish %s", m)
	case <-time.After(d):
	}
}

// fakeChat records chat lines.
type fakeChat struct {
	mu    sync.Mutex
	lines []string
	err   error
}

func (c *fakeChat) SendChat(ctx context.Context, message string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.lines = append(c.lines, message)
	return nil
}

func (c *fakeChat) all() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.lines...)
}

func (c *fakeChat) last(t *testing.T) string {
	t.Helper()
	lines := c.all()
	require.NotEmpty(t, lines)
	return lines[len(lines)-1]
}

type refund struct{ eventID, rewardID string }

type fakeRefunder struct {
	refunds []refund
	err     error
}

func (r *fakeRefunder) Refund(ctx context.Context, eventID, rewardID string) error {
	if r.err != nil {
		return r.err
	}
	r.refunds = append(r.refunds, refund{eventID, rewardID})
	return nil
}

// brokenStore fails every call.
type brokenStore struct{}

var errStore = errors.New("database is locked")

func (brokenStore) Add(context.Context, *models.QueueItem) error { return errStore }
func (brokenStore) ListPending(context.Context, int) ([]models.QueueItem, error) {
	return nil, errStore
}
func (brokenStore) CountPending(context.Context) (int, error) { return 0, errStore }
func (brokenStore) FindPendingByTrackID(context.Context, string) (*models.QueueItem, error) {
	return nil, errStore
}
func (brokenStore) MarkPlayed(context.Context, string, time.Time) error { return errStore }

func newStore(t *testing.T) *repositories.QueueRepository {
	t.Helper()
	db, err := shared.OpenDatabase(shared.DatabaseConfig{Path: shared.MemoryDatabase})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return repositories.NewQueueRepository(db)
}

var _ QueueStore = (*repositories.QueueRepository)(nil)
