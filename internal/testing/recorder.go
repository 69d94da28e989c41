package testing

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/songbot/internal/messages"
)

// Recorder is a [messages.Handler] that keeps every message it receives.
type Recorder struct {
	mu   sync.Mutex
	msgs []messages.Message
	ch   chan messages.Message

	// Err is returned from every handler method.
	Err error
}

func NewRecorder() *Recorder {
	return &Recorder{ch: make(chan messages.Message, 1024)}
}

func (r *Recorder) record(m messages.Message) error {
	r.mu.Lock()
	r.msgs = append(r.msgs, m)
	err := r.Err
	r.mu.Unlock()

	select {
	case r.ch <- m:
	default:
	}
	return err
}

// Messages returns what has been received so far, oldest first.
func (r *Recorder) Messages() []messages.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]messages.Message(nil), r.msgs...)
}

// Kinds returns the tags of the received messages, oldest first.
func (r *Recorder) Kinds() []messages.Kind {
	msgs := r.Messages()
	kinds := make([]messages.Kind, len(msgs))
	for i, m := range msgs {
		kinds[i] = m.Kind()
	}
	return kinds
}

// Next waits for the next message not yet returned by Next.
func (r *Recorder) Next(t *testing.T, wait time.Duration) messages.Message {
	t.Helper()
	select {
	case m := <-r.ch:
		return m
	case <-time.After(wait):
		t.Fatalf("no message within %s", wait)
		return nil
	}
}

// NextOf waits for the next message of kind k, skipping others.
func (r *Recorder) NextOf(t *testing.T, k messages.Kind, wait time.Duration) messages.Message {
	t.Helper()
	deadline := time.After(wait)
	for {
		select {
		case m := <-r.ch:
			if m.Kind() == k {
				return m
			}
		case <-deadline:
			t.Fatalf("no %s within %s", k, wait)
			return nil
		}
	}
}

// Quiet fails if a message arrives within wait.
func (r *Recorder) Quiet(t *testing.T, wait time.Duration) {
	t.Helper()
	select {
	case m := <-r.ch:
		t.Fatalf("unexpected message %s", m)
	case <-time.After(wait):
	}
}

func (r *Recorder) OnCurrentlyPlaying(_ context.Context, m messages.CurrentlyPlaying) error {
	return r.record(m)
}

func (r *Recorder) OnCurrentlyPlayingRequest(_ context.Context, m messages.CurrentlyPlayingRequest) error {
	return r.record(m)
}

func (r *Recorder) OnKeyboardRaffleRequest(_ context.Context, m messages.KeyboardRaffleRequest) error {
	return r.record(m)
}

func (r *Recorder) OnSendTwitchChat(_ context.Context, m messages.SendTwitchChat) error {
	return r.record(m)
}

func (r *Recorder) OnSongRequest(_ context.Context, m messages.SongRequest) error {
	return r.record(m)
}

func (r *Recorder) OnStartNixTimer(_ context.Context, m messages.StartNixTimer) error {
	return r.record(m)
}

func (r *Recorder) OnStopNixTimer(_ context.Context, m messages.StopNixTimer) error {
	return r.record(m)
}

func (r *Recorder) OnSongAddedToSpotifyQueue(_ context.Context, m messages.SongAddedToSpotifyQueue) error {
	return r.record(m)
}

func (r *Recorder) OnSongQueueRequest(_ context.Context, m messages.SongQueueRequest) error {
	return r.record(m)
}

func (r *Recorder) OnSongQueue(_ context.Context, m messages.SongQueue) error {
	return r.record(m)
}

func (r *Recorder) OnRefundRewardRequest(_ context.Context, m messages.RefundRewardRequest) error {
	return r.record(m)
}

var _ messages.Handler = (*Recorder)(nil)
