// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/songbot/internal/models"
)

// MockPlayer is a test double for [services.Player]. Zero value plays nothing and has an empty queue.
type MockPlayer struct {
	mu sync.Mutex

	Playing *models.Track
	Tracks  map[string]models.Track
	Queued  []models.Track

	PlayingErr error
	TrackErr   error
	QueueErr   error
	AddErr     error

	Added []string
}

func (m *MockPlayer) CurrentlyPlaying(ctx context.Context) (*models.Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PlayingErr != nil {
		return nil, m.PlayingErr
	}
	if m.Playing == nil {
		return nil, nil
	}
	t := m.Playing.Clone()
	return &t, nil
}

// SetPlaying swaps the current track while pollers are running.
func (m *MockPlayer) SetPlaying(t *models.Track) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Playing = t
}

func (m *MockPlayer) Queue(ctx context.Context) ([]models.Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.QueueErr != nil {
		return nil, m.QueueErr
	}
	out := make([]models.Track, len(m.Queued))
	for i, t := range m.Queued {
		out[i] = t.Clone()
	}
	return out, nil
}

func (m *MockPlayer) Track(ctx context.Context, id string) (*models.Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.TrackErr != nil {
		return nil, m.TrackErr
	}
	t, ok := m.Tracks[id]
	if !ok {
		return nil, errors.New("track not found: " + id)
	}
	t = t.Clone()
	return &t, nil
}

func (m *MockPlayer) AddToQueue(ctx context.Context, uri string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AddErr != nil {
		return m.AddErr
	}
	m.Added = append(m.Added, uri)
	return nil
}

// AddedURIs returns the URIs passed to AddToQueue so far.
func (m *MockPlayer) AddedURIs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Added...)
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

var _ io.ReadCloser = (*FCloser)(nil)

// Eventually polls cond until it holds or the wait elapses.
func Eventually(t *testing.T, wait time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(wait)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s: %s", wait, msg)
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
