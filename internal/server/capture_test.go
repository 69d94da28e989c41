package server

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/songbot/internal/mailbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOptions() Options {
	return Options{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		Host:         "127.0.0.1",
		Port:         0,
		Path:         "redirect",
	}
}

// startTestServer starts a capture server on a free loopback port and closes it when the test ends.
func startTestServer(t *testing.T, opts Options) *CaptureServer {
	t.Helper()

	s, err := Start(context.Background(), opts, nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return s
}

func get(t *testing.T, s *CaptureServer, target string) (int, string) {
	t.Helper()

	resp, err := http.Get("http://" + s.Addr() + target)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, string(body)
}

func readMailbox(t *testing.T, s *CaptureServer) (string, error) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	return s.AwaitCode(ctx)
}

func TestCaptureServerScenarios(t *testing.T) {
	t.Run("valid callback", func(t *testing.T) {
		s := startTestServer(t, testOptions())

		status, body := get(t, s, "/redirect?code=abc123&state=xyz")
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "success", body)

		code, err := readMailbox(t, s)
		require.NoError(t, err)
		assert.Equal(t, "abc123", code)
	})

	t.Run("missing code", func(t *testing.T) {
		s := startTestServer(t, testOptions())

		status, body := get(t, s, "/redirect?state=xyz")
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "bad request: No code received", body)

		_, err := readMailbox(t, s)
		require.Error(t, err)
		assert.Equal(t, "No code received", err.Error())
		assert.ErrorIs(t, err, ErrMissingParameter)
	})

	t.Run("missing state", func(t *testing.T) {
		s := startTestServer(t, testOptions())

		status, body := get(t, s, "/redirect?code=abc123")
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "bad request: No state received", body)

		_, err := readMailbox(t, s)
		require.Error(t, err)
		assert.Equal(t, "No state received", err.Error())
		assert.ErrorIs(t, err, ErrMissingParameter)
	})

	t.Run("missing both reports code first", func(t *testing.T) {
		s := startTestServer(t, testOptions())

		status, body := get(t, s, "/redirect")
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Contains(t, body, "No code received")
	})

	t.Run("unknown path", func(t *testing.T) {
		s := startTestServer(t, testOptions())

		status, body := get(t, s, "/unknown")
		assert.Equal(t, http.StatusNotFound, status)
		assert.Equal(t, "not found", body)

		_, err := readMailbox(t, s)
		require.Error(t, err)
		assert.Equal(t, "not found", err.Error())
		assert.ErrorIs(t, err, ErrNotFound)
	})

	for _, target := range []string{"//redirect?code=abc&state=xyz", "/a/../redirect?code=abc&state=xyz", "/redirect/?code=abc&state=xyz"} {
		t.Run("uncleaned path "+target, func(t *testing.T) {
			s := startTestServer(t, testOptions())

			status, body := get(t, s, target)
			assert.Equal(t, http.StatusNotFound, status)
			assert.Equal(t, "not found", body)

			_, err := readMailbox(t, s)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestCaptureServerCallbackTable(t *testing.T) {
	tc := []struct {
		name       string
		query      string
		wantStatus int
		wantCode   string
		wantErr    error
	}{
		{name: "code and state", query: "?code=c1&state=s1", wantStatus: http.StatusOK, wantCode: "c1"},
		{name: "extra params ignored", query: "?code=c2&state=s2&scope=user-read", wantStatus: http.StatusOK, wantCode: "c2"},
		{name: "encoded code", query: "?code=a%2Bb%3D&state=s", wantStatus: http.StatusOK, wantCode: "a+b="},
		{name: "empty code", query: "?code=&state=s", wantStatus: http.StatusOK, wantCode: ""},
		{name: "empty state", query: "?code=c&state=", wantStatus: http.StatusOK, wantCode: "c"},
		{name: "missing state", query: "?code=c", wantStatus: http.StatusBadRequest, wantErr: ErrMissingParameter},
		{name: "provider error", query: "?error=access_denied&state=s", wantStatus: http.StatusBadRequest, wantErr: ErrMissingParameter},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			s := startTestServer(t, testOptions())

			status, _ := get(t, s, "/redirect"+tt.query)
			assert.Equal(t, tt.wantStatus, status)

			code, err := readMailbox(t, s)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantCode, code)
		})
	}
}

func TestCaptureServerPing(t *testing.T) {
	s := startTestServer(t, testOptions())

	for range 3 {
		status, body := get(t, s, "/ping")
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "pong", body)
	}

	mb, err := s.Mailbox()
	require.NoError(t, err)
	assert.Equal(t, mailbox.Pending, mb.State(), "ping must not touch the mailbox")

	get(t, s, "/redirect?code=abc&state=xyz")

	status, body := get(t, s, "/ping")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "pong", body)
}

func TestCaptureServerFirstResolutionWins(t *testing.T) {
	t.Run("second callback is a conflict", func(t *testing.T) {
		s := startTestServer(t, testOptions())

		status, _ := get(t, s, "/redirect?code=first&state=xyz")
		assert.Equal(t, http.StatusOK, status)

		status, body := get(t, s, "/redirect?code=second&state=xyz")
		assert.Equal(t, http.StatusConflict, status)
		assert.Contains(t, body, "already completed")

		status, _ = get(t, s, "/favicon.ico")
		assert.Equal(t, http.StatusNotFound, status)

		status, _ = get(t, s, "/redirect?state=xyz")
		assert.Equal(t, http.StatusBadRequest, status)

		code, err := readMailbox(t, s)
		require.NoError(t, err)
		assert.Equal(t, "first", code)
	})

	t.Run("concurrent callbacks", func(t *testing.T) {
		s := startTestServer(t, testOptions())

		const requests = 10
		var wg sync.WaitGroup
		statuses := make(chan int, requests)
		for i := range requests {
			wg.Add(1)
			go func() {
				defer wg.Done()
				resp, err := http.Get("http://" + s.Addr() + "/redirect?code=c" + strconv.Itoa(i) + "&state=s")
				if assert.NoError(t, err) {
					resp.Body.Close()
					statuses <- resp.StatusCode
				}
			}()
		}
		wg.Wait()
		close(statuses)

		var ok, conflict int
		for status := range statuses {
			switch status {
			case http.StatusOK:
				ok++
			case http.StatusConflict:
				conflict++
			}
		}
		assert.Equal(t, 1, ok)
		assert.Equal(t, requests-1, conflict)

		code, err := readMailbox(t, s)
		require.NoError(t, err)
		assert.Regexp(t, `^c\d$`, code)
	})
}

func TestCaptureServerVerifyState(t *testing.T) {
	opts := testOptions()
	opts.VerifyState = true

	t.Run("mismatch", func(t *testing.T) {
		s := startTestServer(t, opts)

		status, body := get(t, s, "/redirect?code=abc&state=forged")
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "bad request: State mismatch", body)

		_, err := readMailbox(t, s)
		assert.ErrorIs(t, err, ErrStateMismatch)
	})

	t.Run("match", func(t *testing.T) {
		s := startTestServer(t, opts)

		status, _ := get(t, s, "/redirect?code=abc&state="+s.CSRFToken())
		assert.Equal(t, http.StatusOK, status)

		code, err := readMailbox(t, s)
		require.NoError(t, err)
		assert.Equal(t, "abc", code)
	})

	t.Run("disabled by default", func(t *testing.T) {
		s := startTestServer(t, testOptions())

		status, _ := get(t, s, "/redirect?code=abc&state=anything")
		assert.Equal(t, http.StatusOK, status)
	})
}

func TestCaptureServerAccessors(t *testing.T) {
	t.Run("Mailbox is read once", func(t *testing.T) {
		s := startTestServer(t, testOptions())

		mb, err := s.Mailbox()
		require.NoError(t, err)
		assert.NotNil(t, mb)

		_, err = s.Mailbox()
		assert.ErrorIs(t, err, ErrAlreadyRead)

		_, err = s.AwaitCode(context.Background())
		assert.ErrorIs(t, err, ErrAlreadyRead)
	})

	t.Run("second mailbox read is consumed", func(t *testing.T) {
		s := startTestServer(t, testOptions())
		get(t, s, "/redirect?code=abc&state=xyz")

		mb, err := s.Mailbox()
		require.NoError(t, err)

		_, err = mb.Read(context.Background())
		require.NoError(t, err)

		_, err = mb.Read(context.Background())
		assert.ErrorIs(t, err, mailbox.ErrAlreadyConsumed)
	})

	t.Run("CSRF token is stable and unique per server", func(t *testing.T) {
		a := startTestServer(t, testOptions())
		b := startTestServer(t, testOptions())

		assert.Len(t, a.CSRFToken(), 64)
		assert.Equal(t, a.CSRFToken(), a.CSRFToken())
		assert.NotEqual(t, a.CSRFToken(), b.CSRFToken())
	})

	t.Run("RedirectURL uses bound port", func(t *testing.T) {
		s := startTestServer(t, testOptions())

		_, port, err := net.SplitHostPort(s.Addr())
		require.NoError(t, err)
		assert.Equal(t, "http://127.0.0.1:"+port+"/redirect", s.RedirectURL())
	})
}

func TestCaptureServerLifecycle(t *testing.T) {
	t.Run("Close abandons a waiting reader", func(t *testing.T) {
		s, err := Start(context.Background(), testOptions(), nil)
		require.NoError(t, err)

		errs := make(chan error, 1)
		go func() {
			_, err := s.AwaitCode(context.Background())
			errs <- err
		}()

		require.NoError(t, s.Close())
		require.NoError(t, s.Close(), "Close is idempotent")

		select {
		case err := <-errs:
			assert.ErrorIs(t, err, mailbox.ErrAbandoned)
		case <-time.After(2 * time.Second):
			t.Fatal("reader did not unwind after Close")
		}

		_, err = http.Get("http://" + s.Addr() + "/ping")
		assert.Error(t, err, "listener should be closed")
	})

	t.Run("context cancellation closes the server", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		s, err := Start(ctx, testOptions(), nil)
		require.NoError(t, err)

		cancel()

		select {
		case <-s.Done():
		case <-time.After(2 * time.Second):
			t.Fatal("server did not close on cancellation")
		}
		require.NoError(t, s.Close())
	})

	t.Run("Run releases on success", func(t *testing.T) {
		var addr string
		err := Run(context.Background(), testOptions(), nil, func(ctx context.Context, s *CaptureServer) error {
			addr = s.Addr()
			get(t, s, "/redirect?code=abc123&state=xyz")

			code, err := s.AwaitCode(ctx)
			require.NoError(t, err)
			assert.Equal(t, "abc123", code)
			return nil
		})
		require.NoError(t, err)

		_, err = http.Get("http://" + addr + "/ping")
		assert.Error(t, err)
	})

	t.Run("Run releases on error", func(t *testing.T) {
		boom := errors.New("boom")
		var s *CaptureServer

		err := Run(context.Background(), testOptions(), nil, func(ctx context.Context, srv *CaptureServer) error {
			s = srv
			return boom
		})
		assert.ErrorIs(t, err, boom)

		select {
		case <-s.Done():
		default:
			t.Fatal("server should be closed after Run returns")
		}
	})

	t.Run("Run releases on panic", func(t *testing.T) {
		var s *CaptureServer

		assert.Panics(t, func() {
			Run(context.Background(), testOptions(), nil, func(ctx context.Context, srv *CaptureServer) error {
				s = srv
				panic("boom")
			})
		})

		select {
		case <-s.Done():
		default:
			t.Fatal("server should be closed after a panic")
		}
	})

	t.Run("Run with cancelled parent unblocks the reader", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())

		err := Run(ctx, testOptions(), nil, func(ctx context.Context, s *CaptureServer) error {
			cancel()
			_, err := s.AwaitCode(ctx)
			return err
		})
		assert.Error(t, err)
	})

	t.Run("bind failure", func(t *testing.T) {
		s := startTestServer(t, testOptions())
		_, port, err := net.SplitHostPort(s.Addr())
		require.NoError(t, err)

		opts := testOptions()
		opts.Port, err = strconv.Atoi(port)
		require.NoError(t, err)

		_, err = Start(context.Background(), opts, nil)
		assert.ErrorIs(t, err, ErrServerStart)

		called := false
		err = Run(context.Background(), opts, nil, func(context.Context, *CaptureServer) error {
			called = true
			return nil
		})
		assert.ErrorIs(t, err, ErrServerStart)
		assert.False(t, called)
	})

	t.Run("invalid options", func(t *testing.T) {
		for _, path := range []string{"", "/", "ping", "/ping/"} {
			opts := testOptions()
			opts.Path = path
			_, err := Start(context.Background(), opts, nil)
			assert.ErrorIs(t, err, ErrInvalidOptions, "path %q", path)
		}
	})
}
