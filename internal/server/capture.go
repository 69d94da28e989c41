package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/songbot/internal/mailbox"
	"github.com/desertthunder/songbot/internal/shared"
)

const (
	pingPath        = "/ping"
	shutdownTimeout = 5 * time.Second
)

var (
	// ErrMissingParameter is wrapped by callback failures caused by an absent code or state query parameter.
	ErrMissingParameter = errors.New("missing parameter")
	// ErrStateMismatch is wrapped by callback failures whose state does not match the CSRF token.
	ErrStateMismatch = errors.New("state mismatch")
	// ErrNotFound is wrapped by the failure stored when a request hits an unknown path.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyRead is returned by [CaptureServer.Mailbox] after the first call.
	ErrAlreadyRead = errors.New("mailbox has already been read")
	// ErrServerStart is returned when the listener cannot be bound.
	ErrServerStart = errors.New("capture server failed to start")
	// ErrInvalidOptions is returned by [Start] for unusable [Options].
	ErrInvalidOptions = errors.New("invalid capture server options")
)

// callbackError is a routing failure: its message is what the HTTP client and the mailbox reader see, its kind is
// the sentinel callers match with [errors.Is].
type callbackError struct {
	kind error
	msg  string
}

func (e *callbackError) Error() string { return e.msg }
func (e *callbackError) Unwrap() error { return e.kind }

// Options configures a [CaptureServer]. It is copied at [Start] and never changes afterwards.
type Options struct {
	ClientID     string
	ClientSecret shared.Secret
	Host         string
	Port         int    // 0 picks a free port
	Path         string // redirect path, with or without a leading slash
	VerifyState  bool   // compare the state parameter with the CSRF token
}

// OptionsFromConfig builds [Options] from the application configuration.
func OptionsFromConfig(config *shared.Config) Options {
	return Options{
		ClientID:     config.Spotify.ClientID,
		ClientSecret: config.Spotify.ClientSecret,
		Host:         config.Server.Host,
		Port:         config.Server.Port,
		Path:         config.Server.Path,
		VerifyState:  config.Server.VerifyState,
	}
}

func (o Options) redirectPath() string {
	return "/" + strings.Trim(o.Path, "/")
}

func (o Options) validate() error {
	switch p := o.redirectPath(); p {
	case "/":
		return fmt.Errorf("%w: redirect path must not be empty", ErrInvalidOptions)
	case pingPath:
		return fmt.Errorf("%w: redirect path %s is reserved", ErrInvalidOptions, p)
	}
	if o.Port < 0 || o.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidOptions, o.Port)
	}
	return nil
}

// CaptureServer accepts a single OAuth redirect and delivers its authorization code through a one-shot mailbox.
//
// One server serves one authorization attempt; once the mailbox is resolved it is never re-armed.
type CaptureServer struct {
	opts       Options
	csrfToken  string
	mailbox    *mailbox.Mailbox[string]
	mailboxOut atomic.Bool
	listener   net.Listener
	httpServer *http.Server
	logger     *log.Logger

	closeOnce sync.Once
	closeErr  error
	closed    chan struct{}
	served    chan struct{}
}

// Start binds the listener, generates a fresh CSRF token and begins serving in the background.
//
// The server is a scoped resource: callers must [CaptureServer.Close] it, and cancelling ctx closes it as well.
// Prefer [Run], which guarantees the release.
func Start(ctx context.Context, opts Options, logger *log.Logger) (*CaptureServer, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}

	token, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrServerStart, err)
	}

	addr := net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: listen on %s: %v", ErrServerStart, addr, err)
	}

	s := &CaptureServer{
		opts:      opts,
		csrfToken: token,
		mailbox:   mailbox.New[string](),
		listener:  ln,
		logger:    shared.WithLogger(logger, "component", "capture-server"),
		closed:    make(chan struct{}),
		served:    make(chan struct{}),
	}

	s.httpServer = &http.Server{
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.serve()
	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-s.closed:
		}
	}()

	s.logger.Info("listening for OAuth redirect", "addr", ln.Addr().String(), "path", opts.redirectPath())

	return s, nil
}

// Run starts a [CaptureServer], calls fn with it and closes the server on every exit path, including errors, panics
// and cancellation of ctx.
func Run(ctx context.Context, opts Options, logger *log.Logger, fn func(context.Context, *CaptureServer) error) (err error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s, err := Start(ctx, opts, logger)
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := s.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	return fn(ctx, s)
}

func (s *CaptureServer) serve() {
	defer close(s.served)

	err := s.httpServer.Serve(s.listener)
	if err == nil || errors.Is(err, http.ErrServerClosed) {
		return
	}

	s.logger.Error("capture server stopped unexpectedly", "error", err)
	if resolveErr := s.mailbox.Fail(fmt.Errorf("capture server stopped: %w", err)); resolveErr == nil {
		s.logger.Warn("pending authorization failed because the server stopped")
	}
}

func (s *CaptureServer) routes() http.Handler {
	router := NewBasicRouter()
	router.Use(LogRequests(s.logger))

	router.Handle(http.MethodGet, pingPath, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeText(w, http.StatusOK, "pong")
	}))
	router.Handler(&callbackHandler{server: s, path: s.opts.redirectPath()})
	router.NotFound(&notFoundHandler{server: s})

	return router
}

// Mailbox hands out the mailbox that receives the authorization code. Only the first call succeeds; later calls
// return [ErrAlreadyRead].
func (s *CaptureServer) Mailbox() (*mailbox.Mailbox[string], error) {
	if !s.mailboxOut.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRead
	}
	return s.mailbox, nil
}

// AwaitCode takes the mailbox and blocks until the authorization code (or the callback failure) arrives or ctx ends.
func (s *CaptureServer) AwaitCode(ctx context.Context) (string, error) {
	mb, err := s.Mailbox()
	if err != nil {
		return "", err
	}
	return mb.Read(ctx)
}

// CSRFToken returns the token to send as the OAuth state parameter.
func (s *CaptureServer) CSRFToken() string {
	return s.csrfToken
}

// Addr returns the bound listener address.
func (s *CaptureServer) Addr() string {
	return s.listener.Addr().String()
}

// RedirectURL returns the URL the authorization server should redirect to.
func (s *CaptureServer) RedirectURL() string {
	host := s.opts.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}

	port := strconv.Itoa(s.opts.Port)
	if tcp, ok := s.listener.Addr().(*net.TCPAddr); ok {
		port = strconv.Itoa(tcp.Port)
	}

	return "http://" + net.JoinHostPort(host, port) + s.opts.redirectPath()
}

// Close stops the listener and abandons a still pending mailbox so readers unwind. It is safe to call more than once.
func (s *CaptureServer) Close() error {
	s.closeOnce.Do(func() {
		close(s.closed)

		if s.mailbox.Abandon() {
			s.logger.Warn("authorization abandoned before a redirect arrived")
		}

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.closeErr = fmt.Errorf("failed to shut down capture server: %w", err)
		}
		<-s.served
		// Serve never tracks the listener if Shutdown won the race against it.
		s.listener.Close()

		s.logger.Info("stopped capture server")
	})

	return s.closeErr
}

// Done is closed once [CaptureServer.Close] has started.
func (s *CaptureServer) Done() <-chan struct{} {
	return s.closed
}

// callbackHandler serves the configured redirect path.
type callbackHandler struct {
	server *CaptureServer
	path   string
}

func (h *callbackHandler) Routes() []string {
	return []string{h.path}
}

// ServeHTTP extracts code and state, resolves the mailbox and answers the browser.
func (h *callbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s := h.server
	query := r.URL.Query()

	// present but empty still counts as received
	code := query.Get("code")
	state := query.Get("state")

	var failure *callbackError
	switch {
	case !query.Has("code"):
		failure = &callbackError{kind: ErrMissingParameter, msg: "No code received"}
	case !query.Has("state"):
		failure = &callbackError{kind: ErrMissingParameter, msg: "No state received"}
	case s.opts.VerifyState && subtle.ConstantTimeCompare([]byte(state), []byte(s.csrfToken)) != 1:
		failure = &callbackError{kind: ErrStateMismatch, msg: "State mismatch"}
	}

	if failure != nil {
		if err := s.mailbox.Fail(failure); err != nil {
			s.logger.Debug("callback failure after mailbox was resolved", "reason", failure.msg)
		} else {
			s.logger.Warn("authorization callback rejected", "reason", failure.msg)
		}
		writeText(w, http.StatusBadRequest, "bad request: "+failure.msg)
		return
	}

	if err := s.mailbox.Succeed(code); err != nil {
		s.logger.Warn("authorization callback received after completion")
		writeText(w, http.StatusConflict, "conflict: authorization already completed")
		return
	}

	s.logger.Info("authorization code received")
	writeText(w, http.StatusOK, "success")
}

// notFoundHandler answers every unmatched path and fails the pending authorization.
type notFoundHandler struct {
	server *CaptureServer
}

func (h *notFoundHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	failure := &callbackError{kind: ErrNotFound, msg: "not found"}
	if err := h.server.mailbox.Fail(failure); err == nil {
		h.server.logger.Warn("authorization failed by request to unknown path", "path", r.URL.Path)
	}
	writeText(w, http.StatusNotFound, "not found")
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	io.WriteString(w, body)
}
