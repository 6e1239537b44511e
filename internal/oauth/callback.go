package oauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/httplog/v3"
)

// DefaultCallbackPath is the path the loopback listener serves the
// authorization redirect on.
const DefaultCallbackPath = "/callback"

const successPage = `<!DOCTYPE html>
<html><head><title>Login complete</title></head>
<body><h1>Login complete</h1><p>You are signed in. You can close this tab and return to the terminal.</p></body></html>`

const failurePage = `<!DOCTYPE html>
<html><head><title>Login failed</title></head>
<body><h1>Login failed</h1><p>%s</p><p>Close this tab and try again from the terminal.</p></body></html>`

// callbackOutcome is the single terminal result of a listener instance.
type callbackOutcome struct {
	code string
	err  error
}

// CallbackListener receives exactly one authorization redirect on 127.0.0.1
// and resolves with the authorization code, or rejects with a descriptive
// error. The socket is always closed once a terminal outcome is reached.
//
// The port is discovered with a short-lived probe listener before the real
// one is bound, because the redirect URI must be known (and registered with
// the provider) before the listener can be started. Another process could in
// principle claim the port between probe and rebind; for a single-user local
// CLI that race is accepted.
type CallbackListener struct {
	port  int
	path  string
	state string

	server   *http.Server
	listener net.Listener
	resultCh chan callbackOutcome
	once     sync.Once
}

// NewCallbackListener probes an ephemeral loopback port and prepares a
// listener for the given callback path. state is the CSRF token the redirect
// must echo back.
func NewCallbackListener(path, state string) (*CallbackListener, error) {
	if path == "" {
		path = DefaultCallbackPath
	}

	probe, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("probing for a loopback port: %w", err)
	}
	port := probe.Addr().(*net.TCPAddr).Port
	if err := probe.Close(); err != nil {
		return nil, fmt.Errorf("closing port probe: %w", err)
	}

	return &CallbackListener{
		port:     port,
		path:     path,
		state:    state,
		resultCh: make(chan callbackOutcome, 1),
	}, nil
}

// RedirectURI returns the redirect URI the provider must be registered with.
// Valid before Start.
func (l *CallbackListener) RedirectURI() string {
	return fmt.Sprintf("http://127.0.0.1:%d%s", l.port, l.path)
}

// Port returns the discovered loopback port.
func (l *CallbackListener) Port() int {
	return l.port
}

// Start binds the real listener on the probed port and begins serving.
// The listener stops when a terminal outcome is reached, when ctx is
// cancelled, or when Close is called.
func (l *CallbackListener) Start(ctx context.Context) error {
	addr := fmt.Sprintf("127.0.0.1:%d", l.port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("binding callback listener on %s: %w", addr, err)
	}
	l.listener = listener

	mux := http.NewServeMux()
	mux.HandleFunc("/", l.handle)

	requestLogger := httplog.RequestLogger(slog.Default(), &httplog.Options{
		Level: slog.LevelDebug,
	})

	l.server = &http.Server{
		Handler:           requestLogger(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := l.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.reject(fmt.Errorf("callback listener failed: %w", err))
		}
	}()

	go func() {
		<-ctx.Done()
		l.Close()
	}()

	return nil
}

// Wait blocks until the listener reaches its terminal outcome or ctx ends.
// A deadline expiry is reported as ErrCallbackTimeout.
func (l *CallbackListener) Wait(ctx context.Context) (string, error) {
	select {
	case outcome := <-l.resultCh:
		return outcome.code, outcome.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", ErrCallbackTimeout
		}
		return "", ctx.Err()
	}
}

// handle routes a single request. Requests outside the callback path get a
// 404 and leave the flow pending, so favicon fetches and other stray browser
// requests cannot end the login prematurely.
func (l *CallbackListener) handle(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != l.path {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}

	query := r.URL.Query()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")

	if errCode := query.Get("error"); errCode != "" {
		message := query.Get("error_description")
		if message == "" {
			message = errCode
		}
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, failurePage, message)
		l.rejectCallback(CallbackDenied, message)
		return
	}

	code := query.Get("code")
	state := query.Get("state")
	if code == "" || state == "" {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, failurePage, "missing code or state parameter")
		l.rejectCallback(CallbackMissingParameter, "callback is missing code or state parameter")
		return
	}

	if state != l.state {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, failurePage, "state mismatch")
		l.rejectCallback(CallbackStateMismatch, "state parameter does not match the authorization request")
		return
	}

	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, successPage)
	l.resolve(code)
}

func (l *CallbackListener) resolve(code string) {
	l.once.Do(func() {
		l.resultCh <- callbackOutcome{code: code}
		l.shutdownSoon()
	})
}

func (l *CallbackListener) rejectCallback(reason CallbackErrorReason, message string) {
	l.reject(&CallbackError{Reason: reason, Message: message})
}

func (l *CallbackListener) reject(err error) {
	l.once.Do(func() {
		l.resultCh <- callbackOutcome{err: err}
		l.shutdownSoon()
	})
}

// shutdownSoon closes the listener after a short grace period so the final
// response reaches the browser first.
func (l *CallbackListener) shutdownSoon() {
	go func() {
		time.Sleep(500 * time.Millisecond)
		l.Close()
	}()
}

// Close tears the listener down. Safe to call multiple times and on a
// listener that never started.
func (l *CallbackListener) Close() {
	if l.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = l.server.Shutdown(ctx)
	}
	if l.listener != nil {
		_ = l.listener.Close()
	}
}
