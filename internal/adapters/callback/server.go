package callback

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"
)

var ErrCallbackTimeout = errors.New("timed out waiting for auth callback")

const bouncePage = `<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>Signing in</title></head>
<body><script>
  // Credentials arrive in the fragment, which never reaches the server.
  // Re-submit them as a query so the local receiver can read them.
  location.replace("/auth/complete?" + location.hash.slice(1));
</script></body></html>`

// Server is a localhost receiver standing in for the OS deep-link channel.
// Identity providers redirect the browser here; the received parameters are
// re-encoded as the app's custom-scheme callback URI so the rest of the
// pipeline sees the exact shape a deep link would deliver.
type Server struct {
	scheme     string
	listener   net.Listener
	server     *http.Server
	resultCh   chan callbackResult
	resultOnce sync.Once
	closeOnce  sync.Once
}

type callbackResult struct {
	uri string
	err error
}

func StartServer(listenAddr string, scheme string) (*Server, error) {
	if scheme == "" {
		return nil, errors.New("callback scheme is required")
	}
	if listenAddr == "" {
		listenAddr = "127.0.0.1:0"
	}

	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return nil, fmt.Errorf("listen callback server: %w", err)
	}

	s := &Server{
		scheme:   scheme,
		listener: listener,
		resultCh: make(chan callbackResult, 1),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/callback", s.handleCallback)
	mux.HandleFunc("/auth/complete", s.handleComplete)

	s.server = &http.Server{Handler: mux}

	go func() {
		if serveErr := s.server.Serve(s.listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			s.trySendResult(callbackResult{err: serveErr})
		}
	}()

	return s, nil
}

func (s *Server) RedirectURI() string {
	if tcpAddr, ok := s.listener.Addr().(*net.TCPAddr); ok {
		return fmt.Sprintf("http://localhost:%d/auth/callback", tcpAddr.Port)
	}
	return "http://localhost/auth/callback"
}

// WaitForURI blocks until one callback arrives or the timeout elapses. The
// returned URI is in the custom-scheme fragment shape.
func (s *Server) WaitForURI(timeout time.Duration) (string, error) {
	defer func() { _ = s.Close() }()

	select {
	case result := <-s.resultCh:
		return result.uri, result.err
	case <-time.After(timeout):
		return "", ErrCallbackTimeout
	}
}

func (s *Server) Close() error {
	var closeErr error
	s.closeOnce.Do(func() {
		closeErr = s.server.Close()
	})
	return closeErr
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	// Some providers put parameters in the query; those can be taken
	// directly. Fragment deliveries need the browser-side bounce.
	if r.URL.RawQuery != "" {
		s.deliver(w, r.URL.RawQuery)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(bouncePage))
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	if r.URL.RawQuery == "" {
		http.Error(w, "missing callback parameters", http.StatusBadRequest)
		return
	}

	s.deliver(w, r.URL.RawQuery)
}

func (s *Server) deliver(w http.ResponseWriter, fragment string) {
	s.trySendResult(callbackResult{uri: fmt.Sprintf("%s://auth/callback#%s", s.scheme, fragment)})
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Authentication complete. You can close this window."))
}

func (s *Server) trySendResult(result callbackResult) {
	s.resultOnce.Do(func() {
		s.resultCh <- result
	})
}
