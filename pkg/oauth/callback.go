package oauth

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"sync"
	"time"
)

// CallbackPath is where the loopback callback server receives the redirect.
const CallbackPath = "/callback"

var callbackPage = template.Must(template.New("callback").Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>toolarr</title></head>
<body>{{if .Error}}<h1>Authorization failed</h1><p>{{.Error}}: {{.Description}}</p>
{{else}}<h1>Authorization complete</h1><p>You can close this window.</p>{{end}}</body></html>
`))

// CallbackResult is the query of the redirect back to the client.
type CallbackResult struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string
}

// IsError returns true if the authorization server redirected with an error.
func (r *CallbackResult) IsError() bool {
	return r.Error != ""
}

// CallbackServer is a temporary loopback HTTP server that waits for a
// single authorization redirect, then shuts down.
type CallbackServer struct {
	server   *http.Server
	listener net.Listener
	resultCh chan *CallbackResult
	errorCh  chan error
	once     sync.Once
}

// NewCallbackServer listens on 127.0.0.1:port. Port 0 picks a free port.
func NewCallbackServer(port int) (*CallbackServer, error) {
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to start callback server on %s: %w", addr, err)
	}

	s := &CallbackServer{
		listener: listener,
		resultCh: make(chan *CallbackResult, 1),
		errorCh:  make(chan error, 1),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+CallbackPath, s.handleCallback)
	s.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// RedirectURI is the URI to register and send as redirect_uri.
func (s *CallbackServer) RedirectURI() string {
	return fmt.Sprintf("http://%s%s", s.listener.Addr().String(), CallbackPath)
}

// Start serves in the background until Stop or ctx is cancelled.
func (s *CallbackServer) Start(ctx context.Context) {
	go func() {
		if err := s.server.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case s.errorCh <- err:
			default:
			}
		}
	}()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
}

// WaitForCallback blocks until the redirect arrives, the server fails or
// ctx is done.
func (s *CallbackServer) WaitForCallback(ctx context.Context) (*CallbackResult, error) {
	select {
	case result := <-s.resultCh:
		return result, nil
	case err := <-s.errorCh:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *CallbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	handled := false
	s.once.Do(func() {
		handled = true

		query := r.URL.Query()
		result := &CallbackResult{
			Code:             query.Get("code"),
			State:            query.Get("state"),
			Error:            query.Get("error"),
			ErrorDescription: query.Get("error_description"),
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = callbackPage.Execute(w, map[string]string{
			"Error":       result.Error,
			"Description": result.ErrorDescription,
		})

		s.resultCh <- result
	})

	if !handled {
		http.Error(w, "Callback already processed", http.StatusBadRequest)
	}
}

// Stop shuts the server down.
func (s *CallbackServer) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(ctx)
}
