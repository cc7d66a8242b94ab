// Package transport hosts the loopback HTTP endpoint the identity provider
// redirects back to after a federated sign-in.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"snowboard-doctor/internal/utils"
)

type CallbackResult struct {
	Code             string
	Error            string
	ErrorDescription string
}

func (r CallbackResult) Err() error {
	if r.Error == "" {
		return nil
	}
	if r.ErrorDescription != "" {
		return fmt.Errorf("%s: %s", r.Error, r.ErrorDescription)
	}
	return errors.New(r.Error)
}

// CallbackServer accepts exactly one redirect on path and reports it on
// Results.
type CallbackServer struct {
	addr    string
	path    string
	logger  *utils.Logger
	ln      net.Listener
	http    *http.Server
	results chan CallbackResult
}

func NewCallbackServer(addr, path string, logger *utils.Logger) *CallbackServer {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &CallbackServer{
		addr:    addr,
		path:    path,
		logger:  logger,
		results: make(chan CallbackResult, 1),
	}
}

// Listen binds the socket so that address conflicts surface before the
// browser is opened.
func (s *CallbackServer) Listen() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	s.ln = ln
	return nil
}

// Addr is the bound address, which differs from the configured one when
// port 0 was requested.
func (s *CallbackServer) Addr() string {
	if s.ln == nil {
		return s.addr
	}
	return s.ln.Addr().String()
}

func (s *CallbackServer) URL() string {
	return "http://" + s.Addr() + s.path
}

func (s *CallbackServer) Results() <-chan CallbackResult {
	return s.results
}

// Serve runs until ctx is cancelled.
func (s *CallbackServer) Serve(ctx context.Context) error {
	if s.ln == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}
	s.http = &http.Server{Handler: s.Router(), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = s.http.Shutdown(ctxShutdown)
	}()

	err := s.http.Serve(s.ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *CallbackServer) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get(s.path, s.handleCallback)
	r.Get("/health", s.handleHealth)
	return r
}

func (s *CallbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result := CallbackResult{
		Code:             q.Get("code"),
		Error:            q.Get("error"),
		ErrorDescription: q.Get("error_description"),
	}
	if result.Code == "" && result.Error == "" {
		w.WriteHeader(http.StatusBadRequest)
		renderPage(w, "Sign-in incomplete", "The redirect did not include an authorization code.")
		return
	}

	select {
	case s.results <- result:
		s.logger.Debugf("auth callback received (error=%q)", result.Error)
	default:
		s.logger.Warnf("ignoring repeated auth callback")
	}

	if err := result.Err(); err != nil {
		renderPage(w, "Sign-in failed", err.Error())
		return
	}
	renderPage(w, "Signed in", "You can close this window and return to the terminal.")
}

func (s *CallbackServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

var pageTemplate = template.Must(template.New("page").Parse(`<!doctype html>
<html><head><meta charset="utf-8"><title>Snowboard Doctor</title></head>
<body style="font-family: sans-serif; text-align: center; padding-top: 4em">
<h1>{{.Title}}</h1><p>{{.Body}}</p>
</body></html>`))

func renderPage(w http.ResponseWriter, title, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = pageTemplate.Execute(w, struct{ Title, Body string }{title, body})
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	_ = enc.Encode(payload)
}
