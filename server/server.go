package server

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	logger "github.com/sirupsen/logrus"

	"sitepilot/publisher"
	"sitepilot/updater"
)

//go:embed web/admin.html
var adminPage []byte

const (
	errServer        = "Server error"
	errPublishFailed = "File was updated, but Git push failed."
)

// Updater applies one change request.
type Updater interface {
	Apply(ctx context.Context, prompt string) (updater.Result, error)
}

// HistoryFunc lists recent publishes.
type HistoryFunc func(ctx context.Context) ([]publisher.Entry, error)

type Server struct {
	updater  Updater
	document http.Handler
	history  HistoryFunc
}

func New(upd Updater, document http.Handler, history HistoryFunc) (*Server, error) {
	if upd == nil {
		return nil, errors.New("updater required")
	}
	if document == nil {
		return nil, errors.New("document handler required")
	}
	return &Server{updater: upd, document: document, history: history}, nil
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(logMiddleware)

	r.Get("/", s.handleAdmin)
	r.Get("/index", s.document.ServeHTTP)
	r.Post("/update-feature", s.handleUpdate)
	r.Get("/history", s.handleHistory)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return r
}

// --- Handlers ---

type updateReq struct {
	Prompt string `json:"prompt"`
}

type updateResp struct {
	Message   string `json:"message"`
	GitOutput string `json:"git_output"`
}

type errorResp struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func (s *Server) handleAdmin(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(adminPage)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		// An unreadable body carries no prompt.
		logger.Debugf("decode update request: %v", err)
		req = updateReq{}
	}
	logger.Infof("Received request: %s", req.Prompt)

	res, err := s.updater.Apply(r.Context(), req.Prompt)
	if err != nil {
		status, body := errorResponse(err)
		writeJSON(w, status, body)
		return
	}
	writeJSON(w, http.StatusOK, updateResp{Message: res.Message, GitOutput: res.GitOutput})
}

func errorResponse(err error) (int, errorResp) {
	var (
		valErr *updater.ValidationError
		pubErr *updater.PublishError
	)
	switch {
	case errors.As(err, &valErr):
		return http.StatusBadRequest, errorResp{Error: valErr.Error()}
	case errors.As(err, &pubErr):
		logger.WithField("step", pubErr.Step).Errorf("Git error: %s", pubErr.Details())
		return http.StatusInternalServerError, errorResp{Error: errPublishFailed, Details: pubErr.Details()}
	default:
		logger.WithField("step", stepOf(err)).Errorf("Error in /update-feature: %v", err)
		return http.StatusInternalServerError, errorResp{Error: errServer, Details: err.Error()}
	}
}

func stepOf(err error) string {
	var (
		ioErr *updater.IOError
		trErr *updater.TransformError
	)
	switch {
	case errors.As(err, &ioErr):
		return ioErr.Op
	case errors.As(err, &trErr):
		return "transform"
	default:
		return "unknown"
	}
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		http.NotFound(w, r)
		return
	}
	entries, err := s.history(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	body, err := publisher.RenderHistory(entries)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, historyLayout, body)
}

const historyLayout = `<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>Publish history</title></head>
<body>
<p><a href="/">Back to the control panel</a></p>
%s
</body>
</html>
`

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	// git output and prompts are shown verbatim by the control page.
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logger.WithFields(logger.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   ww.Status(),
			"duration": time.Since(start).String(),
		}).Info("request")
	})
}
