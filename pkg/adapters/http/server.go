// Package http exposes play sessions over a JSON HTTP API with server-sent
// view diffs.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/PixelPioneer1807/adventure/internal/logging"
	"github.com/PixelPioneer1807/adventure/pkg/domain"
	"github.com/PixelPioneer1807/adventure/pkg/runner"
	"github.com/PixelPioneer1807/adventure/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/oapi-codegen/runtime"
)

// Server serves the session API on top of a session.Manager.
type Server struct {
	Manager *session.Manager
	Streams *StreamManager

	logger  *slog.Logger
	metrics http.Handler
	version string
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithStreams shares a stream manager with the sessions' view listener.
func WithStreams(streams *StreamManager) Option {
	return func(s *Server) {
		s.Streams = streams
	}
}

// WithMetricsHandler mounts h on /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithVersion sets the version reported on /info.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

// NewServer creates a server. Sessions must publish their views to
// s.Streams for /events to carry anything.
func NewServer(manager *session.Manager, opts ...Option) *Server {
	s := &Server{
		Manager: manager,
		logger:  logging.NewNop(),
		version: "dev",
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.Streams == nil {
		s.Streams = NewStreamManager(s.logger)
	}
	return s
}

// NewHandler creates a new HTTP handler for the manager.
func NewHandler(manager *session.Manager, opts ...Option) http.Handler {
	return NewServer(manager, opts...).Routes()
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(rawSpec)
	})
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", s.ListSessions)
		r.Post("/", s.OpenSession)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", s.GetSession)
			r.Delete("/", s.CloseSession)
			r.Post("/choices", s.Choose)
			r.Post("/restart", s.Restart)
			r.Post("/saves", s.Save)
			r.Post("/load", s.Load)
			r.Put("/autosave", s.SetAutoSave)
			r.Get("/events", s.SubscribeEvents)
		})
	})
	r.Get("/saves", s.ListSaves)
	r.Delete("/saves/{saveID}", s.DeleteSave)
	r.Get("/stories", s.ListStories)
	r.Get("/stories/{storyID}", s.GetStory)

	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type openRequest struct {
	StoryID  string `json:"story_id"`
	SaveID   string `json:"save_id"`
	AutoSave *bool  `json:"auto_save"`
}

type choiceRequest struct {
	NodeID string `json:"node_id"`
	Text   string `json:"text"`
}

type saveRequest struct {
	Name string `json:"name"`
}

type loadRequest struct {
	SaveID string `json:"save_id"`
}

type autoSaveRequest struct {
	Enabled *bool `json:"enabled"`
}

// OpenSession handles POST /sessions. A save_id resumes that save instead.
func (s *Server) OpenSession(w http.ResponseWriter, r *http.Request) {
	var body openRequest
	if !s.decode(w, r, &body, true) {
		return
	}

	var opts []session.Option
	if body.AutoSave != nil {
		opts = append(opts, session.WithAutoSave(*body.AutoSave))
	}

	var (
		sess *session.Session
		err  error
	)
	switch {
	case body.SaveID != "":
		sess, err = s.Manager.Resume(r.Context(), body.SaveID, opts...)
	case body.StoryID != "":
		sess, err = s.Manager.Open(r.Context(), body.StoryID, opts...)
	default:
		s.fail(w, http.StatusBadRequest, errors.New("story_id or save_id is required"))
		return
	}
	if err != nil {
		s.error(w, "OpenSession", err)
		return
	}

	s.logger.Info("Session opened", "session_id", sess.ID(), "story_id", sess.StoryID())
	writeJSON(w, http.StatusCreated, sess.View())
}

// ListSessions handles GET /sessions.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"sessions": s.Manager.List()})
}

// GetSession handles GET /sessions/{id}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.View())
}

// CloseSession handles DELETE /sessions/{id}.
func (s *Server) CloseSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if err := s.Manager.Close(id); err != nil {
		s.error(w, "CloseSession", err)
		return
	}
	s.Streams.Forget(id)
	w.WriteHeader(http.StatusNoContent)
}

// Choose handles POST /sessions/{id}/choices.
func (s *Server) Choose(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var body choiceRequest
	if !s.decode(w, r, &body, false) {
		return
	}
	if body.NodeID == "" {
		s.fail(w, http.StatusBadRequest, errors.New("node_id is required"))
		return
	}
	text, err := runner.SanitizeInput(body.Text)
	if err != nil {
		s.fail(w, http.StatusBadRequest, fmt.Errorf("invalid text: %w", err))
		return
	}

	if _, err := sess.Choose(r.Context(), body.NodeID, text); err != nil {
		s.error(w, "Choose", err)
		return
	}
	writeJSON(w, http.StatusOK, sess.View())
}

// Restart handles POST /sessions/{id}/restart.
func (s *Server) Restart(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := sess.Restart(r.Context()); err != nil {
		s.error(w, "Restart", err)
		return
	}
	writeJSON(w, http.StatusOK, sess.View())
}

// Save handles POST /sessions/{id}/saves.
func (s *Server) Save(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var body saveRequest
	if !s.decode(w, r, &body, true) {
		return
	}
	name, err := runner.SanitizeLabel(body.Name)
	if err != nil {
		s.fail(w, http.StatusBadRequest, fmt.Errorf("invalid name: %w", err))
		return
	}

	saved, err := sess.SaveNow(r.Context(), name, false)
	if err != nil {
		s.error(w, "Save", err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

// Load handles POST /sessions/{id}/load.
func (s *Server) Load(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var body loadRequest
	if !s.decode(w, r, &body, false) {
		return
	}
	if body.SaveID == "" {
		s.fail(w, http.StatusBadRequest, errors.New("save_id is required"))
		return
	}

	if _, err := sess.LoadSave(r.Context(), body.SaveID); err != nil {
		s.error(w, "Load", err)
		return
	}
	writeJSON(w, http.StatusOK, sess.View())
}

// SetAutoSave handles PUT /sessions/{id}/autosave.
func (s *Server) SetAutoSave(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var body autoSaveRequest
	if !s.decode(w, r, &body, false) {
		return
	}
	if body.Enabled == nil {
		s.fail(w, http.StatusBadRequest, errors.New("enabled is required"))
		return
	}
	sess.SetAutoSaveEnabled(*body.Enabled)
	writeJSON(w, http.StatusOK, sess.View())
}

// ListSaves handles GET /saves.
func (s *Server) ListSaves(w http.ResponseWriter, r *http.Request) {
	store := s.Manager.Store()
	if store == nil {
		s.error(w, "ListSaves", session.ErrNoSaveStore)
		return
	}

	var storyID *string
	if err := runtime.BindQueryParameter("form", true, false, "story_id", r.URL.Query(), &storyID); err != nil {
		s.fail(w, http.StatusBadRequest, fmt.Errorf("invalid format for parameter story_id: %w", err))
		return
	}
	filter := ""
	if storyID != nil {
		filter = *storyID
	}

	saves, err := store.List(r.Context(), filter)
	if err != nil {
		s.error(w, "ListSaves", &domain.PersistenceError{Op: "list", Err: err})
		return
	}
	writeJSON(w, http.StatusOK, saves)
}

// DeleteSave handles DELETE /saves/{id}.
func (s *Server) DeleteSave(w http.ResponseWriter, r *http.Request) {
	store := s.Manager.Store()
	if store == nil {
		s.error(w, "DeleteSave", session.ErrNoSaveStore)
		return
	}
	id := chi.URLParam(r, "saveID")
	if err := store.Delete(r.Context(), id); err != nil {
		s.error(w, "DeleteSave", &domain.PersistenceError{Op: "delete", SaveID: id, Err: err})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListStories handles GET /stories.
func (s *Server) ListStories(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Manager.Graphs().Stories(r.Context())
	if err != nil {
		s.error(w, "ListStories", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"stories": ids})
}

// GetStory handles GET /stories/{id}.
func (s *Server) GetStory(w http.ResponseWriter, r *http.Request) {
	g, err := s.Manager.Graphs().Graph(r.Context(), chi.URLParam(r, "storyID"))
	if err != nil {
		s.error(w, "GetStory", err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if swagger, err := GetSwagger(); err == nil && swagger.Info != nil {
		apiVersion = swagger.Info.Version
	} else if err != nil {
		s.logger.Error("Failed to load OpenAPI spec", "err", err)
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"app":         "adventure-http",
		"version":     strings.TrimSpace(s.version),
		"api_version": apiVersion,
	})
}

// SubscribeEvents handles GET /sessions/{id}/events (SSE).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.fail(w, http.StatusInternalServerError, errors.New("streaming not supported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.Streams.Subscribe(sess.ID())
	defer cancel()
	s.logger.Info("SSE: Subscribing to Session Updates", "session_id", sess.ID())

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	// The first frame carries the full view so clients can apply diffs to it.
	if initial, err := json.Marshal(domain.Diff(nil, ptr(sess.View()))); err == nil {
		fmt.Fprintf(w, "data: %s\n\n", initial)
	}
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE Client Disconnected", "session_id", sess.ID())
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// -- Helpers --

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.Manager.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		s.error(w, "Session lookup", err)
		return nil, false
	}
	return sess, true
}

// decode reads a JSON body. An empty body is accepted when optional is set.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any, optional bool) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || optional && errors.Is(err, io.EOF) {
		return true
	}
	s.logger.Warn("Invalid request body", "path", r.URL.Path, "err", err)
	s.fail(w, http.StatusBadRequest, errors.New("invalid request body"))
	return false
}

func (s *Server) error(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(op+" failed", "err", err)
	} else {
		s.logger.Debug(op+" rejected", "status", status, "err", err)
	}
	s.fail(w, status, err)
}

func (s *Server) fail(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func ptr[T any](v T) *T {
	return &v
}
