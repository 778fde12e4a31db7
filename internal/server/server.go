// Package server provides the HTTP server for the neck tilt trainer.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/necktilt/internal/exercise"
	"github.com/ayusman/necktilt/internal/server/api"
	"github.com/ayusman/necktilt/internal/store"
)

// Controller is everything the server needs from the application.
// *app.App satisfies it.
type Controller interface {
	api.Controller
	api.SettingsController
	FrameSource
	Subscribe() (<-chan exercise.Feedback, func())
}

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Store     *store.Store
	App       Controller
	Plugins   api.PluginLookup
	Metrics   http.Handler

	// CameraStopped is the error App returns when an exercise is started
	// without a running camera.
	CameraStopped error
	Logger        logrus.FieldLogger
}

// Server represents the HTTP server for the application.
type Server struct {
	config  Config
	mux     *http.ServeMux
	start   time.Time
	log     logrus.FieldLogger
	httpSrv *http.Server
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	log := config.Logger
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.WarnLevel)
		log = l
	}

	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
		log:    log.WithField("component", "server"),
	}
	s.httpSrv = &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.App != nil {
		exerciseHandler := api.NewExerciseHandler(s.config.App, s.config.CameraStopped)
		s.mux.Handle("/api/exercise", exerciseHandler)
		s.mux.Handle("/api/exercise/", exerciseHandler)
		s.mux.Handle("/api/camera/", exerciseHandler)

		s.mux.Handle("/api/settings", api.NewSettingsHandler(s.config.App))
		s.mux.Handle("/api/stream", NewStreamHandler(s.config.App))
		s.mux.Handle("/api/feedback", NewFeedbackHandler(s.config.App, s.log))
	}

	if s.config.Store != nil {
		hookHandler := api.NewHookHandler(s.config.Store, s.config.Plugins)
		s.mux.Handle("/api/hooks", hookHandler)
		s.mux.Handle("/api/hooks/", hookHandler)
	}

	if s.config.Metrics != nil {
		s.mux.Handle("/metrics", s.config.Metrics)
	}

	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]any{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}
	if s.config.App != nil {
		response["camera_running"] = s.config.App.CameraRunning()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe starts the HTTP server on the given address. It returns
// nil after Shutdown, including a Shutdown that happened first.
func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.log.WithField("addr", ln.Addr().String()).Info("HTTP server listening")

	err = s.httpSrv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting connections and waits for active requests.
// Streaming clients are cut off when ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpSrv.Shutdown(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		return s.httpSrv.Close()
	}
	return err
}
