// Package server assembles all HTTP handlers and starts the server.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/matthewbaird/sitecontent/internal/activity"
	"github.com/matthewbaird/sitecontent/internal/event"
	"github.com/matthewbaird/sitecontent/internal/feed"
	"github.com/matthewbaird/sitecontent/internal/handler"
	"github.com/matthewbaird/sitecontent/internal/store"
	"github.com/matthewbaird/sitecontent/internal/validate"
)

// Config holds server configuration.
type Config struct {
	Port           int
	AllowedOrigins []string // empty allows any origin

	Backend   store.Backend
	Activity  activity.Store
	Validator *validate.Validator
	Recorder  event.Recorder // optional
	Feed      *feed.Hub      // optional
	Logger    *slog.Logger
}

// NewHandler builds the routed, middleware-wrapped API handler.
func NewHandler(cfg Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(handler.Recovery(logger))
	r.Use(handler.Logging(logger))
	r.Use(newCORS(cfg.AllowedOrigins).Handler)

	// Health check
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Get("/api/schema", handler.NewSchemaHandler(cfg.Validator).GetSchema)
	if cfg.Activity != nil {
		r.Get("/api/activity", handler.NewActivityHandler(cfg.Activity, logger).ListActivity)
	}
	if cfg.Feed != nil {
		cfg.Feed.RegisterRoutes(r)
	}

	// One collection per registered kind.
	for _, ks := range cfg.Validator.Registry().Kinds() {
		eh := handler.NewElementHandler(ks.Kind, cfg.Backend, cfg.Validator, cfg.Recorder, logger)
		r.Mount("/api/"+ks.Resource, eh.Routes())
	}
	return r
}

// Run starts the HTTP server with all routes registered and shuts it down
// gracefully when ctx is cancelled.
func Run(ctx context.Context, cfg Config) error {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           NewHandler(cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", addr)
		errc <- server.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func newCORS(origins []string) *cors.Cors {
	opts := cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
		},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"X-Request-Id"},
	}
	if len(origins) == 0 {
		opts.AllowOriginFunc = func(string) bool { return true }
	} else {
		opts.AllowedOrigins = origins
	}
	return cors.New(opts)
}
