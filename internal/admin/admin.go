// Package admin exposes the back-office HTTP surface: an explicit "sync now"
// trigger per entity kind and a health endpoint. Sync runs synchronously in
// the request and returns a single aggregate result; per-entity failures are
// counted, not itemized.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/BrandonGoding/squaresync/internal/sync"
)

// SyncRunner runs sync passes on demand.
// Implemented by [sync.Engine].
type SyncRunner interface {
	Kinds() []string
	RunOnce(ctx context.Context, kinds ...string) (sync.Stats, error)
}

// SyncResult is the aggregate outcome returned by the sync endpoints.
type SyncResult struct {
	Kinds   []string `json:"kinds"`
	Created int      `json:"created"`
	Updated int      `json:"updated"`
	Skipped int      `json:"skipped"`
	Errors  int      `json:"errors"`
}

// Handler implements the admin API handlers.
type Handler struct {
	engine  SyncRunner
	version string
	log     *slog.Logger
}

// NewHandler creates a Handler over the given sync engine.
func NewHandler(engine SyncRunner, version string, logger *slog.Logger) *Handler {
	return &Handler{engine: engine, version: version, log: logger}
}

// NewRouter creates the admin router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.logRequests)
	r.Use(middleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Post("/sync", h.SyncAll)
		r.Post("/sync/{kind}", h.SyncKind)
	})

	return r
}

// logRequests logs one line per request after it completes.
func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.log.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
		)
	})
}

// Health returns the service status and the syncable kinds.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": h.version,
		"kinds":   h.engine.Kinds(),
	})
}

// SyncAll handles POST /api/v1/sync: one pass over every kind.
func (h *Handler) SyncAll(w http.ResponseWriter, r *http.Request) {
	h.runSync(w, r)
}

// SyncKind handles POST /api/v1/sync/{kind}: one pass over a single kind.
func (h *Handler) SyncKind(w http.ResponseWriter, r *http.Request) {
	h.runSync(w, r, chi.URLParam(r, "kind"))
}

func (h *Handler) runSync(w http.ResponseWriter, r *http.Request, kinds ...string) {
	stats, err := h.engine.RunOnce(r.Context(), kinds...)
	if errors.Is(err, sync.ErrUnknownKind) {
		writeProblem(w, r, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		// The pass ran; per-entity failures are reflected in the stats.
		h.log.Warn("sync pass finished with errors", "error", err)
	}

	resolved := kinds
	if len(resolved) == 0 {
		resolved = h.engine.Kinds()
	}
	writeJSON(w, http.StatusOK, SyncResult{
		Kinds:   resolved,
		Created: stats.Created,
		Updated: stats.Updated,
		Skipped: stats.Skipped,
		Errors:  stats.Errors,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding response", "error", err)
	}
}

// Serve runs the admin server until ctx is cancelled, then shuts it down
// gracefully.
func Serve(ctx context.Context, addr string, h *Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewRouter(h),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		h.log.Info("admin API listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("admin server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("admin server shutdown: %w", err)
		}
		return nil
	}
}
