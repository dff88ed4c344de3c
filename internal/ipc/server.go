package ipc

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server wraps an HTTP server with engine-specific routing.
type Server struct {
	httpServer *http.Server
}

// NewServer creates a Server that binds to the given address.
func NewServer(h *Handler, listenAddr string) *Server {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", h.Health)

		r.Post("/session", h.StartSession)
		r.Post("/session/frame", h.Frame)
		r.Post("/session/end", h.EndSession)

		r.Get("/wallet", h.GetWallet)
		r.Get("/wallet/entries", h.ListEntries)

		r.Get("/blocked", h.GetBlocked)
		r.Post("/override", h.GrantOverride)

		r.Get("/limits", h.ListLimits)
		r.Post("/limits", h.SetLimit)

		r.Get("/schedules", h.ListSchedules)
		r.Post("/schedules", h.PutSchedule)
		r.Delete("/schedules/{scheduleID}", h.DeleteSchedule)

		r.Post("/sync/tick", h.SyncTick)
	})

	srv := &http.Server{
		Addr:    listenAddr,
		Handler: r,
	}

	return &Server{
		httpServer: srv,
	}
}

// Start begins listening for HTTP connections. Blocks until the server stops.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// corsMiddleware adds CORS headers for the local host UI.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
