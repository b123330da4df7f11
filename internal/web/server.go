package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/jaminalder/bitboard-tic-tac-toe/internal/app"
)

// NewServer wires routes and returns an http.Handler.
func NewServer(s *app.Service, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	h := &handlers{svc: s, log: logger}

	r.Use(chimw.RequestID)
	r.Use(requestLogger(logger))
	r.Use(chimw.Recoverer)

	r.Get("/healthz", h.health)
	r.Get("/positions", h.position)
	r.Route("/games", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.view)
			r.Delete("/", h.remove)
			r.Get("/moves", h.legalMoves)
			r.Post("/moves", h.play)
			r.Post("/undo", h.undo)
			r.Get("/analysis", h.analysis)
			r.Get("/events", h.events)
		})
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorView{Error: "not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorView{Error: "method not allowed"})
	})
	return r
}
