package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/jaminalder/bitboard-tic-tac-toe/internal/app"
	"github.com/jaminalder/bitboard-tic-tac-toe/internal/domain"
)

var (
	// analysisTimeout bounds a single game-tree enumeration.
	analysisTimeout = 10 * time.Second
	// heartbeatInterval keeps idle event streams open through proxies.
	heartbeatInterval = 15 * time.Second
)

const maxBodyBytes = 1 << 10

type handlers struct {
	svc *app.Service
	log zerolog.Logger
}

type playRequest struct {
	Move string `json:"move"`
}

// statusFor maps service and domain errors to HTTP codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, app.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, app.ErrTooManySessions):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrUnknownMove):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrIllegalMove):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (h *handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	writeError(w, status, err)
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) list(w http.ResponseWriter, r *http.Request) {
	games := h.svc.List()
	out := make([]stateView, len(games))
	for i, gs := range games {
		out[i] = newSessionView(gs)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) create(w http.ResponseWriter, r *http.Request) {
	gs, err := h.svc.CreateGame()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Location", "/games/"+gs.ID)
	writeJSON(w, http.StatusCreated, newSessionView(*gs))
}

func (h *handlers) view(w http.ResponseWriter, r *http.Request) {
	gs, ok := h.svc.Get(chi.URLParam(r, "id"))
	if !ok {
		h.fail(w, r, app.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, newSessionView(*gs))
}

func (h *handlers) remove(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) legalMoves(w http.ResponseWriter, r *http.Request) {
	moves, err := h.svc.LegalMoves(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"legal_moves": moveNames(moves)})
}

func (h *handlers) play(w http.ResponseWriter, r *http.Request) {
	var req playRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		writeError(w, status, fmt.Errorf("invalid body: %w", err))
		return
	}
	m, err := domain.ParseMove(req.Move)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	gs, err := h.svc.Play(chi.URLParam(r, "id"), m)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionView(*gs))
}

func (h *handlers) undo(w http.ResponseWriter, r *http.Request) {
	gs, err := h.svc.Undo(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionView(*gs))
}

func (h *handlers) analysis(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	gs, ok := h.svc.Get(id)
	if !ok {
		h.fail(w, r, app.ErrNotFound)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), analysisTimeout)
	defer cancel()
	out, err := h.svc.Analyze(ctx, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analysisView{
		ID:       id,
		Notation: domain.FormatMoves(gs.State.History()),
		Games:    out.Games(),
		Outcomes: out,
	})
}

// events streams the session as server-sent events: the current state first,
// then one event per move or undo. The stream ends when the client goes away,
// the game is deleted or the client falls behind.
func (h *handlers) events(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx := r.Context()
	updates, unsub, err := h.svc.Subscribe(ctx, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer unsub()
	gs, ok := h.svc.Get(id)
	if !ok {
		h.fail(w, r, app.ErrNotFound)
		return
	}

	rc := http.NewResponseController(w)
	// The server's WriteTimeout would otherwise cut long-lived streams.
	_ = rc.SetWriteDeadline(time.Time{})
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if err := writeEvent(w, *gs); err != nil {
		return
	}
	_ = rc.Flush()

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := io.WriteString(w, ": ping\n\n"); err != nil {
				return
			}
		case snap, ok := <-updates:
			if !ok {
				return
			}
			if err := writeEvent(w, snap); err != nil {
				h.log.Debug().Err(err).Str("game", id).Msg("event stream closed")
				return
			}
		}
		_ = rc.Flush()
	}
}

// position replays ?moves= from the empty board without creating a session.
func (h *handlers) position(w http.ResponseWriter, r *http.Request) {
	moves, err := domain.ParseMoves(r.URL.Query().Get("moves"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	g, err := domain.Replay(moves)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if r.URL.Query().Get("undo") == "1" {
		g = g.UnmakeMove()
	}
	writeJSON(w, http.StatusOK, newStateView(g))
}
