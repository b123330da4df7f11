package web

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jaminalder/bitboard-tic-tac-toe/internal/app"
	"github.com/jaminalder/bitboard-tic-tac-toe/internal/domain"
)

// stateView is the wire form of a position. Bitboards are written as nine
// binary digits, cell One first.
type stateView struct {
	ID         string     `json:"id,omitempty"`
	X          string     `json:"x"`
	O          string     `json:"o"`
	Occupied   string     `json:"occupied"`
	Status     string     `json:"status"`
	Turn       string     `json:"turn"`
	History    []string   `json:"history"`
	Notation   string     `json:"notation"`
	LegalMoves []string   `json:"legal_moves"`
	Board      [3]string  `json:"board"`
	Created    *time.Time `json:"created,omitempty"`
	Updated    *time.Time `json:"updated,omitempty"`
}

type analysisView struct {
	ID       string `json:"id,omitempty"`
	Notation string `json:"notation"`
	Games    uint64 `json:"games"`
	domain.Outcomes
}

type errorView struct {
	Error string `json:"error"`
}

func moveNames(moves []domain.Move) []string {
	out := make([]string, len(moves))
	for i, m := range moves {
		out[i] = m.String()
	}
	return out
}

func newStateView(g domain.GameState) stateView {
	v := stateView{
		X:          g.X().String(),
		O:          g.O().String(),
		Occupied:   g.Occupied().String(),
		Status:     g.Status().String(),
		Turn:       g.Turn().String(),
		History:    moveNames(g.History()),
		Notation:   domain.FormatMoves(g.History()),
		LegalMoves: moveNames(g.AllLegalMoves()),
	}
	b := g.Board()
	for r := 0; r < 3; r++ {
		row := make([]byte, 3)
		for c := 0; c < 3; c++ {
			row[c] = b[r*3+c].String()[0]
		}
		v.Board[r] = string(row)
	}
	return v
}

func newSessionView(gs app.Session) stateView {
	v := newStateView(gs.State)
	v.ID = gs.ID
	created, updated := gs.Created, gs.Updated
	v.Created, v.Updated = &created, &updated
	return v
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeEvent(w io.Writer, gs app.Session) error {
	data, err := json.Marshal(newSessionView(gs))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: state\ndata: %s\n\n", data)
	return err
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorView{Error: err.Error()})
}
