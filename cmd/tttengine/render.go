package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"

	"github.com/jaminalder/bitboard-tic-tac-toe/internal/domain"
)

// renderState prints the grid followed by the status line. Empty cells show
// their number so the next move can be read off the board.
func renderState(w io.Writer, g domain.GameState, profile termenv.Profile) error {
	out := termenv.NewOutput(w, termenv.WithProfile(profile))
	board := g.Board()

	var sb strings.Builder
	for r := 0; r < 3; r++ {
		cells := make([]string, 3)
		for c := 0; c < 3; c++ {
			i := r*3 + c
			switch board[i] {
			case domain.X:
				cells[c] = out.String("X").Foreground(out.Color("1")).Bold().String()
			case domain.O:
				cells[c] = out.String("O").Foreground(out.Color("4")).Bold().String()
			default:
				cells[c] = out.String(fmt.Sprint(i + 1)).Faint().String()
			}
		}
		sb.WriteString(" " + strings.Join(cells, " | ") + "\n")
		if r < 2 {
			sb.WriteString("---+---+---\n")
		}
	}

	status := g.Status().String()
	if !g.Status().Terminal() {
		status += ", " + g.Turn().String() + " to move"
	}
	fmt.Fprintf(&sb, "%s  [%s]\n", status, domain.FormatMoves(g.History()))

	_, err := io.WriteString(w, sb.String())
	return err
}
