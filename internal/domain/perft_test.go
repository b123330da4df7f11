package domain

import (
	"context"
	"errors"
	"testing"
)

func TestPerftFromEmptyBoard(t *testing.T) {
	want := []uint64{1, 9, 72, 504, 3024, 15120, 54720}
	for depth, n := range want {
		if got := Perft(New(), depth); got != n {
			t.Fatalf("perft(%d) = %d, want %d", depth, got, n)
		}
	}
}

func TestPerftStopsAtFinishedGames(t *testing.T) {
	g := playMoves(t, One, Four, Two, Five, Three)
	if got := Perft(g, 1); got != 0 {
		t.Fatalf("expected no moves after a win, got %d", got)
	}
}

func TestEnumerateWholeGame(t *testing.T) {
	got, err := Enumerate(context.Background(), New())
	if err != nil {
		t.Fatalf("enumerate failed: %v", err)
	}
	want := Outcomes{XWins: 131184, OWins: 77904, Draws: 46080}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
	if got.Games() != 255168 {
		t.Fatalf("expected 255168 games, got %d", got.Games())
	}
}

func TestEnumerateTerminalPosition(t *testing.T) {
	g := playMoves(t, One, Four, Two, Five, Three)
	got, err := Enumerate(context.Background(), g)
	if err != nil {
		t.Fatalf("enumerate failed: %v", err)
	}
	if got != (Outcomes{XWins: 1}) {
		t.Fatalf("expected a single X win, got %+v", got)
	}
}

func TestEnumerateLateGame(t *testing.T) {
	// X O X / X O O / . X .  with O to move: Seven draws or Nine loses to X at Seven.
	g := playMoves(t, One, Two, Three, Five, Four, Six, Eight)
	got, err := Enumerate(context.Background(), g)
	if err != nil {
		t.Fatalf("enumerate failed: %v", err)
	}
	if got != (Outcomes{XWins: 1, Draws: 1}) {
		t.Fatalf("unexpected outcomes %+v", got)
	}
}

func TestEnumerateCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Enumerate(ctx, New()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
