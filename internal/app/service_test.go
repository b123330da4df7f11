package app

import (
	"context"
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/jaminalder/bitboard-tic-tac-toe/internal/domain"
)

func TestCreateAndGet(t *testing.T) {
	s := NewService()
	gs, err := s.CreateGame()
	if err != nil {
		t.Fatalf("CreateGame error: %v", err)
	}
	if gs.ID == "" || !validSessionID(gs.ID) {
		t.Fatalf("expected a uuid game ID, got %q", gs.ID)
	}
	if !gs.State.Equal(domain.New()) {
		t.Fatalf("expected initial position")
	}
	if gs.Created.IsZero() || gs.Updated.IsZero() {
		t.Fatalf("expected timestamps to be set")
	}
	got, ok := s.Get(gs.ID)
	if !ok || got.ID != gs.ID {
		t.Fatalf("Get should find created game")
	}
	if _, ok := s.Get("not-a-uuid"); ok {
		t.Fatalf("Get should reject malformed ids")
	}
}

func TestMaxSessions(t *testing.T) {
	s := NewService(WithMaxSessions(2))
	for i := 0; i < 2; i++ {
		if _, err := s.CreateGame(); err != nil {
			t.Fatalf("CreateGame %d: %v", i, err)
		}
	}
	if _, err := s.CreateGame(); !errors.Is(err, ErrTooManySessions) {
		t.Fatalf("expected ErrTooManySessions, got %v", err)
	}
}

func TestPlayAndUndo(t *testing.T) {
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewService(WithClock(func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}))
	gs, _ := s.CreateGame()

	st, err := s.Play(gs.ID, domain.Five)
	if err != nil {
		t.Fatalf("play failed: %v", err)
	}
	if st.State.X() != domain.Five.Bitboard() || st.State.Turn() != domain.OToMove {
		t.Fatalf("unexpected state after X move: x=%s turn=%v", st.State.X(), st.State.Turn())
	}
	if !st.Updated.After(gs.Updated) {
		t.Fatalf("expected Updated to advance")
	}

	// Earlier snapshot is untouched.
	if gs.State.MoveCount() != 0 {
		t.Fatalf("snapshot from CreateGame changed")
	}

	if _, err := s.Play(gs.ID, domain.Five); !errors.Is(err, domain.ErrIllegalMove) {
		t.Fatalf("expected ErrIllegalMove, got %v", err)
	}
	latest, _ := s.Get(gs.ID)
	if latest.State.MoveCount() != 1 {
		t.Fatalf("illegal move changed the session: %v", latest.State.History())
	}

	moves, err := s.LegalMoves(gs.ID)
	if err != nil || len(moves) != 8 || moves[0] != domain.Nine {
		t.Fatalf("unexpected legal moves %v, err=%v", moves, err)
	}

	st, err = s.Undo(gs.ID)
	if err != nil {
		t.Fatalf("undo failed: %v", err)
	}
	if !st.State.Equal(domain.New()) {
		t.Fatalf("expected initial position after undo")
	}
	st, err = s.Undo(gs.ID)
	if err != nil || !st.State.Equal(domain.New()) {
		t.Fatalf("undo on empty history should be a no-op, err=%v", err)
	}
}

func TestUnknownGame(t *testing.T) {
	s := NewService()
	id := newSessionID()
	if _, err := s.Play(id, domain.One); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound from Play, got %v", err)
	}
	if _, err := s.Undo(id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound from Undo, got %v", err)
	}
	if _, err := s.LegalMoves(id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound from LegalMoves, got %v", err)
	}
	if err := s.Delete(id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound from Delete, got %v", err)
	}
	if _, _, err := s.Subscribe(context.Background(), id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound from Subscribe, got %v", err)
	}
}

func TestListAndDelete(t *testing.T) {
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewService(WithClock(func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}))
	a, _ := s.CreateGame()
	b, _ := s.CreateGame()

	list := s.List()
	if len(list) != 2 || list[0].ID != a.ID || list[1].ID != b.ID {
		t.Fatalf("expected [a b] oldest first, got %v", list)
	}
	if err := s.Delete(a.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, ok := s.Get(a.ID); ok {
		t.Fatalf("deleted game still present")
	}
	if len(s.List()) != 1 {
		t.Fatalf("expected one game left")
	}
}

func TestSubscribeAndBroadcast(t *testing.T) {
	s := NewService()
	gs, _ := s.CreateGame()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*2)
	defer cancel()
	ch, unsub, err := s.Subscribe(ctx, gs.ID)
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	defer unsub()

	if _, err := s.Play(gs.ID, domain.One); err != nil {
		t.Fatalf("play failed: %v", err)
	}

	select {
	case got, ok := <-ch:
		if !ok {
			t.Fatalf("channel closed unexpectedly")
		}
		if got.State.MoveCount() != 1 || got.ID != gs.ID {
			t.Fatalf("unexpected broadcast: id=%s history=%v", got.ID, got.State.History())
		}
	case <-ctx.Done():
		t.Fatalf("timed out waiting for broadcast")
	}
}

func TestDropSlowSubscriber(t *testing.T) {
	s := NewService()
	gs, _ := s.CreateGame()

	// Slow subscriber: never read
	slowCh, _, _ := s.Subscribe(context.Background(), gs.ID)

	// Two quick updates overflow the buffer of one.
	if _, err := s.Play(gs.ID, domain.One); err != nil {
		t.Fatalf("play1: %v", err)
	}
	if _, err := s.Play(gs.ID, domain.Two); err != nil {
		t.Fatalf("play2: %v", err)
	}

	// The first snapshot is still buffered, then the channel is closed.
	if first, ok := <-slowCh; !ok || first.State.MoveCount() != 1 {
		t.Fatalf("expected buffered first update")
	}
	select {
	case _, ok := <-slowCh:
		if ok {
			t.Fatalf("expected slow subscriber to be closed")
		}
	case <-time.After(time.Second):
		t.Fatalf("slow subscriber was not dropped")
	}
}

func TestDeleteClosesSubscribers(t *testing.T) {
	s := NewService()
	gs, _ := s.CreateGame()
	ch, _, _ := s.Subscribe(context.Background(), gs.ID)
	if err := s.Delete(gs.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatalf("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatalf("subscriber not closed on delete")
	}
}

// waitGoroutines polls until at most want goroutines are running.
func waitGoroutines(t *testing.T, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		n := runtime.NumGoroutine()
		if n <= want {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected at most %d goroutines, have %d", want, n)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSubscriptionsReleaseGoroutines(t *testing.T) {
	s := NewService()
	before := runtime.NumGoroutine()

	kept, _ := s.CreateGame()
	var unsubs []func()
	for i := 0; i < 50; i++ {
		_, unsub, err := s.Subscribe(context.Background(), kept.ID)
		if err != nil {
			t.Fatalf("subscribe: %v", err)
		}
		unsubs = append(unsubs, unsub)
	}
	for _, unsub := range unsubs {
		unsub()
		unsub()
	}
	waitGoroutines(t, before)

	deleted, _ := s.CreateGame()
	for i := 0; i < 50; i++ {
		if _, _, err := s.Subscribe(context.Background(), deleted.ID); err != nil {
			t.Fatalf("subscribe: %v", err)
		}
	}
	if err := s.Delete(deleted.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	waitGoroutines(t, before)

	if n := len(s.watchers[kept.ID]); n != 0 {
		t.Fatalf("expected no watchers left, got %d", n)
	}
}

func TestAnalyzeCachesByPosition(t *testing.T) {
	s := NewService()
	gs, _ := s.CreateGame()
	for _, m := range []domain.Move{domain.One, domain.Two, domain.Three, domain.Five, domain.Four, domain.Six, domain.Eight} {
		if _, err := s.Play(gs.ID, m); err != nil {
			t.Fatalf("play %v: %v", m, err)
		}
	}
	out, err := s.Analyze(context.Background(), gs.ID)
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	if out != (domain.Outcomes{XWins: 1, Draws: 1}) {
		t.Fatalf("unexpected outcomes %+v", out)
	}
	if len(s.analyses) != 1 {
		t.Fatalf("expected one cached analysis, got %d", len(s.analyses))
	}

	// Cached results survive even a cancelled context.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	again, err := s.Analyze(ctx, gs.ID)
	if err != nil || again != out {
		t.Fatalf("expected cached result, got %+v, err=%v", again, err)
	}
}
