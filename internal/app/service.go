package app

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jaminalder/bitboard-tic-tac-toe/internal/domain"
)

// Errors exposed by the service layer.
var (
	ErrNotFound        = errors.New("game not found")
	ErrTooManySessions = errors.New("too many sessions")
)

// Session is one game held by the service.
type Session struct {
	ID      string
	State   domain.GameState
	Created time.Time
	Updated time.Time
}

// watcher receives snapshots of one game. done is closed together with ch.
type watcher struct {
	mu     sync.Mutex
	ch     chan Session
	done   chan struct{}
	closed bool
}

func newWatcher() *watcher {
	return &watcher{ch: make(chan Session, 1), done: make(chan struct{})}
}

// offer reports false when the buffer is full.
func (w *watcher) offer(snap Session) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return true
	}
	select {
	case w.ch <- snap:
		return true
	default:
		return false
	}
}

func (w *watcher) stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.closed {
		w.closed = true
		close(w.ch)
		close(w.done)
	}
}

type positionKey struct {
	x, o   domain.Bitboard
	status domain.Status
	turn   domain.Turn
}

func keyOf(g domain.GameState) positionKey {
	return positionKey{x: g.X(), o: g.O(), status: g.Status(), turn: g.Turn()}
}

// Service keeps one immutable GameState per session and swaps it on every
// transition, so snapshots handed out earlier stay valid.
type Service struct {
	mu          sync.Mutex
	games       map[string]*Session
	watchers    map[string]map[*watcher]struct{}
	analyses    map[positionKey]domain.Outcomes
	log         zerolog.Logger
	maxSessions int
	now         func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger used for session events.
func WithLogger(l zerolog.Logger) Option { return func(s *Service) { s.log = l } }

// WithMaxSessions caps the number of live sessions; zero means no cap.
func WithMaxSessions(n int) Option { return func(s *Service) { s.maxSessions = n } }

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates an empty service.
func NewService(opts ...Option) *Service {
	s := &Service{
		games:    make(map[string]*Session),
		watchers: make(map[string]map[*watcher]struct{}),
		analyses: make(map[positionKey]domain.Outcomes),
		log:      zerolog.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateGame registers a new game at the initial position.
func (s *Service) CreateGame() (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.maxSessions > 0 && len(s.games) >= s.maxSessions {
		return nil, ErrTooManySessions
	}
	now := s.now()
	gs := &Session{ID: newSessionID(), State: domain.New(), Created: now, Updated: now}
	s.games[gs.ID] = gs
	s.log.Info().Str("game", gs.ID).Int("sessions", len(s.games)).Msg("game created")
	cp := *gs
	return &cp, nil
}

// Get returns a copy of the session if present.
func (s *Service) Get(id string) (*Session, bool) {
	if !validSessionID(id) {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	gs, ok := s.games[id]
	if !ok {
		return nil, false
	}
	cp := *gs
	return &cp, true
}

// List returns copies of all sessions, oldest first.
func (s *Service) List() []Session {
	s.mu.Lock()
	out := make([]Session, 0, len(s.games))
	for _, gs := range s.games {
		out = append(out, *gs)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Created.Equal(out[j].Created) {
			return out[i].ID < out[j].ID
		}
		return out[i].Created.Before(out[j].Created)
	})
	return out
}

// Delete removes a session and closes its watchers.
func (s *Service) Delete(id string) error {
	s.mu.Lock()
	if _, ok := s.games[id]; !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	delete(s.games, id)
	ws := s.watchers[id]
	delete(s.watchers, id)
	s.mu.Unlock()

	for w := range ws {
		w.stop()
	}
	s.log.Info().Str("game", id).Msg("game deleted")
	return nil
}

// LegalMoves returns the legal moves of the session's position.
func (s *Service) LegalMoves(id string) ([]domain.Move, error) {
	gs, ok := s.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return gs.State.AllLegalMoves(), nil
}

// Play applies m for the side to move. Illegal moves return the domain's
// ErrIllegalMove and leave the session unchanged.
func (s *Service) Play(id string, m domain.Move) (*Session, error) {
	return s.transition(id, "play", func(g domain.GameState) (domain.GameState, error) {
		return g.TryMakeMove(m)
	})
}

// Undo takes back the last move; with no history it is a no-op.
func (s *Service) Undo(id string) (*Session, error) {
	return s.transition(id, "undo", func(g domain.GameState) (domain.GameState, error) {
		return g.UnmakeMove(), nil
	})
}

func (s *Service) transition(id, op string, apply func(domain.GameState) (domain.GameState, error)) (*Session, error) {
	s.mu.Lock()
	gs, ok := s.games[id]
	if !ok {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	next, err := apply(gs.State)
	if err != nil {
		s.mu.Unlock()
		s.log.Debug().Str("game", id).Str("op", op).Err(err).Msg("transition rejected")
		return nil, err
	}
	updated := *gs
	updated.State = next
	updated.Updated = s.now()
	s.games[id] = &updated
	ws := make([]*watcher, 0, len(s.watchers[id]))
	for w := range s.watchers[id] {
		ws = append(ws, w)
	}
	s.mu.Unlock()

	s.log.Debug().
		Str("game", id).
		Str("op", op).
		Str("history", domain.FormatMoves(next.History())).
		Stringer("status", next.Status()).
		Msg("transition applied")

	s.notify(id, updated, ws)
	return &updated, nil
}

// notify hands snap to every watcher. A watcher that still holds the previous
// snapshot is stopped and forgotten.
func (s *Service) notify(id string, snap Session, ws []*watcher) {
	var lagging []*watcher
	for _, w := range ws {
		if !w.offer(snap) {
			w.stop()
			lagging = append(lagging, w)
		}
	}
	if len(lagging) == 0 {
		return
	}
	s.mu.Lock()
	for _, w := range lagging {
		delete(s.watchers[id], w)
	}
	s.mu.Unlock()
	s.log.Warn().Str("game", id).Int("dropped", len(lagging)).Msg("watchers fell behind")
}

// Subscribe delivers a snapshot after every transition of game id until ctx
// ends, the returned func is called or the game is deleted; the channel is
// then closed. A watcher that falls behind is dropped the same way.
func (s *Service) Subscribe(ctx context.Context, id string) (<-chan Session, func(), error) {
	s.mu.Lock()
	if _, ok := s.games[id]; !ok {
		s.mu.Unlock()
		return nil, nil, ErrNotFound
	}
	if s.watchers[id] == nil {
		s.watchers[id] = make(map[*watcher]struct{})
	}
	w := newWatcher()
	s.watchers[id][w] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		delete(s.watchers[id], w)
		s.mu.Unlock()
		w.stop()
	}
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-w.done:
		}
	}()
	return w.ch, cancel, nil
}

// Analyze counts how every game continuing from the session's position ends.
// Results are cached per position.
func (s *Service) Analyze(ctx context.Context, id string) (domain.Outcomes, error) {
	gs, ok := s.Get(id)
	if !ok {
		return domain.Outcomes{}, ErrNotFound
	}
	return s.AnalyzePosition(ctx, gs.State)
}

// AnalyzePosition is Analyze for a position outside any session.
func (s *Service) AnalyzePosition(ctx context.Context, g domain.GameState) (domain.Outcomes, error) {
	key := keyOf(g)
	s.mu.Lock()
	out, ok := s.analyses[key]
	s.mu.Unlock()
	if ok {
		return out, nil
	}

	start := s.now()
	out, err := domain.Enumerate(ctx, g)
	if err != nil {
		return domain.Outcomes{}, err
	}
	s.mu.Lock()
	s.analyses[key] = out
	s.mu.Unlock()
	s.log.Debug().
		Str("x", g.X().String()).
		Str("o", g.O().String()).
		Uint64("games", out.Games()).
		Dur("took", s.now().Sub(start)).
		Msg("position analysed")
	return out, nil
}
