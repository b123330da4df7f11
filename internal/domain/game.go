package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Turn says whose mark is placed next.
type Turn uint8

const (
	XToMove Turn = iota
	OToMove
)

// Other returns the opposing turn.
func (t Turn) Other() Turn {
	if t == XToMove {
		return OToMove
	}
	return XToMove
}

func (t Turn) String() string {
	switch t {
	case XToMove:
		return "X"
	case OToMove:
		return "O"
	default:
		return fmt.Sprintf("Turn(%d)", uint8(t))
	}
}

// Status classifies a position. Anything other than InProgress is terminal.
type Status uint8

const (
	InProgress Status = iota
	XWins
	OWins
	Draw
)

// Terminal reports whether no further moves are legal.
func (s Status) Terminal() bool { return s != InProgress }

func (s Status) String() string {
	switch s {
	case InProgress:
		return "in_progress"
	case XWins:
		return "x_wins"
	case OWins:
		return "o_wins"
	case Draw:
		return "draw"
	default:
		return fmt.Sprintf("Status(%d)", uint8(s))
	}
}

// Mark is the content of a single cell.
type Mark uint8

const (
	Empty Mark = iota
	X
	O
)

func (m Mark) String() string {
	switch m {
	case X:
		return "X"
	case O:
		return "O"
	default:
		return "."
	}
}

// Errors returned by domain operations.
var (
	ErrIllegalMove  = errors.New("illegal move")
	ErrUnknownMove  = errors.New("unknown move")
	ErrInvalidState = errors.New("invalid game state")
)

// GameState is an immutable snapshot of a game. Every operation returns a new
// value; the receiver and any slices it handed out are never modified.
type GameState struct {
	x       Bitboard
	o       Bitboard
	status  Status
	history []Move
	turn    Turn
}

// New returns the empty position with X to move.
func New() GameState {
	return GameState{turn: XToMove, status: InProgress}
}

// Restore builds a state from its parts. Boards must stay within the nine
// cells and must not overlap; history is taken as given, so positions that
// were never reached by play can still be loaded.
func Restore(x, o Bitboard, status Status, history []Move, turn Turn) (GameState, error) {
	switch {
	case x&^FullBoard != 0 || o&^FullBoard != 0:
		return GameState{}, fmt.Errorf("%w: bits outside the board", ErrInvalidState)
	case x&o != 0:
		return GameState{}, fmt.Errorf("%w: boards overlap at %s", ErrInvalidState, x&o)
	case status > Draw:
		return GameState{}, fmt.Errorf("%w: %s", ErrInvalidState, status)
	case turn > OToMove:
		return GameState{}, fmt.Errorf("%w: %s", ErrInvalidState, turn)
	case len(history) > Cells:
		return GameState{}, fmt.Errorf("%w: %d moves in history", ErrInvalidState, len(history))
	}
	for _, m := range history {
		if !m.Valid() {
			return GameState{}, fmt.Errorf("%w: %s in history", ErrInvalidState, m)
		}
	}
	return GameState{
		x:       x,
		o:       o,
		status:  status,
		history: append([]Move(nil), history...),
		turn:    turn,
	}, nil
}

// Replay plays moves in order from the empty position.
func Replay(moves []Move) (GameState, error) {
	g := New()
	for i, m := range moves {
		next, err := g.TryMakeMove(m)
		if err != nil {
			return GameState{}, fmt.Errorf("move %d: %w", i+1, err)
		}
		g = next
	}
	return g, nil
}

func (g GameState) X() Bitboard { return g.x }
func (g GameState) O() Bitboard { return g.o }
func (g GameState) Occupied() Bitboard { return g.x | g.o }
func (g GameState) Status() Status { return g.status }
func (g GameState) Turn() Turn { return g.turn }

// History returns a copy of the moves played so far.
func (g GameState) History() []Move {
	return append([]Move(nil), g.history...)
}

// MoveCount is the length of the history.
func (g GameState) MoveCount() int { return len(g.history) }

// LastMove returns the most recent move, if any.
func (g GameState) LastMove() (Move, bool) {
	if len(g.history) == 0 {
		return NoMove, false
	}
	return g.history[len(g.history)-1], true
}

// AllLegalMoves lists the empty cells, Nine first and One last. A finished
// game has no legal moves.
func (g GameState) AllLegalMoves() []Move {
	if g.status.Terminal() {
		return []Move{}
	}
	free := FullBoard &^ (g.x | g.o)
	moves := make([]Move, 0, free.Count())
	for free != 0 {
		mv, _ := MoveFromBitboard(free & -free)
		moves = append(moves, mv)
		free &= free - 1
	}
	return moves
}

// IsLegal reports whether m may be played in g.
func (g GameState) IsLegal(m Move) bool {
	return g.checkMove(m) == nil
}

func (g GameState) checkMove(m Move) error {
	switch {
	case !m.Valid():
		return fmt.Errorf("%w: %s is not a cell", ErrIllegalMove, m)
	case g.status.Terminal():
		return fmt.Errorf("%w: %s after game ended (%s)", ErrIllegalMove, m, g.status)
	case g.Occupied().Has(m):
		return fmt.Errorf("%w: %s is occupied", ErrIllegalMove, m)
	}
	return nil
}

// TryMakeMove is MakeMove for callers that cannot guarantee legality, such
// as input arriving over the network.
func (g GameState) TryMakeMove(m Move) (GameState, error) {
	if err := g.checkMove(m); err != nil {
		return GameState{}, err
	}

	x, o := g.x, g.o
	mover := &x
	won := XWins
	if g.turn == OToMove {
		mover = &o
		won = OWins
	}
	*mover |= m.Bitboard()

	status := InProgress
	switch {
	case mover.IsWin():
		status = won
	case (x | o).IsFull():
		status = Draw
	}

	history := make([]Move, len(g.history), len(g.history)+1)
	copy(history, g.history)

	return GameState{
		x:       x,
		o:       o,
		status:  status,
		history: append(history, m),
		turn:    g.turn.Other(),
	}, nil
}

// MakeMove plays m for the side to move. Playing a move that is not in
// AllLegalMoves is a programming error and panics.
func (g GameState) MakeMove(m Move) GameState {
	next, err := g.TryMakeMove(m)
	if err != nil {
		panic(err)
	}
	return next
}

// UnmakeMove takes back the last move. The result is always InProgress, even
// when the position before the undone move was itself finished. With an empty
// history it returns an equal copy.
func (g GameState) UnmakeMove() GameState {
	last, ok := g.LastMove()
	if !ok {
		return GameState{
			x:       g.x,
			o:       g.o,
			status:  g.status,
			history: append([]Move(nil), g.history...),
			turn:    g.turn,
		}
	}

	mover := g.turn.Other()
	x, o := g.x, g.o
	if mover == XToMove {
		x &^= last.Bitboard()
	} else {
		o &^= last.Bitboard()
	}

	return GameState{
		x:       x,
		o:       o,
		status:  InProgress,
		history: append([]Move(nil), g.history[:len(g.history)-1]...),
		turn:    mover,
	}
}

// Equal compares two states by their observable fields.
func (g GameState) Equal(other GameState) bool {
	if g.x != other.x || g.o != other.o || g.status != other.status || g.turn != other.turn {
		return false
	}
	if len(g.history) != len(other.history) {
		return false
	}
	for i := range g.history {
		if g.history[i] != other.history[i] {
			return false
		}
	}
	return true
}

// Board returns the marks in cell order One..Nine.
func (g GameState) Board() [Cells]Mark {
	var b [Cells]Mark
	for m := One; m <= Nine; m++ {
		switch {
		case g.x.Has(m):
			b[m.Index()] = X
		case g.o.Has(m):
			b[m.Index()] = O
		}
	}
	return b
}

// String renders the board as three rows.
func (g GameState) String() string {
	b := g.Board()
	var sb strings.Builder
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			if c > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(b[r*3+c].String())
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
