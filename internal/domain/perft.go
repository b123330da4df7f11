package domain

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Perft counts the positions reached after exactly depth moves. Finished
// games stop the count early and contribute nothing at deeper levels.
func Perft(g GameState, depth int) uint64 {
	if depth <= 0 {
		return 1
	}
	moves := g.AllLegalMoves()
	if depth == 1 {
		return uint64(len(moves))
	}
	var n uint64
	for _, m := range moves {
		n += Perft(g.MakeMove(m), depth-1)
	}
	return n
}

// Outcomes tallies finished games by result.
type Outcomes struct {
	XWins uint64 `json:"x_wins"`
	OWins uint64 `json:"o_wins"`
	Draws uint64 `json:"draws"`
}

// Games is the total number of finished games.
func (o Outcomes) Games() uint64 { return o.XWins + o.OWins + o.Draws }

func (o *Outcomes) add(other Outcomes) {
	o.XWins += other.XWins
	o.OWins += other.OWins
	o.Draws += other.Draws
}

func (o *Outcomes) record(s Status) bool {
	switch s {
	case XWins:
		o.XWins++
	case OWins:
		o.OWins++
	case Draw:
		o.Draws++
	default:
		return false
	}
	return true
}

// Enumerate plays out every game reachable from g and counts how each one
// ends. Root moves are walked concurrently.
func Enumerate(ctx context.Context, g GameState) (Outcomes, error) {
	var total Outcomes
	if total.record(g.status) {
		return total, nil
	}

	moves := g.AllLegalMoves()
	partial := make([]Outcomes, len(moves))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for i, m := range moves {
		i := i
		child := g.MakeMove(m)
		eg.Go(func() error {
			return walk(ctx, child, &partial[i], 1)
		})
	}
	if err := eg.Wait(); err != nil {
		return Outcomes{}, err
	}

	for _, p := range partial {
		total.add(p)
	}
	return total, nil
}

func walk(ctx context.Context, g GameState, out *Outcomes, ply int) error {
	// Subtrees below ply 3 are small enough to finish without checking.
	if ply < 3 {
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	if out.record(g.status) {
		return nil
	}
	for _, m := range g.AllLegalMoves() {
		if err := walk(ctx, g.MakeMove(m), out, ply+1); err != nil {
			return err
		}
	}
	return nil
}
