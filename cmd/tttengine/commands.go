package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/muesli/termenv"
	"github.com/urfave/cli/v3"

	"github.com/jaminalder/bitboard-tic-tac-toe/internal/app"
	"github.com/jaminalder/bitboard-tic-tac-toe/internal/config"
	"github.com/jaminalder/bitboard-tic-tac-toe/internal/domain"
	"github.com/jaminalder/bitboard-tic-tac-toe/internal/web"
)

func movesFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "moves",
		Aliases: []string{"m"},
		Usage:   "moves from the empty board, e.g. 1-5-9",
	}
}

func newApp(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:    AppName,
		Usage:   "bitboard Tic-Tac-Toe engine",
		Version: Version,
		Writer:  out,
		Commands: []*cli.Command{
			{
				Name:   "moves",
				Usage:  "list legal moves, Nine first",
				Flags:  []cli.Flag{movesFlag()},
				Action: runMoves,
			},
			{
				Name:  "show",
				Usage: "print the board, status and side to move",
				Flags: []cli.Flag{
					movesFlag(),
					&cli.BoolFlag{Name: "color", Usage: "colour X and O with ANSI escapes"},
				},
				Action: runShow,
			},
			{
				Name:  "perft",
				Usage: "count positions per depth, optionally tallying every finished game",
				Flags: []cli.Flag{
					movesFlag(),
					&cli.IntFlag{Name: "depth", Aliases: []string{"d"}, Value: 9, Usage: "maximum depth"},
					&cli.BoolFlag{Name: "full", Usage: "also count wins and draws over the whole tree"},
				},
				Action: runPerft,
			},
			{
				Name:   "serve",
				Usage:  "serve the HTTP API (configured through TTT_* variables or .env)",
				Action: runServe,
			},
		},
	}
}

func position(cmd *cli.Command) (domain.GameState, error) {
	moves, err := domain.ParseMoves(cmd.String("moves"))
	if err != nil {
		return domain.GameState{}, err
	}
	return domain.Replay(moves)
}

func runMoves(ctx context.Context, cmd *cli.Command) error {
	g, err := position(cmd)
	if err != nil {
		return err
	}
	names := make([]string, 0, domain.Cells)
	for _, m := range g.AllLegalMoves() {
		names = append(names, m.String())
	}
	_, err = fmt.Fprintln(cmd.Root().Writer, strings.Join(names, " "))
	return err
}

func runShow(ctx context.Context, cmd *cli.Command) error {
	g, err := position(cmd)
	if err != nil {
		return err
	}
	profile := termenv.Ascii
	if cmd.Bool("color") {
		profile = termenv.ANSI
	}
	return renderState(cmd.Root().Writer, g, profile)
}

func runPerft(ctx context.Context, cmd *cli.Command) error {
	g, err := position(cmd)
	if err != nil {
		return err
	}
	depth := int(cmd.Int("depth"))
	if depth < 1 || depth > domain.Cells {
		return fmt.Errorf("depth must be between 1 and %d", domain.Cells)
	}
	w := cmd.Root().Writer
	for d := 1; d <= depth; d++ {
		start := time.Now()
		n := domain.Perft(g, d)
		if _, err := fmt.Fprintf(w, "depth %d  nodes %d  (%s)\n", d, n, time.Since(start).Round(time.Microsecond)); err != nil {
			return err
		}
	}
	if !cmd.Bool("full") {
		return nil
	}
	out, err := domain.Enumerate(ctx, g)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "games %d  x_wins %d  o_wins %d  draws %d\n", out.Games(), out.XWins, out.OWins, out.Draws)
	return err
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := cfg.Logger(os.Stderr)

	svc := app.NewService(app.WithLogger(logger), app.WithMaxSessions(cfg.MaxSessions))
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      web.NewServer(svc, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return err
	}
	logger.Info().Str("addr", ln.Addr().String()).Str("version", Version).Msg("listening")

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
