// Command tttengine inspects Tic-Tac-Toe positions and serves the engine over HTTP.
//
// Positions are given as a move list from the empty board, cells numbered
// 1..9 in reading order:
//
//	tttengine moves --moves 1-5-9
//	tttengine show --moves 1-5-9 --color
//	tttengine perft --depth 9 --full
//	tttengine serve
package main

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "tttengine"
)

func main() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	if err := newApp(os.Stdout).Run(context.Background(), os.Args); err != nil {
		log.Fatal().Err(err).Msg(AppName + " failed")
	}
}
