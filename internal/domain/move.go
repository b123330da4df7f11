package domain

import (
	"fmt"
	"math/bits"
	"strconv"
	"strings"
)

// Move names a board cell, numbered One..Nine in reading order.
type Move uint8

const (
	NoMove Move = iota
	One
	Two
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
)

// Cells is the number of board cells.
const Cells = 9

var moveBits = [Cells + 1]Bitboard{
	NoMove: 0,
	One:    0b100000000,
	Two:    0b010000000,
	Three:  0b001000000,
	Four:   0b000100000,
	Five:   0b000010000,
	Six:    0b000001000,
	Seven:  0b000000100,
	Eight:  0b000000010,
	Nine:   0b000000001,
}

// bitMoves is indexed by trailing-zero count: bit 0 is Nine, bit 8 is One.
var bitMoves = [Cells]Move{Nine, Eight, Seven, Six, Five, Four, Three, Two, One}

var moveNames = [Cells + 1]string{
	"None", "One", "Two", "Three", "Four", "Five", "Six", "Seven", "Eight", "Nine",
}

// Valid reports whether m is one of the nine cells.
func (m Move) Valid() bool {
	return m >= One && m <= Nine
}

// Bitboard returns the single-bit board for m, or zero for an invalid move.
func (m Move) Bitboard() Bitboard {
	if !m.Valid() {
		return 0
	}
	return moveBits[m]
}

// Index returns the zero-based cell index (One is 0).
func (m Move) Index() int { return int(m) - 1 }

func (m Move) String() string {
	if int(m) < len(moveNames) {
		return moveNames[m]
	}
	return "Move(" + strconv.Itoa(int(m)) + ")"
}

// MoveFromBitboard maps a board with exactly one usable bit set back to its move.
func MoveFromBitboard(b Bitboard) (Move, bool) {
	if b == 0 || b&^FullBoard != 0 || b&(b-1) != 0 {
		return NoMove, false
	}
	return bitMoves[bits.TrailingZeros16(uint16(b))], true
}

// ParseMove accepts a cell name ("five", "Five") or its digit ("5").
func ParseMove(s string) (Move, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if m := Move(n); n >= 1 && n <= Cells && m.Valid() {
			return m, nil
		}
		return NoMove, fmt.Errorf("%w: %q", ErrUnknownMove, s)
	}
	for m := One; m <= Nine; m++ {
		if strings.EqualFold(s, moveNames[m]) {
			return m, nil
		}
	}
	return NoMove, fmt.Errorf("%w: %q", ErrUnknownMove, s)
}
