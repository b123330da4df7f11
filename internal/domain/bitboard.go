package domain

import (
	"fmt"
	"math/bits"
)

// Bitboard is a set of board cells, one bit per cell. Cell One is the most
// significant of the nine usable bits and cell Nine the least significant.
type Bitboard uint16

const (
	// NoCells is the empty board.
	NoCells Bitboard = 0
	// FullBoard has all nine cells set.
	FullBoard Bitboard = 0b111111111
)

// WinPatterns are the eight three-in-a-row shapes.
var WinPatterns = [8]Bitboard{
	// rows
	0b111000000, 0b000111000, 0b000000111,
	// cols
	0b100100100, 0b010010010, 0b001001001,
	// diags
	0b100010001, 0b001010100,
}

// Has reports whether the cell of m is set.
func (b Bitboard) Has(m Move) bool {
	return m.Valid() && b&m.Bitboard() != 0
}

// Count returns the number of set cells.
func (b Bitboard) Count() int {
	return bits.OnesCount16(uint16(b & FullBoard))
}

// IsWin reports whether b contains any of the win patterns.
func (b Bitboard) IsWin() bool {
	for _, p := range WinPatterns {
		if b&p == p {
			return true
		}
	}
	return false
}

// IsFull reports whether every cell is set.
func (b Bitboard) IsFull() bool {
	return b == FullBoard
}

// String renders the nine cells as binary digits, cell One first.
func (b Bitboard) String() string {
	return fmt.Sprintf("%09b", uint16(b))
}
