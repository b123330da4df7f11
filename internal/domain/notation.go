package domain

import (
	"strconv"
	"strings"
	"unicode"
)

// ParseMoves reads a move list such as "1-5-9", "1,5,9" or "one five nine".
// An empty string is an empty list.
func ParseMoves(s string) ([]Move, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == '-' || unicode.IsSpace(r)
	})
	moves := make([]Move, 0, len(fields))
	for _, f := range fields {
		m, err := ParseMove(f)
		if err != nil {
			return nil, err
		}
		moves = append(moves, m)
	}
	return moves, nil
}

// FormatMoves writes moves as digits joined by dashes, the inverse of ParseMoves.
func FormatMoves(moves []Move) string {
	parts := make([]string, len(moves))
	for i, m := range moves {
		parts[i] = strconv.Itoa(int(m))
	}
	return strings.Join(parts, "-")
}
