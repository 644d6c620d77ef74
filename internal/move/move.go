// Package move defines the two-symbol Prisoner's Dilemma move and the codec
// every strategy runtime goes through at its boundary.
package move

import (
	"errors"
	"fmt"
)

// Move is a single Prisoner's Dilemma decision.
type Move uint8

const (
	Cooperate Move = iota
	Defect
)

// Wire codes shared by every runtime.
const (
	CooperateCode = "c"
	DefectCode    = "d"
)

// ErrInvalidMove matches any *InvalidMoveError via errors.Is.
var ErrInvalidMove = errors.New("invalid move")

// InvalidMoveError reports a raw value outside {"c", "d"}.
type InvalidMoveError struct {
	Raw string
}

func (e *InvalidMoveError) Error() string {
	return fmt.Sprintf("move: invalid move %q (want %q or %q)", e.Raw, CooperateCode, DefectCode)
}

func (e *InvalidMoveError) Is(target error) bool {
	return target == ErrInvalidMove
}

// Decode converts a wire code into a Move. Matching is exact: case-sensitive
// and without whitespace trimming, so "C" or "c\n" are rejected.
func Decode(raw string) (Move, error) {
	switch raw {
	case CooperateCode:
		return Cooperate, nil
	case DefectCode:
		return Defect, nil
	default:
		return 0, &InvalidMoveError{Raw: raw}
	}
}

// Encode returns the wire code for m. It is the inverse of Decode. Moves only
// come from Decode or the two constants; Encode panics on any other value.
func Encode(m Move) string {
	switch m {
	case Cooperate:
		return CooperateCode
	case Defect:
		return DefectCode
	default:
		panic(fmt.Sprintf("move: encode of undefined move value %d", uint8(m)))
	}
}

func (m Move) String() string {
	if !m.Valid() {
		return fmt.Sprintf("Move(%d)", uint8(m))
	}
	return Encode(m)
}

// Valid reports whether m is one of the two defined moves.
func (m Move) Valid() bool {
	return m == Cooperate || m == Defect
}

// All returns both moves in declaration order.
func All() []Move {
	return []Move{Cooperate, Defect}
}

func (m Move) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("move: cannot marshal move value %d", uint8(m))
	}
	return []byte(Encode(m)), nil
}

func (m *Move) UnmarshalText(text []byte) error {
	decoded, err := Decode(string(text))
	if err != nil {
		return err
	}
	*m = decoded
	return nil
}
