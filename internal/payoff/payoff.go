// Package payoff holds the Prisoner's Dilemma payoff table.
package payoff

import (
	"fmt"

	"github.com/MJE43/pd-arena/internal/move"
)

// Entry is one cell of the table: the score deltas for an ordered move pair.
type Entry struct {
	A, B   move.Move
	ScoreA int
	ScoreB int
}

// Table maps every ordered move pair to a score pair.
type Table [2][2][2]int

// Standard is the canonical table: mutual cooperation 3/3, mutual defection
// 1/1, and a lone defector takes 5 while the cooperator gets 0.
var Standard = Table{
	move.Cooperate: {
		move.Cooperate: {3, 3},
		move.Defect:    {0, 5},
	},
	move.Defect: {
		move.Cooperate: {5, 0},
		move.Defect:    {1, 1},
	},
}

// Score returns the deltas for player A playing a and player B playing b.
// Both moves must be valid; Score panics otherwise.
func (t Table) Score(a, b move.Move) (int, int) {
	if !a.Valid() || !b.Valid() {
		panic(fmt.Sprintf("payoff: score of undefined move pair (%d, %d)", uint8(a), uint8(b)))
	}
	cell := t[a][b]
	return cell[0], cell[1]
}

// Entries lists the four cells in (A, B) order.
func (t Table) Entries() []Entry {
	out := make([]Entry, 0, 4)
	for _, a := range move.All() {
		for _, b := range move.All() {
			sa, sb := t.Score(a, b)
			out = append(out, Entry{A: a, B: b, ScoreA: sa, ScoreB: sb})
		}
	}
	return out
}

// Score applies the Standard table.
func Score(a, b move.Move) (int, int) {
	return Standard.Score(a, b)
}
