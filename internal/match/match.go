// Package match drives one iterated Prisoner's Dilemma contest between two
// strategies.
//
// Moves are updated sequentially, not simultaneously: after a round is
// scored, player A answers B's last move, and then B answers A's move from
// this same update. B therefore reacts to A one step earlier than A reacts
// to B. Tournament results depend on this ordering, so it is kept as is.
package match

import (
	"errors"
	"fmt"

	"github.com/MJE43/pd-arena/internal/move"
	"github.com/MJE43/pd-arena/internal/payoff"
	"github.com/MJE43/pd-arena/internal/strategy"
)

var (
	ErrNegativeRounds = errors.New("match: rounds must not be negative")
	ErrNilPlayer      = errors.New("match: player is nil")
	ErrBadState       = errors.New("match: invalid state transition")
)

// Player is the part of a strategy handle the engine uses.
type Player interface {
	Identity() strategy.Identity
	InitialMove() move.Move
	NextMove(opponentLast move.Move) (move.Move, error)
}

// State is the engine's lifecycle position.
type State int

const (
	NotStarted State = iota
	InProgress
	Finished
	// Aborted is terminal: a player failed and the scores are frozen.
	Aborted
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case InProgress:
		return "in_progress"
	case Finished:
		return "finished"
	case Aborted:
		return "aborted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Result is the pair of cumulative scores.
type Result struct {
	ScoreA int `json:"score_a"`
	ScoreB int `json:"score_b"`
	Rounds int `json:"rounds"` // rounds actually scored
}

// AbortError reports the player that stopped a match. Result holds the
// scores as they stood when the failure happened.
type AbortError struct {
	Round    int
	Player   int
	Artifact strategy.Identity
	Result   Result
	Err      error
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("match: aborted in round %d by player %d (%s): %v", e.Round, e.Player, e.Artifact.Name, e.Err)
}

func (e *AbortError) Unwrap() error { return e.Err }

// Option customises a Match.
type Option func(*Match)

// WithTable scores rounds with t instead of payoff.Standard.
func WithTable(t payoff.Table) Option {
	return func(m *Match) { m.table = t }
}

// Match is a single contest. It is not safe for concurrent use.
type Match struct {
	a, b      Player
	table     payoff.Table
	rounds    int
	remaining int
	state     State

	moveA, moveB move.Move
	result       Result
	err          error
}

// New prepares a match of the given number of rounds.
func New(a, b Player, rounds int, opts ...Option) (*Match, error) {
	if a == nil || b == nil {
		return nil, ErrNilPlayer
	}
	if rounds < 0 {
		return nil, ErrNegativeRounds
	}
	m := &Match{a: a, b: b, rounds: rounds, table: payoff.Standard}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

func (m *Match) State() State   { return m.state }
func (m *Match) Remaining() int { return m.remaining }
func (m *Match) Result() Result { return m.result }
func (m *Match) Err() error     { return m.err }

// Start reads both initial moves. Round 1 is scored on this pair.
func (m *Match) Start() error {
	if m.state != NotStarted {
		return fmt.Errorf("%w: start from %s", ErrBadState, m.state)
	}
	m.moveA = m.a.InitialMove()
	m.moveB = m.b.InitialMove()
	m.remaining = m.rounds
	m.state = InProgress
	if m.remaining == 0 {
		m.state = Finished
	}
	return nil
}

// Step scores the current move pair, then asks A and B for their next moves
// in that order.
func (m *Match) Step() error {
	if m.state != InProgress {
		return fmt.Errorf("%w: step from %s", ErrBadState, m.state)
	}
	round := m.rounds - m.remaining + 1

	da, db := m.table.Score(m.moveA, m.moveB)
	m.result.ScoreA += da
	m.result.ScoreB += db
	m.result.Rounds++

	next, err := m.a.NextMove(m.moveB)
	if err != nil {
		return m.abort(round, 1, m.a, err)
	}
	m.moveA = next

	next, err = m.b.NextMove(m.moveA)
	if err != nil {
		return m.abort(round, 2, m.b, err)
	}
	m.moveB = next

	m.remaining--
	if m.remaining == 0 {
		m.state = Finished
	}
	return nil
}

func (m *Match) abort(round, player int, p Player, err error) error {
	m.state = Aborted
	m.err = &AbortError{
		Round:    round,
		Player:   player,
		Artifact: p.Identity(),
		Result:   m.result,
		Err:      err,
	}
	return m.err
}

// Run plays a full match and returns the final scores. On failure the
// returned Result is the frozen partial score and err is an *AbortError.
func Run(a, b Player, rounds int, opts ...Option) (Result, error) {
	m, err := New(a, b, rounds, opts...)
	if err != nil {
		return Result{}, err
	}
	if err := m.Start(); err != nil {
		return Result{}, err
	}
	for m.State() == InProgress {
		if err := m.Step(); err != nil {
			return m.Result(), err
		}
	}
	return m.Result(), nil
}
