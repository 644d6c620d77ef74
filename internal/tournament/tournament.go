// Package tournament plays every pair of strategies against each other once
// and ranks them by total score.
package tournament

import (
	"context"
	"fmt"
	"io"
	"log"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/MJE43/pd-arena/internal/match"
	"github.com/MJE43/pd-arena/internal/payoff"
	"github.com/MJE43/pd-arena/internal/strategy"
)

const tracerName = "github.com/MJE43/pd-arena/internal/tournament"

// Loader opens strategy handles. *strategy.Loader satisfies it.
type Loader interface {
	Load(path string) (strategy.Handle, error)
}

// Pairing is the outcome of one match. Err is set when the match could not
// be played to completion; Result then holds the scores frozen at that point.
type Pairing struct {
	A      string       `json:"a"`
	B      string       `json:"b"`
	Result match.Result `json:"result"`
	Err    string       `json:"error,omitempty"`
}

// Failed reports whether the pairing ended without a full result.
func (p Pairing) Failed() bool { return p.Err != "" }

// Standing aggregates one strategy's completed matches.
type Standing struct {
	Name   string          `json:"name"`
	Path   string          `json:"path"`
	Total  int             `json:"total"`
	Played int             `json:"played"`
	Failed int             `json:"failed"`
	Mean   decimal.Decimal `json:"mean"`
}

// Report is the full tournament outcome.
type Report struct {
	Rounds    int        `json:"rounds"`
	Pairings  []Pairing  `json:"pairings"`
	Standings []Standing `json:"standings"`
	Duration  string     `json:"duration"`
}

// Runner plays round-robin tournaments.
type Runner struct {
	loader Loader
	table  payoff.Table
	logger *log.Logger
	tracer trace.Tracer
}

// NewRunner creates a runner using the standard payoff table.
func NewRunner(loader Loader, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Runner{
		loader: loader,
		table:  payoff.Standard,
		logger: logger,
		tracer: otel.Tracer(tracerName),
	}
}

// WithTable returns a copy of r scoring with t.
func (r *Runner) WithTable(t payoff.Table) *Runner {
	cp := *r
	cp.table = t
	return &cp
}

// WithTracerProvider returns a copy of r that records spans with tp instead
// of the global provider.
func (r *Runner) WithTracerProvider(tp trace.TracerProvider) *Runner {
	cp := *r
	cp.tracer = tp.Tracer(tracerName)
	return &cp
}

// Run plays each pair (i, j) with i < j once, loading fresh handles for
// every match. A failed pairing is recorded and the tournament moves on. Run
// stops early only when ctx is done, returning the partial report.
func (r *Runner) Run(ctx context.Context, paths []string, rounds int) (*Report, error) {
	if rounds < 0 {
		return nil, match.ErrNegativeRounds
	}
	ctx, span := r.tracer.Start(ctx, "tournament.run", trace.WithAttributes(
		attribute.Int("pdarena.strategies", len(paths)),
		attribute.Int("pdarena.rounds", rounds),
	))
	defer span.End()

	start := time.Now()
	report := &Report{Rounds: rounds}

	standings := make([]Standing, len(paths))
	for i, p := range paths {
		standings[i] = Standing{Name: strategy.NameOf(p), Path: p}
	}

	r.logger.Printf("tournament_started strategies=%d rounds=%d", len(paths), rounds)
	for i := 0; i < len(paths); i++ {
		for j := i + 1; j < len(paths); j++ {
			if err := ctx.Err(); err != nil {
				report.Standings = rank(standings)
				report.Duration = time.Since(start).String()
				span.RecordError(err)
				span.SetStatus(codes.Error, "tournament cut short")
				return report, fmt.Errorf("tournament: %w", err)
			}

			pairing := r.playPair(ctx, paths[i], paths[j], rounds)
			report.Pairings = append(report.Pairings, pairing)

			if pairing.Failed() {
				standings[i].Failed++
				standings[j].Failed++
				continue
			}
			standings[i].Total += pairing.Result.ScoreA
			standings[i].Played++
			standings[j].Total += pairing.Result.ScoreB
			standings[j].Played++
		}
	}

	report.Standings = rank(standings)
	report.Duration = time.Since(start).String()
	span.SetAttributes(attribute.Int("pdarena.pairings", len(report.Pairings)))
	r.logger.Printf("tournament_completed pairings=%d duration=%s", len(report.Pairings), report.Duration)
	return report, nil
}

func (r *Runner) playPair(ctx context.Context, pathA, pathB string, rounds int) Pairing {
	nameA, nameB := strategy.NameOf(pathA), strategy.NameOf(pathB)
	_, span := r.tracer.Start(ctx, "tournament.match", trace.WithAttributes(
		attribute.String("pdarena.strategy_a", nameA),
		attribute.String("pdarena.strategy_b", nameB),
		attribute.Int("pdarena.rounds", rounds),
	))
	defer span.End()

	pairing := Pairing{A: nameA, B: nameB}
	fail := func(err error) Pairing {
		pairing.Err = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, "match failed")
		r.logger.Printf("match_failed a=%s b=%s error=%q", nameA, nameB, err)
		return pairing
	}

	a, err := r.loader.Load(pathA)
	if err != nil {
		return fail(err)
	}
	defer a.Close()
	b, err := r.loader.Load(pathB)
	if err != nil {
		return fail(err)
	}
	defer b.Close()

	res, err := match.Run(a, b, rounds, match.WithTable(r.table))
	pairing.Result = res
	if err != nil {
		return fail(err)
	}

	span.SetAttributes(
		attribute.Int("pdarena.score_a", res.ScoreA),
		attribute.Int("pdarena.score_b", res.ScoreB),
	)
	r.logger.Printf("match_completed a=%s b=%s score_a=%d score_b=%d", nameA, nameB, res.ScoreA, res.ScoreB)
	return pairing
}

// rank fills in means and orders standings by total, highest first, then
// by name and path.
func rank(standings []Standing) []Standing {
	out := make([]Standing, len(standings))
	copy(out, standings)
	for i := range out {
		if out[i].Played > 0 {
			out[i].Mean = decimal.NewFromInt(int64(out[i].Total)).
				Div(decimal.NewFromInt(int64(out[i].Played))).
				Round(2)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Path < out[j].Path
	})
	return out
}
