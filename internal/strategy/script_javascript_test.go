package strategy

import (
	"errors"
	"testing"
	"time"

	"github.com/MJE43/pd-arena/internal/move"
)

const titForTatJS = `
var initial_move = "c";
function strategy(opponentMove) {
	return opponentMove;
}
`

func TestJSStrategyLoadsAndPlays(t *testing.T) {
	path := writeArtifact(t, t.TempDir(), "tft.js", titForTatJS)
	h, err := newTestLoader().Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	defer h.Close()

	if h.InitialMove() != move.Cooperate {
		t.Errorf("expected initial cooperate, got %v", h.InitialMove())
	}
	id := h.Identity()
	if id.Name != "tft" || id.Kind != KindScript {
		t.Errorf("unexpected identity %+v", id)
	}
	for _, opp := range []move.Move{move.Defect, move.Cooperate, move.Defect} {
		got, err := h.NextMove(opp)
		if err != nil {
			t.Fatalf("NextMove(%v) failed: %v", opp, err)
		}
		if got != opp {
			t.Errorf("tit-for-tat answered %v to %v", got, opp)
		}
	}
}

func TestJSMissingStrategy(t *testing.T) {
	path := writeArtifact(t, t.TempDir(), "nostrat.js", `var initial_move = "c";`)
	_, err := newTestLoader().Load(path)
	var le *AdapterLoadError
	if !errors.As(err, &le) {
		t.Fatalf("expected *AdapterLoadError, got %T: %v", err, err)
	}
	if le.Missing != "strategy function" {
		t.Errorf("Missing = %q", le.Missing)
	}
	if !le.IsMissingSymbol() {
		t.Error("expected IsMissingSymbol")
	}
}

func TestJSStrategyNotCallable(t *testing.T) {
	path := writeArtifact(t, t.TempDir(), "notfn.js", `var initial_move = "c"; var strategy = 42;`)
	_, err := newTestLoader().Load(path)
	if !errors.Is(err, ErrAdapterLoad) {
		t.Fatalf("expected adapter load error, got %v", err)
	}
}

func TestJSMissingInitialMove(t *testing.T) {
	path := writeArtifact(t, t.TempDir(), "noinit.js", `function strategy(m) { return "c"; }`)
	_, err := newTestLoader().Load(path)
	var le *AdapterLoadError
	if !errors.As(err, &le) {
		t.Fatalf("expected *AdapterLoadError, got %T: %v", err, err)
	}
	if le.Missing != "initial_move value" {
		t.Errorf("Missing = %q", le.Missing)
	}
}

func TestJSInvalidInitialMove(t *testing.T) {
	path := writeArtifact(t, t.TempDir(), "badinit.js", `var initial_move = "C"; function strategy(m) { return "c"; }`)
	_, err := newTestLoader().Load(path)
	if !errors.Is(err, ErrAdapterLoad) {
		t.Fatalf("expected adapter load error, got %v", err)
	}
	if !errors.Is(err, move.ErrInvalidMove) {
		t.Errorf("expected wrapped invalid move, got %v", err)
	}
}

func TestJSInvalidReturnedMove(t *testing.T) {
	for name, body := range map[string]string{
		"string": `return "x";`,
		"number": `return 1;`,
		"none":   `return;`,
	} {
		path := writeArtifact(t, t.TempDir(), "bad.js", `var initial_move = "d"; function strategy(m) { `+body+` }`)
		h, err := newTestLoader().Load(path)
		if err != nil {
			t.Fatalf("%s: Load failed: %v", name, err)
		}
		_, err = h.NextMove(move.Cooperate)
		var invalid *move.InvalidMoveError
		if !errors.As(err, &invalid) {
			t.Errorf("%s: expected *move.InvalidMoveError, got %T: %v", name, err, err)
		}
		h.Close()
	}
}

func TestJSThrowIsExecutionError(t *testing.T) {
	path := writeArtifact(t, t.TempDir(), "boom.js", `var initial_move = "c"; function strategy(m) { throw new Error("boom"); }`)
	h, err := newTestLoader().Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	defer h.Close()

	_, err = h.NextMove(move.Defect)
	var ee *ExecutionError
	if !errors.As(err, &ee) {
		t.Fatalf("expected *ExecutionError, got %T: %v", err, err)
	}
	if ee.Artifact.Name != "boom" {
		t.Errorf("expected artifact identity attached, got %+v", ee.Artifact)
	}
}

func TestJSSandboxBlocksRequire(t *testing.T) {
	path := writeArtifact(t, t.TempDir(), "req.js", `var fs = require("fs"); var initial_move = "c"; function strategy(m) { return m; }`)
	_, err := newTestLoader().Load(path)
	if !errors.Is(err, ErrAdapterLoad) {
		t.Fatalf("expected load error when calling require, got %v", err)
	}
}

func TestJSConsoleLogAvailable(t *testing.T) {
	path := writeArtifact(t, t.TempDir(), "chatty.js", `
		console.log("loading", 1);
		var initial_move = "c";
		function strategy(m) { log("saw", m); return "d"; }
	`)
	h, err := newTestLoader().Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	defer h.Close()
	if got, err := h.NextMove(move.Cooperate); err != nil || got != move.Defect {
		t.Errorf("NextMove = %v, %v", got, err)
	}
}

func TestJSTimeoutInterruptsRunawayStrategy(t *testing.T) {
	path := writeArtifact(t, t.TempDir(), "spin.js", `var initial_move = "c"; function strategy(m) { for (;;) {} }`)
	l := NewLoader(Options{JVM: NewJVMHost("java", nil), ScriptTimeout: 50 * time.Millisecond})
	h, err := l.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	defer h.Close()

	_, err = h.NextMove(move.Cooperate)
	if !errors.Is(err, ErrExecution) {
		t.Fatalf("expected execution error on timeout, got %v", err)
	}
}

func TestJSEachLoadIsIsolated(t *testing.T) {
	src := `
		var calls = 0;
		var initial_move = "c";
		function strategy(m) { calls++; return calls > 1 ? "d" : "c"; }
	`
	pathA := writeArtifact(t, t.TempDir(), "counter.js", src)
	pathB := writeArtifact(t, t.TempDir(), "counter.js", src)

	l := newTestLoader()
	for _, path := range []string{pathA, pathB, pathA} {
		h, err := l.Load(path)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		got, err := h.NextMove(move.Cooperate)
		if err != nil {
			t.Fatalf("NextMove failed: %v", err)
		}
		if got != move.Cooperate {
			t.Errorf("fresh load of %s carried state from an earlier load", path)
		}
		h.Close()
	}
}
