package config

import (
	"flag"
	"io"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg, err := ParseEnv()
	if err != nil {
		t.Fatalf("ParseEnv: %v", err)
	}
	if cfg.StrategyDir != "./strategies" || cfg.Rounds != 10 || cfg.HTTPAddr != "127.0.0.1:8077" {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if cfg.ScriptTimeout != 0 {
		t.Errorf("script timeout should default to disabled, got %s", cfg.ScriptTimeout)
	}
	if cfg.OTelEndpoint != "" {
		t.Errorf("tracing should default to disabled, got %q", cfg.OTelEndpoint)
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("PDARENA_ROUNDS", "200")
	t.Setenv("PDARENA_SCRIPT_TIMEOUT", "250ms")
	t.Setenv("PDARENA_VERBOSE", "true")
	t.Setenv("PDARENA_OTEL_ENDPOINT", "http://localhost:4318")

	cfg, err := ParseEnv()
	if err != nil {
		t.Fatalf("ParseEnv: %v", err)
	}
	if cfg.Rounds != 200 || cfg.ScriptTimeout != 250*time.Millisecond || !cfg.Verbose || cfg.OTelEndpoint != "http://localhost:4318" {
		t.Errorf("environment not applied: %+v", cfg)
	}
}

func TestFlagsWinOverEnvironment(t *testing.T) {
	t.Setenv("PDARENA_ROUNDS", "200")
	fs := flag.NewFlagSet("match", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	cfg, err := ParseFlags(fs, []string{"-rounds", "3", "-dir", "/tmp/strats", "a", "b"})
	if err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}
	if cfg.Rounds != 3 || cfg.StrategyDir != "/tmp/strats" {
		t.Errorf("flags not applied: %+v", cfg)
	}
	if got := fs.Args(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("positional args lost: %v", got)
	}
}

func TestNegativeRoundsRejected(t *testing.T) {
	t.Setenv("PDARENA_ROUNDS", "-1")
	if _, err := ParseEnv(); err == nil {
		t.Fatal("expected negative rounds to be rejected")
	}
}

func TestMalformedDuration(t *testing.T) {
	t.Setenv("PDARENA_SCRIPT_TIMEOUT", "soon")
	if _, err := ParseEnv(); err == nil {
		t.Fatal("expected parse error")
	}
}
