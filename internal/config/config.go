// Package config loads arena settings from PDARENA_* environment variables
// and lets each subcommand override them with flags.
package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds settings shared by every subcommand.
type Config struct {
	StrategyDir   string        `env:"PDARENA_STRATEGY_DIR"    envDefault:"./strategies"`
	Rounds        int           `env:"PDARENA_ROUNDS"          envDefault:"10"`
	CatalogDB     string        `env:"PDARENA_CATALOG_DB"      envDefault:"pdarena.db"`
	Java          string        `env:"PDARENA_JAVA"            envDefault:"java"`
	CC            string        `env:"PDARENA_CC"              envDefault:"gcc"`
	Javac         string        `env:"PDARENA_JAVAC"           envDefault:"javac"`
	ScriptTimeout time.Duration `env:"PDARENA_SCRIPT_TIMEOUT"  envDefault:"0s"`
	HTTPAddr      string        `env:"PDARENA_HTTP_ADDR"       envDefault:"127.0.0.1:8077"`
	OTelEndpoint  string        `env:"PDARENA_OTEL_ENDPOINT"`
	Verbose       bool          `env:"PDARENA_VERBOSE"`
}

// ParseEnv loads a Config from the environment.
func ParseEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, cfg.Validate()
}

// ParseFlags loads the environment, then applies flags from args on top.
func ParseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg, err := ParseEnv()
	if err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.StrategyDir, "dir", cfg.StrategyDir, "strategy folder")
	fs.IntVar(&cfg.Rounds, "rounds", cfg.Rounds, "rounds per match")
	fs.StringVar(&cfg.CatalogDB, "db", cfg.CatalogDB, "catalog database path")
	fs.StringVar(&cfg.Java, "java", cfg.Java, "java launcher used for managed strategies")
	fs.StringVar(&cfg.CC, "cc", cfg.CC, "C compiler for native strategies")
	fs.StringVar(&cfg.Javac, "javac", cfg.Javac, "Java compiler for managed strategies")
	fs.DurationVar(&cfg.ScriptTimeout, "script-timeout", cfg.ScriptTimeout, "per-call limit for JavaScript strategies (0 disables)")
	fs.StringVar(&cfg.HTTPAddr, "addr", cfg.HTTPAddr, "HTTP listen address")
	fs.StringVar(&cfg.OTelEndpoint, "otel-endpoint", cfg.OTelEndpoint, "OTLP/HTTP trace endpoint URL (empty disables tracing)")
	fs.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "enable verbose logging")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// Validate rejects settings no subcommand can run with.
func (c Config) Validate() error {
	if c.Rounds < 0 {
		return fmt.Errorf("config: rounds must be non-negative, got %d", c.Rounds)
	}
	if c.ScriptTimeout < 0 {
		return fmt.Errorf("config: script timeout must be non-negative, got %s", c.ScriptTimeout)
	}
	return nil
}
