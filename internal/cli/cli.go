// Package cli implements the pdarena subcommands.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/MJE43/pd-arena/internal/api"
	"github.com/MJE43/pd-arena/internal/build"
	"github.com/MJE43/pd-arena/internal/catalog"
	"github.com/MJE43/pd-arena/internal/config"
	"github.com/MJE43/pd-arena/internal/match"
	"github.com/MJE43/pd-arena/internal/strategy"
	"github.com/MJE43/pd-arena/internal/telemetry"
	"github.com/MJE43/pd-arena/internal/tournament"
)

// ErrUsage is returned for a missing or unknown subcommand or bad arguments.
var ErrUsage = errors.New("usage")

const usage = `usage: pdarena <command> [flags] [args]

commands:
  match <a> <b>     play two strategies against each other
  tournament        round-robin over every strategy in the folder
  list              list strategies in the folder
  build <src>...    compile, verify and register strategy sources
  serve             serve the HTTP API

Run "pdarena <command> -h" for command flags.
`

type env struct {
	cfg    config.Config
	fs     *flag.FlagSet
	out    io.Writer
	logger *log.Logger
	jvm    *strategy.JVMHost
	loader *strategy.Loader
}

// Run executes the subcommand named by args[0].
func Run(ctx context.Context, args []string, out, errOut io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}
	if len(args) == 0 {
		fmt.Fprint(errOut, usage)
		return ErrUsage
	}

	commands := map[string]func(context.Context, *env) error{
		"match":      runMatch,
		"tournament": runTournament,
		"list":       runList,
		"build":      runBuild,
		"serve":      runServe,
	}
	name := args[0]
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprint(errOut, usage)
		return fmt.Errorf("%w: unknown command %q", ErrUsage, name)
	}

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(errOut)
	cfg, err := config.ParseFlags(fs, args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}

	logOut := io.Discard
	if cfg.Verbose || name == "serve" {
		logOut = errOut
	}
	e := &env{
		cfg:    cfg,
		fs:     fs,
		out:    out,
		logger: log.New(logOut, "[ARENA] ", log.LstdFlags),
		jvm:    strategy.NewJVMHost(cfg.Java, log.New(logOut, "[JVM] ", log.LstdFlags)),
	}
	e.loader = strategy.NewLoader(strategy.Options{
		JVM:           e.jvm,
		ScriptTimeout: cfg.ScriptTimeout,
		Logger:        e.logger,
	})
	defer func() {
		if err := e.jvm.Shutdown(); err != nil {
			e.logger.Printf("jvm_shutdown_failed error=%q", err)
		}
	}()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTelEndpoint)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			e.logger.Printf("tracing_shutdown_failed error=%q", err)
		}
	}()

	return cmd(ctx, e)
}

func runMatch(_ context.Context, e *env) error {
	if e.fs.NArg() != 2 {
		return fmt.Errorf("%w: match needs exactly two strategies", ErrUsage)
	}
	pathA, err := resolve(e.cfg.StrategyDir, e.fs.Arg(0))
	if err != nil {
		return err
	}
	pathB, err := resolve(e.cfg.StrategyDir, e.fs.Arg(1))
	if err != nil {
		return err
	}

	a, err := e.loader.Load(pathA)
	if err != nil {
		return err
	}
	defer a.Close()
	b, err := e.loader.Load(pathB)
	if err != nil {
		return err
	}
	defer b.Close()

	res, err := match.Run(a, b, e.cfg.Rounds)
	if err != nil {
		fmt.Fprintf(e.out, "Match aborted after %d rounds.\n", res.Rounds)
		printScores(e.out, res)
		return err
	}
	fmt.Fprintln(e.out, "Final Scores:")
	printScores(e.out, res)
	return nil
}

func printScores(out io.Writer, res match.Result) {
	fmt.Fprintf(out, "Strategy 1: %d\n", res.ScoreA)
	fmt.Fprintf(out, "Strategy 2: %d\n", res.ScoreB)
}

func runTournament(ctx context.Context, e *env) error {
	artifacts, err := catalog.Discover(e.cfg.StrategyDir)
	if err != nil {
		return err
	}
	if len(artifacts) == 0 {
		return fmt.Errorf("no strategies found in %s", e.cfg.StrategyDir)
	}

	report, err := tournament.NewRunner(e.loader, e.logger).Run(ctx, catalog.Paths(artifacts), e.cfg.Rounds)
	if report != nil {
		for _, p := range report.Pairings {
			if p.Failed() {
				fmt.Fprintf(e.out, "%s vs %s failed: %s\n", p.A, p.B, p.Err)
			}
		}
		fmt.Fprintln(e.out, "Final Scores:")
		tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "RANK\tSTRATEGY\tTOTAL\tMEAN\tPLAYED\tFAILED")
		for i, s := range report.Standings {
			fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%d\t%d\n", i+1, s.Name, s.Total, s.Mean.StringFixed(2), s.Played, s.Failed)
		}
		tw.Flush()
	}
	return err
}

func runList(_ context.Context, e *env) error {
	artifacts, err := catalog.Discover(e.cfg.StrategyDir)
	if err != nil {
		return err
	}

	verified := map[string]bool{}
	if _, err := os.Stat(e.cfg.CatalogDB); err == nil {
		store, err := openCatalog(e.cfg.CatalogDB)
		if err != nil {
			return err
		}
		defer store.Close()
		entries, err := store.List()
		if err != nil {
			return err
		}
		for _, entry := range entries {
			verified[entry.Path] = true
		}
	}

	tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tVERIFIED\tPATH")
	for _, a := range artifacts {
		abs, _ := filepath.Abs(a.Path)
		fmt.Fprintf(tw, "%s\t%s\t%t\t%s\n", a.Name, a.Kind, verified[abs], a.Path)
	}
	return tw.Flush()
}

func runBuild(ctx context.Context, e *env) error {
	if e.fs.NArg() == 0 {
		return fmt.Errorf("%w: build needs at least one source file", ErrUsage)
	}
	store, err := openCatalog(e.cfg.CatalogDB)
	if err != nil {
		return err
	}
	defer store.Close()

	b := build.NewBuilder(build.Toolchain{CC: e.cfg.CC, Javac: e.cfg.Javac}, e.loader, e.logger)
	var failed []string
	for _, src := range e.fs.Args() {
		entry, err := b.Build(ctx, src)
		if err != nil {
			fmt.Fprintf(e.out, "FAIL %s: %v\n", src, err)
			failed = append(failed, src)
			continue
		}
		if err := store.Register(entry); err != nil {
			return err
		}
		fmt.Fprintf(e.out, "ok   %s -> %s (%s, initial %s)\n", src, entry.Path, entry.Kind, entry.InitialMove)
	}
	if len(failed) > 0 {
		return fmt.Errorf("build failed for %s", strings.Join(failed, ", "))
	}
	return nil
}

func runServe(ctx context.Context, e *env) error {
	store, err := openCatalog(e.cfg.CatalogDB)
	if err != nil {
		return err
	}
	defer store.Close()

	server := api.NewServer(api.Options{
		StrategyDir:   e.cfg.StrategyDir,
		DefaultRounds: e.cfg.Rounds,
		Loader:        e.loader,
		JVM:           e.jvm,
		Catalog:       store,
		Logger:        log.New(e.logger.Writer(), "[API] ", log.LstdFlags),
	})
	l := api.NewListener(server, e.cfg.HTTPAddr)
	if err := l.Start(); err != nil {
		return err
	}
	fmt.Fprintf(e.out, "Serving on http://%s\n", l.Addr())

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return l.Shutdown(shutdownCtx)
}

func openCatalog(path string) (*catalog.Store, error) {
	store, err := catalog.New(path)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

// resolve accepts a file path, or a strategy name found in dir.
func resolve(dir, arg string) (string, error) {
	if _, err := os.Stat(arg); err == nil {
		return arg, nil
	}
	artifacts, err := catalog.Discover(dir)
	if err != nil {
		return "", err
	}
	var hits []string
	for _, a := range artifacts {
		if a.Name == arg || filepath.Base(a.Path) == arg {
			hits = append(hits, a.Path)
		}
	}
	switch len(hits) {
	case 0:
		return "", fmt.Errorf("strategy %q not found in %s", arg, dir)
	case 1:
		return hits[0], nil
	default:
		return "", fmt.Errorf("strategy %q is ambiguous: %s", arg, strings.Join(hits, ", "))
	}
}
