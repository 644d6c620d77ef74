// Package api exposes matches and tournaments over HTTP.
package api

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/MJE43/pd-arena/internal/catalog"
	"github.com/MJE43/pd-arena/internal/match"
	"github.com/MJE43/pd-arena/internal/strategy"
	"github.com/MJE43/pd-arena/internal/tournament"
)

// MaxRounds caps the rounds a single request may ask for.
const MaxRounds = 100_000

// Options configures a Server.
type Options struct {
	StrategyDir    string
	DefaultRounds  int
	Loader         tournament.Loader
	JVM            *strategy.JVMHost // reported by /health when set
	Catalog        *catalog.Store    // marks verified strategies when set
	RequestTimeout time.Duration
	Logger         *log.Logger
}

// Server handles HTTP requests
type Server struct {
	strategyDir   string
	defaultRounds int
	loader        tournament.Loader
	jvm           *strategy.JVMHost
	catalog       *catalog.Store
	timeout       time.Duration
	errorHandler  *ErrorHandler
	logger        *log.Logger
	startTime     time.Time

	// mu serialises matches. Foreign runtimes are process-wide (the JVM host
	// pipe, dlopen'd images) and a match is strictly single-threaded.
	mu sync.Mutex
}

// NewServer creates a new API server
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	s := &Server{
		strategyDir:   opts.StrategyDir,
		defaultRounds: opts.DefaultRounds,
		loader:        opts.Loader,
		jvm:           opts.JVM,
		catalog:       opts.Catalog,
		timeout:       timeout,
		errorHandler:  NewErrorHandler(logger),
		logger:        logger,
		startTime:     time.Now(),
	}
	logger.Printf("server_initialized strategy_dir=%s default_rounds=%d catalog=%t", s.strategyDir, s.defaultRounds, s.catalog != nil)
	return s
}

// Routes sets up the HTTP routes with middleware
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(s.errorHandler.RecoveryHandler)
	r.Use(middleware.Timeout(s.timeout))

	r.Get("/health", s.handleHealthCheck)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/strategies", s.handleListStrategies)
		r.Post("/matches", s.handlePlayMatch)
		r.Post("/tournaments", s.handleRunTournament)
	})

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Printf("request_completed request_id=%s method=%s path=%s status=%d bytes=%d duration=%s remote=%s",
			middleware.GetReqID(r.Context()), r.Method, r.URL.Path, ww.Status(), ww.BytesWritten(), time.Since(start), r.RemoteAddr)
	})
}

func (s *Server) handleListStrategies(w http.ResponseWriter, r *http.Request) {
	artifacts, err := catalog.Discover(s.strategyDir)
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}

	verified := map[string]catalog.Entry{}
	if s.catalog != nil {
		entries, err := s.catalog.List()
		if err != nil {
			s.errorHandler.HandleError(w, r, err)
			return
		}
		for _, e := range entries {
			verified[e.Path] = e
		}
	}

	out := make([]StrategyInfo, 0, len(artifacts))
	for _, a := range artifacts {
		info := StrategyInfo{Name: a.Name, File: s.relative(a.Path), Kind: a.Kind}
		abs, _ := filepath.Abs(a.Path)
		if e, ok := verified[abs]; ok {
			info.Verified = true
			info.SHA256 = e.SHA256
			info.InitialMove = e.InitialMove
		}
		out = append(out, info)
	}
	s.writeJSON(w, http.StatusOK, StrategiesResponse{Strategies: out, EngineVersion: EngineVersion})
}

func (s *Server) handlePlayMatch(w http.ResponseWriter, r *http.Request) {
	var req MatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorHandler.HandleValidationError(w, r, "body", "invalid JSON")
		return
	}
	if req.A == "" || req.B == "" {
		s.errorHandler.HandleValidationError(w, r, "a,b", "both strategies are required")
		return
	}
	rounds, ok := s.rounds(w, r, req.Rounds)
	if !ok {
		return
	}

	pathA, ok := s.resolve(w, r, req.A)
	if !ok {
		return
	}
	pathB, ok := s.resolve(w, r, req.B)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	a, err := s.loader.Load(pathA)
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}
	defer a.Close()
	b, err := s.loader.Load(pathB)
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}
	defer b.Close()

	res, err := match.Run(a, b, rounds)
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}

	resp := MatchResponse{
		ID:            uuid.NewString(),
		A:             a.Identity().Name,
		B:             b.Identity().Name,
		Rounds:        res.Rounds,
		Scores:        Scores{A: res.ScoreA, B: res.ScoreB},
		Duration:      time.Since(start).String(),
		EngineVersion: EngineVersion,
	}
	s.logger.Printf("match_completed id=%s a=%s b=%s rounds=%d score_a=%d score_b=%d",
		resp.ID, resp.A, resp.B, resp.Rounds, resp.Scores.A, resp.Scores.B)
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRunTournament(w http.ResponseWriter, r *http.Request) {
	var req TournamentRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
			s.errorHandler.HandleValidationError(w, r, "body", "invalid JSON")
			return
		}
	}
	rounds, ok := s.rounds(w, r, req.Rounds)
	if !ok {
		return
	}

	artifacts, err := catalog.Discover(s.strategyDir)
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	report, err := tournament.NewRunner(s.loader, s.logger).Run(r.Context(), catalog.Paths(artifacts), rounds)
	if report != nil {
		for i := range report.Standings {
			report.Standings[i].Path = s.relative(report.Standings[i].Path)
		}
	}
	if err != nil {
		s.errorHandler.HandleTournamentError(w, r, err, report)
		return
	}
	s.writeJSON(w, http.StatusOK, TournamentResponse{ID: uuid.NewString(), Report: report, EngineVersion: EngineVersion})
}

func (s *Server) rounds(w http.ResponseWriter, r *http.Request, requested *int) (int, bool) {
	if requested == nil {
		return s.defaultRounds, true
	}
	if *requested < 0 {
		s.errorHandler.HandleValidationError(w, r, "rounds", "rounds must be non-negative")
		return 0, false
	}
	if *requested > MaxRounds {
		s.errorHandler.HandleValidationError(w, r, "rounds", "rounds exceeds the per-request limit")
		return 0, false
	}
	return *requested, true
}

// resolve maps a request name to an artifact discovered in the strategy
// folder. Only discovered files can be returned, so names can never reach
// outside the folder.
func (s *Server) resolve(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	artifacts, err := catalog.Discover(s.strategyDir)
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return "", false
	}

	var hits []catalog.Artifact
	for _, a := range artifacts {
		if a.Name == name || filepath.Base(a.Path) == name || s.relative(a.Path) == filepath.FromSlash(name) {
			hits = append(hits, a)
		}
	}
	switch len(hits) {
	case 0:
		s.errorHandler.HandleNotFound(w, r, name)
		return "", false
	case 1:
		return hits[0].Path, true
	default:
		s.errorHandler.HandleValidationError(w, r, "name", "ambiguous strategy name "+name+"; use the file name")
		return "", false
	}
}

func (s *Server) relative(path string) string {
	rel, err := filepath.Rel(s.strategyDir, path)
	if err != nil {
		return filepath.Base(path)
	}
	return rel
}

// writeJSON writes a JSON response with proper headers
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Engine-Version", EngineVersion)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Printf("response_encode_failed status=%d error=%q", status, err)
	}
}
