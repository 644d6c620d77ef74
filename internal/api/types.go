package api

import (
	"github.com/MJE43/pd-arena/internal/strategy"
	"github.com/MJE43/pd-arena/internal/tournament"
)

// EngineError represents a structured error response with context
type EngineError struct {
	Type      string                 `json:"type"`
	Message   string                 `json:"message"`
	Context   map[string]interface{} `json:"context,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
	Timestamp string                 `json:"timestamp,omitempty"`
}

// Error implements the error interface
func (e EngineError) Error() string {
	return e.Message
}

// Error types
const (
	// Input validation errors
	ErrTypeValidation = "validation_error"
	ErrTypeNotFound   = "not_found"

	// Strategy errors
	ErrTypeUnsupportedArtifact = "unsupported_artifact"
	ErrTypeAdapterLoad         = "adapter_load_error"
	ErrTypeInvalidMove         = "invalid_move"
	ErrTypeStrategyExecution   = "strategy_execution_error"

	// System errors
	ErrTypeTimeout  = "timeout"
	ErrTypeInternal = "internal_error"
)

// ErrorCategory groups error types for logging
type ErrorCategory string

const (
	CategoryValidation ErrorCategory = "validation"
	CategoryStrategy   ErrorCategory = "strategy"
	CategorySystem     ErrorCategory = "system"
	CategoryTimeout    ErrorCategory = "timeout"
)

// GetErrorCategory returns the category for an error type
func GetErrorCategory(errType string) ErrorCategory {
	switch errType {
	case ErrTypeValidation, ErrTypeNotFound:
		return CategoryValidation
	case ErrTypeUnsupportedArtifact, ErrTypeAdapterLoad, ErrTypeInvalidMove, ErrTypeStrategyExecution:
		return CategoryStrategy
	case ErrTypeTimeout:
		return CategoryTimeout
	default:
		return CategorySystem
	}
}

// VersionInfo contains engine version information
type VersionInfo struct {
	EngineVersion string `json:"engine_version"`
	GitCommit     string `json:"git_commit,omitempty"`
	BuildTime     string `json:"build_time,omitempty"`
}

// StrategyInfo describes one artifact in the strategy folder.
type StrategyInfo struct {
	Name        string        `json:"name"`
	File        string        `json:"file"`
	Kind        strategy.Kind `json:"kind"`
	Verified    bool          `json:"verified"`
	SHA256      string        `json:"sha256,omitempty"`
	InitialMove string        `json:"initial_move,omitempty"`
}

// StrategiesResponse lists the available strategies.
type StrategiesResponse struct {
	Strategies    []StrategyInfo `json:"strategies"`
	EngineVersion string         `json:"engine_version"`
}

// MatchRequest names two strategies and a round count. Names are artifact
// names ("tft") or file names ("tft.js") inside the strategy folder. Rounds
// falls back to the server default when omitted.
type MatchRequest struct {
	A      string `json:"a"`
	B      string `json:"b"`
	Rounds *int   `json:"rounds,omitempty"`
}

// Scores holds the cumulative score of each side.
type Scores struct {
	A int `json:"a"`
	B int `json:"b"`
}

// MatchResponse is a completed match.
type MatchResponse struct {
	ID            string `json:"id"`
	A             string `json:"a"`
	B             string `json:"b"`
	Rounds        int    `json:"rounds"`
	Scores        Scores `json:"scores"`
	Duration      string `json:"duration"`
	EngineVersion string `json:"engine_version"`
}

// TournamentRequest configures a round-robin over every strategy.
type TournamentRequest struct {
	Rounds *int `json:"rounds,omitempty"`
}

// TournamentResponse wraps a tournament report.
type TournamentResponse struct {
	ID string `json:"id"`
	*tournament.Report
	EngineVersion string `json:"engine_version"`
}
