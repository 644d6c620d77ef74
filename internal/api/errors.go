package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/MJE43/pd-arena/internal/catalog"
	"github.com/MJE43/pd-arena/internal/match"
	"github.com/MJE43/pd-arena/internal/move"
	"github.com/MJE43/pd-arena/internal/strategy"
	"github.com/MJE43/pd-arena/internal/tournament"
)

// ErrorBuilder helps construct structured errors with context
type ErrorBuilder struct {
	errType   string
	message   string
	context   map[string]interface{}
	requestID string
}

// NewError creates a new error builder
func NewError(errType, message string) *ErrorBuilder {
	return &ErrorBuilder{
		errType: errType,
		message: message,
		context: make(map[string]interface{}),
	}
}

// WithContext adds context information to the error
func (eb *ErrorBuilder) WithContext(key string, value interface{}) *ErrorBuilder {
	eb.context[key] = value
	return eb
}

// WithRequestID adds request ID to the error
func (eb *ErrorBuilder) WithRequestID(requestID string) *ErrorBuilder {
	eb.requestID = requestID
	return eb
}

// WithCause records the underlying error message
func (eb *ErrorBuilder) WithCause(err error) *ErrorBuilder {
	if err != nil {
		eb.context["cause"] = err.Error()
	}
	return eb
}

// Build creates the final EngineError
func (eb *ErrorBuilder) Build() EngineError {
	return EngineError{
		Type:      eb.errType,
		Message:   eb.message,
		Context:   eb.context,
		RequestID: eb.requestID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// ErrorHandler writes EngineError responses and logs them
type ErrorHandler struct {
	logger *log.Logger
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *log.Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// HandleValidationError responds 400 for a bad request field
func (eh *ErrorHandler) HandleValidationError(w http.ResponseWriter, r *http.Request, field, message string) {
	engineErr := NewError(ErrTypeValidation, fmt.Sprintf("Validation failed: %s", message)).
		WithRequestID(middleware.GetReqID(r.Context())).
		WithContext("field", field).
		WithContext("path", r.URL.Path).
		Build()
	eh.write(w, r, http.StatusBadRequest, engineErr)
}

// HandleNotFound responds 404 for an unknown strategy name
func (eh *ErrorHandler) HandleNotFound(w http.ResponseWriter, r *http.Request, name string) {
	engineErr := NewError(ErrTypeNotFound, fmt.Sprintf("Strategy %q not found", name)).
		WithRequestID(middleware.GetReqID(r.Context())).
		WithContext("name", name).
		Build()
	eh.write(w, r, http.StatusNotFound, engineErr)
}

// HandleError classifies err and writes the matching response. Strategy
// failures are the strategy author's problem and map to 422.
func (eh *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	var engineErr EngineError
	if errors.As(err, &engineErr) {
		eh.write(w, r, http.StatusBadRequest, engineErr)
		return
	}
	errType, status := classify(err)
	eh.write(w, r, status, eh.build(r, errType, err).Build())
}

// HandleTournamentError is HandleError for a tournament that was cut short.
// The pairings and standings completed before the cut are kept in the
// error context.
func (eh *ErrorHandler) HandleTournamentError(w http.ResponseWriter, r *http.Request, err error, partial *tournament.Report) {
	errType, status := classify(err)
	b := eh.build(r, errType, err)
	if partial != nil {
		b.WithContext("completed_pairings", len(partial.Pairings)).
			WithContext("pairings", partial.Pairings).
			WithContext("standings", partial.Standings)
	}
	eh.write(w, r, status, b.Build())
}

func (eh *ErrorHandler) build(r *http.Request, errType string, err error) *ErrorBuilder {
	b := NewError(errType, describe(errType)).
		WithRequestID(middleware.GetReqID(r.Context())).
		WithContext("path", r.URL.Path).
		WithCause(err)

	var abort *match.AbortError
	if errors.As(err, &abort) {
		b.WithContext("round", abort.Round).
			WithContext("player", abort.Player).
			WithContext("strategy", abort.Artifact.Name).
			WithContext("score_a", abort.Result.ScoreA).
			WithContext("score_b", abort.Result.ScoreB)
	}
	var loadErr *strategy.AdapterLoadError
	if errors.As(err, &loadErr) {
		b.WithContext("strategy", loadErr.Artifact.Name)
		if loadErr.IsMissingSymbol() {
			b.WithContext("missing", loadErr.Missing)
		}
	}
	return b
}

func classify(err error) (string, int) {
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return ErrTypeTimeout, http.StatusGatewayTimeout
	case errors.Is(err, catalog.ErrNotFound):
		return ErrTypeNotFound, http.StatusNotFound
	case errors.Is(err, match.ErrNegativeRounds):
		return ErrTypeValidation, http.StatusBadRequest
	case errors.Is(err, strategy.ErrUnsupportedArtifact):
		return ErrTypeUnsupportedArtifact, http.StatusUnprocessableEntity
	case errors.Is(err, strategy.ErrAdapterLoad):
		return ErrTypeAdapterLoad, http.StatusUnprocessableEntity
	case errors.Is(err, move.ErrInvalidMove):
		return ErrTypeInvalidMove, http.StatusUnprocessableEntity
	case errors.Is(err, strategy.ErrExecution):
		return ErrTypeStrategyExecution, http.StatusUnprocessableEntity
	default:
		return ErrTypeInternal, http.StatusInternalServerError
	}
}

func describe(errType string) string {
	switch errType {
	case ErrTypeNotFound:
		return "Strategy not found"
	case ErrTypeValidation:
		return "Invalid request"
	case ErrTypeUnsupportedArtifact:
		return "Unsupported strategy artifact"
	case ErrTypeAdapterLoad:
		return "Strategy failed to load"
	case ErrTypeInvalidMove:
		return "Strategy returned an invalid move"
	case ErrTypeStrategyExecution:
		return "Strategy failed during the match"
	case ErrTypeTimeout:
		return "Request timed out"
	default:
		return "Internal server error"
	}
}

func (eh *ErrorHandler) write(w http.ResponseWriter, r *http.Request, status int, engineErr EngineError) {
	level := "ERROR"
	if category := GetErrorCategory(engineErr.Type); category == CategoryValidation || category == CategoryStrategy {
		level = "WARN"
	}
	eh.logger.Printf(
		"error_occurred level=%s type=%s status=%d request_id=%s method=%s path=%s message=%q context=%v",
		level, engineErr.Type, status, engineErr.RequestID, r.Method, r.URL.Path, engineErr.Message, engineErr.Context,
	)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Engine-Version", EngineVersion)
	w.Header().Set("X-Error-Type", engineErr.Type)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(engineErr); err != nil {
		eh.logger.Printf("error_encode_failed request_id=%s error=%q", engineErr.RequestID, err)
	}
}

// RecoveryHandler turns panics into internal_error responses
func (eh *ErrorHandler) RecoveryHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rvr := recover(); rvr != nil {
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}
				requestID := middleware.GetReqID(r.Context())
				eh.logger.Printf("panic_recovered request_id=%s path=%s method=%s panic=%v", requestID, r.URL.Path, r.Method, rvr)

				engineErr := NewError(ErrTypeInternal, "Internal server error").
					WithRequestID(requestID).
					WithContext("path", r.URL.Path).
					Build()
				eh.write(w, r, http.StatusInternalServerError, engineErr)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
