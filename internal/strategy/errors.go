package strategy

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is; every typed error below matches exactly one.
var (
	ErrUnsupportedArtifact = errors.New("unsupported artifact")
	ErrAdapterLoad         = errors.New("adapter load failed")
	ErrExecution           = errors.New("strategy execution failed")
)

// UnsupportedArtifactError is returned when no adapter handles a file extension.
type UnsupportedArtifactError struct {
	Path string
	Ext  string
}

func (e *UnsupportedArtifactError) Error() string {
	if e.Ext == "" {
		return fmt.Sprintf("strategy: unsupported artifact %q (no file extension)", e.Path)
	}
	return fmt.Sprintf("strategy: unsupported artifact %q (extension %q)", e.Path, e.Ext)
}

func (e *UnsupportedArtifactError) Is(target error) bool {
	return target == ErrUnsupportedArtifact
}

// AdapterLoadError means an artifact could not be bound to a handle: the
// library, class or script failed to load, or a required symbol, field or
// function is missing. No handle is produced.
type AdapterLoadError struct {
	Artifact Identity

	// Missing names the required piece that was not found, if that was the cause.
	Missing string
	Err     error
}

func (e *AdapterLoadError) Error() string {
	msg := fmt.Sprintf("strategy: load %s", e.Artifact)
	if e.Missing != "" {
		msg += ": missing " + e.Missing
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AdapterLoadError) Unwrap() error { return e.Err }

func (e *AdapterLoadError) Is(target error) bool {
	return target == ErrAdapterLoad
}

// IsMissingSymbol reports whether the load failed on a missing required piece.
func (e *AdapterLoadError) IsMissingSymbol() bool {
	return e.Missing != ""
}

// ExecutionError wraps a failure raised by the foreign strategy call itself.
type ExecutionError struct {
	Artifact Identity
	Op       string
	Err      error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("strategy: %s: %s failed: %v", e.Artifact, e.Op, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

func (e *ExecutionError) Is(target error) bool {
	return target == ErrExecution
}

func loadErr(id Identity, missing string, err error) error {
	return &AdapterLoadError{Artifact: id, Missing: missing, Err: err}
}

func execErr(id Identity, err error) error {
	return &ExecutionError{Artifact: id, Op: "strategy", Err: err}
}
