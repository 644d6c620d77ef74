// Package build turns submitted strategy sources into loadable artifacts and
// checks that they satisfy the strategy contract.
package build

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/MJE43/pd-arena/internal/catalog"
	"github.com/MJE43/pd-arena/internal/move"
	"github.com/MJE43/pd-arena/internal/strategy"
)

// Toolchain names the compilers used for source artifacts.
type Toolchain struct {
	CC    string
	Javac string
}

// Builder compiles and verifies strategies.
type Builder struct {
	tools  Toolchain
	loader *strategy.Loader
	logger *log.Logger
}

// NewBuilder creates a builder. Missing tool names default to gcc and javac.
func NewBuilder(tools Toolchain, loader *strategy.Loader, logger *log.Logger) *Builder {
	if tools.CC == "" {
		tools.CC = "gcc"
	}
	if tools.Javac == "" {
		tools.Javac = "javac"
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Builder{tools: tools, loader: loader, logger: logger}
}

// CompileError carries the compiler output of a failed build.
type CompileError struct {
	Source string
	Output string
	Err    error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("build: compile %s: %v\n%s", e.Source, e.Err, e.Output)
}

func (e *CompileError) Unwrap() error { return e.Err }

// Compile produces the artifact for src and returns its path. C sources
// become shared libraries next to the source, Java sources become class
// files in the same directory, and scripts are their own artifact.
func (b *Builder) Compile(ctx context.Context, src string) (string, error) {
	ext := strings.ToLower(filepath.Ext(src))
	base := strings.TrimSuffix(src, filepath.Ext(src))

	if _, err := os.Stat(src); err != nil {
		return "", fmt.Errorf("build: %w", err)
	}

	switch ext {
	case ".c":
		out := base + sharedLibExt()
		args := []string{"-shared", "-o", out, src}
		if runtime.GOOS != "windows" {
			args = append([]string{"-fPIC"}, args...)
		}
		if err := b.run(ctx, src, b.tools.CC, args...); err != nil {
			return "", err
		}
		return out, nil
	case ".java":
		if err := b.run(ctx, src, b.tools.Javac, "-d", filepath.Dir(src), src); err != nil {
			return "", err
		}
		return base + ".class", nil
	default:
		if strategy.Supported(src) {
			return src, nil
		}
		return "", &strategy.UnsupportedArtifactError{Path: src, Ext: ext}
	}
}

func (b *Builder) run(ctx context.Context, src, tool string, args ...string) error {
	start := time.Now()
	cmd := exec.CommandContext(ctx, tool, args...)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output
	if err := cmd.Run(); err != nil {
		b.logger.Printf("compile_failed source=%s tool=%s error=%q", src, tool, err)
		return &CompileError{Source: src, Output: output.String(), Err: err}
	}
	b.logger.Printf("compile_completed source=%s tool=%s duration=%s", src, tool, time.Since(start))
	return nil
}

// Verify loads artifact, reads its initial move and plays one NextMove.
// The handle is closed before returning.
func (b *Builder) Verify(artifact string) (*catalog.Entry, error) {
	h, err := b.loader.Load(artifact)
	if err != nil {
		return nil, err
	}
	defer h.Close()

	if _, err := h.NextMove(move.Cooperate); err != nil {
		return nil, err
	}

	sum, err := fileSHA256(artifact)
	if err != nil {
		return nil, fmt.Errorf("build: hash %s: %w", artifact, err)
	}
	id := h.Identity()
	return &catalog.Entry{
		Name:        id.Name,
		Path:        id.Path,
		Kind:        id.Kind,
		SHA256:      sum,
		InitialMove: h.InitialMove().String(),
		VerifiedAt:  time.Now().UTC(),
	}, nil
}

// Build compiles src and verifies the result.
func (b *Builder) Build(ctx context.Context, src string) (*catalog.Entry, error) {
	artifact, err := b.Compile(ctx, src)
	if err != nil {
		return nil, err
	}
	return b.Verify(artifact)
}

func sharedLibExt() string {
	switch runtime.GOOS {
	case "windows":
		return ".dll"
	case "darwin":
		return ".dylib"
	default:
		return ".so"
	}
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
