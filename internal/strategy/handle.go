// Package strategy binds strategy artifacts from different runtimes to one
// Handle contract. Three adapters exist: shared libraries (native), JVM
// classes (managed) and JavaScript or Lua scripts (script). The adapter is
// picked once, from the file extension, when the artifact is loaded.
package strategy

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/MJE43/pd-arena/internal/move"
)

// Kind identifies the runtime an artifact runs in.
type Kind string

const (
	KindNative  Kind = "native"
	KindManaged Kind = "managed"
	KindScript  Kind = "script"
)

// Identity names the artifact behind a handle.
type Identity struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Kind Kind   `json:"kind"`
}

func (id Identity) String() string {
	return fmt.Sprintf("%s (%s %s)", id.Name, id.Kind, id.Path)
}

// Handle is a loaded strategy. Handles are single-owner: they are not safe
// for concurrent use and must be closed by whoever loaded them.
type Handle interface {
	Identity() Identity
	// InitialMove is the move decoded once at load time.
	InitialMove() move.Move
	// NextMove runs the strategy against the opponent's most recent move.
	// Every call crosses the runtime boundary; nothing is cached.
	NextMove(opponentLast move.Move) (move.Move, error)
	Close() error
}

type openFunc func(l *Loader, id Identity) (Handle, error)

type adapter struct {
	kind Kind
	open openFunc
}

// adapters is keyed by lower-case file extension.
var adapters = map[string]adapter{}

func registerAdapter(kind Kind, open openFunc, exts ...string) {
	for _, ext := range exts {
		adapters[ext] = adapter{kind: kind, open: open}
	}
}

func init() {
	registerAdapter(KindNative, openNative, ".so", ".dylib", ".dll")
	registerAdapter(KindManaged, openManaged, ".class")
	registerAdapter(KindScript, openJS, ".js")
	registerAdapter(KindScript, openLua, ".lua")
}

// Extensions returns every supported artifact extension, sorted.
func Extensions() []string {
	out := make([]string, 0, len(adapters))
	for ext := range adapters {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// KindOf resolves the adapter kind for path without loading it.
func KindOf(path string) (Kind, error) {
	ext := strings.ToLower(filepath.Ext(path))
	a, ok := adapters[ext]
	if !ok {
		return "", &UnsupportedArtifactError{Path: path, Ext: ext}
	}
	return a.kind, nil
}

// Supported reports whether some adapter handles path.
func Supported(path string) bool {
	_, err := KindOf(path)
	return err == nil
}

// NameOf is the strategy name for an artifact: its base name without extension.
func NameOf(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
