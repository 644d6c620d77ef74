package strategy

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Options configures a Loader.
type Options struct {
	// JVM runs managed artifacts. Defaults to ProcessJVM().
	JVM *JVMHost

	// ScriptTimeout bounds each JavaScript call, including the initial
	// evaluation of the file. Zero means no limit.
	ScriptTimeout time.Duration
	Logger        *log.Logger
}

// Loader resolves artifact paths to handles.
type Loader struct {
	jvm           *JVMHost
	scriptTimeout time.Duration
	logger        *log.Logger
}

// NewLoader creates a loader from opts.
func NewLoader(opts Options) *Loader {
	l := &Loader{
		jvm:           opts.JVM,
		scriptTimeout: opts.ScriptTimeout,
		logger:        opts.Logger,
	}
	if l.jvm == nil {
		l.jvm = ProcessJVM()
	}
	if l.logger == nil {
		l.logger = log.New(io.Discard, "", 0)
	}
	return l
}

var defaultLoader = NewLoader(Options{})

// Load binds path to a handle using the default loader.
func Load(path string) (Handle, error) {
	return defaultLoader.Load(path)
}

// Load picks the adapter for path by extension and loads the artifact. The
// returned handle has already read its initial move.
func (l *Loader) Load(path string) (Handle, error) {
	ext := strings.ToLower(filepath.Ext(path))
	a, ok := adapters[ext]
	if !ok {
		return nil, &UnsupportedArtifactError{Path: path, Ext: ext}
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	id := Identity{Name: NameOf(path), Path: abs, Kind: a.kind}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, loadErr(id, "", err)
	}
	if info.IsDir() {
		return nil, loadErr(id, "", fmt.Errorf("%s is a directory", abs))
	}

	start := time.Now()
	h, err := a.open(l, id)
	if err != nil {
		l.logger.Printf("strategy_load_failed name=%s kind=%s path=%s error=%q", id.Name, id.Kind, id.Path, err)
		return nil, err
	}
	l.logger.Printf("strategy_loaded name=%s kind=%s initial=%s duration=%s", id.Name, id.Kind, h.InitialMove(), time.Since(start))
	return h, nil
}
