package strategy

import (
	"bufio"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

//go:embed jvmhost/StrategyHost.java
var strategyHostSource []byte

const jvmShutdownGrace = 2 * time.Second

// JVMHost is the process-wide JVM that runs managed strategies. It is a child
// `java` process running the embedded StrategyHost bridge; requests are
// serialised over its stdin/stdout. The JVM starts on first use, is
// restarted only if the bridge dies, and is stopped by Shutdown when the
// process exits.
type JVMHost struct {
	javaBin string
	logger  *log.Logger
	stderr  io.Writer

	mu      sync.Mutex
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	stdout  *bufio.Reader
	workDir string
	version string
	dead    bool
	seq     uint64
}

// NewJVMHost creates a host that launches javaBin on first use.
func NewJVMHost(javaBin string, logger *log.Logger) *JVMHost {
	if javaBin == "" {
		javaBin = "java"
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &JVMHost{javaBin: javaBin, logger: logger, stderr: os.Stderr}
}

var (
	processJVMOnce sync.Once
	processJVM     *JVMHost
)

// ProcessJVM returns the process-wide host used by loaders that were not
// given one explicitly.
func ProcessJVM() *JVMHost {
	processJVMOnce.Do(func() {
		processJVM = NewJVMHost("java", nil)
	})
	return processJVM
}

// EnsureStarted starts the JVM unless it is already running. Calling it on a
// running host is a no-op.
func (h *JVMHost) EnsureStarted() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ensureStartedLocked()
}

// Running reports whether the JVM process is up.
func (h *JVMHost) Running() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.runningLocked()
}

func (h *JVMHost) runningLocked() bool {
	return h.cmd != nil && !h.dead
}

func (h *JVMHost) ensureStartedLocked() error {
	if h.runningLocked() {
		return nil
	}
	if h.cmd != nil {
		h.reapLocked()
	}

	dir, err := os.MkdirTemp("", "pdarena-jvm-*")
	if err != nil {
		return fmt.Errorf("jvm: create work dir: %w", err)
	}
	src := filepath.Join(dir, "StrategyHost.java")
	if err := os.WriteFile(src, strategyHostSource, 0o644); err != nil {
		os.RemoveAll(dir)
		return fmt.Errorf("jvm: write bridge source: %w", err)
	}

	// The class path is the empty work dir so strategy classes only resolve
	// through their per-load class loaders.
	cmd := exec.Command(h.javaBin, "-cp", dir, src)
	cmd.Stderr = h.stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		os.RemoveAll(dir)
		return fmt.Errorf("jvm: stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		os.RemoveAll(dir)
		return fmt.Errorf("jvm: stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		os.RemoveAll(dir)
		return fmt.Errorf("jvm: start %s: %w", h.javaBin, err)
	}

	h.cmd = cmd
	h.stdin = stdin
	h.stdout = bufio.NewReader(stdout)
	h.workDir = dir
	h.dead = false

	ready, err := h.readReplyLocked()
	if err != nil {
		h.reapLocked()
		return fmt.Errorf("jvm: bridge did not start: %w", err)
	}
	if len(ready) < 1 || ready[0] != "READY" {
		h.reapLocked()
		return fmt.Errorf("jvm: unexpected handshake %q", strings.Join(ready, "\t"))
	}
	if len(ready) > 1 {
		h.version, _ = url.QueryUnescape(ready[1])
	}
	h.logger.Printf("jvm_started pid=%d java=%s version=%s", cmd.Process.Pid, h.javaBin, h.version)
	return nil
}

// Shutdown stops the JVM and removes its work directory.
func (h *JVMHost) Shutdown() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cmd == nil {
		return nil
	}
	h.logger.Printf("jvm_shutdown pid=%d", h.cmd.Process.Pid)
	return h.reapLocked()
}

// reapLocked closes stdin, waits for the process (killing it after a grace
// period) and clears all process state.
func (h *JVMHost) reapLocked() error {
	cmd := h.cmd
	h.stdin.Close()

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()
	var err error
	select {
	case err = <-done:
	case <-time.After(jvmShutdownGrace):
		cmd.Process.Kill()
		err = <-done
	}

	os.RemoveAll(h.workDir)
	h.cmd, h.stdin, h.stdout, h.workDir = nil, nil, nil, ""
	h.dead = false

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}

// jvmReply is one decoded bridge response.
type jvmReply struct {
	null    bool
	value   string
	errKind string
	errMsg  string
}

func (r jvmReply) failed() bool { return r.errKind != "" }

func (h *JVMHost) load(dir, className string) (string, jvmReply, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.ensureStartedLocked(); err != nil {
		return "", jvmReply{}, err
	}
	h.seq++
	ref := strconv.FormatUint(h.seq, 10)
	reply, err := h.roundTripLocked("LOAD", ref, url.QueryEscape(dir), url.QueryEscape(className))
	return ref, reply, err
}

func (h *JVMHost) call(ref, opponentMove string) (jvmReply, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.runningLocked() {
		return jvmReply{}, errors.New("jvm: not running")
	}
	return h.roundTripLocked("CALL", ref, url.QueryEscape(opponentMove))
}

func (h *JVMHost) drop(ref string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.runningLocked() {
		return nil
	}
	_, err := h.roundTripLocked("DROP", ref)
	return err
}

func (h *JVMHost) roundTripLocked(fields ...string) (jvmReply, error) {
	if _, err := io.WriteString(h.stdin, strings.Join(fields, "\t")+"\n"); err != nil {
		h.dead = true
		return jvmReply{}, fmt.Errorf("jvm: write request: %w", err)
	}
	parts, err := h.readReplyLocked()
	if err != nil {
		return jvmReply{}, err
	}

	switch parts[0] {
	case "NIL":
		return jvmReply{null: true}, nil
	case "OK":
		var reply jvmReply
		if len(parts) > 1 {
			reply.value, err = url.QueryUnescape(parts[1])
			if err != nil {
				return jvmReply{}, fmt.Errorf("jvm: decode reply: %w", err)
			}
		}
		return reply, nil
	case "ERR":
		if len(parts) < 3 {
			return jvmReply{}, fmt.Errorf("jvm: malformed error reply %q", strings.Join(parts, "\t"))
		}
		msg, err := url.QueryUnescape(parts[2])
		if err != nil {
			msg = parts[2]
		}
		return jvmReply{errKind: parts[1], errMsg: msg}, nil
	default:
		return jvmReply{}, fmt.Errorf("jvm: unexpected reply %q", strings.Join(parts, "\t"))
	}
}

func (h *JVMHost) readReplyLocked() ([]string, error) {
	line, err := h.stdout.ReadString('\n')
	if err != nil {
		h.dead = true
		return nil, fmt.Errorf("jvm: read reply: %w", err)
	}
	return strings.Split(strings.TrimRight(line, "\r\n"), "\t"), nil
}
