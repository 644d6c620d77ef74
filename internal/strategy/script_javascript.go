package strategy

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/dop251/goja"

	"github.com/MJE43/pd-arena/internal/move"
)

// jsHandle runs a JavaScript strategy in its own goja runtime. Scripts must
// define a string initial_move and a strategy(opponentMove) function.
type jsHandle struct {
	id      Identity
	runtime *goja.Runtime
	fn      goja.Callable
	initial move.Move
	timeout time.Duration
}

func openJS(l *Loader, id Identity) (Handle, error) {
	source, err := os.ReadFile(id.Path)
	if err != nil {
		return nil, loadErr(id, "", err)
	}

	h := &jsHandle{
		id:      id,
		runtime: goja.New(),
		timeout: l.scriptTimeout,
	}
	h.injectGlobals(l.logger)

	err = h.runWithTimeout(func() error {
		_, err := h.runtime.RunScript(id.Path, string(source))
		return err
	})
	if err != nil {
		return nil, loadErr(id, "", fmt.Errorf("script execution error: %w", err))
	}

	fnVal := h.runtime.Get(scriptStrategyName)
	if isUndefinedOrNull(fnVal) {
		return nil, loadErr(id, "strategy function", nil)
	}
	fn, ok := goja.AssertFunction(fnVal)
	if !ok {
		return nil, loadErr(id, "strategy function", errors.New("strategy is not a function"))
	}
	h.fn = fn

	initVal := h.runtime.Get(scriptInitialName)
	if isUndefinedOrNull(initVal) {
		return nil, loadErr(id, "initial_move value", nil)
	}
	raw, ok := initVal.Export().(string)
	if !ok {
		return nil, loadErr(id, "", fmt.Errorf("initial_move must be a string, got %s", initVal.String()))
	}
	initial, err := move.Decode(raw)
	if err != nil {
		return nil, loadErr(id, "", err)
	}
	h.initial = initial
	return h, nil
}

// injectGlobals registers log and console.log and blocks dangerous globals.
func (h *jsHandle) injectGlobals(logger *log.Logger) {
	h.runtime.Set("log", func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}
		logger.Printf("script_log name=%s message=%q", h.id.Name, strings.Join(parts, " "))
		return goja.Undefined()
	})

	console := h.runtime.NewObject()
	console.Set("log", h.runtime.Get("log"))
	h.runtime.Set("console", console)

	h.runtime.Set("require", goja.Undefined())
	h.runtime.Set("fetch", goja.Undefined())
	h.runtime.Set("XMLHttpRequest", goja.Undefined())
	h.runtime.Set("eval", goja.Undefined())
	h.runtime.Set("Function", goja.Undefined())
}

func (h *jsHandle) Identity() Identity     { return h.id }
func (h *jsHandle) InitialMove() move.Move { return h.initial }

func (h *jsHandle) NextMove(opponentLast move.Move) (move.Move, error) {
	var out goja.Value
	err := h.runWithTimeout(func() error {
		v, err := h.fn(goja.Undefined(), h.runtime.ToValue(opponentLast.String()))
		out = v
		return err
	})
	if err != nil {
		return 0, execErr(h.id, err)
	}
	if out == nil {
		return 0, &move.InvalidMoveError{Raw: "undefined"}
	}
	raw, ok := out.Export().(string)
	if !ok {
		return 0, &move.InvalidMoveError{Raw: out.String()}
	}
	return move.Decode(raw)
}

func (h *jsHandle) Close() error {
	h.fn = nil
	h.runtime = nil
	return nil
}

// runWithTimeout runs fn, interrupting the runtime if it exceeds the
// handle's timeout. A zero timeout runs fn inline.
func (h *jsHandle) runWithTimeout(fn func() error) error {
	if h.timeout <= 0 {
		return fn()
	}

	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(h.timeout):
		h.runtime.Interrupt("script execution timeout")
		select {
		case err := <-done:
			if err != nil {
				return fmt.Errorf("script timed out after %s: %w", h.timeout, err)
			}
			return fmt.Errorf("script timed out after %s", h.timeout)
		case <-time.After(200 * time.Millisecond):
			return fmt.Errorf("script timed out after %s", h.timeout)
		}
	}
}

func isUndefinedOrNull(v goja.Value) bool {
	return v == nil || goja.IsUndefined(v) || goja.IsNull(v)
}
