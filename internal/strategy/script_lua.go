package strategy

import (
	"fmt"
	"log"
	"strings"

	"github.com/Shopify/go-lua"

	"github.com/MJE43/pd-arena/internal/move"
)

// Script artifacts in either language expose the same two globals.
const (
	scriptInitialName  = "initial_move"
	scriptStrategyName = "strategy"
)

// luaBlockedGlobals are removed before the script runs.
var luaBlockedGlobals = []string{"io", "os", "dofile", "loadfile", "load", "loadstring", "require", "package", "debug"}

type luaHandle struct {
	id      Identity
	state   *lua.State
	initial move.Move
}

func openLua(l *Loader, id Identity) (Handle, error) {
	state := lua.NewState()
	lua.OpenLibraries(state)
	for _, name := range luaBlockedGlobals {
		state.PushNil()
		state.SetGlobal(name)
	}
	logFn := luaLogger(l.logger, id)
	state.Register("log", logFn)
	state.Register("print", logFn)

	if err := lua.LoadFile(state, id.Path, ""); err != nil {
		return nil, loadErr(id, "", fmt.Errorf("load lua: %w", err))
	}
	if err := state.ProtectedCall(0, 0, 0); err != nil {
		return nil, loadErr(id, "", fmt.Errorf("run lua: %w", err))
	}

	state.Global(scriptStrategyName)
	isFn := state.IsFunction(-1)
	state.Pop(1)
	if !isFn {
		return nil, loadErr(id, "strategy function", nil)
	}

	state.Global(scriptInitialName)
	typ := state.TypeOf(-1)
	typName := lua.TypeNameOf(state, -1)
	raw, _ := state.ToString(-1)
	state.Pop(1)
	switch typ {
	case lua.TypeString:
	case lua.TypeNil:
		return nil, loadErr(id, "initial_move value", nil)
	default:
		return nil, loadErr(id, "", fmt.Errorf("initial_move must be a string, got %s", typName))
	}
	initial, err := move.Decode(raw)
	if err != nil {
		return nil, loadErr(id, "", err)
	}

	return &luaHandle{id: id, state: state, initial: initial}, nil
}

func luaLogger(logger *log.Logger, id Identity) lua.Function {
	return func(state *lua.State) int {
		n := state.Top()
		parts := make([]string, 0, n)
		for i := 1; i <= n; i++ {
			if s, ok := state.ToString(i); ok {
				parts = append(parts, s)
			} else {
				parts = append(parts, lua.TypeNameOf(state, i))
			}
		}
		logger.Printf("script_log name=%s message=%q", id.Name, strings.Join(parts, " "))
		return 0
	}
}

func (h *luaHandle) Identity() Identity     { return h.id }
func (h *luaHandle) InitialMove() move.Move { return h.initial }

func (h *luaHandle) NextMove(opponentLast move.Move) (move.Move, error) {
	h.state.Global(scriptStrategyName)
	h.state.PushString(opponentLast.String())
	if err := h.state.ProtectedCall(1, 1, 0); err != nil {
		h.state.Pop(1) // error value
		return 0, execErr(h.id, err)
	}
	defer h.state.Pop(1)

	if h.state.TypeOf(-1) != lua.TypeString {
		return 0, &move.InvalidMoveError{Raw: lua.TypeNameOf(h.state, -1)}
	}
	raw, _ := h.state.ToString(-1)
	return move.Decode(raw)
}

func (h *luaHandle) Close() error {
	h.state = nil
	return nil
}
