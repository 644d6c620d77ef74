package strategy

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/MJE43/pd-arena/internal/move"
)

// managedHandle is a JVM class loaded into the shared JVMHost. The class is
// resolved by the artifact's base name from the artifact's directory and
// must declare
//
//	public static String initial_move;
//	public static String strategy(String opponentMove);
//
// Each NextMove is one request/response round trip over the bridge pipe.
type managedHandle struct {
	id      Identity
	host    *JVMHost
	ref     string
	initial move.Move
}

func openManaged(l *Loader, id Identity) (Handle, error) {
	if err := l.jvm.EnsureStarted(); err != nil {
		return nil, loadErr(id, "", err)
	}

	className := strings.TrimSuffix(filepath.Base(id.Path), filepath.Ext(id.Path))
	ref, reply, err := l.jvm.load(filepath.Dir(id.Path), className)
	if err != nil {
		return nil, loadErr(id, "", err)
	}
	switch {
	case reply.errKind == "missing":
		return nil, loadErr(id, reply.errMsg, nil)
	case reply.failed():
		return nil, loadErr(id, "", fmt.Errorf("jvm %s error: %s", reply.errKind, reply.errMsg))
	case reply.null:
		l.jvm.drop(ref)
		return nil, loadErr(id, "initial_move value", errors.New("field is null"))
	}

	initial, err := move.Decode(reply.value)
	if err != nil {
		l.jvm.drop(ref)
		return nil, loadErr(id, "", err)
	}
	return &managedHandle{id: id, host: l.jvm, ref: ref, initial: initial}, nil
}

func (h *managedHandle) Identity() Identity     { return h.id }
func (h *managedHandle) InitialMove() move.Move { return h.initial }

func (h *managedHandle) NextMove(opponentLast move.Move) (move.Move, error) {
	if h.ref == "" {
		return 0, execErr(h.id, errors.New("handle is closed"))
	}
	reply, err := h.host.call(h.ref, opponentLast.String())
	if err != nil {
		return 0, execErr(h.id, err)
	}
	switch {
	case reply.failed():
		return 0, execErr(h.id, fmt.Errorf("jvm %s error: %s", reply.errKind, reply.errMsg))
	case reply.null:
		return 0, execErr(h.id, errors.New("strategy returned null"))
	}
	return move.Decode(reply.value)
}

func (h *managedHandle) Close() error {
	if h.ref == "" {
		return nil
	}
	ref := h.ref
	h.ref = ""
	return h.host.drop(ref)
}
