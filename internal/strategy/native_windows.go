//go:build windows

package strategy

import (
	"errors"
	"fmt"
	"runtime"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/MJE43/pd-arena/internal/move"
)

type nativeHandle struct {
	id      Identity
	dll     *windows.DLL
	proc    *windows.Proc
	initial move.Move
}

func openNative(l *Loader, id Identity) (Handle, error) {
	dll, err := windows.LoadDLL(id.Path)
	if err != nil {
		return nil, loadErr(id, "", err)
	}

	data, err := dll.FindProc(nativeInitialSymbol)
	if err != nil {
		dll.Release()
		return nil, loadErr(id, nativeInitialSymbol+" symbol", err)
	}
	ptr := *(**byte)(unsafe.Pointer(data.Addr()))
	if ptr == nil {
		dll.Release()
		return nil, loadErr(id, nativeInitialSymbol+" value", errors.New("symbol is NULL"))
	}
	initial, err := move.Decode(windows.BytePtrToString(ptr))
	if err != nil {
		dll.Release()
		return nil, loadErr(id, "", err)
	}

	proc, err := dll.FindProc(nativeStrategySymbol)
	if err != nil {
		dll.Release()
		return nil, loadErr(id, nativeStrategySymbol+" function", err)
	}

	return &nativeHandle{id: id, dll: dll, proc: proc, initial: initial}, nil
}

func (h *nativeHandle) Identity() Identity     { return h.id }
func (h *nativeHandle) InitialMove() move.Move { return h.initial }

func (h *nativeHandle) NextMove(opponentLast move.Move) (move.Move, error) {
	if h.dll == nil {
		return 0, execErr(h.id, errors.New("handle is closed"))
	}
	in, err := windows.BytePtrFromString(opponentLast.String())
	if err != nil {
		return 0, execErr(h.id, err)
	}
	r1, _, _ := h.proc.Call(uintptr(unsafe.Pointer(in)))
	runtime.KeepAlive(in)
	if r1 == 0 {
		return 0, execErr(h.id, errors.New("strategy returned NULL"))
	}
	return move.Decode(windows.BytePtrToString((*byte)(unsafe.Pointer(r1))))
}

func (h *nativeHandle) Close() error {
	if h.dll == nil {
		return nil
	}
	dll := h.dll
	h.dll, h.proc = nil, nil
	if err := dll.Release(); err != nil {
		return fmt.Errorf("strategy: release %s: %w", h.id.Path, err)
	}
	return nil
}
