//go:build cgo && !windows

package strategy

/*
#cgo linux LDFLAGS: -ldl
#include <dlfcn.h>
#include <stdlib.h>

typedef char *(*strategy_fn)(const char *);

static char *call_strategy(void *fn, const char *opponent) {
	return ((strategy_fn)fn)(opponent);
}
*/
import "C"

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/MJE43/pd-arena/internal/move"
)

type nativeHandle struct {
	id      Identity
	lib     unsafe.Pointer
	fn      unsafe.Pointer
	initial move.Move
}

func openNative(l *Loader, id Identity) (Handle, error) {
	cpath := C.CString(id.Path)
	defer C.free(unsafe.Pointer(cpath))

	lib := C.dlopen(cpath, C.RTLD_NOW|C.RTLD_LOCAL)
	if lib == nil {
		return nil, loadErr(id, "", fmt.Errorf("dlopen: %s", dlerror()))
	}

	sym := dlsym(lib, nativeInitialSymbol)
	if sym == nil {
		C.dlclose(lib)
		return nil, loadErr(id, nativeInitialSymbol+" symbol", nil)
	}
	ptr := *(**C.char)(sym)
	if ptr == nil {
		C.dlclose(lib)
		return nil, loadErr(id, nativeInitialSymbol+" value", errors.New("symbol is NULL"))
	}
	initial, err := move.Decode(C.GoString(ptr))
	if err != nil {
		C.dlclose(lib)
		return nil, loadErr(id, "", err)
	}

	fn := dlsym(lib, nativeStrategySymbol)
	if fn == nil {
		C.dlclose(lib)
		return nil, loadErr(id, nativeStrategySymbol+" function", nil)
	}

	return &nativeHandle{id: id, lib: lib, fn: fn, initial: initial}, nil
}

func dlsym(lib unsafe.Pointer, name string) unsafe.Pointer {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	C.dlerror()
	return C.dlsym(lib, cname)
}

func dlerror() string {
	msg := C.dlerror()
	if msg == nil {
		return "unknown error"
	}
	return C.GoString(msg)
}

func (h *nativeHandle) Identity() Identity     { return h.id }
func (h *nativeHandle) InitialMove() move.Move { return h.initial }

func (h *nativeHandle) NextMove(opponentLast move.Move) (move.Move, error) {
	if h.lib == nil {
		return 0, execErr(h.id, errors.New("handle is closed"))
	}
	in := C.CString(opponentLast.String())
	defer C.free(unsafe.Pointer(in))

	out := C.call_strategy(h.fn, in)
	if out == nil {
		return 0, execErr(h.id, errors.New("strategy returned NULL"))
	}
	return move.Decode(C.GoString(out))
}

func (h *nativeHandle) Close() error {
	if h.lib == nil {
		return nil
	}
	lib := h.lib
	h.lib, h.fn = nil, nil
	if C.dlclose(lib) != 0 {
		return fmt.Errorf("strategy: dlclose %s: %s", h.id.Path, dlerror())
	}
	return nil
}
