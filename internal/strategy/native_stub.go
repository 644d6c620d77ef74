//go:build !cgo && !windows

package strategy

import "errors"

func openNative(l *Loader, id Identity) (Handle, error) {
	return nil, loadErr(id, "", errors.New("native strategies need a cgo-enabled build"))
}
