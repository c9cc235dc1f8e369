//go:build !darwin && !linux && !freebsd && !windows

package gstview

import "github.com/pkg/errors"

func openLibrary(name string) (uintptr, error) {
	return 0, errors.Wrapf(ErrNotSupported, "dynamic loading of %s", name)
}

func lookupSymbol(handle uintptr, name string) (uintptr, error) {
	return 0, errors.Wrapf(ErrNotSupported, "symbol lookup of %s", name)
}

func callSymbol(sym uintptr, args ...uintptr) uintptr {
	return 0
}
