//go:build windows

package gstview

import (
	"github.com/ebitengine/purego"
	"golang.org/x/sys/windows"
)

func openLibrary(name string) (uintptr, error) {
	h, err := windows.LoadLibrary(name)
	return uintptr(h), err
}

func lookupSymbol(handle uintptr, name string) (uintptr, error) {
	return windows.GetProcAddress(windows.Handle(handle), name)
}

func callSymbol(sym uintptr, args ...uintptr) uintptr {
	r1, _, _ := purego.SyscallN(sym, args...)
	return r1
}
