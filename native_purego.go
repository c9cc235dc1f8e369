//go:build darwin || linux || freebsd

package gstview

import "github.com/ebitengine/purego"

func openLibrary(name string) (uintptr, error) {
	return purego.Dlopen(name, purego.RTLD_NOW|purego.RTLD_GLOBAL)
}

func lookupSymbol(handle uintptr, name string) (uintptr, error) {
	return purego.Dlsym(handle, name)
}

func callSymbol(sym uintptr, args ...uintptr) uintptr {
	r1, _, _ := purego.SyscallN(sym, args...)
	return r1
}
