//go:build darwin || freebsd || linux

package dynlib

import "github.com/ebitengine/purego"

func openLibrary(path string) (uintptr, error) {
	h, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err == nil {
		return h, nil
	}
	if h, lazyErr := purego.Dlopen(path, purego.RTLD_LAZY|purego.RTLD_GLOBAL); lazyErr == nil {
		return h, nil
	}
	return 0, err
}

func lookup(handle uintptr, name string) (uintptr, error) {
	return purego.Dlsym(handle, name)
}

func closeLibrary(handle uintptr) error {
	return purego.Dlclose(handle)
}
