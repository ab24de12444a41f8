// Package dynlib opens dynamic libraries at run time and resolves their
// symbols without cgo.
package dynlib

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"

	domainerrors "github.com/reglet-dev/vfpython/domain/errors"
	"github.com/reglet-dev/vfpython/domain/ports"
)

// Library is an open dynamic library. It implements ports.Library.
type Library struct {
	closeErr error
	path     string
	handle   uintptr
	mu       sync.RWMutex
	closed   bool
}

var _ ports.Library = (*Library)(nil)

// Open loads the library at path. A bare file name with no directory part
// that does not exist in the working directory is handed to the system
// loader's search.
func Open(path string) (*Library, error) {
	canonical, err := Canonical(path)
	if err != nil {
		return nil, err
	}
	h, err := openLibrary(canonical)
	if err != nil {
		return nil, &domainerrors.LoadError{Path: canonical, Err: domainerrors.ErrLoadFailed, Reason: err.Error()}
	}
	return &Library{path: canonical, handle: h}, nil
}

// Opener adapts Open to ports.LibraryOpener.
func Opener(path string) (ports.Library, error) {
	return Open(path)
}

// Canonical resolves path to an absolute path with symlinks evaluated.
func Canonical(path string) (string, error) {
	if path == "" {
		return "", &domainerrors.LoadError{Path: path, Err: domainerrors.ErrNotFound}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", &domainerrors.LoadError{Path: path, Err: domainerrors.ErrLoadFailed, Reason: err.Error()}
	}
	resolved, err := filepath.EvalSymlinks(abs)
	switch {
	case err == nil:
		return resolved, nil
	case errors.Is(err, fs.ErrNotExist) && isBareName(path):
		return path, nil
	case errors.Is(err, fs.ErrNotExist):
		return "", &domainerrors.LoadError{Path: abs, Err: domainerrors.ErrNotFound}
	default:
		return "", &domainerrors.LoadError{Path: abs, Err: domainerrors.ErrLoadFailed, Reason: err.Error()}
	}
}

func isBareName(path string) bool {
	return !strings.ContainsAny(path, `/\`) && filepath.VolumeName(path) == ""
}

// Path returns the canonical path.
func (l *Library) Path() string {
	return l.path
}

// Lookup resolves a symbol address.
func (l *Library) Lookup(name string) (uintptr, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return 0, fmt.Errorf("lookup %s: library %s is closed", name, l.path)
	}
	addr, err := lookup(l.handle, name)
	if err != nil || addr == 0 {
		return 0, &domainerrors.LoadError{Path: l.path, Symbol: name, Err: domainerrors.ErrSymbolMissing}
	}
	return addr, nil
}

// Close releases the OS handle exactly once.
func (l *Library) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return l.closeErr
	}
	l.closed = true
	if err := closeLibrary(l.handle); err != nil {
		l.closeErr = fmt.Errorf("close %s: %w", l.path, err)
	}
	return l.closeErr
}

