package guesttest

import (
	"fmt"
	"sync"

	domainerrors "github.com/reglet-dev/vfpython/domain/errors"
	"github.com/reglet-dev/vfpython/domain/ports"
	"github.com/reglet-dev/vfpython/infrastructure/cpython"
)

// Libraries is a fake dynamic loader. Every path opens a library exporting
// the whole interpreter manifest unless listed in Missing or Unloadable.
type Libraries struct {
	// Missing removes symbols from every library opened afterwards.
	Missing map[string]bool
	// Unloadable makes Open fail for these paths.
	Unloadable map[string]bool

	opened []string
	closed []string
	mu     sync.Mutex
}

// NewLibraries returns an empty fake loader.
func NewLibraries() *Libraries {
	return &Libraries{Missing: map[string]bool{}, Unloadable: map[string]bool{}}
}

// Open satisfies ports.LibraryOpener.
func (l *Libraries) Open(path string) (ports.Library, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.Unloadable[path] {
		return nil, &domainerrors.LoadError{Err: domainerrors.ErrLoadFailed, Path: path, Reason: "cannot open shared object file"}
	}
	syms := make(map[string]uintptr)
	for i, name := range cpython.Manifest() {
		if !l.Missing[name] {
			syms[name] = uintptr(0x10000 + 16*i)
		}
	}
	l.opened = append(l.opened, path)
	return &library{owner: l, path: path, syms: syms}, nil
}

// Opened returns the paths opened so far.
func (l *Libraries) Opened() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.opened...)
}

// Closed returns the paths closed so far.
func (l *Libraries) Closed() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.closed...)
}

type library struct {
	owner  *Libraries
	syms   map[string]uintptr
	path   string
	closed bool
}

func (l *library) Path() string { return l.path }

func (l *library) Lookup(name string) (uintptr, error) {
	if l.closed {
		return 0, fmt.Errorf("library %s is closed", l.path)
	}
	if a, ok := l.syms[name]; ok {
		return a, nil
	}
	return 0, &domainerrors.LoadError{Err: domainerrors.ErrSymbolMissing, Path: l.path, Symbol: name}
}

func (l *library) Close() error {
	if l.closed {
		return nil
	}
	l.closed = true
	l.owner.mu.Lock()
	l.owner.closed = append(l.owner.closed, l.path)
	l.owner.mu.Unlock()
	return nil
}

// Binder returns a binder that resolves the manifest against the library,
// so missing symbols fail the same way they do for a real interpreter, and
// then hands out interp.
func Binder(interp *Interp) func(ports.Library) (ports.Interpreter, error) {
	return func(lib ports.Library) (ports.Interpreter, error) {
		if _, err := cpython.Resolve(lib); err != nil {
			return nil, err
		}
		return interp, nil
	}
}
