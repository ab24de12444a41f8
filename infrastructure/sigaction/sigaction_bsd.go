//go:build darwin || freebsd

package sigaction

import (
	"fmt"
	"runtime"
	"syscall"

	"github.com/ebitengine/purego"

	"github.com/reglet-dev/vfpython/domain/ports"
)

const saOnStack = 0x0001

// libcLayout describes the C library struct sigaction: on Darwin sa_mask
// (32 bits) precedes sa_flags, on FreeBSD sa_flags comes first.
func libcLayout() layout {
	if runtime.GOOS == "darwin" {
		return layout{handlerOff: 0, handlerLen: 8, flagsOff: 12, flagsLen: 4, onStack: saOnStack}
	}
	return layout{handlerOff: 0, handlerLen: 8, flagsOff: 8, flagsLen: 4, onStack: saOnStack}
}

var native = libcLayout()

// Table saves and restores dispositions with libc sigaction(2).
type Table struct {
	sigaction func(sig int32, act, old *byte) int32
}

func libcName() string {
	if runtime.GOOS == "darwin" {
		return "/usr/lib/libSystem.B.dylib"
	}
	return "libc.so.7"
}

// New binds sigaction from the C library.
func New() (*Table, error) {
	h, err := purego.Dlopen(libcName(), purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, fmt.Errorf("open libc: %w", err)
	}
	t := &Table{}
	if err := bind(h, "sigaction", &t.sigaction); err != nil {
		return nil, err
	}
	return t, nil
}

func bind(h uintptr, name string, fptr any) (err error) {
	addr, err := purego.Dlsym(h, name)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", name, err)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("bind %s: %v", name, r)
		}
	}()
	purego.RegisterFunc(fptr, addr)
	return nil
}

// Save returns the current disposition of sig.
func (t *Table) Save(sig syscall.Signal) (ports.Disposition, error) {
	d := make(ports.Disposition, dispositionSize)
	if rc := t.sigaction(int32(sig), nil, &d[0]); rc != 0 {
		return nil, fmt.Errorf("sigaction(%v) save failed", sig)
	}
	return d, nil
}

// Restore installs a disposition previously returned by Save.
func (t *Table) Restore(sig syscall.Signal, d ports.Disposition) error {
	if len(d) != dispositionSize {
		return fmt.Errorf("sigaction(%v): invalid saved disposition", sig)
	}
	d = native.withOnStack(d)
	if rc := t.sigaction(int32(sig), &d[0], nil); rc != 0 {
		return fmt.Errorf("sigaction(%v) restore failed", sig)
	}
	return nil
}
