//go:build linux

package sigaction

import (
	"fmt"
	"runtime"
	"strings"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/reglet-dev/vfpython/domain/ports"
)

// sigsetSize is the kernel sigset_t size rt_sigaction expects.
const sigsetSize = 8

const saOnStack = 0x08000000

// kernelLayout describes the kernel struct sigaction. MIPS puts a 32-bit
// sa_flags first; everywhere else sa_handler is followed by a long sa_flags.
func kernelLayout() layout {
	ptr := int(unsafe.Sizeof(uintptr(0)))
	if strings.HasPrefix(runtime.GOARCH, "mips") {
		return layout{handlerOff: ptr, handlerLen: ptr, flagsOff: 0, flagsLen: 4, onStack: saOnStack}
	}
	return layout{handlerOff: 0, handlerLen: ptr, flagsOff: ptr, flagsLen: ptr, onStack: saOnStack}
}

var native = kernelLayout()

// Table saves and restores dispositions with the raw rt_sigaction system
// call. The C library wrapper rewrites sa_restorer on install, which would
// break bit-exact restores.
type Table struct{}

// New returns a table backed by rt_sigaction.
func New() (*Table, error) {
	return &Table{}, nil
}

// Save returns the current disposition of sig.
func (t *Table) Save(sig syscall.Signal) (ports.Disposition, error) {
	d := make(ports.Disposition, dispositionSize)
	_, _, errno := unix.RawSyscall6(unix.SYS_RT_SIGACTION, uintptr(sig), 0,
		uintptr(unsafe.Pointer(&d[0])), sigsetSize, 0, 0)
	if errno != 0 {
		return nil, fmt.Errorf("rt_sigaction(%v) save: %w", sig, errno)
	}
	return d, nil
}

// Restore installs a disposition previously returned by Save.
func (t *Table) Restore(sig syscall.Signal, d ports.Disposition) error {
	if len(d) != dispositionSize {
		return fmt.Errorf("rt_sigaction(%v): invalid saved disposition", sig)
	}
	d = native.withOnStack(d)
	_, _, errno := unix.RawSyscall6(unix.SYS_RT_SIGACTION, uintptr(sig),
		uintptr(unsafe.Pointer(&d[0])), 0, sigsetSize, 0, 0)
	if errno != 0 {
		return fmt.Errorf("rt_sigaction(%v) restore: %w", sig, errno)
	}
	return nil
}
