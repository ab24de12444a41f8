package ports

import "syscall"

// Disposition is an opaque saved signal disposition.
type Disposition []byte

// DispositionTable reads and writes process signal dispositions at the OS
// level, below the Go runtime.
type DispositionTable interface {
	Save(sig syscall.Signal) (Disposition, error)
	Restore(sig syscall.Signal, d Disposition) error
}
