//go:build windows

package sigaction

import (
	"syscall"

	"github.com/reglet-dev/vfpython/domain/ports"
)

// Table is a no-op on Windows: console control handlers are not replaced by
// the guest runtime and need no bracketing.
type Table struct{}

// New returns the no-op table.
func New() (*Table, error) {
	return &Table{}, nil
}

func (t *Table) Save(syscall.Signal) (ports.Disposition, error) {
	return ports.Disposition{}, nil
}

func (t *Table) Restore(syscall.Signal, ports.Disposition) error {
	return nil
}
