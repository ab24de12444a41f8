package guesttest

import (
	"fmt"
	"sync"
	"syscall"

	"github.com/reglet-dev/vfpython/domain/ports"
)

// Dispositions is an in-memory signal disposition table. A disposition is
// a label; signals never touched read as "host:<signal number>".
type Dispositions struct {
	table    map[syscall.Signal]string
	saves    int
	restores int
	mu       sync.Mutex
}

var _ ports.DispositionTable = (*Dispositions)(nil)

// NewDispositions returns a table holding only host defaults.
func NewDispositions() *Dispositions {
	return &Dispositions{table: map[syscall.Signal]string{}}
}

func hostLabel(sig syscall.Signal) string {
	return fmt.Sprintf("host:%d", int(sig))
}

// Save returns the current disposition of sig.
func (d *Dispositions) Save(sig syscall.Signal) (ports.Disposition, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if sig <= 0 || sig >= 65 {
		return nil, fmt.Errorf("invalid signal %d", int(sig))
	}
	d.saves++
	return ports.Disposition(d.get(sig)), nil
}

// Restore installs a previously saved disposition.
func (d *Dispositions) Restore(sig syscall.Signal, disp ports.Disposition) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(disp) == 0 {
		return fmt.Errorf("empty disposition for signal %d", int(sig))
	}
	d.restores++
	d.table[sig] = string(disp)
	return nil
}

// Set installs a disposition directly, as a third party calling sigaction would.
func (d *Dispositions) Set(sig syscall.Signal, label string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.table[sig] = label
}

// Get returns the label installed for sig.
func (d *Dispositions) Get(sig syscall.Signal) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.get(sig)
}

func (d *Dispositions) get(sig syscall.Signal) string {
	if l, ok := d.table[sig]; ok {
		return l
	}
	return hostLabel(sig)
}

// Snapshot returns the labels of the given signals.
func (d *Dispositions) Snapshot(sigs ...syscall.Signal) map[syscall.Signal]string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[syscall.Signal]string, len(sigs))
	for _, s := range sigs {
		out[s] = d.get(s)
	}
	return out
}

// Counts returns how many saves and restores ran.
func (d *Dispositions) Counts() (saves, restores int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.saves, d.restores
}
