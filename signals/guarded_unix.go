//go:build unix

package signals

import "syscall"

// Guarded returns the signals whose dispositions the guest runtime replaces
// on start-up, plus SIGTERM.
func Guarded() []syscall.Signal {
	return []syscall.Signal{syscall.SIGINT, syscall.SIGTERM, syscall.SIGPIPE, syscall.SIGXFSZ}
}
