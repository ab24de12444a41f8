//go:build windows

package signals

import "syscall"

// Guarded returns the console signals routed between host and guest.
func Guarded() []syscall.Signal {
	return []syscall.Signal{syscall.SIGINT, syscall.SIGTERM}
}
