//go:build unix

package signals

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sys/unix"
)

// reraiseDefault stops Go from catching sig and sends it to the process
// again so the default action runs.
func reraiseDefault(sig os.Signal) error {
	s, ok := sig.(syscall.Signal)
	if !ok {
		return fmt.Errorf("unsupported signal %v", sig)
	}
	signal.Reset(s)
	return unix.Kill(os.Getpid(), s)
}
