//go:build windows

package signals

import (
	"os"
	"os/signal"
)

// statusControlCExit is STATUS_CONTROL_C_EXIT, the status Windows reports for a process
// terminated by Ctrl-C.
const statusControlCExit = -1073741510 // 0xC000013A

func reraiseDefault(sig os.Signal) error {
	signal.Reset(sig)
	os.Exit(statusControlCExit)
	return nil
}
