//go:build linux || darwin || freebsd || netbsd || openbsd

package clock

import (
	"time"

	"golang.org/x/sys/unix"
)

var processStart = time.Now()

// hostMonotonic reads CLOCK_MONOTONIC directly, falling back to the Go
// runtime's monotonic reading if the syscall fails.
func hostMonotonic() time.Duration {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return time.Since(processStart)
	}
	return time.Duration(ts.Nano())
}
