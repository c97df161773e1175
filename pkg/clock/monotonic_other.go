//go:build !(linux || darwin || freebsd || netbsd || openbsd)

package clock

import "time"

var processStart = time.Now()

func hostMonotonic() time.Duration {
	return time.Since(processStart)
}
