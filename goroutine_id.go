// goroutine_id.go - best-effort goroutine identification for Flag's
// reentrant-lock bookkeeping. There is no supported API for this, so the
// id is scraped from the runtime's own stack trace header, same trick used
// throughout the wider Go ecosystem for debug-only goroutine tracking.

package display

import (
	"bytes"
	"runtime"
	"strconv"
)

// goroutineID returns a number uniquely identifying the calling goroutine
// for as long as it is alive. It is never used for anything but recursive
// lock-ownership checks.
func goroutineID() int64 {
	buf := make([]byte, 64)
	buf = buf[:runtime.Stack(buf, false)]
	buf = bytes.TrimPrefix(buf, []byte("goroutine "))
	if i := bytes.IndexByte(buf, ' '); i >= 0 {
		buf = buf[:i]
	}
	id, _ := strconv.ParseInt(string(buf), 10, 64)
	return id
}
