// Package abort terminates the process without touching the heap. It is
// the last resort when the allocator itself cannot be used.
package abort

import (
	"sync/atomic"
	"unsafe"
)

var fired atomic.Bool

// Fatal writes msg to stderr with a single raw write and terminates the
// process abnormally. Write errors are ignored. Fatal never returns.
//
// On unix the process is killed by SIGABRT. On windows it is terminated
// with exit code 3, the code the C runtime's abort uses. Other platforms
// have no abnormal termination, so Fatal exits with status 2 there.
//
// Only the first caller writes msg. Concurrent callers block until the
// process is gone.
//
// msg should be a constant so no allocation is needed to produce it.
func Fatal(msg string) {
	if !fired.CompareAndSwap(false, true) {
		select {}
	}
	writeStderr(viewOf(msg))
	die()
}

func viewOf(s string) []byte {
	return unsafe.Slice(unsafe.StringData(s), len(s))
}
