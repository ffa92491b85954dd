//go:build linux

package abort

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// The Go runtime catches SIGABRT and prints its own traceback, so the
// default disposition is restored with a raw rt_sigaction before raising.
// An all-zero sigaction is SIG_DFL with an empty mask on every arch. The
// kernel sigset is 8 bytes except on mips, where it is 16.
func die() {
	var act [8]uint64
	for _, sigsetSize := range [...]uintptr{8, 16} {
		_, _, errno := unix.RawSyscall6(unix.SYS_RT_SIGACTION, uintptr(unix.SIGABRT),
			uintptr(unsafe.Pointer(&act)), 0, sigsetSize, 0, 0)
		if errno == 0 {
			break
		}
	}
	_ = unix.Tgkill(unix.Getpid(), unix.Gettid(), unix.SIGABRT)
	raiseViaRuntime()
}
