//go:build windows

package abort

import "golang.org/x/sys/windows"

// abortExitCode is what the C runtime's abort exits with.
const abortExitCode = 3

func writeStderr(b []byte) {
	_, _ = windows.Write(windows.Stderr, b)
}

func die() {
	_ = windows.TerminateProcess(windows.CurrentProcess(), abortExitCode)
	windows.ExitProcess(abortExitCode)
}
