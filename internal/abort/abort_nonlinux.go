//go:build unix && !linux

package abort

// x/sys exposes no sigaction for darwin and the BSDs differ in their
// sigaction syscalls, so the runtime's crash path restores SIG_DFL.
func die() {
	raiseViaRuntime()
}
