package redisalloc

import (
	"log/slog"
	"sync/atomic"
	"unsafe"
)

// Host is the table of allocation functions supplied by the embedding
// runtime. Each slot mirrors one C entry point of the host API and may be
// nil when the host does not provide it.
//
// Every non-nil function must be safe for concurrent use.
type Host struct {
	Alloc   func(size uintptr) unsafe.Pointer
	Calloc  func(count, size uintptr) unsafe.Pointer
	Free    func(ptr unsafe.Pointer)
	Realloc func(ptr unsafe.Pointer, size uintptr) unsafe.Pointer
}

// Capabilities returns the names of the slots that are present.
func (h Host) Capabilities() []string {
	var names []string
	if h.Alloc != nil {
		names = append(names, "alloc")
	}
	if h.Calloc != nil {
		names = append(names, "calloc")
	}
	if h.Free != nil {
		names = append(names, "free")
	}
	if h.Realloc != nil {
		names = append(names, "realloc")
	}
	return names
}

var (
	installed atomic.Pointer[Allocator]
	unwired   = &Allocator{}
)

// Install publishes h as the process-wide host table. It must be called
// once during startup, before the package level functions are used.
// Later calls return ErrAlreadyInstalled and keep the first table.
func Install(h Host) error {
	if !installed.CompareAndSwap(nil, New(h)) {
		return ErrAlreadyInstalled
	}
	slog.Debug("redisalloc: host installed", "capabilities", h.Capabilities())
	return nil
}

// Installed reports whether Install has succeeded.
func Installed() bool {
	return installed.Load() != nil
}

// Default returns the allocator built from the installed host table.
// Before Install it returns an allocator with no capabilities, so every
// operation takes the abort path.
func Default() *Allocator {
	if a := installed.Load(); a != nil {
		return a
	}
	return unwired
}
