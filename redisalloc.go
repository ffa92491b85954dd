// Package redisalloc routes memory requests to an allocator owned by an
// embedding host, such as the RedisModule_Alloc family of a Redis server.
//
// The host API takes no alignment argument. Requests are rounded up to a
// multiple of their alignment so that the host's size-class chunks come
// back suitably aligned. When the needed host function is missing the
// process writes NotAvailableMessage to stderr and aborts without
// allocating.
package redisalloc

import (
	"unsafe"

	"github.com/QuangTung97/redisalloc/internal/abort"
)

// NotAvailableMessage is written to stderr before aborting when a host
// function is missing.
const NotAvailableMessage = "Critical error: the Redis Allocator isn't available.\n"

// Allocator dispatches requests to a host table. It holds no mutable state
// and may be shared between goroutines.
type Allocator struct {
	host Host
}

// New returns an allocator dispatching to h.
func New(h Host) *Allocator {
	return &Allocator{host: h}
}

// Alloc requests a block for l from the host. A nil result means the host
// is out of memory.
func (a *Allocator) Alloc(l Layout) unsafe.Pointer {
	alloc := a.host.Alloc
	if alloc == nil {
		abort.Fatal(NotAvailableMessage)
	}
	size, ok := l.AdjustedSize()
	if !ok {
		return nil
	}
	return alloc(size)
}

// AllocZeroed is like Alloc but the block is zero filled by the host.
func (a *Allocator) AllocZeroed(l Layout) unsafe.Pointer {
	calloc := a.host.Calloc
	if calloc == nil {
		abort.Fatal(NotAvailableMessage)
	}
	size, ok := l.AdjustedSize()
	if !ok {
		return nil
	}
	return calloc(1, size)
}

// Dealloc returns ptr to the host. The layout is not needed by the host.
func (a *Allocator) Dealloc(ptr unsafe.Pointer, _ Layout) {
	free := a.host.Free
	if free == nil {
		abort.Fatal(NotAvailableMessage)
	}
	free(ptr)
}

// Realloc resizes the block at ptr to newSize bytes, keeping the alignment
// of l. On a nil result the original block is still valid.
func (a *Allocator) Realloc(ptr unsafe.Pointer, l Layout, newSize uintptr) unsafe.Pointer {
	realloc := a.host.Realloc
	if realloc == nil {
		abort.Fatal(NotAvailableMessage)
	}
	size, ok := Layout{Size: newSize, Align: l.Align}.AdjustedSize()
	if !ok {
		return nil
	}
	return realloc(ptr, size)
}

// Alloc calls Default().Alloc.
func Alloc(l Layout) unsafe.Pointer {
	return Default().Alloc(l)
}

// AllocZeroed calls Default().AllocZeroed.
func AllocZeroed(l Layout) unsafe.Pointer {
	return Default().AllocZeroed(l)
}

// Dealloc calls Default().Dealloc.
func Dealloc(ptr unsafe.Pointer, l Layout) {
	Default().Dealloc(ptr, l)
}

// Realloc calls Default().Realloc.
func Realloc(ptr unsafe.Pointer, l Layout, newSize uintptr) unsafe.Pointer {
	return Default().Realloc(ptr, l, newSize)
}
