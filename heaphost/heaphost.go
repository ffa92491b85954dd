// Package heaphost provides a redisalloc host backed by modernc.org/memory,
// a malloc-style allocator that takes its pages directly from the OS.
//
// Blocks are aligned to 16 bytes. Larger alignments are not guaranteed.
package heaphost

import (
	"fmt"
	"sync"
	"unsafe"

	"modernc.org/memory"

	"github.com/QuangTung97/redisalloc"
)

// Heap ...
type Heap struct {
	mut   sync.Mutex
	alloc memory.Allocator
}

// New ...
func New() *Heap {
	return &Heap{}
}

// Host returns the capability table of the heap.
func (h *Heap) Host() redisalloc.Host {
	return redisalloc.Host{
		Alloc:   h.Alloc,
		Calloc:  h.Calloc,
		Free:    h.Free,
		Realloc: h.Realloc,
	}
}

// A zero size request would return no block at all, which callers of the
// host API read as out of memory.
func requestSize(size uintptr) int {
	if size == 0 {
		return 1
	}
	return int(size)
}

func fits(size uintptr) bool {
	return size <= uintptr(^uint(0)>>1)
}

// Alloc ...
func (h *Heap) Alloc(size uintptr) unsafe.Pointer {
	if !fits(size) {
		return nil
	}

	h.mut.Lock()
	defer h.mut.Unlock()

	p, err := h.alloc.UnsafeMalloc(requestSize(size))
	if err != nil {
		return nil
	}
	return p
}

// Calloc ...
func (h *Heap) Calloc(count, size uintptr) unsafe.Pointer {
	if size != 0 && count > ^uintptr(0)/size {
		return nil
	}
	total := count * size
	if !fits(total) {
		return nil
	}

	h.mut.Lock()
	defer h.mut.Unlock()

	p, err := h.alloc.UnsafeCalloc(requestSize(total))
	if err != nil {
		return nil
	}
	return p
}

// Free ...
func (h *Heap) Free(p unsafe.Pointer) {
	if p == nil {
		return
	}

	h.mut.Lock()
	defer h.mut.Unlock()

	// UnsafeFree only fails when unmapping a dedicated page fails; the block
	// is gone either way.
	_ = h.alloc.UnsafeFree(p)
}

// Realloc ...
func (h *Heap) Realloc(p unsafe.Pointer, size uintptr) unsafe.Pointer {
	if !fits(size) {
		return nil
	}

	h.mut.Lock()
	defer h.mut.Unlock()

	q, err := h.alloc.UnsafeRealloc(p, requestSize(size))
	if err != nil {
		return nil
	}
	return q
}

// UsableSize returns the size of the block at p.
func UsableSize(p unsafe.Pointer) int {
	return memory.UnsafeUsableSize(p)
}

// Close returns all memory to the OS. Blocks handed out become invalid.
func (h *Heap) Close() error {
	h.mut.Lock()
	defer h.mut.Unlock()

	if err := h.alloc.Close(); err != nil {
		return fmt.Errorf("heaphost: close: %w", err)
	}
	return nil
}
