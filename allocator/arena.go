package allocator

import (
	"fmt"
	"log/slog"
	"math/bits"
	"sync"
	"unsafe"

	"github.com/QuangTung97/redisalloc"
)

// Arena is a host allocator backed by a buddy system over an anonymous
// memory mapping. Blocks are power-of-two sized and aligned to their size
// relative to the page aligned start of the mapping, which is the chunk
// behaviour redisalloc relies on when rounding requests.
//
// Arena is safe for concurrent use.
type Arena struct {
	mut sync.Mutex

	buddy  Buddy
	region []byte

	// sizeLog of the allocated block starting at each min block, 0 if none
	orders []uint8

	memoryUsage uint64
}

// NewArena maps a region of 1 << conf.ArenaSizeLog bytes.
func NewArena(conf Config) (*Arena, error) {
	allocatorValidateConfig(conf)

	region, err := mapRegion(1 << conf.ArenaSizeLog)
	if err != nil {
		return nil, fmt.Errorf("allocator: map arena: %w", err)
	}

	a := &Arena{
		region: region,
		orders: make([]uint8, 1<<(conf.ArenaSizeLog-conf.MinBlockLog)),
	}
	BuddyInit(&a.buddy, conf.MinBlockLog, conf.ArenaSizeLog, unsafe.Pointer(&region[0]))

	slog.Debug("allocator: arena mapped",
		"size", len(region), "min_block", 1<<conf.MinBlockLog)
	return a, nil
}

// Host returns the capability table of the arena.
func (a *Arena) Host() redisalloc.Host {
	return redisalloc.Host{
		Alloc:   a.Alloc,
		Calloc:  a.Calloc,
		Free:    a.Free,
		Realloc: a.Realloc,
	}
}

func (a *Arena) sizeLogOf(size uintptr) (uint32, bool) {
	if size <= 1<<a.buddy.minSize {
		return a.buddy.minSize, true
	}
	sizeLog := uint32(bits.Len64(uint64(size - 1)))
	return sizeLog, sizeLog <= a.buddy.maxSize
}

func (a *Arena) offsetOf(p unsafe.Pointer) uint32 {
	base := uintptr(a.buddy.data)
	addr := uintptr(p)
	if addr < base || addr-base >= uintptr(len(a.region)) {
		panic("allocator: pointer not owned by arena")
	}
	return uint32(addr - base)
}

func (a *Arena) allocLocked(size uintptr) unsafe.Pointer {
	if a.region == nil {
		return nil
	}
	sizeLog, ok := a.sizeLogOf(size)
	if !ok {
		return nil
	}
	addr, ok := a.buddy.Allocate(sizeLog)
	if !ok {
		return nil
	}
	a.orders[addr>>a.buddy.minSize] = uint8(sizeLog)
	a.memoryUsage += 1 << sizeLog
	return a.buddy.ToRealAddr(addr)
}

func (a *Arena) blockSizeLog(addr uint32) uint32 {
	sizeLog := uint32(a.orders[addr>>a.buddy.minSize])
	if sizeLog == 0 {
		panic("allocator: pointer is not an allocated block")
	}
	return sizeLog
}

func (a *Arena) freeLocked(addr uint32) {
	sizeLog := a.blockSizeLog(addr)
	a.orders[addr>>a.buddy.minSize] = 0
	a.memoryUsage -= 1 << sizeLog
	a.buddy.Deallocate(addr, sizeLog)
}

// Alloc returns a block of at least size bytes, or nil when the arena is
// exhausted.
func (a *Arena) Alloc(size uintptr) unsafe.Pointer {
	a.mut.Lock()
	defer a.mut.Unlock()

	return a.allocLocked(size)
}

// Calloc returns a zeroed block of count * size bytes.
func (a *Arena) Calloc(count, size uintptr) unsafe.Pointer {
	hi, total := bits.Mul64(uint64(count), uint64(size))
	if hi != 0 || uint64(uintptr(total)) != total {
		return nil
	}

	a.mut.Lock()
	p := a.allocLocked(uintptr(total))
	a.mut.Unlock()

	if p != nil {
		clear(unsafe.Slice((*byte)(p), total))
	}
	return p
}

// Free releases a block. A nil pointer is ignored.
func (a *Arena) Free(p unsafe.Pointer) {
	if p == nil {
		return
	}

	a.mut.Lock()
	defer a.mut.Unlock()

	if a.region == nil {
		return
	}
	a.freeLocked(a.offsetOf(p))
}

// Realloc resizes the block at p. The block stays in place when its size
// class does not change. On failure it returns nil and p remains valid,
// except when shrinking, where the old block is kept and returned.
func (a *Arena) Realloc(p unsafe.Pointer, size uintptr) unsafe.Pointer {
	if p == nil {
		return a.Alloc(size)
	}

	a.mut.Lock()
	defer a.mut.Unlock()

	if a.region == nil {
		return nil
	}

	addr := a.offsetOf(p)
	oldSizeLog := a.blockSizeLog(addr)
	newSizeLog, ok := a.sizeLogOf(size)
	if !ok {
		return nil
	}
	if newSizeLog == oldSizeLog {
		return p
	}

	q := a.allocLocked(size)
	if q == nil {
		if newSizeLog < oldSizeLog {
			return p
		}
		return nil
	}

	n := uintptr(1) << min(oldSizeLog, newSizeLog)
	copy(unsafe.Slice((*byte)(q), n), unsafe.Slice((*byte)(p), n))
	a.freeLocked(addr)
	return q
}

// MemUsage returns the number of bytes held by allocated blocks.
func (a *Arena) MemUsage() uint64 {
	a.mut.Lock()
	defer a.mut.Unlock()

	return a.memoryUsage
}

// Close unmaps the region. Blocks handed out become invalid and later
// allocations return nil.
func (a *Arena) Close() error {
	a.mut.Lock()
	defer a.mut.Unlock()

	if a.region == nil {
		return nil
	}
	region := a.region
	a.region = nil
	a.buddy.data = nil
	if err := unmapRegion(region); err != nil {
		return fmt.Errorf("allocator: unmap arena: %w", err)
	}
	slog.Debug("allocator: arena unmapped", "size", len(region))
	return nil
}
