package allocator

import (
	"math"
	"unsafe"
)

const (
	buddyNullPtr uint32 = math.MaxUint32
)

// Buddy is a binary buddy system over a region of 1 << maxSize bytes.
// Addresses are offsets from the start of the region. Free blocks carry
// their list head inline, so 1 << minSize must fit a buddyListHead.
type Buddy struct {
	minSize uint32
	maxSize uint32
	data    unsafe.Pointer
	buckets []uint32
	bitset  []uint64
}

type buddyListHead struct {
	next         uint32
	prev         uint32
	bucketOffset uint32
}

func makeBitSet(numBlocks uint32) []uint64 {
	if numBlocks <= 64 {
		return make([]uint64, 1)
	}
	return make([]uint64, (numBlocks+63)>>6)
}

// BuddyInit ...
func BuddyInit(b *Buddy, minSizeLog uint32, maxSizeLog uint32, data unsafe.Pointer) {
	top := maxSizeLog - minSizeLog

	b.minSize = minSizeLog
	b.maxSize = maxSizeLog
	b.data = data
	b.buckets = make([]uint32, top+1)
	b.bitset = makeBitSet(1 << top)

	for i := range b.buckets {
		b.buckets[i] = buddyNullPtr
	}

	node := (*buddyListHead)(data)
	buddyAddListHead(data, &b.buckets[top], top, node)
	b.setBit(0)
}

func (b *Buddy) setBit(addr uint32) {
	index := addr >> b.minSize
	pos := index & 0x3f
	mask := uint64(1 << pos)
	b.bitset[index>>6] |= mask
}

func (b *Buddy) clearBit(addr uint32) {
	index := addr >> b.minSize
	pos := index & 0x3f
	mask := ^uint64(1 << pos)
	b.bitset[index>>6] &= mask
}

func (b *Buddy) isBitSet(addr uint32) bool {
	index := addr >> b.minSize
	pos := index & 0x3f
	mask := uint64(1 << pos)
	return b.bitset[index>>6]&mask != 0
}

func (b *Buddy) headAt(addr uint32) *buddyListHead {
	return (*buddyListHead)(unsafe.Pointer(uintptr(b.data) + uintptr(addr)))
}

func buddyAddListHead(data unsafe.Pointer, root *uint32, offset uint32, node *buddyListHead) {
	nodeAddr := uint32(uintptr(unsafe.Pointer(node)) - uintptr(data))
	if *root != buddyNullPtr {
		next := (*buddyListHead)(unsafe.Pointer(uintptr(data) + uintptr(*root)))
		next.prev = nodeAddr
	}

	node.next = *root
	node.prev = buddyNullPtr
	node.bucketOffset = offset
	*root = nodeAddr
}

func buddyRemoveListHead(data unsafe.Pointer, root *uint32, node *buddyListHead) {
	if node.next != buddyNullPtr {
		next := (*buddyListHead)(unsafe.Pointer(uintptr(data) + uintptr(node.next)))
		next.prev = node.prev
	}

	if node.prev != buddyNullPtr {
		prev := (*buddyListHead)(unsafe.Pointer(uintptr(data) + uintptr(node.prev)))
		prev.next = node.next
	} else {
		*root = node.next
	}
}

func (b *Buddy) contentOfList(sizeLog uint32) []uint32 {
	var result []uint32
	offset := sizeLog - b.minSize

	addr := b.buckets[offset]
	for addr != buddyNullPtr {
		node := b.headAt(addr)
		if node.bucketOffset == offset {
			result = append(result, addr)
		}
		addr = node.next
	}

	return result
}

// ToRealAddr ...
func (b *Buddy) ToRealAddr(addr uint32) unsafe.Pointer {
	return unsafe.Pointer(uintptr(b.data) + uintptr(addr))
}

// Allocate takes a block of 1 << sizeLog bytes, splitting a larger free
// block when needed. sizeLog must be within [minSize, maxSize].
func (b *Buddy) Allocate(sizeLog uint32) (uint32, bool) {
	offset := sizeLog - b.minSize
	maxOffset := b.maxSize - b.minSize
	emptyOffset := offset
	for ; emptyOffset <= maxOffset && b.buckets[emptyOffset] == buddyNullPtr; emptyOffset++ {
	}
	if emptyOffset > maxOffset {
		return 0, false
	}

	addr := b.buckets[emptyOffset]
	buddyRemoveListHead(b.data, &b.buckets[emptyOffset], b.headAt(addr))
	b.clearBit(addr)

	for i := int(emptyOffset) - 1; i >= int(offset); i-- {
		p := addr + (1 << (uint32(i) + b.minSize))
		buddyAddListHead(b.data, &b.buckets[i], uint32(i), b.headAt(p))
		b.setBit(p)
	}

	return addr, true
}

func computeRootAndNeighborAddr(addr uint32, sizeLog uint32) (uint32, uint32) {
	mask := uint32(math.MaxUint32) << (sizeLog + 1)
	maskedAddr := addr & mask
	if maskedAddr == addr {
		return maskedAddr, addr + (1 << sizeLog)
	}
	return maskedAddr, maskedAddr
}

// Deallocate returns a block of 1 << sizeLog bytes, merging it with its
// free buddies.
func (b *Buddy) Deallocate(addr uint32, sizeLog uint32) {
	offset := sizeLog - b.minSize

	for sizeLog < b.maxSize {
		rootAddr, neighborAddr := computeRootAndNeighborAddr(addr, sizeLog)
		if !b.isBitSet(neighborAddr) {
			break
		}

		neighborHeader := b.headAt(neighborAddr)
		if neighborHeader.bucketOffset != offset {
			break
		}

		buddyRemoveListHead(b.data, &b.buckets[offset], neighborHeader)
		b.clearBit(neighborAddr)

		addr = rootAddr
		sizeLog++
		offset++
	}

	buddyAddListHead(b.data, &b.buckets[offset], offset, b.headAt(addr))
	b.setBit(addr)
}
