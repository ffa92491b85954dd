package redisalloc

import "unsafe"

// Layout describes the size and alignment of a single memory request.
// Align must be a power of two.
type Layout struct {
	Size  uintptr
	Align uintptr
}

// NewLayout ...
func NewLayout(size, align uintptr) (Layout, error) {
	if align == 0 || align&(align-1) != 0 {
		return Layout{}, ErrInvalidAlign
	}
	return Layout{Size: size, Align: align}, nil
}

// LayoutOf returns the layout of a value of type T.
func LayoutOf[T any]() Layout {
	var v T
	return Layout{
		Size:  unsafe.Sizeof(v),
		Align: unsafe.Alignof(v),
	}
}

// AdjustedSize returns the smallest multiple of Align that is >= Size.
//
// The host allocator hands out chunks aligned to their own size class, so
// asking for a multiple of the alignment is enough to get an aligned block.
// ok is false when the rounding overflows uintptr.
func (l Layout) AdjustedSize() (size uintptr, ok bool) {
	mask := l.Align - 1
	if l.Size > ^uintptr(0)-mask {
		return 0, false
	}
	return (l.Size + mask) &^ mask, true
}
