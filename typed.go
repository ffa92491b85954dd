package redisalloc

import (
	"fmt"
	"reflect"
	"unsafe"
)

// Memory returned by the host is invisible to the garbage collector, so
// only pointer-free types may live in it.
func assertNoPointers[T any]() error {
	return typeNoPointers(reflect.TypeOf((*T)(nil)).Elem())
}

func typeNoPointers(t reflect.Type) error {
	switch t.Kind() {
	case reflect.Bool, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return nil
	case reflect.Array:
		return typeNoPointers(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if err := typeNoPointers(t.Field(i).Type); err != nil {
				return fmt.Errorf("field %s: %w", t.Field(i).Name, err)
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrPointerType, t.String())
	}
}

// Value allocates a zeroed T from a.
func Value[T any](a *Allocator) (*T, error) {
	if err := assertNoPointers[T](); err != nil {
		return nil, err
	}
	l := LayoutOf[T]()
	if l.Size == 0 {
		return new(T), nil
	}
	p := a.AllocZeroed(l)
	if p == nil {
		return nil, ErrOutOfMemory
	}
	return (*T)(p), nil
}

// FreeValue releases a value obtained from Value.
func FreeValue[T any](a *Allocator, v *T) {
	l := LayoutOf[T]()
	if l.Size == 0 {
		return
	}
	a.Dealloc(unsafe.Pointer(v), l)
}

func sliceLayout[T any](n int) (Layout, bool) {
	elem := LayoutOf[T]()
	if n < 0 {
		return Layout{}, false
	}
	if elem.Size != 0 && uintptr(n) > ^uintptr(0)/elem.Size {
		return Layout{}, false
	}
	return Layout{Size: elem.Size * uintptr(n), Align: elem.Align}, true
}

// Slice allocates a zeroed slice of n elements from a.
func Slice[T any](a *Allocator, n int) ([]T, error) {
	if err := assertNoPointers[T](); err != nil {
		return nil, err
	}
	l, ok := sliceLayout[T](n)
	if !ok {
		return nil, ErrOutOfMemory
	}
	if l.Size == 0 {
		return make([]T, n), nil
	}
	p := a.AllocZeroed(l)
	if p == nil {
		return nil, ErrOutOfMemory
	}
	return unsafe.Slice((*T)(p), n), nil
}

// FreeSlice releases a slice obtained from Slice. s must be that slice or
// a reslice s[:k] of it, which keeps its first element and capacity. A
// slice grown by append past its capacity lives on the Go heap and must
// not be passed here. Slices that were never backed by host memory are
// ignored.
func FreeSlice[T any](a *Allocator, s []T) {
	l, _ := sliceLayout[T](cap(s))
	if l.Size == 0 {
		return
	}
	a.Dealloc(unsafe.Pointer(unsafe.SliceData(s)), l)
}
