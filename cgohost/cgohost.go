//go:build cgo

// Package cgohost turns raw C allocator entry points, such as the
// RedisModule_Alloc family filled in by RedisModule_Init, into a
// redisalloc.Host.
package cgohost

/*
#include <stdlib.h>

typedef void *(*alloc_fn)(size_t);
typedef void *(*calloc_fn)(size_t, size_t);
typedef void (*free_fn)(void *);
typedef void *(*realloc_fn)(void *, size_t);

static void *call_alloc(void *f, size_t size) {
	return ((alloc_fn)f)(size);
}

static void *call_calloc(void *f, size_t count, size_t size) {
	return ((calloc_fn)f)(count, size);
}

static void call_free(void *f, void *ptr) {
	((free_fn)f)(ptr);
}

static void *call_realloc(void *f, void *ptr, size_t size) {
	return ((realloc_fn)f)(ptr, size);
}

static void *libc_malloc(void) { return (void *)malloc; }
static void *libc_calloc(void) { return (void *)calloc; }
static void *libc_free(void) { return (void *)free; }
static void *libc_realloc(void) { return (void *)realloc; }
*/
import "C"

import (
	"unsafe"

	"github.com/QuangTung97/redisalloc"
)

// Table holds C function pointers with the signatures
//
//	void *alloc(size_t size);
//	void *calloc(size_t count, size_t size);
//	void free(void *ptr);
//	void *realloc(void *ptr, size_t size);
//
// A nil entry means the host does not provide that function.
type Table struct {
	Alloc   unsafe.Pointer
	Calloc  unsafe.Pointer
	Free    unsafe.Pointer
	Realloc unsafe.Pointer
}

// Libc returns the C library's malloc, calloc, free and realloc.
func Libc() Table {
	return Table{
		Alloc:   C.libc_malloc(),
		Calloc:  C.libc_calloc(),
		Free:    C.libc_free(),
		Realloc: C.libc_realloc(),
	}
}

// Host wraps the entries of t. Nil entries stay nil in the result.
func (t Table) Host() redisalloc.Host {
	var h redisalloc.Host

	if f := t.Alloc; f != nil {
		h.Alloc = func(size uintptr) unsafe.Pointer {
			return C.call_alloc(f, C.size_t(size))
		}
	}
	if f := t.Calloc; f != nil {
		h.Calloc = func(count, size uintptr) unsafe.Pointer {
			return C.call_calloc(f, C.size_t(count), C.size_t(size))
		}
	}
	if f := t.Free; f != nil {
		h.Free = func(ptr unsafe.Pointer) {
			C.call_free(f, ptr)
		}
	}
	if f := t.Realloc; f != nil {
		h.Realloc = func(ptr unsafe.Pointer, size uintptr) unsafe.Pointer {
			return C.call_realloc(f, ptr, C.size_t(size))
		}
	}

	return h
}
