package redisalloc

import "errors"

var (
	// ErrInvalidAlign is returned when an alignment is zero or not a power of two.
	ErrInvalidAlign = errors.New("redisalloc: alignment must be a power of two")
	// ErrAlreadyInstalled is returned by Install after the first successful call.
	ErrAlreadyInstalled = errors.New("redisalloc: host already installed")
	// ErrOutOfMemory ...
	ErrOutOfMemory = errors.New("redisalloc: out of memory")
	// ErrPointerType is returned by the typed helpers for types holding Go pointers.
	ErrPointerType = errors.New("redisalloc: type contains pointers")
)
