//go:build !unix

package allocator

import "errors"

// ErrNotSupported is returned by NewArena on platforms without mmap.
var ErrNotSupported = errors.New("allocator: mmap not supported on this platform")

func mapRegion(size int) ([]byte, error) {
	return nil, ErrNotSupported
}

func unmapRegion(data []byte) error {
	return nil
}
