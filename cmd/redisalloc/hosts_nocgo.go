//go:build !cgo

package main

import "errors"

func openLibcHost() (*hostHandle, error) {
	return nil, errors.New("libc host needs a cgo build")
}
