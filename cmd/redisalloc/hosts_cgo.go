//go:build cgo

package main

import "github.com/QuangTung97/redisalloc/cgohost"

func openLibcHost() (*hostHandle, error) {
	return &hostHandle{
		host:     cgohost.Libc().Host(),
		maxAlign: 16,
	}, nil
}
