package main

import (
	"fmt"
	"log/slog"

	"github.com/QuangTung97/redisalloc"
	"github.com/QuangTung97/redisalloc/allocator"
	"github.com/QuangTung97/redisalloc/heaphost"
)

type hostOptions struct {
	name     string
	arenaLog uint32
}

type hostHandle struct {
	host redisalloc.Host
	// largest alignment the host guarantees
	maxAlign uintptr
	usage    func() uint64
	close    func() error
}

func openHost(opts hostOptions) (*hostHandle, error) {
	switch opts.name {
	case "buddy":
		conf := allocator.DefaultConfig
		if opts.arenaLog != 0 {
			conf.ArenaSizeLog = opts.arenaLog
		}
		if conf.ArenaSizeLog < conf.MinBlockLog || conf.ArenaSizeLog > allocator.MaxArenaSizeLog {
			return nil, fmt.Errorf("arena-log must be in [%d, %d]", conf.MinBlockLog, allocator.MaxArenaSizeLog)
		}
		a, err := allocator.NewArena(conf)
		if err != nil {
			return nil, err
		}
		return &hostHandle{
			host:     a.Host(),
			maxAlign: 4096,
			usage:    a.MemUsage,
			close:    a.Close,
		}, nil

	case "heap":
		h := heaphost.New()
		return &hostHandle{
			host:     h.Host(),
			maxAlign: 16,
			close:    h.Close,
		}, nil

	case "libc":
		return openLibcHost()

	case "none":
		slog.Warn("no host functions installed, the first allocation aborts the process")
		return &hostHandle{maxAlign: 1}, nil

	default:
		return nil, fmt.Errorf("unknown host %q (want buddy, heap, libc or none)", opts.name)
	}
}

func (h *hostHandle) Close() error {
	if h.close == nil {
		return nil
	}
	return h.close()
}
