package allocator

import "unsafe"

// Config ...
type Config struct {
	// MinBlockLog is log2 of the smallest block handed out.
	MinBlockLog uint32
	// ArenaSizeLog is log2 of the mapped region size.
	ArenaSizeLog uint32
}

// DefaultConfig is a 64 MiB arena with 16 byte blocks.
var DefaultConfig = Config{
	MinBlockLog:  4,
	ArenaSizeLog: 26,
}

// MaxArenaSizeLog is the largest ArenaSizeLog. Block offsets are uint32.
const MaxArenaSizeLog = 31

func allocatorValidateConfig(conf Config) {
	if 1<<conf.MinBlockLog < unsafe.Sizeof(buddyListHead{}) {
		panic("MinBlockLog too small to hold a free list head")
	}
	if conf.ArenaSizeLog < conf.MinBlockLog {
		panic("ArenaSizeLog must >= MinBlockLog")
	}
	if conf.ArenaSizeLog > MaxArenaSizeLog {
		panic("ArenaSizeLog must <= 31")
	}
}
