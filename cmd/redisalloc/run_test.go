package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/QuangTung97/redisalloc"
	"github.com/QuangTung97/redisalloc/allocator"
)

func TestRunWorkload(t *testing.T) {
	table := []struct {
		name string
		host hostOptions
	}{
		{name: "buddy", host: hostOptions{name: "buddy", arenaLog: 24}},
		{name: "heap", host: hostOptions{name: "heap"}},
	}
	for _, e := range table {
		t.Run(e.name, func(t *testing.T) {
			h, err := openHost(e.host)
			require.NoError(t, err)
			defer func() {
				assert.NoError(t, h.Close())
			}()

			opts := runOptions{host: e.host, workers: 4, ops: 2000, maxSize: 1024, seed: 3}
			stats, err := runWorkload(redisalloc.New(h.host), h.maxAlign, opts)
			require.NoError(t, err)

			assert.Equal(t, uint64(0), stats.failures)
			assert.Equal(t, stats.allocs+stats.zeroed, stats.frees)
			assert.Greater(t, stats.reallocs, uint64(0))
			if h.usage != nil {
				assert.Equal(t, uint64(0), h.usage())
			}
		})
	}
}

func TestRunWorkloadSmallArenaCountsFailures(t *testing.T) {
	h, err := openHost(hostOptions{name: "buddy", arenaLog: 12})
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, h.Close())
	}()

	opts := runOptions{workers: 2, ops: 500, maxSize: 2048, seed: 5}
	stats, err := runWorkload(redisalloc.New(h.host), h.maxAlign, opts)
	require.NoError(t, err)
	assert.Greater(t, stats.failures, uint64(0))
	assert.Equal(t, uint64(0), h.usage())
}

func TestRunWorkloadInvalidOptions(t *testing.T) {
	_, err := runWorkload(redisalloc.New(redisalloc.Host{}), 1, runOptions{workers: 0, maxSize: 1})
	assert.Error(t, err)
}

func TestOpenHostUnknown(t *testing.T) {
	_, err := openHost(hostOptions{name: "jemalloc"})
	assert.Error(t, err)

	_, err = openHost(hostOptions{name: "buddy", arenaLog: 40})
	assert.Error(t, err)
}

func TestOpenHostArenaLogBound(t *testing.T) {
	_, err := openHost(hostOptions{name: "buddy", arenaLog: allocator.MaxArenaSizeLog + 1})
	assert.ErrorContains(t, err, "arena-log must be in [4, 31]")

	h, err := openHost(hostOptions{name: "buddy", arenaLog: allocator.DefaultConfig.MinBlockLog})
	require.NoError(t, err)
	assert.NoError(t, h.Close())
}
