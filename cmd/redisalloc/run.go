package main

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"
	"unsafe"

	"github.com/spf13/cobra"

	"github.com/QuangTung97/redisalloc"
)

type runOptions struct {
	host    hostOptions
	workers int
	ops     int
	maxSize int
	seed    int64
}

func newRunCmd() *cobra.Command {
	opts := runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Install a host and run a concurrent allocation workload",
		Long: `Install the selected host as the process-wide capability table and run
random alloc, zeroed alloc, realloc and free cycles from several goroutines.
Every block is checked for alignment, zeroing and preserved contents.

With --host none no capability is installed and the first allocation aborts
the process with the fixed diagnostic.`,
		Example: `  redisalloc run --host buddy --workers 8 --ops 100000
  redisalloc run --host none`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstalled(opts)
		},
	}

	cmd.Flags().StringVar(&opts.host.name, "host", "buddy", "Host allocator: buddy, heap, libc or none")
	cmd.Flags().Uint32Var(&opts.host.arenaLog, "arena-log", 0, "log2 of the buddy arena size (default 26)")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", 4, "Number of concurrent workers")
	cmd.Flags().IntVarP(&opts.ops, "ops", "n", 10000, "Operations per worker")
	cmd.Flags().IntVar(&opts.maxSize, "max-size", 4096, "Largest request size in bytes")
	cmd.Flags().Int64Var(&opts.seed, "seed", 1, "Random seed")

	return cmd
}

func runInstalled(opts runOptions) error {
	h, err := openHost(opts.host)
	if err != nil {
		return err
	}
	defer func() {
		if err := h.Close(); err != nil {
			slog.Error("Failed to close host", "error", err)
		}
	}()

	if err := redisalloc.Install(h.host); err != nil {
		return err
	}

	start := time.Now()
	stats, err := runWorkload(redisalloc.Default(), h.maxAlign, opts)
	if err != nil {
		return err
	}

	printInfo("host:      %s\n", opts.host.name)
	printInfo("allocs:    %d\n", stats.allocs)
	printInfo("zeroed:    %d\n", stats.zeroed)
	printInfo("reallocs:  %d\n", stats.reallocs)
	printInfo("frees:     %d\n", stats.frees)
	printInfo("failures:  %d\n", stats.failures)
	if h.usage != nil {
		printInfo("in use:    %d bytes\n", h.usage())
	}
	printInfo("elapsed:   %v\n", time.Since(start))
	return nil
}

type workloadStats struct {
	allocs   uint64
	zeroed   uint64
	reallocs uint64
	frees    uint64
	failures uint64
}

func (s *workloadStats) add(o workloadStats) {
	s.allocs += o.allocs
	s.zeroed += o.zeroed
	s.reallocs += o.reallocs
	s.frees += o.frees
	s.failures += o.failures
}

type liveBlock struct {
	ptr    unsafe.Pointer
	layout redisalloc.Layout
	fill   byte
}

func (b liveBlock) bytes() []byte {
	return unsafe.Slice((*byte)(b.ptr), b.layout.Size)
}

func runWorkload(a *redisalloc.Allocator, maxAlign uintptr, opts runOptions) (workloadStats, error) {
	if opts.workers <= 0 || opts.ops < 0 || opts.maxSize <= 0 {
		return workloadStats{}, errors.New("workers and max-size must be positive, ops must not be negative")
	}

	var (
		wg    sync.WaitGroup
		mut   sync.Mutex
		total workloadStats
		errs  []error
	)

	for w := 0; w < opts.workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()

			wk := &worker{
				alloc:    a,
				rand:     rand.New(rand.NewSource(opts.seed + int64(w))),
				maxAlign: maxAlign,
				maxSize:  opts.maxSize,
				fill:     byte(w + 1),
			}
			err := wk.run(opts.ops)

			mut.Lock()
			defer mut.Unlock()
			total.add(wk.stats)
			if err != nil {
				errs = append(errs, fmt.Errorf("worker %d: %w", w, err))
			}
		}(w)
	}
	wg.Wait()

	slog.Debug("workload finished", "workers", opts.workers, "ops", opts.ops)
	return total, errors.Join(errs...)
}

type worker struct {
	alloc    *redisalloc.Allocator
	rand     *rand.Rand
	maxAlign uintptr
	maxSize  int
	fill     byte

	live  []liveBlock
	stats workloadStats
}

func (w *worker) randomLayout() redisalloc.Layout {
	align := uintptr(1)
	for align < w.maxAlign && w.rand.Intn(2) == 0 {
		align <<= 1
	}
	return redisalloc.Layout{
		Size:  uintptr(1 + w.rand.Intn(w.maxSize)),
		Align: align,
	}
}

func (w *worker) checkAligned(p unsafe.Pointer, l redisalloc.Layout) error {
	if uintptr(p)%l.Align != 0 {
		return fmt.Errorf("block %p not aligned to %d", p, l.Align)
	}
	return nil
}

func (w *worker) checkFill(b liveBlock) error {
	for i, v := range b.bytes() {
		if v != b.fill {
			return fmt.Errorf("block %p byte %d is %#x, want %#x", b.ptr, i, v, b.fill)
		}
	}
	return nil
}

func (w *worker) take() liveBlock {
	k := w.rand.Intn(len(w.live))
	b := w.live[k]
	w.live[k] = w.live[len(w.live)-1]
	w.live = w.live[:len(w.live)-1]
	return b
}

func (w *worker) push(p unsafe.Pointer, l redisalloc.Layout) {
	b := liveBlock{ptr: p, layout: l, fill: w.fill}
	fillBytes(b.bytes(), w.fill)
	w.live = append(w.live, b)
}

func fillBytes(b []byte, v byte) {
	for i := range b {
		b[i] = v
	}
}

func (w *worker) step() error {
	switch op := w.rand.Intn(4); {
	case op == 0:
		l := w.randomLayout()
		p := w.alloc.Alloc(l)
		w.stats.allocs++
		if p == nil {
			w.stats.failures++
			return nil
		}
		if err := w.checkAligned(p, l); err != nil {
			return err
		}
		w.push(p, l)

	case op == 1:
		l := w.randomLayout()
		p := w.alloc.AllocZeroed(l)
		w.stats.zeroed++
		if p == nil {
			w.stats.failures++
			return nil
		}
		if err := w.checkAligned(p, l); err != nil {
			return err
		}
		if err := w.checkFill(liveBlock{ptr: p, layout: l, fill: 0}); err != nil {
			return fmt.Errorf("zeroed alloc: %w", err)
		}
		w.push(p, l)

	case op == 2 && len(w.live) > 0:
		b := w.take()
		newSize := uintptr(1 + w.rand.Intn(w.maxSize))
		q := w.alloc.Realloc(b.ptr, b.layout, newSize)
		w.stats.reallocs++
		if q == nil {
			w.stats.failures++
			w.live = append(w.live, b)
			return nil
		}
		kept := liveBlock{ptr: q, layout: b.layout, fill: b.fill}
		kept.layout.Size = min(b.layout.Size, newSize)
		if err := w.checkFill(kept); err != nil {
			return fmt.Errorf("realloc: %w", err)
		}
		l := redisalloc.Layout{Size: newSize, Align: b.layout.Align}
		if err := w.checkAligned(q, l); err != nil {
			return err
		}
		w.push(q, l)

	case op == 3 && len(w.live) > 0:
		b := w.take()
		if err := w.checkFill(b); err != nil {
			return fmt.Errorf("free: %w", err)
		}
		w.alloc.Dealloc(b.ptr, b.layout)
		w.stats.frees++
	}
	return nil
}

func (w *worker) run(ops int) error {
	defer func() {
		for _, b := range w.live {
			w.alloc.Dealloc(b.ptr, b.layout)
			w.stats.frees++
		}
		w.live = nil
	}()

	for i := 0; i < ops; i++ {
		if err := w.step(); err != nil {
			return err
		}
	}
	return nil
}
