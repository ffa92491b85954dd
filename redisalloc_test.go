package redisalloc

import (
	"sync"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
)

type hostCall struct {
	op    string
	ptr   unsafe.Pointer
	count uintptr
	size  uintptr
}

type recordingHost struct {
	mut    sync.Mutex
	calls  []hostCall
	result unsafe.Pointer
}

func (r *recordingHost) record(c hostCall) {
	r.mut.Lock()
	defer r.mut.Unlock()
	r.calls = append(r.calls, c)
}

func (r *recordingHost) getCalls() []hostCall {
	r.mut.Lock()
	defer r.mut.Unlock()
	return append([]hostCall(nil), r.calls...)
}

func (r *recordingHost) host() Host {
	return Host{
		Alloc: func(size uintptr) unsafe.Pointer {
			r.record(hostCall{op: "alloc", size: size})
			return r.result
		},
		Calloc: func(count, size uintptr) unsafe.Pointer {
			r.record(hostCall{op: "calloc", count: count, size: size})
			return r.result
		},
		Free: func(ptr unsafe.Pointer) {
			r.record(hostCall{op: "free", ptr: ptr})
		},
		Realloc: func(ptr unsafe.Pointer, size uintptr) unsafe.Pointer {
			r.record(hostCall{op: "realloc", ptr: ptr, size: size})
			return r.result
		},
	}
}

var testBlock [256]uint64

func blockPtr(offset uintptr) unsafe.Pointer {
	return unsafe.Add(unsafe.Pointer(&testBlock), offset)
}

func TestAllocatorAlloc(t *testing.T) {
	table := []struct {
		name     string
		layout   Layout
		expected uintptr
	}{
		{name: "5-8", layout: Layout{Size: 5, Align: 8}, expected: 8},
		{name: "16-8", layout: Layout{Size: 16, Align: 8}, expected: 16},
		{name: "1-1", layout: Layout{Size: 1, Align: 1}, expected: 1},
		{name: "17-16", layout: Layout{Size: 17, Align: 16}, expected: 32},
		{name: "0-8", layout: Layout{Size: 0, Align: 8}, expected: 0},
	}
	for _, e := range table {
		t.Run(e.name, func(t *testing.T) {
			rec := &recordingHost{result: blockPtr(64)}
			a := New(rec.host())

			p := a.Alloc(e.layout)
			assert.Equal(t, blockPtr(64), p)
			assert.Equal(t, []hostCall{{op: "alloc", size: e.expected}}, rec.getCalls())
		})
	}
}

func TestAllocatorAllocZeroed(t *testing.T) {
	rec := &recordingHost{result: blockPtr(8)}
	a := New(rec.host())

	p := a.AllocZeroed(Layout{Size: 17, Align: 16})
	assert.Equal(t, blockPtr(8), p)
	assert.Equal(t, []hostCall{{op: "calloc", count: 1, size: 32}}, rec.getCalls())
}

func TestAllocatorDealloc(t *testing.T) {
	rec := &recordingHost{}
	a := New(rec.host())

	a.Dealloc(blockPtr(16), Layout{Size: 1000, Align: 64})
	assert.Equal(t, []hostCall{{op: "free", ptr: blockPtr(16)}}, rec.getCalls())
}

func TestAllocatorReallocUsesNewSizeAndOldAlign(t *testing.T) {
	table := []struct {
		name     string
		layout   Layout
		newSize  uintptr
		expected uintptr
	}{
		{name: "grow", layout: Layout{Size: 8, Align: 16}, newSize: 33, expected: 48},
		{name: "shrink", layout: Layout{Size: 100, Align: 8}, newSize: 3, expected: 8},
		{name: "same", layout: Layout{Size: 64, Align: 64}, newSize: 64, expected: 64},
		{name: "align-1", layout: Layout{Size: 10, Align: 1}, newSize: 7, expected: 7},
	}
	for _, e := range table {
		t.Run(e.name, func(t *testing.T) {
			rec := &recordingHost{result: blockPtr(128)}
			a := New(rec.host())

			p := a.Realloc(blockPtr(0), e.layout, e.newSize)
			assert.Equal(t, blockPtr(128), p)
			assert.Equal(t, []hostCall{{op: "realloc", ptr: blockPtr(0), size: e.expected}}, rec.getCalls())
		})
	}
}

func TestAllocatorPropagatesNil(t *testing.T) {
	rec := &recordingHost{result: nil}
	a := New(rec.host())
	l := Layout{Size: 24, Align: 8}

	assert.Nil(t, a.Alloc(l))
	assert.Nil(t, a.AllocZeroed(l))
	assert.Nil(t, a.Realloc(blockPtr(0), l, 48))

	// a failed realloc must not free the original block
	assert.Equal(t, []hostCall{
		{op: "alloc", size: 24},
		{op: "calloc", count: 1, size: 24},
		{op: "realloc", ptr: blockPtr(0), size: 48},
	}, rec.getCalls())
}

func TestAllocatorOverflowSkipsHost(t *testing.T) {
	rec := &recordingHost{result: blockPtr(0)}
	a := New(rec.host())
	l := Layout{Size: ^uintptr(0) - 2, Align: 8}

	assert.Nil(t, a.Alloc(l))
	assert.Nil(t, a.AllocZeroed(l))
	assert.Nil(t, a.Realloc(blockPtr(0), Layout{Size: 8, Align: 8}, ^uintptr(0)))
	assert.Empty(t, rec.getCalls())
}

func TestAllocatorConcurrent(t *testing.T) {
	rec := &recordingHost{result: blockPtr(0)}
	a := New(rec.host())

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for k := 0; k < 100; k++ {
				l := Layout{Size: uintptr(k), Align: 16}
				p := a.Alloc(l)
				p = a.Realloc(p, l, uintptr(k)+1)
				a.Dealloc(p, l)
			}
		}()
	}
	wg.Wait()

	calls := rec.getCalls()
	assert.Equal(t, 16*100*3, len(calls))
	for _, c := range calls {
		if c.op != "free" {
			assert.Equal(t, uintptr(0), c.size%16)
		}
	}
}

func TestHostCapabilities(t *testing.T) {
	rec := &recordingHost{}
	assert.Equal(t, []string{"alloc", "calloc", "free", "realloc"}, rec.host().Capabilities())

	h := rec.host()
	h.Calloc = nil
	h.Realloc = nil
	assert.Equal(t, []string{"alloc", "free"}, h.Capabilities())

	assert.Nil(t, Host{}.Capabilities())
}

func TestInstall(t *testing.T) {
	if Installed() {
		t.Skip("host installed by an earlier run in this process")
	}
	assert.Same(t, unwired, Default())

	rec := &recordingHost{result: blockPtr(32)}
	assert.NoError(t, Install(rec.host()))
	assert.True(t, Installed())

	other := &recordingHost{}
	assert.Equal(t, ErrAlreadyInstalled, Install(other.host()))

	l := Layout{Size: 5, Align: 8}
	p := Alloc(l)
	assert.Equal(t, blockPtr(32), p)
	assert.Equal(t, blockPtr(32), AllocZeroed(l))
	assert.Equal(t, blockPtr(32), Realloc(p, l, 9))
	Dealloc(p, l)

	assert.Equal(t, []hostCall{
		{op: "alloc", size: 8},
		{op: "calloc", count: 1, size: 8},
		{op: "realloc", ptr: blockPtr(32), size: 16},
		{op: "free", ptr: blockPtr(32)},
	}, rec.getCalls())
	assert.Empty(t, other.getCalls())
}
