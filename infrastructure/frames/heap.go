package frames

import (
	"sync/atomic"

	"github.com/reglet-dev/vfpython/domain/entities"
	"github.com/reglet-dev/vfpython/domain/ports"
)

// Heap allocates frames on the Go heap.
type Heap struct {
	live atomic.Int64
	cfg  config
}

var _ ports.FrameAllocator = (*Heap)(nil)

// NewHeap creates a heap allocator.
func NewHeap(opts ...Option) *Heap {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Heap{cfg: cfg}
}

// Allocate returns a zeroed frame with its header written.
func (h *Heap) Allocate(desc entities.PixelFormatDescriptor, width, height int) (*entities.Frame, error) {
	l, err := ComputeLayout(desc, width, height, h.cfg.align)
	if err != nil {
		return nil, err
	}
	f, err := newFrame(make([]byte, l.Size), l, desc, width, height)
	if err != nil {
		return nil, err
	}
	h.live.Add(1)
	return f, nil
}

// Release drops the frame's buffer.
func (h *Heap) Release(f *entities.Frame) error {
	if f == nil || f.Buf == nil {
		return nil
	}
	f.Buf = nil
	h.live.Add(-1)
	return nil
}

// Live returns the number of frames allocated and not yet released.
func (h *Heap) Live() int64 {
	return h.live.Load()
}
