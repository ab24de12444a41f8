package frames

import (
	"fmt"

	"github.com/reglet-dev/vfpython/domain/entities"
	"github.com/reglet-dev/vfpython/domain/ports"
)

// New returns the allocator named by kind ("heap" or "mmap").
func New(kind string, opts ...Option) (ports.FrameAllocator, error) {
	switch kind {
	case "", entities.AllocatorHeap:
		return NewHeap(opts...), nil
	case entities.AllocatorMmap:
		m, err := NewMmap(opts...)
		if err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unknown allocator %q", kind)
	}
}
