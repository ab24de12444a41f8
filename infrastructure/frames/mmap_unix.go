//go:build unix

package frames

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/reglet-dev/vfpython/domain/entities"
	"github.com/reglet-dev/vfpython/domain/ports"
)

// Mmap allocates frames in anonymous private mappings outside the Go heap,
// so buffers exposed to the guest never need pinning.
type Mmap struct {
	live map[*byte]int
	cfg  config
	mu   sync.Mutex
}

var _ ports.FrameAllocator = (*Mmap)(nil)

// NewMmap creates a mapping allocator.
func NewMmap(opts ...Option) (*Mmap, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Mmap{cfg: cfg, live: make(map[*byte]int)}, nil
}

// Allocate maps a new zeroed frame.
func (m *Mmap) Allocate(desc entities.PixelFormatDescriptor, width, height int) (*entities.Frame, error) {
	l, err := ComputeLayout(desc, width, height, m.cfg.align)
	if err != nil {
		return nil, err
	}
	buf, err := unix.Mmap(-1, 0, l.Size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("mmap %d bytes: %w", l.Size, err)
	}
	f, err := newFrame(buf, l, desc, width, height)
	if err != nil {
		_ = unix.Munmap(buf)
		return nil, err
	}
	m.mu.Lock()
	m.live[&buf[0]] = len(buf)
	m.mu.Unlock()
	return f, nil
}

// Release unmaps the frame's buffer.
func (m *Mmap) Release(f *entities.Frame) error {
	if f == nil || len(f.Buf) == 0 {
		return nil
	}
	m.mu.Lock()
	_, ok := m.live[&f.Buf[0]]
	delete(m.live, &f.Buf[0])
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("frame buffer was not allocated by this allocator")
	}
	buf := f.Buf
	f.Buf = nil
	if err := unix.Munmap(buf); err != nil {
		return fmt.Errorf("munmap: %w", err)
	}
	return nil
}

// Live returns the number of mapped frames.
func (m *Mmap) Live() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.live))
}
