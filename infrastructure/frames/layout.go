// Package frames allocates frame buffers: a fixed header followed by aligned
// plane data.
package frames

import (
	"fmt"

	"github.com/reglet-dev/vfpython/domain/entities"
)

// DefaultAlignment is the linesize and plane alignment in bytes.
const DefaultAlignment = 32

// Layout is the computed geometry of a frame buffer.
type Layout struct {
	Linesize [entities.MaxPlanes]int
	Offsets  [entities.MaxPlanes]int
	Planes   int
	Size     int
}

// ComputeLayout returns the buffer layout for a format and size.
func ComputeLayout(desc entities.PixelFormatDescriptor, width, height, align int) (Layout, error) {
	if width <= 0 || height <= 0 {
		return Layout{}, fmt.Errorf("invalid frame size %dx%d", width, height)
	}
	if desc.Planes <= 0 || desc.Planes > entities.MaxPlanes {
		return Layout{}, fmt.Errorf("format %s: invalid plane count %d", desc.Name, desc.Planes)
	}
	if align <= 0 {
		align = DefaultAlignment
	}

	l := Layout{Planes: desc.Planes}
	off := alignUp(entities.FrameHeaderSize, align)
	for i := 0; i < desc.Planes; i++ {
		l.Linesize[i] = alignUp(desc.RowBytes(i, width), align)
		l.Offsets[i] = off
		off += alignUp(l.Linesize[i]*desc.PlaneHeight(i, height), align)
	}
	l.Size = off
	return l, nil
}

// Apply fills the geometry fields of f.
func (l Layout) Apply(f *entities.Frame) {
	f.Planes = l.Planes
	f.Linesize = l.Linesize
	f.Offsets = l.Offsets
}

func alignUp(v, align int) int {
	return (v + align - 1) / align * align
}

type config struct {
	align int
}

func defaultConfig() config {
	return config{align: DefaultAlignment}
}

// Option configures an allocator.
type Option func(*config)

// WithAlignment sets the linesize and plane alignment.
func WithAlignment(n int) Option {
	return func(c *config) {
		if n > 0 && n&(n-1) == 0 {
			c.align = n
		}
	}
}

func newFrame(buf []byte, l Layout, desc entities.PixelFormatDescriptor, width, height int) (*entities.Frame, error) {
	f := &entities.Frame{
		Buf:          buf,
		Width:        width,
		Height:       height,
		Format:       desc.ID,
		PTS:          entities.NoPTS,
		SampleAspect: entities.Rational{Num: 1, Den: 1},
	}
	l.Apply(f)
	if err := f.SyncHeader(); err != nil {
		return nil, err
	}
	return f, nil
}
