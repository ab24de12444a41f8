package ports

import "github.com/reglet-dev/vfpython/domain/entities"

// FrameAllocator produces frame buffers with a written header.
type FrameAllocator interface {
	// Allocate returns a frame of the given format and size.
	Allocate(desc entities.PixelFormatDescriptor, width, height int) (*entities.Frame, error)

	// Release returns the frame's buffer. The frame must not be used afterwards.
	Release(f *entities.Frame) error
}
