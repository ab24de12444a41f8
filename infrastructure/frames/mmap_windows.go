//go:build windows

package frames

import (
	"errors"

	"github.com/reglet-dev/vfpython/domain/entities"
)

// Mmap is unavailable on Windows.
type Mmap struct{}

// NewMmap reports that mapped frames are unsupported.
func NewMmap(...Option) (*Mmap, error) {
	return nil, errors.New("mmap allocator is not supported on windows")
}

func (m *Mmap) Allocate(entities.PixelFormatDescriptor, int, int) (*entities.Frame, error) {
	return nil, errors.New("mmap allocator is not supported on windows")
}

func (m *Mmap) Release(*entities.Frame) error { return nil }

func (m *Mmap) Live() int64 { return 0 }
