package frames

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/vfpython/domain/entities"
)

var (
	rgb24 = entities.PixelFormatDescriptor{ID: 2, Name: "rgb24", Planes: 1, BitsPerPixel: [4]int{24}, Flags: entities.FormatFlagRGB}
	yuv   = entities.PixelFormatDescriptor{
		ID: 0, Name: "yuv420p", Planes: 3, BitsPerPixel: [4]int{8, 8, 8},
		Log2ChromaW: 1, Log2ChromaH: 1, Flags: entities.FormatFlagPlanar,
	}
)

func TestComputeLayout(t *testing.T) {
	l, err := ComputeLayout(yuv, 10, 5, 32)
	require.NoError(t, err)

	assert.Equal(t, 3, l.Planes)
	assert.Equal(t, [4]int{32, 32, 32, 0}, l.Linesize)
	assert.Equal(t, entities.FrameHeaderSize, l.Offsets[0])
	assert.Equal(t, l.Offsets[0]+32*5, l.Offsets[1])
	assert.Equal(t, l.Offsets[1]+32*3, l.Offsets[2])
	assert.Equal(t, l.Offsets[2]+32*3, l.Size)
	for i := 0; i < l.Planes; i++ {
		assert.Zero(t, l.Offsets[i]%32)
	}
}

func TestComputeLayout_Errors(t *testing.T) {
	_, err := ComputeLayout(rgb24, 0, 10, 32)
	assert.Error(t, err)
	_, err = ComputeLayout(entities.PixelFormatDescriptor{Name: "bad"}, 4, 4, 32)
	assert.Error(t, err)
}

func TestHeap_AllocateRelease(t *testing.T) {
	h := NewHeap(WithAlignment(64))
	f, err := h.Allocate(rgb24, 7, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(1), h.Live())

	assert.Equal(t, 64, f.Linesize[0])
	parsed, err := entities.ParseHeader(f.Buf)
	require.NoError(t, err)
	assert.Equal(t, 7, parsed.Width)
	assert.Equal(t, entities.NoPTS, parsed.PTS)
	assert.Len(t, f.Plane(0), f.Size()-f.Offsets[0])

	require.NoError(t, h.Release(f))
	require.NoError(t, h.Release(f))
	assert.Equal(t, int64(0), h.Live())
	assert.Nil(t, f.Buf)
}

func TestWithAlignment_IgnoresNonPowerOfTwo(t *testing.T) {
	h := NewHeap(WithAlignment(24))
	assert.Equal(t, DefaultAlignment, h.cfg.align)
}

func TestMmap_AllocateRelease(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("mmap allocator is unix only")
	}
	m, err := NewMmap()
	require.NoError(t, err)

	f, err := m.Allocate(yuv, 16, 16)
	require.NoError(t, err)
	assert.Equal(t, int64(1), m.Live())

	f.Plane(1)[0] = 0x80
	assert.Equal(t, entities.FrameMagic, string(f.Buf[:4]))

	require.NoError(t, m.Release(f))
	assert.Equal(t, int64(0), m.Live())
	require.NoError(t, m.Release(f), "released frame has no buffer")
}

func TestMmap_ReleaseForeignFrame(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("mmap allocator is unix only")
	}
	m, err := NewMmap()
	require.NoError(t, err)
	assert.Error(t, m.Release(&entities.Frame{Buf: make([]byte, 256)}))
}

func TestNew(t *testing.T) {
	a, err := New("heap")
	require.NoError(t, err)
	assert.IsType(t, &Heap{}, a)

	_, err = New("gpu")
	assert.Error(t, err)
}
