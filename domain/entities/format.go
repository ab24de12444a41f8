package entities

import (
	"fmt"
	"strings"
)

// PixelFormat identifies a pixel layout. Values follow the libavutil
// AVPixelFormat numbering so identifiers coming from scripts written against
// FFmpeg keep their meaning.
type PixelFormat int32

// PixFmtNone terminates every FormatList.
const PixFmtNone PixelFormat = -1

// Descriptor flags.
const (
	FormatFlagBE     uint32 = 1 << 0
	FormatFlagPlanar uint32 = 1 << 4
	FormatFlagRGB    uint32 = 1 << 5
	FormatFlagAlpha  uint32 = 1 << 7
	FormatFlagBitstr uint32 = 1 << 2
)

// PixelFormatDescriptor describes how a PixelFormat is laid out in memory.
type PixelFormatDescriptor struct {
	Name string `json:"name"`
	// Alias is an alternative name, empty when none.
	Alias string `json:"alias,omitempty"`
	// BitsPerPixel holds the bits one pixel occupies in each plane.
	BitsPerPixel [4]int `json:"bits_per_pixel"`
	// Planes is the number of data planes.
	Planes       int         `json:"planes"`
	ID           PixelFormat `json:"id"`
	NbComponents int         `json:"nb_components"`
	Log2ChromaW  int         `json:"log2_chroma_w"`
	Log2ChromaH  int         `json:"log2_chroma_h"`
	Flags        uint32      `json:"flags"`
}

// IsPlanar reports whether components are stored in separate planes.
func (d PixelFormatDescriptor) IsPlanar() bool {
	return d.Flags&FormatFlagPlanar != 0
}

// PlaneWidth returns the width in pixels of plane i for a frame of the given width.
func (d PixelFormatDescriptor) PlaneWidth(i, width int) int {
	if d.isChromaPlane(i) {
		return ceilShift(width, d.Log2ChromaW)
	}
	return width
}

// PlaneHeight returns the number of rows of plane i for a frame of the given height.
func (d PixelFormatDescriptor) PlaneHeight(i, height int) int {
	if d.isChromaPlane(i) {
		return ceilShift(height, d.Log2ChromaH)
	}
	return height
}

// RowBytes returns the number of payload bytes of one row of plane i.
func (d PixelFormatDescriptor) RowBytes(i, width int) int {
	return (d.PlaneWidth(i, width)*d.BitsPerPixel[i] + 7) / 8
}

// PayloadSize returns the size of a tightly packed image (no row padding),
// which is the rawvideo layout.
func (d PixelFormatDescriptor) PayloadSize(width, height int) int {
	total := 0
	for i := 0; i < d.Planes; i++ {
		total += d.RowBytes(i, width) * d.PlaneHeight(i, height)
	}
	return total
}

// chroma planes are 1 and 2 for planar YUV and plane 1 for semi-planar layouts.
func (d PixelFormatDescriptor) isChromaPlane(i int) bool {
	if d.Flags&FormatFlagRGB != 0 {
		return false
	}
	return i == 1 || i == 2
}

func ceilShift(v, shift int) int {
	return -((-v) >> shift)
}

// FormatList is an ordered list of supported formats terminated by PixFmtNone.
type FormatList []PixelFormat

// NewFormatList builds a terminated list from the given formats.
func NewFormatList(formats ...PixelFormat) FormatList {
	list := make(FormatList, 0, len(formats)+1)
	list = append(list, formats...)
	return append(list, PixFmtNone)
}

// Formats returns the entries before the terminator.
func (l FormatList) Formats() []PixelFormat {
	for i, f := range l {
		if f == PixFmtNone {
			return l[:i]
		}
	}
	return l
}

// Contains reports whether f is one of the listed formats.
func (l FormatList) Contains(f PixelFormat) bool {
	for _, x := range l.Formats() {
		if x == f {
			return true
		}
	}
	return false
}

// Terminated reports whether the list ends with PixFmtNone.
func (l FormatList) Terminated() bool {
	return len(l) > 0 && l[len(l)-1] == PixFmtNone
}

func (l FormatList) String() string {
	parts := make([]string, 0, len(l))
	for _, f := range l {
		parts = append(parts, fmt.Sprintf("%d", f))
	}
	return "[" + strings.Join(parts, ",") + "]"
}
