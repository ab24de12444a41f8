package entities

import (
	"encoding/binary"
	"fmt"
)

// Frame header layout. Every frame buffer starts with a fixed little-endian
// header followed by the plane data. Scripts decode it with
// struct.unpack_from(FrameHeaderStruct, view).
const (
	FrameHeaderSize    = 128
	FrameMagic         = "VFRM"
	FrameHeaderVersion = 1
	// FrameHeaderStruct is the Python struct format of the used header prefix.
	FrameHeaderStruct = "<4sHHiiiiq4i4I2i"
	// MaxPlanes is the number of plane slots carried by the header.
	MaxPlanes = 4
)

const (
	offMagic    = 0
	offVersion  = 4
	offPlanes   = 6
	offWidth    = 8
	offHeight   = 12
	offFormat   = 16
	offFlags    = 20
	offPTS      = 24
	offLinesize = 32
	offOffsets  = 48
	offSARNum   = 64
	offSARDen   = 68
	headerUsed  = 72
)

// NoPTS marks a frame without a presentation timestamp.
const NoPTS int64 = -1 << 63

// FrameFlagKey marks a key frame.
const FrameFlagKey uint32 = 1

// Rational is a fraction such as a sample aspect ratio.
type Rational struct {
	Num int32 `json:"num"`
	Den int32 `json:"den"`
}

// Frame is a host-owned buffer exchanged with the guest. Buf holds the
// header and the plane data; the remaining fields mirror the header.
type Frame struct {
	Buf          []byte
	Linesize     [MaxPlanes]int
	Offsets      [MaxPlanes]int
	Width        int
	Height       int
	Planes       int
	PTS          int64
	SampleAspect Rational
	Format       PixelFormat
	Flags        uint32
}

// Size returns the full footprint of the frame, header included.
func (f *Frame) Size() int {
	return len(f.Buf)
}

// Plane returns the bytes of plane i, padding included.
func (f *Frame) Plane(i int) []byte {
	if i < 0 || i >= f.Planes {
		return nil
	}
	end := len(f.Buf)
	if i+1 < f.Planes {
		end = f.Offsets[i+1]
	}
	return f.Buf[f.Offsets[i]:end]
}

// CopyProps copies the per-frame metadata that does not depend on layout.
func (f *Frame) CopyProps(src *Frame) {
	f.PTS = src.PTS
	f.SampleAspect = src.SampleAspect
	f.Flags = src.Flags
}

// SyncHeader writes the header fields into Buf.
func (f *Frame) SyncHeader() error {
	if len(f.Buf) < FrameHeaderSize {
		return fmt.Errorf("frame buffer too small: %d bytes", len(f.Buf))
	}
	if f.Planes < 0 || f.Planes > MaxPlanes {
		return fmt.Errorf("invalid plane count %d", f.Planes)
	}
	h := f.Buf[:FrameHeaderSize]
	copy(h[offMagic:], FrameMagic)
	le := binary.LittleEndian
	le.PutUint16(h[offVersion:], FrameHeaderVersion)
	le.PutUint16(h[offPlanes:], uint16(f.Planes))
	le.PutUint32(h[offWidth:], uint32(int32(f.Width)))
	le.PutUint32(h[offHeight:], uint32(int32(f.Height)))
	le.PutUint32(h[offFormat:], uint32(f.Format))
	le.PutUint32(h[offFlags:], f.Flags)
	le.PutUint64(h[offPTS:], uint64(f.PTS))
	for i := 0; i < MaxPlanes; i++ {
		le.PutUint32(h[offLinesize+4*i:], uint32(int32(f.Linesize[i])))
		le.PutUint32(h[offOffsets+4*i:], uint32(f.Offsets[i]))
	}
	le.PutUint32(h[offSARNum:], uint32(f.SampleAspect.Num))
	le.PutUint32(h[offSARDen:], uint32(f.SampleAspect.Den))
	clear(h[headerUsed:])
	return nil
}

// ParseHeader decodes the header at the start of buf into a Frame backed by buf.
func ParseHeader(buf []byte) (*Frame, error) {
	if len(buf) < FrameHeaderSize {
		return nil, fmt.Errorf("frame buffer too small: %d bytes", len(buf))
	}
	if string(buf[offMagic:offMagic+4]) != FrameMagic {
		return nil, fmt.Errorf("bad frame magic %q", buf[offMagic:offMagic+4])
	}
	le := binary.LittleEndian
	if v := le.Uint16(buf[offVersion:]); v != FrameHeaderVersion {
		return nil, fmt.Errorf("unsupported frame header version %d", v)
	}
	f := &Frame{
		Buf:    buf,
		Planes: int(le.Uint16(buf[offPlanes:])),
		Width:  int(int32(le.Uint32(buf[offWidth:]))),
		Height: int(int32(le.Uint32(buf[offHeight:]))),
		Format: PixelFormat(int32(le.Uint32(buf[offFormat:]))),
		Flags:  le.Uint32(buf[offFlags:]),
		PTS:    int64(le.Uint64(buf[offPTS:])),
		SampleAspect: Rational{
			Num: int32(le.Uint32(buf[offSARNum:])),
			Den: int32(le.Uint32(buf[offSARDen:])),
		},
	}
	if f.Planes > MaxPlanes {
		return nil, fmt.Errorf("invalid plane count %d", f.Planes)
	}
	for i := 0; i < MaxPlanes; i++ {
		f.Linesize[i] = int(int32(le.Uint32(buf[offLinesize+4*i:])))
		f.Offsets[i] = int(le.Uint32(buf[offOffsets+4*i:]))
	}
	for i := 0; i < f.Planes; i++ {
		if f.Offsets[i] < FrameHeaderSize || f.Offsets[i] > len(buf) {
			return nil, fmt.Errorf("plane %d offset %d out of range", i, f.Offsets[i])
		}
	}
	return f, nil
}
