package entities

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFrame() *Frame {
	f := &Frame{
		Buf:          make([]byte, FrameHeaderSize+64+32),
		Width:        8,
		Height:       4,
		Planes:       2,
		Format:       23,
		Flags:        FrameFlagKey,
		PTS:          42,
		SampleAspect: Rational{Num: 1, Den: 1},
	}
	f.Linesize[0], f.Linesize[1] = 16, 16
	f.Offsets[0], f.Offsets[1] = FrameHeaderSize, FrameHeaderSize+64
	return f
}

func TestFrame_SyncHeaderRoundTrip(t *testing.T) {
	f := newTestFrame()
	require.NoError(t, f.SyncHeader())

	assert.Equal(t, FrameMagic, string(f.Buf[:4]))
	assert.Equal(t, uint16(FrameHeaderVersion), binary.LittleEndian.Uint16(f.Buf[4:]))

	got, err := ParseHeader(f.Buf)
	require.NoError(t, err)
	assert.Equal(t, f.Width, got.Width)
	assert.Equal(t, f.Height, got.Height)
	assert.Equal(t, f.Planes, got.Planes)
	assert.Equal(t, f.Format, got.Format)
	assert.Equal(t, f.PTS, got.PTS)
	assert.Equal(t, f.Linesize, got.Linesize)
	assert.Equal(t, f.Offsets, got.Offsets)
	assert.Equal(t, f.SampleAspect, got.SampleAspect)
	assert.Equal(t, f.Flags, got.Flags)
}

func TestFrame_SyncHeaderNoPTS(t *testing.T) {
	f := newTestFrame()
	f.PTS = NoPTS
	require.NoError(t, f.SyncHeader())

	got, err := ParseHeader(f.Buf)
	require.NoError(t, err)
	assert.Equal(t, NoPTS, got.PTS)
}

func TestFrame_SyncHeaderClearsReserved(t *testing.T) {
	f := newTestFrame()
	for i := range f.Buf[:FrameHeaderSize] {
		f.Buf[i] = 0xff
	}
	require.NoError(t, f.SyncHeader())
	assert.Equal(t, make([]byte, FrameHeaderSize-headerUsed), f.Buf[headerUsed:FrameHeaderSize])
}

func TestFrame_Plane(t *testing.T) {
	f := newTestFrame()
	assert.Len(t, f.Plane(0), 64)
	assert.Len(t, f.Plane(1), 32)
	assert.Nil(t, f.Plane(2))
	assert.Nil(t, f.Plane(-1))
}

func TestParseHeader_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func([]byte) []byte
		want   string
	}{
		{"short", func(b []byte) []byte { return b[:10] }, "too small"},
		{"magic", func(b []byte) []byte { b[0] = 'X'; return b }, "magic"},
		{"version", func(b []byte) []byte { binary.LittleEndian.PutUint16(b[4:], 9); return b }, "version"},
		{"planes", func(b []byte) []byte { binary.LittleEndian.PutUint16(b[6:], 7); return b }, "plane count"},
		{"offset", func(b []byte) []byte { binary.LittleEndian.PutUint32(b[48:], 4); return b }, "out of range"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTestFrame()
			require.NoError(t, f.SyncHeader())
			_, err := ParseHeader(tt.mutate(f.Buf))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestFrame_CopyProps(t *testing.T) {
	src := newTestFrame()
	dst := &Frame{}
	dst.CopyProps(src)
	assert.Equal(t, int64(42), dst.PTS)
	assert.Equal(t, FrameFlagKey, dst.Flags)
	assert.Equal(t, Rational{Num: 1, Den: 1}, dst.SampleAspect)
}
