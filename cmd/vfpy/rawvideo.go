package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/reglet-dev/vfpython/domain/entities"
)

// parseSize parses "WxH".
func parseSize(s string) (int, int, error) {
	ws, hs, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return 0, 0, fmt.Errorf("invalid size %q, want WxH", s)
	}
	w, err := strconv.Atoi(ws)
	if err != nil || w <= 0 {
		return 0, 0, fmt.Errorf("invalid width in %q", s)
	}
	h, err := strconv.Atoi(hs)
	if err != nil || h <= 0 {
		return 0, 0, fmt.Errorf("invalid height in %q", s)
	}
	return w, h, nil
}

// readFrame fills f with one tightly packed rawvideo frame from r. It returns
// io.EOF when r is exhausted before the first byte.
func readFrame(r io.Reader, desc entities.PixelFormatDescriptor, f *entities.Frame) error {
	first := true
	for i := 0; i < desc.Planes; i++ {
		plane := f.Plane(i)
		row := desc.RowBytes(i, f.Width)
		for y := 0; y < desc.PlaneHeight(i, f.Height); y++ {
			off := y * f.Linesize[i]
			n, err := io.ReadFull(r, plane[off:off+row])
			if err != nil {
				if first && n == 0 && err == io.EOF {
					return io.EOF
				}
				return fmt.Errorf("truncated frame: %w", err)
			}
			first = false
		}
	}
	return nil
}

// writeFrame writes f to w without row padding.
func writeFrame(w io.Writer, desc entities.PixelFormatDescriptor, f *entities.Frame) error {
	for i := 0; i < desc.Planes; i++ {
		plane := f.Plane(i)
		row := desc.RowBytes(i, f.Width)
		for y := 0; y < desc.PlaneHeight(i, f.Height); y++ {
			off := y * f.Linesize[i]
			if _, err := w.Write(plane[off : off+row]); err != nil {
				return err
			}
		}
	}
	return nil
}
