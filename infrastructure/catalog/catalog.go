// Package catalog is a static pixel-format catalog using libavutil
// identifiers.
package catalog

import (
	"sort"
	"strings"

	"github.com/reglet-dev/vfpython/domain/entities"
	"github.com/reglet-dev/vfpython/domain/ports"
)

// Well-known identifiers.
const (
	YUV420P  entities.PixelFormat = 0
	YUYV422  entities.PixelFormat = 1
	RGB24    entities.PixelFormat = 2
	BGR24    entities.PixelFormat = 3
	YUV422P  entities.PixelFormat = 4
	YUV444P  entities.PixelFormat = 5
	GRAY8    entities.PixelFormat = 8
	NV12     entities.PixelFormat = 23
	ARGB     entities.PixelFormat = 25
	RGBA     entities.PixelFormat = 26
	ABGR     entities.PixelFormat = 27
	BGRA     entities.PixelFormat = 28
	RGB565BE entities.PixelFormat = 36
	BGR555LE entities.PixelFormat = 43
)

const (
	planar = entities.FormatFlagPlanar
	rgb    = entities.FormatFlagRGB
	alpha  = entities.FormatFlagAlpha
	be     = entities.FormatFlagBE
	bitstr = entities.FormatFlagBitstr
)

func packed(id entities.PixelFormat, name string, bpp, comps int, flags uint32) entities.PixelFormatDescriptor {
	return entities.PixelFormatDescriptor{ID: id, Name: name, Planes: 1, BitsPerPixel: [4]int{bpp}, NbComponents: comps, Flags: flags}
}

func yuvPlanar(id entities.PixelFormat, name string, log2w, log2h int) entities.PixelFormatDescriptor {
	return entities.PixelFormatDescriptor{
		ID: id, Name: name, Planes: 3, BitsPerPixel: [4]int{8, 8, 8}, NbComponents: 3,
		Log2ChromaW: log2w, Log2ChromaH: log2h, Flags: planar,
	}
}

func semiPlanar(id entities.PixelFormat, name string) entities.PixelFormatDescriptor {
	return entities.PixelFormatDescriptor{
		ID: id, Name: name, Planes: 2, BitsPerPixel: [4]int{8, 16}, NbComponents: 3,
		Log2ChromaW: 1, Log2ChromaH: 1, Flags: planar,
	}
}

var builtin = []entities.PixelFormatDescriptor{
	yuvPlanar(0, "yuv420p", 1, 1),
	{ID: 1, Name: "yuyv422", Planes: 1, BitsPerPixel: [4]int{16}, NbComponents: 3, Log2ChromaW: 1},
	packed(2, "rgb24", 24, 3, rgb),
	packed(3, "bgr24", 24, 3, rgb),
	yuvPlanar(4, "yuv422p", 1, 0),
	yuvPlanar(5, "yuv444p", 0, 0),
	yuvPlanar(6, "yuv410p", 2, 2),
	yuvPlanar(7, "yuv411p", 2, 0),
	{ID: 8, Name: "gray", Alias: "gray8", Planes: 1, BitsPerPixel: [4]int{8}, NbComponents: 1},
	{ID: 9, Name: "monow", Alias: "monowhite", Planes: 1, BitsPerPixel: [4]int{1}, NbComponents: 1, Flags: bitstr},
	{ID: 10, Name: "monob", Alias: "monoblack", Planes: 1, BitsPerPixel: [4]int{1}, NbComponents: 1, Flags: bitstr},
	yuvPlanar(12, "yuvj420p", 1, 1),
	yuvPlanar(13, "yuvj422p", 1, 0),
	yuvPlanar(14, "yuvj444p", 0, 0),
	{ID: 15, Name: "uyvy422", Planes: 1, BitsPerPixel: [4]int{16}, NbComponents: 3, Log2ChromaW: 1},
	semiPlanar(23, "nv12"),
	semiPlanar(24, "nv21"),
	packed(25, "argb", 32, 4, rgb|alpha),
	packed(26, "rgba", 32, 4, rgb|alpha),
	packed(27, "abgr", 32, 4, rgb|alpha),
	packed(28, "bgra", 32, 4, rgb|alpha),
	{ID: 29, Name: "gray16be", Planes: 1, BitsPerPixel: [4]int{16}, NbComponents: 1, Flags: be},
	{ID: 30, Name: "gray16le", Planes: 1, BitsPerPixel: [4]int{16}, NbComponents: 1},
	packed(36, "rgb565be", 16, 3, rgb|be),
	packed(37, "rgb565le", 16, 3, rgb),
	packed(38, "rgb555be", 16, 3, rgb|be),
	packed(39, "rgb555le", 16, 3, rgb),
	packed(40, "bgr565be", 16, 3, rgb|be),
	packed(41, "bgr565le", 16, 3, rgb),
	packed(42, "bgr555be", 16, 3, rgb|be),
	packed(43, "bgr555le", 16, 3, rgb),
}

// Catalog is an immutable format catalog. It implements ports.FormatCatalog.
type Catalog struct {
	byID   map[entities.PixelFormat]entities.PixelFormatDescriptor
	byName map[string]entities.PixelFormatDescriptor
	list   []entities.PixelFormatDescriptor
	lo, hi entities.PixelFormat
}

var _ ports.FormatCatalog = (*Catalog)(nil)

// Default returns the built-in catalog.
func Default() *Catalog {
	return New(builtin...)
}

// New builds a catalog from descriptors. Later entries replace earlier ones
// with the same identifier.
func New(descs ...entities.PixelFormatDescriptor) *Catalog {
	c := &Catalog{
		byID:   make(map[entities.PixelFormat]entities.PixelFormatDescriptor, len(descs)),
		byName: make(map[string]entities.PixelFormatDescriptor, len(descs)),
	}
	for _, d := range descs {
		c.byID[d.ID] = d
	}
	for _, d := range c.byID {
		c.list = append(c.list, d)
		c.byName[d.Name] = d
		if d.Alias != "" {
			c.byName[d.Alias] = d
		}
	}
	sort.Slice(c.list, func(i, j int) bool { return c.list[i].ID < c.list[j].ID })
	if len(c.list) > 0 {
		c.lo, c.hi = c.list[0].ID, c.list[len(c.list)-1].ID
	}
	return c
}

// Descriptor looks a format up by identifier.
func (c *Catalog) Descriptor(id entities.PixelFormat) (entities.PixelFormatDescriptor, bool) {
	d, ok := c.byID[id]
	return d, ok
}

// ByName looks a format up by name or alias, case-insensitively.
func (c *Catalog) ByName(name string) (entities.PixelFormatDescriptor, bool) {
	d, ok := c.byName[strings.ToLower(strings.TrimSpace(name))]
	return d, ok
}

// List returns all descriptors ordered by identifier.
func (c *Catalog) List() []entities.PixelFormatDescriptor {
	out := make([]entities.PixelFormatDescriptor, len(c.list))
	copy(out, c.list)
	return out
}

// Range returns the smallest and largest identifiers.
func (c *Catalog) Range() (lo, hi entities.PixelFormat) {
	return c.lo, c.hi
}
