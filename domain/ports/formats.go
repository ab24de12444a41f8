package ports

import "github.com/reglet-dev/vfpython/domain/entities"

// FormatCatalog maps pixel format identifiers to descriptors.
type FormatCatalog interface {
	Descriptor(id entities.PixelFormat) (entities.PixelFormatDescriptor, bool)
	ByName(name string) (entities.PixelFormatDescriptor, bool)
	List() []entities.PixelFormatDescriptor
	// Range returns the smallest and largest valid identifiers.
	Range() (lo, hi entities.PixelFormat)
}
