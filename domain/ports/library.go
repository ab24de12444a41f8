package ports

// Library is an open dynamic library.
type Library interface {
	// Path returns the canonical path the library was opened from.
	Path() string

	// Lookup resolves an exported symbol to its address.
	Lookup(name string) (uintptr, error)

	// Close releases the OS handle. Calls after the first are no-ops.
	Close() error
}

// LibraryOpener opens a library by path.
type LibraryOpener func(path string) (Library, error)
