package host

import "path/filepath"

// defaultHome is the directory holding the runtime library.
func defaultHome(lib string) string {
	return filepath.Dir(lib)
}
