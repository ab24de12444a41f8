//go:build !windows

package host

import "path/filepath"

// defaultHome is the prefix above a lib or lib64 directory, or empty when
// the library lives elsewhere and the interpreter should find its own.
func defaultHome(lib string) string {
	dir := filepath.Dir(lib)
	switch filepath.Base(dir) {
	case "lib", "lib64":
		return filepath.Dir(dir)
	}
	return ""
}
