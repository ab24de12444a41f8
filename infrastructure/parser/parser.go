// Package parser decodes filter configuration files.
package parser

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/reglet-dev/vfpython/domain/ports"
)

// ForPath picks a parser from the file extension.
func ForPath(path string) (ports.ConfigParser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return NewYamlConfigParser(), nil
	case ".toml":
		return NewTomlConfigParser(), nil
	case ".json":
		return NewJSONConfigParser(), nil
	default:
		return nil, fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
}
