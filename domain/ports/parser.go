package ports

import "github.com/reglet-dev/vfpython/domain/entities"

// ConfigParser parses raw file bytes into a FilterConfig.
type ConfigParser interface {
	Parse(data []byte) (*entities.FilterConfig, error)
}
