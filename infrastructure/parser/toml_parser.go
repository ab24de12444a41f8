package parser

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/reglet-dev/vfpython/domain/entities"
	"github.com/reglet-dev/vfpython/domain/ports"
)

// TomlConfigParser implements ConfigParser for TOML.
type TomlConfigParser struct{}

// NewTomlConfigParser creates a new TomlConfigParser.
func NewTomlConfigParser() ports.ConfigParser {
	return &TomlConfigParser{}
}

// Parse decodes TOML bytes into a FilterConfig. Unknown keys are rejected.
func (p *TomlConfigParser) Parse(data []byte) (*entities.FilterConfig, error) {
	var cfg entities.FilterConfig
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, fmt.Errorf("parse toml config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("parse toml config: unknown keys: %s", strings.Join(keys, ", "))
	}
	return &cfg, nil
}
