package parser

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/reglet-dev/vfpython/domain/entities"
	"github.com/reglet-dev/vfpython/domain/ports"
)

// YamlConfigParser implements ConfigParser for YAML.
type YamlConfigParser struct{}

// NewYamlConfigParser creates a new YamlConfigParser.
func NewYamlConfigParser() ports.ConfigParser {
	return &YamlConfigParser{}
}

// Parse unmarshals YAML bytes into a FilterConfig. Unknown keys are rejected.
func (p *YamlConfigParser) Parse(data []byte) (*entities.FilterConfig, error) {
	var cfg entities.FilterConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse yaml config: %w", err)
	}
	return &cfg, nil
}
