package parser

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/reglet-dev/vfpython/domain/entities"
	"github.com/reglet-dev/vfpython/domain/ports"
)

// JSONConfigParser implements ConfigParser for JSON.
type JSONConfigParser struct{}

// NewJSONConfigParser creates a new JSONConfigParser.
func NewJSONConfigParser() ports.ConfigParser {
	return &JSONConfigParser{}
}

// Parse decodes JSON bytes into a FilterConfig. Unknown keys are rejected.
func (p *JSONConfigParser) Parse(data []byte) (*entities.FilterConfig, error) {
	var cfg entities.FilterConfig
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse json config: %w", err)
	}
	return &cfg, nil
}
