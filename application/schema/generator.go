// Package schema generates JSON schemas for user-facing configuration.
package schema

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/invopop/jsonschema"

	"github.com/reglet-dev/vfpython/domain/entities"
	"github.com/reglet-dev/vfpython/domain/errors"
)

// GenerateSchema creates a JSON schema (Draft 2020-12) from a Go struct.
func GenerateSchema(v any) ([]byte, error) {
	if v == nil {
		return nil, &errors.SchemaError{Err: fmt.Errorf("nil value")}
	}
	reflector := jsonschema.Reflector{
		ExpandedStruct: true,
	}
	s := reflector.Reflect(v)

	out, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, &errors.SchemaError{Type: reflect.TypeOf(v).String(), Err: fmt.Errorf("marshal: %w", err)}
	}
	return out, nil
}

// FilterConfigSchema returns the schema of entities.FilterConfig.
func FilterConfigSchema() ([]byte, error) {
	return GenerateSchema(&entities.FilterConfig{})
}
