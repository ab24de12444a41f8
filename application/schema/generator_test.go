package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/vfpython/domain/errors"
)

func TestGenerateSchema_SimpleStruct(t *testing.T) {
	type SimpleConfig struct {
		Host string `json:"host"`
		Port int    `json:"port"`
	}

	out, err := GenerateSchema(SimpleConfig{})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Contains(t, string(out), "host")
	assert.Contains(t, string(out), "port")
}

func TestGenerateSchema_Nil(t *testing.T) {
	_, err := GenerateSchema(nil)
	var se *errors.SchemaError
	require.ErrorAs(t, err, &se)
}

func TestFilterConfigSchema(t *testing.T) {
	out, err := FilterConfigSchema()
	require.NoError(t, err)

	var decoded struct {
		Properties map[string]map[string]any `json:"properties"`
		Required   []string                  `json:"required"`
	}
	require.NoError(t, json.Unmarshal(out, &decoded))

	for _, key := range []string{"pylib", "script", "class", "init_arg", "allocator", "out_w", "scale"} {
		assert.Contains(t, decoded.Properties, key)
	}
	assert.ElementsMatch(t, []string{"pylib", "script", "class"}, decoded.Required)
	assert.Equal(t, []any{"heap", "mmap"}, decoded.Properties["allocator"]["enum"])
}
