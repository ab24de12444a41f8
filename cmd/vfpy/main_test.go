package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/reglet-dev/vfpython/domain/errors"
	vflog "github.com/reglet-dev/vfpython/log"
)

func TestReport_JSON(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantType string
		wantCode string
	}{
		{
			name:     "construction",
			err:      fmt.Errorf("init: %w", &domainerrors.ConstructionError{Class: "Sharpen", AttributeMissing: true}),
			wantType: "construction",
			wantCode: "attribute_missing",
		},
		{
			name:     "config",
			err:      &domainerrors.ConfigError{Field: "class", Err: errors.New("value is required")},
			wantType: "config",
			wantCode: "class",
		},
		{
			name:     "plain",
			err:      errors.New("short read"),
			wantType: "internal",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			report(&buf, vflog.FormatJSON, tt.err)

			var doc struct {
				Error struct {
					Type    string `json:"type"`
					Code    string `json:"code"`
					Message string `json:"message"`
				} `json:"error"`
			}
			require.NoError(t, json.Unmarshal(buf.Bytes(), &doc), buf.String())
			assert.Equal(t, tt.wantType, doc.Error.Type)
			assert.Equal(t, tt.wantCode, doc.Error.Code)
			assert.NotEmpty(t, doc.Error.Message)
		})
	}
}

func TestReport_TextIncludesTraceback(t *testing.T) {
	err := &domainerrors.ModuleError{
		Path:  "/srv/f.py",
		Phase: domainerrors.PhaseExec,
		Err: &domainerrors.GuestException{
			Type:      "NameError",
			Message:   "name 'x' is not defined",
			Traceback: "Traceback (most recent call last):\nNameError: name 'x' is not defined\n",
		},
	}

	var buf bytes.Buffer
	report(&buf, vflog.FormatText, err)
	out := buf.String()
	assert.Contains(t, out, "vfpy: module /srv/f.py: exec failed")
	assert.Contains(t, out, "Traceback (most recent call last):\nNameError")
}
