package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterConfig_ApplyDefaults(t *testing.T) {
	c := FilterConfig{Library: "libpython3.11.so", Script: "f.py", Class: "F"}
	c.ApplyDefaults()

	assert.Equal(t, "rgb24", c.DefaultFormat)
	assert.Equal(t, AllocatorHeap, c.Allocator)
	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, 1.0, c.Scale)
}

func TestFilterConfig_OutputSize(t *testing.T) {
	tests := []struct {
		name         string
		cfg          FilterConfig
		wantW, wantH int
	}{
		{"passthrough", FilterConfig{Scale: 1}, 640, 480},
		{"explicit", FilterConfig{OutWidth: 320, OutHeight: 200, Scale: 3}, 320, 200},
		{"scaled", FilterConfig{Scale: 0.5}, 320, 240},
		{"zero scale", FilterConfig{}, 640, 480},
		{"half explicit ignored", FilterConfig{OutWidth: 100, Scale: 2}, 1280, 960},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := tt.cfg.OutputSize(640, 480)
			assert.Equal(t, tt.wantW, w)
			assert.Equal(t, tt.wantH, h)
		})
	}
}
