package hostfuncs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHostContext_Values(t *testing.T) {
	hc := NewHostContext(context.Background(), "fn")
	assert.Equal(t, "fn", hc.FunctionName())

	_, ok := hc.GetValue("k")
	assert.False(t, ok)
	hc.SetValue("k", 1)
	v, ok := hc.GetValue("k")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestHostContextFrom(t *testing.T) {
	hc := NewHostContext(context.Background(), "a")
	assert.Same(t, hc, HostContextFrom(hc, "a"))

	other := HostContextFrom(hc, "b")
	assert.Equal(t, "b", other.FunctionName())

	plain := HostContextFrom(context.Background(), "c")
	assert.Equal(t, "c", plain.FunctionName())
}
