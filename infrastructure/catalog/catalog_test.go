package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/vfpython/domain/entities"
)

func TestDefault_Lookup(t *testing.T) {
	c := Default()

	d, ok := c.Descriptor(RGB24)
	require.True(t, ok)
	assert.Equal(t, "rgb24", d.Name)
	assert.Equal(t, 1, d.Planes)

	d, ok = c.ByName(" NV12 ")
	require.True(t, ok)
	assert.Equal(t, NV12, d.ID)
	assert.True(t, d.IsPlanar())

	d, ok = c.ByName("gray8")
	require.True(t, ok, "aliases resolve")
	assert.Equal(t, GRAY8, d.ID)

	_, ok = c.Descriptor(11)
	assert.False(t, ok)
	_, ok = c.ByName("p010le")
	assert.False(t, ok)
}

func TestDefault_Range(t *testing.T) {
	lo, hi := Default().Range()
	assert.Equal(t, YUV420P, lo)
	assert.Equal(t, BGR555LE, hi)
}

func TestDefault_ListOrdered(t *testing.T) {
	list := Default().List()
	require.NotEmpty(t, list)
	for i := 1; i < len(list); i++ {
		assert.Less(t, list[i-1].ID, list[i].ID)
	}

	list[0].Name = "mutated"
	d, _ := Default().Descriptor(list[0].ID)
	assert.NotEqual(t, "mutated", d.Name)
}

func TestDefault_OriginalFilterFormats(t *testing.T) {
	c := Default()
	for _, name := range []string{
		"rgba", "bgra", "argb", "abgr", "rgb24", "bgr24",
		"rgb565be", "bgr565be", "rgb555be", "bgr555be",
		"rgb565le", "bgr565le", "rgb555le", "bgr555le",
	} {
		d, ok := c.ByName(name)
		if assert.True(t, ok, name) {
			assert.NotZero(t, d.Flags&entities.FormatFlagRGB, name)
		}
	}
}

func TestNew_Empty(t *testing.T) {
	c := New()
	lo, hi := c.Range()
	assert.Equal(t, entities.PixelFormat(0), lo)
	assert.Equal(t, entities.PixelFormat(0), hi)
	assert.Empty(t, c.List())
}
