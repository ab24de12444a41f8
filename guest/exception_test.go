package guest_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/reglet-dev/vfpython/domain/errors"
	"github.com/reglet-dev/vfpython/domain/ports"
	"github.com/reglet-dev/vfpython/guest"
)

func TestDrain_NothingPending(t *testing.T) {
	f := newInterp(t)
	assert.Nil(t, guest.Drain(f))
}

func TestDrain_FormatsAndClears(t *testing.T) {
	f := newInterp(t)
	base := f.RefTotal()

	f.ErrSetString(ports.ExcValueError, "width must be even")
	exc := guest.Drain(f)
	require.NotNil(t, exc)

	assert.Equal(t, "ValueError", exc.Type)
	assert.Equal(t, "width must be even", exc.Message)
	assert.False(t, exc.Interrupt)
	assert.Contains(t, exc.Traceback, "Traceback (most recent call last):")
	assert.Contains(t, exc.Traceback, "ValueError: width must be even")
	assert.NotContains(t, exc.Traceback[len(exc.Traceback)-1:], "\n")
	assert.False(t, f.ErrOccurred())
	assert.Equal(t, base, f.RefTotal())
}

func TestDrain_ClassifiesInterrupt(t *testing.T) {
	f := newInterp(t)
	f.ErrSetString(ports.ExcKeyboardInterrupt, "")

	exc := guest.Drain(f)
	require.NotNil(t, exc)
	assert.True(t, exc.Interrupt)
	assert.Equal(t, "KeyboardInterrupt", exc.Type)
	assert.True(t, errors.Is(exc, domainerrors.ErrInterrupted))
}

func TestFailure_WithoutPendingException(t *testing.T) {
	f := newInterp(t)
	exc := guest.Failure(f)
	require.NotNil(t, exc)
	assert.Equal(t, "SystemError", exc.Type)
	assert.False(t, exc.Interrupt)
}
