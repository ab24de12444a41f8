package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/vfpython/domain/entities"
)

func TestLoadError(t *testing.T) {
	err := &LoadError{Path: "/usr/lib/libpython3.11.so", Err: ErrLoadFailed, Reason: "wrong ELF class"}

	assert.Equal(t, "load /usr/lib/libpython3.11.so: library load failed: wrong ELF class", err.Error())
	assert.True(t, errors.Is(err, ErrLoadFailed))

	d := err.ToErrorDetail()
	assert.Equal(t, "load", d.Type)
	assert.Equal(t, "load_failed", d.Code)
	assert.False(t, d.IsNotFound)
}

func TestLoadError_Symbol(t *testing.T) {
	err := &LoadError{Path: "lib.so", Symbol: "Py_InitializeEx", Err: ErrSymbolMissing}

	assert.Equal(t, "load lib.so: symbol Py_InitializeEx: symbol missing", err.Error())
	assert.True(t, errors.Is(err, ErrSymbolMissing))

	d := err.ToErrorDetail()
	assert.Equal(t, "symbol_missing", d.Code)
	assert.Equal(t, "Py_InitializeEx", d.Details["symbol"])
}

func TestLoadError_NotFound(t *testing.T) {
	err := fmt.Errorf("start: %w", &LoadError{Path: "missing.so", Err: ErrNotFound})
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, ToErrorDetail(err).IsNotFound)
}

func TestModuleError_Phases(t *testing.T) {
	tests := []struct {
		phase    string
		sentinel error
	}{
		{PhaseRead, ErrModuleRead},
		{PhaseCompile, ErrCompile},
		{PhaseExec, ErrExec},
	}
	for _, tt := range tests {
		t.Run(tt.phase, func(t *testing.T) {
			err := &ModuleError{Path: "f.py", Phase: tt.phase, Err: &GuestException{Type: "SyntaxError", Traceback: "tb"}}
			assert.True(t, errors.Is(err, tt.sentinel))
			for _, other := range []error{ErrModuleRead, ErrCompile, ErrExec} {
				if other != tt.sentinel {
					assert.False(t, errors.Is(err, other))
				}
			}
			d := err.ToErrorDetail()
			assert.Equal(t, tt.phase, d.Code)
			assert.Equal(t, "tb", d.Traceback)
		})
	}
}

func TestConstructionError(t *testing.T) {
	missing := &ConstructionError{Class: "Invert", AttributeMissing: true}
	assert.Equal(t, "class Invert not found in module", missing.Error())
	assert.True(t, errors.Is(missing, ErrAttributeMissing))
	assert.False(t, errors.Is(missing, ErrConstruction))

	failed := &ConstructionError{Class: "Invert", Err: &GuestException{Type: "ValueError", Message: "bad arg"}}
	assert.Equal(t, "constructing Invert failed: ValueError: bad arg", failed.Error())
	assert.True(t, errors.Is(failed, ErrConstruction))
	assert.Equal(t, "construction_failed", failed.ToErrorDetail().Code)
}

func TestInvocationError(t *testing.T) {
	cause := &GuestException{Type: "RuntimeError", Message: "boom", Traceback: "Traceback..."}
	err := &InvocationError{Code: entities.AVErrorExternal, Err: cause}

	assert.True(t, errors.Is(err, ErrExternal))
	var ge *GuestException
	require.True(t, errors.As(err, &ge))
	assert.Equal(t, "RuntimeError", ge.Type)

	d := ToErrorDetail(err)
	assert.Equal(t, "invocation", d.Type)
	assert.Equal(t, "-542398533", d.Code)
	assert.Equal(t, "Traceback...", d.Traceback)
}

func TestInterruptError(t *testing.T) {
	err := &InterruptError{Signal: "interrupt", Err: &GuestException{Type: "KeyboardInterrupt", Interrupt: true}}
	assert.True(t, errors.Is(err, ErrInterrupted))
	assert.False(t, errors.Is(err, ErrExternal))
	assert.True(t, err.ToErrorDetail().IsInterrupt)
}

func TestGuestException(t *testing.T) {
	assert.Equal(t, "KeyboardInterrupt", (&GuestException{Type: "KeyboardInterrupt"}).Error())
	assert.True(t, errors.Is(&GuestException{Type: "KeyboardInterrupt", Interrupt: true}, ErrInterrupted))
	assert.False(t, errors.Is(&GuestException{Type: "ValueError"}, ErrInterrupted))
}

func TestStateError(t *testing.T) {
	err := &StateError{Op: "acquire", State: "finalized"}
	assert.Equal(t, "acquire not allowed in state finalized", err.Error())
	assert.True(t, errors.Is(err, ErrFinalized))
	assert.False(t, errors.Is(&StateError{Op: "finalize", State: "active"}, ErrFinalized))
}

func TestLibraryConflictError(t *testing.T) {
	err := &LibraryConflictError{Loaded: "/a/libpython3.11.so", Requested: "/b/libpython3.12.so"}
	d := err.ToErrorDetail()
	assert.Equal(t, "library_conflict", d.Code)
	assert.Equal(t, "/b/libpython3.12.so", d.Details["requested"])
}

func TestToErrorDetail(t *testing.T) {
	assert.Nil(t, ToErrorDetail(nil))

	generic := ToErrorDetail(fmt.Errorf("plain"))
	assert.Equal(t, "internal", generic.Type)
	assert.Equal(t, "plain", generic.Message)

	existing := entities.NewErrorDetail("config", "bad")
	assert.Same(t, existing, ToErrorDetail(fmt.Errorf("wrap: %w", existing)))

	wrapped := fmt.Errorf("setup: %w", &InitError{Step: "initialize", Err: errors.New("no encodings")})
	d := ToErrorDetail(wrapped)
	assert.Equal(t, "init", d.Type)
	assert.Equal(t, "initialize", d.Code)
}

func TestConfigError(t *testing.T) {
	err := &ConfigError{Field: "script", Err: errors.New("required")}
	assert.Equal(t, "config validation failed for field 'script': required", err.Error())
	assert.Equal(t, "config", err.ToErrorDetail().Type)
}
