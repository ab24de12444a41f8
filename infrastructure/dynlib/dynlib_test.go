package dynlib

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/reglet-dev/vfpython/domain/errors"
)

func TestOpen_NotFound(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "libpython9.9.so"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domainerrors.ErrNotFound))

	var le *domainerrors.LoadError
	require.True(t, errors.As(err, &le))
	assert.Empty(t, le.Symbol)
}

func TestOpen_EmptyPath(t *testing.T) {
	_, err := Open("")
	assert.True(t, errors.Is(err, domainerrors.ErrNotFound))
}

func TestOpen_NotALibrary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notalib.so")
	require.NoError(t, os.WriteFile(path, []byte("plain text"), 0o600))

	_, err := Open(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domainerrors.ErrLoadFailed))

	var le *domainerrors.LoadError
	require.True(t, errors.As(err, &le))
	assert.NotEmpty(t, le.Reason)
}

func TestCanonical(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "libreal.so")
	require.NoError(t, os.WriteFile(target, nil, 0o600))
	link := filepath.Join(dir, "liblink.so")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	got, err := Canonical(link)
	require.NoError(t, err)
	want, err := filepath.EvalSymlinks(target)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestCanonical_BareName(t *testing.T) {
	got, err := Canonical("libdoesnotexist-vfpy.so.1")
	require.NoError(t, err)
	assert.Equal(t, "libdoesnotexist-vfpy.so.1", got)
}

func TestLibrary_LookupAndClose(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("uses the glibc soname")
	}
	lib, err := Open("libc.so.6")
	if err != nil {
		t.Skipf("libc.so.6 unavailable: %v", err)
	}

	addr, err := lib.Lookup("getpid")
	require.NoError(t, err)
	assert.NotZero(t, addr)

	_, err = lib.Lookup("vfpy_no_such_symbol")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domainerrors.ErrSymbolMissing))

	require.NoError(t, lib.Close())
	require.NoError(t, lib.Close(), "second close is a no-op")

	_, err = lib.Lookup("getpid")
	assert.Error(t, err)
}
