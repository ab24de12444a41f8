//go:build linux

package sigaction

import (
	"encoding/binary"
	"os"
	"os/signal"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTable(t *testing.T) *Table {
	t.Helper()
	table, err := New()
	require.NoError(t, err)
	return table
}

func TestTable_SaveRestoreRoundTrip(t *testing.T) {
	table := newTable(t)

	before, err := table.Save(syscall.SIGUSR2)
	require.NoError(t, err)
	require.Len(t, before, dispositionSize)

	signal.Ignore(syscall.SIGUSR2)
	changed, err := table.Save(syscall.SIGUSR2)
	require.NoError(t, err)

	require.NoError(t, table.Restore(syscall.SIGUSR2, before))
	after, err := table.Save(syscall.SIGUSR2)
	require.NoError(t, err)

	assert.Equal(t, before, after)
	assert.NotEqual(t, before, changed, "ignoring the signal must change its disposition")
	signal.Reset(syscall.SIGUSR2)
}

func TestTable_RestoreRejectsForeignDisposition(t *testing.T) {
	table := newTable(t)
	assert.Error(t, table.Restore(syscall.SIGUSR2, []byte{1, 2, 3}))
}

func TestTable_SaveInvalidSignal(t *testing.T) {
	table := newTable(t)
	_, err := table.Save(syscall.Signal(0xfff))
	assert.Error(t, err)
}

func TestTable_RestoreSetsOnStackForHandlers(t *testing.T) {
	table := newTable(t)

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGUSR2)
	defer signal.Reset(syscall.SIGUSR2)

	goHandler, err := table.Save(syscall.SIGUSR2)
	require.NoError(t, err)
	require.NotZero(t, native.flags(goHandler)&saOnStack, "the Go runtime installs handlers with SA_ONSTACK")

	// A native handler installed without the flag.
	stripped := make([]byte, len(goHandler))
	copy(stripped, goHandler)
	f := native.flags(stripped) &^ saOnStack
	if native.flagsLen == 4 {
		binary.NativeEndian.PutUint32(stripped[native.flagsOff:], uint32(f))
	} else {
		binary.NativeEndian.PutUint64(stripped[native.flagsOff:], f)
	}

	require.NoError(t, table.Restore(syscall.SIGUSR2, stripped))
	installed, err := table.Save(syscall.SIGUSR2)
	require.NoError(t, err)
	assert.Equal(t, goHandler, installed)
}
