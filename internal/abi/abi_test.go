package abi

import (
	"sync"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
)

func TestCString(t *testing.T) {
	b := CString("vfpy")
	assert.Equal(t, []byte("vfpy\x00"), b)
	assert.Equal(t, "vfpy", GoString(uintptr(unsafe.Pointer(&b[0]))))
	assert.Equal(t, "", GoString(0))
}

func TestGoBytes(t *testing.T) {
	src := []byte{1, 2, 3, 4}
	got := GoBytes(BufferAddr(src), 3)
	assert.Equal(t, []byte{1, 2, 3}, got)

	got[0] = 9
	assert.Equal(t, byte(1), src[0], "GoBytes must copy")
	assert.Nil(t, GoBytes(0, 4))
}

func TestReadPointer(t *testing.T) {
	target := uintptr(0xdeadbeef)
	assert.Equal(t, target, ReadPointer(uintptr(unsafe.Pointer(&target))))
	assert.Zero(t, ReadPointer(0))
}

func TestPinTable(t *testing.T) {
	pins := NewPinTable()
	buf := make([]byte, 64)

	addr := pins.Pin(buf)
	assert.Equal(t, BufferAddr(buf), addr)
	assert.Equal(t, 1, pins.Active())

	pins.Pin(buf)
	pins.Unpin(buf)
	assert.Equal(t, 1, pins.Active(), "second pin keeps buffer pinned")
	pins.Unpin(buf)
	assert.Equal(t, 0, pins.Active())

	pins.Unpin(buf)
	assert.Equal(t, 0, pins.Active(), "unpin of unknown buffer is a no-op")
}

func TestPinTable_Retain(t *testing.T) {
	pins := NewPinTable()
	buf := make([]byte, 128)

	pins.Pin(buf)
	pins.Retain(buf)
	assert.Equal(t, 0, pins.Active())
	assert.Equal(t, 128, pins.RetainedBytes())
	assert.True(t, pins.Retained(buf))

	pins.UnpinAll()
	assert.Equal(t, 0, pins.RetainedBytes())
}

func TestPinTable_EmptyBuffer(t *testing.T) {
	pins := NewPinTable()
	assert.Zero(t, pins.Pin(nil))
	assert.Equal(t, 0, pins.Active())
}

func TestPinTable_Concurrent(t *testing.T) {
	pins := NewPinTable()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b := make([]byte, 32)
			pins.Pin(b)
			pins.Unpin(b)
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, pins.Active())
}
