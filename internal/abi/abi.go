// Package abi provides raw memory helpers for the native boundary: C string
// conversion, pointer reads and pinning of Go buffers exposed to the guest.
package abi

import (
	"runtime"
	"sync"
	"unsafe"
)

// CString returns s as a NUL-terminated byte slice.
func CString(s string) []byte {
	b := make([]byte, len(s)+1)
	copy(b, s)
	return b
}

// GoString reads a NUL-terminated C string at p.
func GoString(p uintptr) string {
	if p == 0 {
		return ""
	}
	n := 0
	//nolint:gosec // G103: reading native memory handed out by the runtime library
	for *(*byte)(unsafe.Pointer(p + uintptr(n))) != 0 {
		n++
	}
	return string(GoBytes(p, n))
}

// GoBytes copies n bytes of native memory at p.
func GoBytes(p uintptr, n int) []byte {
	if p == 0 || n <= 0 {
		return nil
	}
	//nolint:gosec // G103: reading native memory handed out by the runtime library
	src := unsafe.Slice((*byte)(unsafe.Pointer(p)), n)
	data := make([]byte, n)
	copy(data, src)
	return data
}

// ReadPointer dereferences a pointer-sized data symbol.
func ReadPointer(addr uintptr) uintptr {
	if addr == 0 {
		return 0
	}
	//nolint:gosec // G103: addr is a resolved data symbol
	return *(*uintptr)(unsafe.Pointer(addr))
}

// BufferAddr returns the address of the first byte of buf, 0 when empty.
func BufferAddr(buf []byte) uintptr {
	if len(buf) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(unsafe.SliceData(buf)))
}

type pinEntry struct {
	pinner runtime.Pinner
	size   int
	refs   int
}

// PinTable keeps Go buffers pinned while native code holds their address.
// Buffers that native code retains past their exposure are moved to the
// retained set and stay pinned until UnpinAll.
type PinTable struct {
	pins     map[uintptr]*pinEntry
	retained map[uintptr]*pinEntry
	mu       sync.Mutex
}

// NewPinTable creates an empty table.
func NewPinTable() *PinTable {
	return &PinTable{
		pins:     make(map[uintptr]*pinEntry),
		retained: make(map[uintptr]*pinEntry),
	}
}

// Pin pins buf and returns its address. Pinning the same buffer twice needs
// two Unpin calls.
func (t *PinTable) Pin(buf []byte) uintptr {
	addr := BufferAddr(buf)
	if addr == 0 {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if e, ok := t.pins[addr]; ok {
		e.refs++
		return addr
	}
	e := &pinEntry{size: len(buf), refs: 1}
	e.pinner.Pin(unsafe.SliceData(buf))
	t.pins[addr] = e
	return addr
}

// Unpin drops one pin of buf.
func (t *PinTable) Unpin(buf []byte) {
	addr := BufferAddr(buf)
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.pins[addr]
	if !ok {
		return
	}
	e.refs--
	if e.refs > 0 {
		return
	}
	delete(t.pins, addr)
	e.pinner.Unpin()
}

// Retain moves buf to the retained set: it stays pinned and no longer counts
// as an active pin.
func (t *PinTable) Retain(buf []byte) {
	addr := BufferAddr(buf)
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.pins[addr]
	if !ok {
		return
	}
	delete(t.pins, addr)
	if old, dup := t.retained[addr]; dup {
		old.pinner.Unpin()
	}
	t.retained[addr] = e
}

// Active returns the number of buffers with outstanding pins.
func (t *PinTable) Active() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pins)
}

// RetainedBytes returns the total size of retained buffers.
func (t *PinTable) RetainedBytes() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	total := 0
	for _, e := range t.retained {
		total += e.size
	}
	return total
}

// Retained reports whether buf is in the retained set.
func (t *PinTable) Retained(buf []byte) bool {
	addr := BufferAddr(buf)
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.retained[addr]
	return ok
}

// UnpinAll releases every pin, retained ones included.
func (t *PinTable) UnpinAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for addr, e := range t.pins {
		e.pinner.Unpin()
		delete(t.pins, addr)
	}
	for addr, e := range t.retained {
		e.pinner.Unpin()
		delete(t.retained, addr)
	}
}
