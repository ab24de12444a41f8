package cpython

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/ebitengine/purego"

	"github.com/reglet-dev/vfpython/domain/ports"
	"github.com/reglet-dev/vfpython/internal/abi"
)

const methVarargs = 0x0001

// methodDef mirrors struct PyMethodDef.
type methodDef struct {
	name  *byte
	meth  uintptr
	flags int32
	doc   *byte
}

type hostEntry struct {
	fn     ports.HostFunction
	def    *methodDef
	name   []byte
	pinner runtime.Pinner
}

// Host functions are registered process-wide: the trampoline is a single
// native callback and the method's self object carries the handle id.
var (
	hostMu      sync.RWMutex
	hostEntries = make(map[int64]*hostEntry)
	hostNextID  int64 = 1

	trampolineOnce sync.Once
	trampolineAddr uintptr
	boundAPI       atomic.Pointer[API]
)

func trampoline(self, args uintptr) (ret uintptr) {
	api := boundAPI.Load()
	if api == nil {
		return 0
	}
	id, ok := api.AsInt64(ports.Object(self))
	if !ok {
		return 0
	}
	hostMu.RLock()
	entry := hostEntries[id]
	hostMu.RUnlock()
	if entry == nil {
		api.ErrSetString(ports.ExcRuntimeError, fmt.Sprintf("host function %d is not registered", id))
		return 0
	}

	defer func() {
		if r := recover(); r != nil {
			api.ErrSetString(ports.ExcRuntimeError, fmt.Sprintf("host function %s panicked: %v", entry.name[:len(entry.name)-1], r))
			ret = 0
		}
	}()
	res, err := entry.fn(ports.Object(args))
	if err != nil {
		if res != 0 {
			api.DecRef(res)
		}
		if !api.ErrOccurred() {
			api.ErrSetString(ports.ExcRuntimeError, err.Error())
		}
		return 0
	}
	return uintptr(res)
}

// NewHostFunction creates a guest builtin function that calls fn with the
// positional argument tuple.
func (a *API) NewHostFunction(name string, fn ports.HostFunction) (ports.Object, error) {
	trampolineOnce.Do(func() {
		trampolineAddr = purego.NewCallback(trampoline)
	})
	boundAPI.Store(a)

	entry := &hostEntry{fn: fn, name: abi.CString(name)}
	entry.def = &methodDef{
		name:  unsafe.SliceData(entry.name),
		meth:  trampolineAddr,
		flags: methVarargs,
	}
	entry.pinner.Pin(entry.def)
	entry.pinner.Pin(entry.def.name)

	hostMu.Lock()
	id := hostNextID
	hostNextID++
	hostEntries[id] = entry
	hostMu.Unlock()

	self := a.FromInt64(id)
	if self == 0 {
		unregisterHost(id)
		return 0, fmt.Errorf("host function %s: cannot create handle", name)
	}
	defer a.DecRef(self)

	obj := a.fn.PyCFunction_NewEx(uintptr(unsafe.Pointer(entry.def)), uintptr(self), 0)
	if obj == 0 {
		unregisterHost(id)
		return 0, fmt.Errorf("host function %s: PyCFunction_NewEx failed", name)
	}
	return ports.Object(obj), nil
}

// ReleaseHostFunctions forgets every registered host function. Only call it
// after the interpreter has been finalized.
func ReleaseHostFunctions() {
	hostMu.Lock()
	defer hostMu.Unlock()
	for id := range hostEntries {
		hostEntries[id].pinner.Unpin()
		delete(hostEntries, id)
	}
	boundAPI.Store(nil)
}

func unregisterHost(id int64) {
	hostMu.Lock()
	defer hostMu.Unlock()
	if e, ok := hostEntries[id]; ok {
		e.pinner.Unpin()
		delete(hostEntries, id)
	}
}

// hostFunctionCount returns the number of registered host functions.
func hostFunctionCount() int {
	hostMu.RLock()
	defer hostMu.RUnlock()
	return len(hostEntries)
}

// ReleaseHostFunctions releases the host functions created through a.
func (a *API) ReleaseHostFunctions() {
	if boundAPI.Load() == a {
		ReleaseHostFunctions()
	}
}
