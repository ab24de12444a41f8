package cpython

import (
	"errors"
	"unsafe"

	"github.com/reglet-dev/vfpython/domain/ports"
	"github.com/reglet-dev/vfpython/internal/abi"
)

// PyBUF_WRITE makes PyMemoryView_FromMemory return a writable view.
const pyBufWrite = 0x200

// API is the bound interpreter surface. It implements ports.Interpreter.
type API struct {
	table *SymbolTable
	fn    symbols
	none  uintptr
}

var _ ports.Interpreter = (*API)(nil)

func (a *API) exception(kind ports.ExceptionKind) uintptr {
	addr, _ := a.table.Addr(exceptionSymbols[kind])
	return abi.ReadPointer(addr)
}

func (a *API) DecodeLocale(s string) (ports.WideString, error) {
	w := a.fn.Py_DecodeLocale(s, 0)
	if w == 0 {
		return 0, errors.New("Py_DecodeLocale failed")
	}
	return ports.WideString(w), nil
}

func (a *API) FreeWide(w ports.WideString) {
	if w != 0 {
		a.fn.PyMem_RawFree(uintptr(w))
	}
}

func (a *API) SetProgramName(w ports.WideString) { a.fn.Py_SetProgramName(uintptr(w)) }
func (a *API) SetPythonHome(w ports.WideString)  { a.fn.Py_SetPythonHome(uintptr(w)) }
func (a *API) HasPythonHome() bool                { return a.fn.Py_GetPythonHome() != 0 }
func (a *API) InitializeEx(initsigs int)          { a.fn.Py_InitializeEx(int32(initsigs)) }
func (a *API) IsInitialized() bool                { return a.fn.Py_IsInitialized() != 0 }
func (a *API) FinalizeEx() int                    { return int(a.fn.Py_FinalizeEx()) }

func (a *API) SaveThread() ports.ThreadState {
	return ports.ThreadState(a.fn.PyEval_SaveThread())
}

func (a *API) RestoreThread(ts ports.ThreadState) { a.fn.PyEval_RestoreThread(uintptr(ts)) }
func (a *API) SetInterrupt()                      { a.fn.PyErr_SetInterrupt() }

func (a *API) IncRef(o ports.Object) {
	if o != 0 {
		a.fn.Py_IncRef(uintptr(o))
	}
}

func (a *API) DecRef(o ports.Object) {
	if o != 0 {
		a.fn.Py_DecRef(uintptr(o))
	}
}

func (a *API) None() ports.Object { return ports.Object(a.none) }

func (a *API) FromString(s string) ports.Object {
	return ports.Object(a.fn.PyUnicode_FromStringAndSize(s, int64(len(s))))
}

func (a *API) DecodeFSDefault(s string) ports.Object {
	return ports.Object(a.fn.PyUnicode_DecodeFSDefault(s))
}

func (a *API) AsString(o ports.Object) (string, bool) {
	var size int64
	p := a.fn.PyUnicode_AsUTF8AndSize(uintptr(o), &size)
	if p == 0 {
		return "", false
	}
	return string(abi.GoBytes(p, int(size))), true
}

func (a *API) FromInt64(v int64) ports.Object {
	return ports.Object(a.fn.PyLong_FromLongLong(v))
}

func (a *API) AsInt64(o ports.Object) (int64, bool) {
	v := a.fn.PyLong_AsLongLong(uintptr(o))
	if v == -1 && a.ErrOccurred() {
		return 0, false
	}
	return v, true
}

func (a *API) FromBytes(b []byte) ports.Object {
	return ports.Object(a.fn.PyBytes_FromStringAndSize(unsafe.SliceData(b), int64(len(b))))
}

func (a *API) AsBytes(o ports.Object) ([]byte, bool) {
	var (
		buf  uintptr
		size int64
	)
	if a.fn.PyBytes_AsStringAndSize(uintptr(o), &buf, &size) != 0 {
		return nil, false
	}
	if size == 0 {
		return []byte{}, true
	}
	return abi.GoBytes(buf, int(size)), true
}

func (a *API) NewTuple(n int) ports.Object {
	return ports.Object(a.fn.PyTuple_New(int64(n)))
}

func (a *API) TupleSetItem(t ports.Object, i int, item ports.Object) bool {
	return a.fn.PyTuple_SetItem(uintptr(t), int64(i), uintptr(item)) == 0
}

func (a *API) TupleGetItem(t ports.Object, i int) ports.Object {
	return ports.Object(a.fn.PyTuple_GetItem(uintptr(t), int64(i)))
}

func (a *API) TupleSize(t ports.Object) int { return int(a.fn.PyTuple_Size(uintptr(t))) }
func (a *API) IsSequence(o ports.Object) bool { return a.fn.PySequence_Check(uintptr(o)) != 0 }
func (a *API) SequenceSize(o ports.Object) int { return int(a.fn.PySequence_Size(uintptr(o))) }

func (a *API) SequenceItem(o ports.Object, i int) ports.Object {
	return ports.Object(a.fn.PySequence_GetItem(uintptr(o), int64(i)))
}

func (a *API) NewMemoryView(buf []byte) ports.Object {
	return ports.Object(a.fn.PyMemoryView_FromMemory(unsafe.SliceData(buf), int64(len(buf)), pyBufWrite))
}

func (a *API) Str(o ports.Object) ports.Object {
	return ports.Object(a.fn.PyObject_Str(uintptr(o)))
}

func (a *API) GetAttr(o ports.Object, name string) ports.Object {
	return ports.Object(a.fn.PyObject_GetAttrString(uintptr(o), name))
}

func (a *API) IsCallable(o ports.Object) bool { return a.fn.PyCallable_Check(uintptr(o)) != 0 }

func (a *API) Call(callable, args ports.Object) ports.Object {
	return ports.Object(a.fn.PyObject_Call(uintptr(callable), uintptr(args), 0))
}

func (a *API) DictSetItem(d ports.Object, key string, v ports.Object) bool {
	return a.fn.PyDict_SetItemString(uintptr(d), key, uintptr(v)) == 0
}

func (a *API) DictGetItem(d ports.Object, key string) ports.Object {
	return ports.Object(a.fn.PyDict_GetItemString(uintptr(d), key))
}

func (a *API) DictDelItem(d ports.Object, key string) bool {
	return a.fn.PyDict_DelItemString(uintptr(d), key) == 0
}

func (a *API) ErrOccurred() bool { return a.fn.PyErr_Occurred() != 0 }

func (a *API) ErrMatches(kind ports.ExceptionKind) bool {
	exc := a.exception(kind)
	return exc != 0 && a.fn.PyErr_ExceptionMatches(exc) != 0
}

func (a *API) ErrFetch() (typ, value, traceback ports.Object) {
	var t, v, tb uintptr
	a.fn.PyErr_Fetch(&t, &v, &tb)
	return ports.Object(t), ports.Object(v), ports.Object(tb)
}

func (a *API) ErrNormalize(typ, value, traceback *ports.Object) {
	t, v, tb := uintptr(*typ), uintptr(*value), uintptr(*traceback)
	a.fn.PyErr_NormalizeException(&t, &v, &tb)
	*typ, *value, *traceback = ports.Object(t), ports.Object(v), ports.Object(tb)
}

func (a *API) ErrClear() { a.fn.PyErr_Clear() }

func (a *API) ErrSetString(kind ports.ExceptionKind, msg string) {
	a.fn.PyErr_SetString(a.exception(kind), msg)
}

func (a *API) Compile(src, filename string, start int) ports.Object {
	return ports.Object(a.fn.Py_CompileStringExFlags(src, filename, int32(start), 0, -1))
}

func (a *API) ExecCodeModule(name string, code ports.Object, path string) ports.Object {
	return ports.Object(a.fn.PyImport_ExecCodeModuleEx(name, uintptr(code), path))
}

func (a *API) ImportModule(name string) ports.Object {
	return ports.Object(a.fn.PyImport_ImportModule(name))
}

func (a *API) AddModule(name string) ports.Object {
	return ports.Object(a.fn.PyImport_AddModule(name))
}

func (a *API) ModuleDict(m ports.Object) ports.Object {
	return ports.Object(a.fn.PyModule_GetDict(uintptr(m)))
}

func (a *API) RunString(src string, start int, globals, locals ports.Object) ports.Object {
	return ports.Object(a.fn.PyRun_StringFlags(src, int32(start), uintptr(globals), uintptr(locals), 0))
}

func (a *API) SysObject(name string) ports.Object {
	return ports.Object(a.fn.PySys_GetObject(name))
}

func (a *API) ListAppend(list, item ports.Object) bool {
	return a.fn.PyList_Append(uintptr(list), uintptr(item)) == 0
}
