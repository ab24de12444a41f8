package cpython

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/ebitengine/purego"

	domainerrors "github.com/reglet-dev/vfpython/domain/errors"
	"github.com/reglet-dev/vfpython/domain/ports"
)

// symbols holds one typed function per manifest entry. Field names are the
// exported C symbol names. C int is int32, Py_ssize_t is int64 and every
// pointer is uintptr.
//
//nolint:revive,stylecheck // names mirror the C symbols
type symbols struct {
	Py_DecodeLocale      func(arg string, size uintptr) uintptr
	PyMem_RawFree        func(p uintptr)
	Py_SetProgramName    func(name uintptr)
	Py_SetPythonHome     func(home uintptr)
	Py_GetPythonHome     func() uintptr
	Py_InitializeEx      func(initsigs int32)
	Py_IsInitialized     func() int32
	Py_FinalizeEx        func() int32
	PyEval_SaveThread    func() uintptr
	PyEval_RestoreThread func(ts uintptr)
	PyErr_SetInterrupt   func()
	Py_IncRef            func(o uintptr)
	Py_DecRef            func(o uintptr)

	PyUnicode_FromStringAndSize func(s string, size int64) uintptr
	PyUnicode_DecodeFSDefault   func(s string) uintptr
	PyUnicode_AsUTF8AndSize     func(o uintptr, size *int64) uintptr
	PyLong_FromLongLong         func(v int64) uintptr
	PyLong_AsLongLong           func(o uintptr) int64
	PyBytes_FromStringAndSize   func(s *byte, size int64) uintptr
	PyBytes_AsStringAndSize     func(o uintptr, buf *uintptr, size *int64) int32
	PyTuple_New                 func(n int64) uintptr
	PyTuple_SetItem             func(t uintptr, i int64, o uintptr) int32
	PyTuple_GetItem             func(t uintptr, i int64) uintptr
	PyTuple_Size                func(t uintptr) int64
	PySequence_Check            func(o uintptr) int32
	PySequence_Size             func(o uintptr) int64
	PySequence_GetItem          func(o uintptr, i int64) uintptr
	PyMemoryView_FromMemory     func(mem *byte, size int64, flags int32) uintptr
	PyObject_Str                func(o uintptr) uintptr
	PyObject_GetAttrString      func(o uintptr, name string) uintptr
	PyObject_Call               func(callable, args, kwargs uintptr) uintptr
	PyCallable_Check            func(o uintptr) int32
	PyDict_SetItemString        func(d uintptr, key string, v uintptr) int32
	PyDict_GetItemString        func(d uintptr, key string) uintptr
	PyDict_DelItemString        func(d uintptr, key string) int32

	PyErr_Occurred           func() uintptr
	PyErr_ExceptionMatches   func(exc uintptr) int32
	PyErr_Fetch              func(t, v, tb *uintptr)
	PyErr_NormalizeException func(t, v, tb *uintptr)
	PyErr_Clear              func()
	PyErr_SetString          func(exc uintptr, msg string)

	Py_CompileStringExFlags   func(src, filename string, start int32, flags uintptr, optimize int32) uintptr
	PyImport_ExecCodeModuleEx func(name string, code uintptr, path string) uintptr
	PyImport_ImportModule     func(name string) uintptr
	PyImport_AddModule        func(name string) uintptr
	PyModule_GetDict          func(m uintptr) uintptr
	PyRun_StringFlags         func(src string, start int32, globals, locals, flags uintptr) uintptr
	PySys_GetObject           func(name string) uintptr
	PyList_Append             func(l, item uintptr) int32
	PyCFunction_NewEx         func(def, self, module uintptr) uintptr
}

// Load resolves and binds the manifest from lib.
func Load(lib ports.Library) (*API, error) {
	table, err := Resolve(lib)
	if err != nil {
		return nil, err
	}
	return Bind(table)
}

// Bind registers every function symbol of a resolved table.
func Bind(table *SymbolTable) (*API, error) {
	if table == nil {
		return nil, errors.New("bind: nil symbol table")
	}
	api := &API{table: table}

	v := reflect.ValueOf(&api.fn).Elem()
	typ := v.Type()
	for i := 0; i < typ.NumField(); i++ {
		name := typ.Field(i).Name
		addr, ok := table.Addr(name)
		if !ok || addr == 0 {
			return nil, &domainerrors.LoadError{Path: table.Path(), Symbol: name, Err: domainerrors.ErrSymbolMissing}
		}
		if err := register(v.Field(i).Addr().Interface(), addr); err != nil {
			return nil, &domainerrors.LoadError{Path: table.Path(), Symbol: name, Err: domainerrors.ErrLoadFailed, Reason: err.Error()}
		}
	}

	api.none, _ = table.Addr(noneSymbol)
	return api, nil
}

func register(fptr any, addr uintptr) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("register: %v", r)
		}
	}()
	purego.RegisterFunc(fptr, addr)
	return nil
}
