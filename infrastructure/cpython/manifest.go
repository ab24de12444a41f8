package cpython

import (
	"sort"

	domainerrors "github.com/reglet-dev/vfpython/domain/errors"
	"github.com/reglet-dev/vfpython/domain/ports"
)

// ManifestVersion identifies the set of required symbols. Bump it when the
// manifest changes.
const ManifestVersion = 1

// functionSymbols must match the fields of symbols one to one.
var functionSymbols = []string{
	"Py_DecodeLocale",
	"PyMem_RawFree",
	"Py_SetProgramName",
	"Py_SetPythonHome",
	"Py_GetPythonHome",
	"Py_InitializeEx",
	"Py_IsInitialized",
	"Py_FinalizeEx",
	"PyEval_SaveThread",
	"PyEval_RestoreThread",
	"PyErr_SetInterrupt",
	"Py_IncRef",
	"Py_DecRef",
	"PyUnicode_FromStringAndSize",
	"PyUnicode_DecodeFSDefault",
	"PyUnicode_AsUTF8AndSize",
	"PyLong_FromLongLong",
	"PyLong_AsLongLong",
	"PyBytes_FromStringAndSize",
	"PyBytes_AsStringAndSize",
	"PyTuple_New",
	"PyTuple_SetItem",
	"PyTuple_GetItem",
	"PyTuple_Size",
	"PySequence_Check",
	"PySequence_Size",
	"PySequence_GetItem",
	"PyMemoryView_FromMemory",
	"PyObject_Str",
	"PyObject_GetAttrString",
	"PyObject_Call",
	"PyCallable_Check",
	"PyDict_SetItemString",
	"PyDict_GetItemString",
	"PyDict_DelItemString",
	"PyErr_Occurred",
	"PyErr_ExceptionMatches",
	"PyErr_Fetch",
	"PyErr_NormalizeException",
	"PyErr_Clear",
	"PyErr_SetString",
	"Py_CompileStringExFlags",
	"PyImport_ExecCodeModuleEx",
	"PyImport_ImportModule",
	"PyImport_AddModule",
	"PyModule_GetDict",
	"PyRun_StringFlags",
	"PySys_GetObject",
	"PyList_Append",
	"PyCFunction_NewEx",
}

const noneSymbol = "_Py_NoneStruct"

var exceptionSymbols = map[ports.ExceptionKind]string{
	ports.ExcAttributeError:    "PyExc_AttributeError",
	ports.ExcKeyboardInterrupt: "PyExc_KeyboardInterrupt",
	ports.ExcImportError:       "PyExc_ImportError",
	ports.ExcRuntimeError:      "PyExc_RuntimeError",
	ports.ExcTypeError:         "PyExc_TypeError",
	ports.ExcValueError:        "PyExc_ValueError",
	ports.ExcSystemExit:        "PyExc_SystemExit",
}

// Manifest returns every required symbol name: functions first, then data
// symbols in a stable order.
func Manifest() []string {
	names := make([]string, 0, len(functionSymbols)+len(exceptionSymbols)+1)
	names = append(names, functionSymbols...)
	names = append(names, noneSymbol)
	data := make([]string, 0, len(exceptionSymbols))
	for _, n := range exceptionSymbols {
		data = append(data, n)
	}
	sort.Strings(data)
	return append(names, data...)
}

// SymbolTable maps every manifest symbol to its address. It is immutable and
// only ever built complete.
type SymbolTable struct {
	addrs   map[string]uintptr
	path    string
	version int
}

// Resolve looks up every manifest symbol in lib. The first missing symbol
// fails the whole resolution and no table is returned.
func Resolve(lib ports.Library) (*SymbolTable, error) {
	names := Manifest()
	addrs := make(map[string]uintptr, len(names))
	for _, name := range names {
		addr, err := lib.Lookup(name)
		if err != nil || addr == 0 {
			return nil, &domainerrors.LoadError{Path: lib.Path(), Symbol: name, Err: domainerrors.ErrSymbolMissing}
		}
		addrs[name] = addr
	}
	return &SymbolTable{addrs: addrs, path: lib.Path(), version: ManifestVersion}, nil
}

// Addr returns the address of a resolved symbol.
func (t *SymbolTable) Addr(name string) (uintptr, bool) {
	a, ok := t.addrs[name]
	return a, ok
}

// Len returns the number of resolved symbols.
func (t *SymbolTable) Len() int {
	return len(t.addrs)
}

// Version returns the manifest version the table was built against.
func (t *SymbolTable) Version() int {
	return t.version
}

// Path returns the library the symbols were resolved from.
func (t *SymbolTable) Path() string {
	return t.path
}
