package ports

// Object is a guest object reference (PyObject*). Zero means NULL.
type Object uintptr

// ThreadState is a saved guest thread state (PyThreadState*).
type ThreadState uintptr

// WideString is a guest-allocated wide string (wchar_t*).
type WideString uintptr

// FileInput is the compile start token for module source (Py_file_input).
const FileInput = 257

// ExceptionKind names the built-in exception types the host inspects or raises.
type ExceptionKind int

const (
	ExcAttributeError ExceptionKind = iota
	ExcKeyboardInterrupt
	ExcImportError
	ExcRuntimeError
	ExcTypeError
	ExcValueError
	ExcSystemExit
)

func (k ExceptionKind) String() string {
	switch k {
	case ExcAttributeError:
		return "AttributeError"
	case ExcKeyboardInterrupt:
		return "KeyboardInterrupt"
	case ExcImportError:
		return "ImportError"
	case ExcRuntimeError:
		return "RuntimeError"
	case ExcTypeError:
		return "TypeError"
	case ExcValueError:
		return "ValueError"
	case ExcSystemExit:
		return "SystemExit"
	default:
		return "Exception"
	}
}

// HostFunction is a Go function callable from the guest. It receives the
// borrowed argument tuple and returns a new reference. A non-nil error is
// raised in the guest as RuntimeError.
type HostFunction func(args Object) (Object, error)

// Interpreter is the bound guest C API. Functions returning Object return a
// new reference unless documented as borrowed; a zero Object means an error
// is set in the guest. Every method except the lifecycle ones requires the
// execution token.
type Interpreter interface {
	// Lifecycle.
	DecodeLocale(s string) (WideString, error)
	FreeWide(w WideString)
	SetProgramName(w WideString)
	SetPythonHome(w WideString)
	HasPythonHome() bool
	InitializeEx(initsigs int)
	IsInitialized() bool
	FinalizeEx() int
	SaveThread() ThreadState
	RestoreThread(ts ThreadState)
	SetInterrupt()

	// Reference counting.
	IncRef(o Object)
	DecRef(o Object)

	// Values.
	None() Object // borrowed
	FromString(s string) Object
	DecodeFSDefault(s string) Object
	AsString(o Object) (string, bool)
	FromInt64(v int64) Object
	AsInt64(o Object) (int64, bool)
	FromBytes(b []byte) Object
	AsBytes(o Object) ([]byte, bool)
	NewTuple(n int) Object
	// TupleSetItem steals the reference to item, also on failure.
	TupleSetItem(t Object, i int, item Object) bool
	TupleGetItem(t Object, i int) Object // borrowed
	TupleSize(t Object) int
	IsSequence(o Object) bool
	SequenceSize(o Object) int
	SequenceItem(o Object, i int) Object
	// NewMemoryView exposes buf as a writable memoryview. buf must stay
	// pinned for as long as the view is alive.
	NewMemoryView(buf []byte) Object
	Str(o Object) Object
	GetAttr(o Object, name string) Object
	IsCallable(o Object) bool
	Call(callable, args Object) Object
	DictSetItem(d Object, key string, v Object) bool
	DictGetItem(d Object, key string) Object // borrowed
	DictDelItem(d Object, key string) bool

	// Error state.
	ErrOccurred() bool
	ErrMatches(kind ExceptionKind) bool
	ErrFetch() (typ, value, traceback Object)
	ErrNormalize(typ, value, traceback *Object)
	ErrClear()
	ErrSetString(kind ExceptionKind, msg string)

	// Code and modules.
	Compile(src, filename string, start int) Object
	ExecCodeModule(name string, code Object, path string) Object
	ImportModule(name string) Object
	AddModule(name string) Object // borrowed
	ModuleDict(m Object) Object   // borrowed
	RunString(src string, start int, globals, locals Object) Object
	SysObject(name string) Object // borrowed
	ListAppend(list, item Object) bool
	NewHostFunction(name string, fn HostFunction) (Object, error)
}
