package guesttest

import (
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"syscall"

	"github.com/reglet-dev/vfpython/domain/entities"
	"github.com/reglet-dev/vfpython/domain/ports"
)

// GuestSIGINT is the disposition the fake interpreter installs for SIGINT
// when initialized with initsigs=1.
const GuestSIGINT = "guest:default_int_handler"

// Interp is a fake interpreter. The zero value is not usable; call New.
type Interp struct {
	objs       map[ports.Object]*object
	scripts    map[string]Script
	wide       map[ports.WideString]string
	excTypes   map[string]ports.Object
	execCount  map[string]int
	violations []string
	runStrings []string
	fsDecoded  []string

	// Signals receives the guest's own dispositions on initialization.
	Signals *Dispositions
	// RunStringHook runs for every RunString call; a nil hook succeeds.
	RunStringHook func(src string, globals ports.Object) error

	ProgramName string
	Home        string

	// PresetHome makes HasPythonHome report a configured home.
	PresetHome bool
	// SymbolModule makes the legacy "symbol" module importable.
	SymbolModule bool
	// SiteLoaded puts "site" in sys.modules at initialization.
	SiteLoaded bool

	next       ports.Object
	nextWide   ports.WideString
	none       ports.Object
	sysModules ports.Object
	sysPath    ports.Object
	errType    ports.Object
	errValue   ports.Object

	initSigs      int
	saves         int
	restores      int
	siteMainCalls int

	interrupts       atomic.Int64
	pendingInterrupt atomic.Bool

	holding     bool
	initialized bool
	finalized   bool
}

var _ ports.Interpreter = (*Interp)(nil)

var exceptionParents = map[string]string{
	"ModuleNotFoundError": "ImportError",
	"KeyboardInterrupt":   "BaseException",
	"SystemExit":          "BaseException",
}

// New creates an uninitialized fake interpreter.
func New() *Interp {
	return &Interp{
		objs:      make(map[ports.Object]*object),
		scripts:   make(map[string]Script),
		wide:      make(map[ports.WideString]string),
		excTypes:  make(map[string]ports.Object),
		execCount: make(map[string]int),
		next:      0x1000,
		nextWide:  0x10,
	}
}

// RegisterScript makes source compile to a module whose body is s.
func (f *Interp) RegisterScript(source string, s Script) {
	f.scripts[source] = s
}

// --- accounting -------------------------------------------------------------

func (f *Interp) violate(format string, args ...any) {
	f.violations = append(f.violations, fmt.Sprintf(format, args...))
}

func (f *Interp) requireToken(op string) {
	if !f.holding {
		f.violate("%s called without the execution token", op)
	}
}

func (f *Interp) newObject(o *object) ports.Object {
	f.next += 0x10
	if o.refs == 0 {
		o.refs = 1
	}
	f.objs[f.next] = o
	return f.next
}

func (f *Interp) immortal(o *object) ports.Object {
	o.immortal = true
	return f.newObject(o)
}

func (f *Interp) incRef(o ports.Object) {
	if o == 0 {
		return
	}
	obj, ok := f.objs[o]
	if !ok {
		f.violate("incref of dead object %#x", uintptr(o))
		return
	}
	obj.refs++
}

func (f *Interp) decRef(o ports.Object) {
	if o == 0 {
		return
	}
	obj, ok := f.objs[o]
	if !ok {
		f.violate("decref of dead object %#x", uintptr(o))
		return
	}
	obj.refs--
	if obj.refs > 0 || obj.immortal {
		if obj.refs < 0 {
			f.violate("refcount of immortal %s went negative", obj.kind)
		}
		return
	}
	delete(f.objs, o)
	for _, it := range obj.items {
		f.decRef(it)
	}
	for _, v := range obj.dict {
		f.decRef(v)
	}
	f.decRef(obj.dictObj)
	if obj.inst != nil {
		obj.inst.Closed = true
	}
}

// LiveObjects returns the number of non-immortal objects alive.
func (f *Interp) LiveObjects() int {
	n := 0
	for _, o := range f.objs {
		if !o.immortal {
			n++
		}
	}
	return n
}

// RefTotal returns the sum of reference counts of non-immortal objects.
func (f *Interp) RefTotal() int {
	n := 0
	for _, o := range f.objs {
		if !o.immortal {
			n += o.refs
		}
	}
	return n
}

// Violations returns ownership and token discipline violations.
func (f *Interp) Violations() []string {
	return append([]string(nil), f.violations...)
}

// Stats returns token and signal counters.
func (f *Interp) Stats() (saves, restores, interrupts int) {
	return f.saves, f.restores, int(f.interrupts.Load())
}

// ExecCount returns how many times a module body ran for path.
func (f *Interp) ExecCount(path string) int {
	return f.execCount[path]
}

// SiteMainCalls returns how many times site.main ran.
func (f *Interp) SiteMainCalls() int {
	return f.siteMainCalls
}

// SysPath returns sys.path.
func (f *Interp) SysPath() []string {
	var out []string
	if l, ok := f.objs[f.sysPath]; ok {
		for _, it := range l.items {
			out = append(out, f.objs[it].s)
		}
	}
	return out
}

// Holding reports whether a thread state is currently active.
func (f *Interp) Holding() bool {
	return f.holding
}

// Initialized reports whether InitializeEx ran.
func (f *Interp) Initialized() bool {
	return f.initialized
}

// Finalized reports whether FinalizeEx ran.
func (f *Interp) Finalized() bool {
	return f.finalized
}

// InitSigs returns the initsigs argument of InitializeEx.
func (f *Interp) InitSigs() int {
	return f.initSigs
}

// LiveWideStrings returns decoded strings not yet freed.
func (f *Interp) LiveWideStrings() int {
	return len(f.wide)
}

// ModuleNames returns the names in sys.modules.
func (f *Interp) ModuleNames() []string {
	var names []string
	if d, ok := f.objs[f.sysModules]; ok {
		for k := range d.dict {
			names = append(names, k)
		}
	}
	sort.Strings(names)
	return names
}

// FSDecoded returns the strings decoded with the file system encoding.
func (f *Interp) FSDecoded() []string {
	return append([]string(nil), f.fsDecoded...)
}

// RunStrings returns the sources passed to RunString.
func (f *Interp) RunStrings() []string {
	return append([]string(nil), f.runStrings...)
}

// CallFunction calls module.name(*args) as guest code would and converts the
// result back to Go. A raised exception is returned as *Raise. It does not
// require the execution token, so call it from inside guest code or a
// Runtime.Do job.
func (f *Interp) CallFunction(module, name string, args ...any) (any, error) {

	d, ok := f.objs[f.sysModules]
	if !ok {
		return nil, errors.New("interpreter not initialized")
	}
	mod, ok := d.dict[module]
	if !ok {
		return nil, Raisef("ModuleNotFoundError", "No module named '%s'", module)
	}
	fn, ok := f.objs[f.objs[mod].dictObj].dict[name]
	if !ok {
		return nil, Raisef("AttributeError", "module '%s' has no attribute '%s'", module, name)
	}
	argObjs := make([]ports.Object, len(args))
	for i, a := range args {
		argObjs[i] = f.toObject(a)
	}
	t := f.newObject(&object{kind: kindTuple, items: argObjs})
	res := f.call(fn, t)
	f.decRef(t)
	if res == 0 {
		r := &Raise{Type: f.objs[f.errType].name, Msg: f.objs[f.errValue].s}
		f.clearErr()
		return nil, r
	}
	out := f.toGo(res)
	f.decRef(res)
	return out, nil
}

// --- error state ----------------------------------------------------------

func (f *Interp) excType(name string) ports.Object {
	if t, ok := f.excTypes[name]; ok {
		return t
	}
	t := f.immortal(&object{kind: kindType, name: name})
	f.excTypes[name] = t
	return t
}

func (f *Interp) setErr(typ, msg string) {
	f.clearErr()
	f.errType = f.excType(typ)
	f.incRef(f.errType)
	f.errValue = f.newObject(&object{kind: kindException, s: msg, excType: f.errType})
}

func (f *Interp) setErrFrom(err error) {
	var r *Raise
	if errors.As(err, &r) {
		f.setErr(r.Type, r.Msg)
		return
	}
	f.setErr("RuntimeError", err.Error())
}

func (f *Interp) clearErr() {
	f.decRef(f.errType)
	f.decRef(f.errValue)
	f.errType, f.errValue = 0, 0
}

func (f *Interp) isSubclass(name, base string) bool {
	for name != "" {
		if name == base {
			return true
		}
		name = exceptionParents[name]
	}
	return false
}

// --- conversions ----------------------------------------------------------

func (f *Interp) toObject(v any) ports.Object {
	switch x := v.(type) {
	case nil:
		f.incRef(f.none)
		return f.none
	case ports.Object:
		f.incRef(x)
		return x
	case bool:
		if x {
			return f.newObject(&object{kind: kindInt, i: 1})
		}
		return f.newObject(&object{kind: kindInt})
	case int:
		return f.newObject(&object{kind: kindInt, i: int64(x)})
	case int32:
		return f.newObject(&object{kind: kindInt, i: int64(x)})
	case int64:
		return f.newObject(&object{kind: kindInt, i: x})
	case entities.PixelFormat:
		return f.newObject(&object{kind: kindInt, i: int64(x)})
	case string:
		return f.newObject(&object{kind: kindStr, s: x})
	case []byte:
		return f.newObject(&object{kind: kindBytes, b: append([]byte{}, x...)})
	case []int:
		items := make([]ports.Object, len(x))
		for i, e := range x {
			items[i] = f.toObject(e)
		}
		return f.newObject(&object{kind: kindList, items: items})
	case []string:
		items := make([]ports.Object, len(x))
		for i, e := range x {
			items[i] = f.toObject(e)
		}
		return f.newObject(&object{kind: kindList, items: items})
	case []any:
		items := make([]ports.Object, len(x))
		for i, e := range x {
			items[i] = f.toObject(e)
		}
		return f.newObject(&object{kind: kindList, items: items})
	default:
		panic(fmt.Sprintf("guesttest: cannot convert %T", v))
	}
}

func (f *Interp) toGo(o ports.Object) any {
	obj, ok := f.objs[o]
	if !ok {
		return nil
	}
	switch obj.kind {
	case kindNone:
		return nil
	case kindStr:
		return obj.s
	case kindInt:
		return obj.i
	case kindBytes:
		return append([]byte{}, obj.b...)
	case kindTuple, kindList:
		out := make([]any, len(obj.items))
		for i, it := range obj.items {
			out[i] = f.toGo(it)
		}
		return out
	case kindView:
		return obj.view
	default:
		return o
	}
}

// --- calls ----------------------------------------------------------------

// call invokes callable with an argument tuple and returns a new reference
// or 0 with the error state set.
func (f *Interp) call(callable, args ports.Object) ports.Object {
	c, ok := f.objs[callable]
	if !ok {
		f.setErr("SystemError", "call of dead object")
		return 0
	}
	t, ok := f.objs[args]
	if !ok || t.kind != kindTuple {
		f.setErr("SystemError", "argument list must be a tuple")
		return 0
	}
	if f.pendingInterrupt.CompareAndSwap(true, false) {
		f.setErr("KeyboardInterrupt", "")
		return 0
	}

	switch {
	case c.kind == kindCallable:
		res, err := c.call(t.items)
		if err != nil {
			if res != 0 {
				f.decRef(res)
			}
			if f.errType == 0 {
				f.setErrFrom(err)
			}
			return 0
		}
		return res
	case c.kind == kindInstance && c.inst.Call != nil:
		return f.callInstance(c, t.items)
	default:
		f.setErr("TypeError", fmt.Sprintf("'%s' object is not callable", c.kind))
		return 0
	}
}

func (f *Interp) callInstance(c *object, args []ports.Object) (res ports.Object) {
	if len(args) != 2 {
		f.setErr("TypeError", fmt.Sprintf("__call__() takes 2 positional arguments but %d were given", len(args)))
		return 0
	}
	in, out := f.objs[args[0]], f.objs[args[1]]
	if in == nil || out == nil || in.kind != kindView || out.kind != kindView {
		f.setErr("TypeError", "expected two memoryviews")
		return 0
	}
	if f.Signals != nil && f.Signals.Get(syscall.SIGINT) != GuestSIGINT {
		f.violate("guest code ran with host SIGINT disposition %q", f.Signals.Get(syscall.SIGINT))
	}
	defer func() {
		if r := recover(); r != nil {
			f.setErr("ValueError", fmt.Sprint(r))
			res = 0
		}
	}()
	if err := c.inst.Call(in.view, out.view); err != nil {
		f.setErrFrom(err)
		return 0
	}
	f.incRef(f.none)
	return f.none
}

func (f *Interp) boundMethod(name string, m Method) ports.Object {
	return f.newObject(&object{kind: kindCallable, name: name, call: func(args []ports.Object) (ports.Object, error) {
		goArgs := make([]any, len(args))
		for i, a := range args {
			goArgs[i] = f.toGo(a)
		}
		v, err := m(goArgs...)
		if err != nil {
			return 0, err
		}
		return f.toObject(v), nil
	}})
}

func (f *Interp) builtinModule(name string, attrs map[string]ports.Object) ports.Object {
	dict := f.immortal(&object{kind: kindDict, dict: attrs})
	mod := f.immortal(&object{kind: kindModule, name: name, dictObj: dict})
	f.objs[f.sysModules].dict[name] = mod
	return mod
}

func (f *Interp) builtinFunc(name string, fn func(args []ports.Object) (ports.Object, error)) ports.Object {
	return f.immortal(&object{kind: kindCallable, name: name, call: fn})
}

func (f *Interp) installBuiltins() {
	f.none = f.immortal(&object{kind: kindNone})
	f.sysModules = f.immortal(&object{kind: kindDict, dict: map[string]ports.Object{}})
	f.sysPath = f.immortal(&object{kind: kindList})

	f.builtinModule("traceback", map[string]ports.Object{
		"format_exception": f.builtinFunc("format_exception", func(args []ports.Object) (ports.Object, error) {
			if len(args) != 3 {
				return 0, Raisef("TypeError", "format_exception expects 3 arguments")
			}
			name, msg := "Exception", ""
			if t, ok := f.objs[args[0]]; ok && t.kind == kindType {
				name = t.name
			}
			if v, ok := f.objs[args[1]]; ok && v.kind == kindException {
				msg = v.s
			}
			line := name
			if msg != "" {
				line += ": " + msg
			}
			return f.toObject([]string{"Traceback (most recent call last):\n", "  File \"<guest>\", line 1, in <module>\n", line + "\n"}), nil
		}),
	})
	if f.SymbolModule {
		f.builtinModule("symbol", map[string]ports.Object{
			"file_input": f.immortal(&object{kind: kindInt, i: ports.FileInput}),
		})
	}
	if f.SiteLoaded {
		f.installSite()
	}
}

func (f *Interp) installSite() ports.Object {
	return f.builtinModule("site", map[string]ports.Object{
		"main": f.builtinFunc("main", func([]ports.Object) (ports.Object, error) {
			f.siteMainCalls++
			f.incRef(f.none)
			return f.none, nil
		}),
	})
}
