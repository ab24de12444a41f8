package guesttest

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"syscall"

	"github.com/reglet-dev/vfpython/domain/ports"
)

// --- lifecycle --------------------------------------------------------------

func (f *Interp) DecodeLocale(s string) (ports.WideString, error) {
	if strings.ContainsRune(s, 0) {
		return 0, errors.New("embedded NUL")
	}
	f.nextWide++
	f.wide[f.nextWide] = s
	return f.nextWide, nil
}

func (f *Interp) FreeWide(w ports.WideString) {
	if _, ok := f.wide[w]; !ok && w != 0 {
		f.violate("free of unknown wide string %#x", uintptr(w))
	}
	delete(f.wide, w)
}

func (f *Interp) SetProgramName(w ports.WideString) { f.ProgramName = f.wide[w] }

func (f *Interp) SetPythonHome(w ports.WideString) { f.Home = f.wide[w] }

func (f *Interp) HasPythonHome() bool { return f.PresetHome || f.Home != "" }

func (f *Interp) InitializeEx(initsigs int) {
	if f.initialized {
		f.violate("InitializeEx called twice")
		return
	}
	f.initialized = true
	f.holding = true
	f.initSigs = initsigs
	f.installBuiltins()
	if initsigs == 1 && f.Signals != nil {
		f.Signals.Set(syscall.SIGINT, GuestSIGINT)
		f.Signals.Set(syscall.SIGPIPE, "guest:SIG_IGN")
	}
}

func (f *Interp) IsInitialized() bool { return f.initialized && !f.finalized }

func (f *Interp) FinalizeEx() int {
	f.requireToken("FinalizeEx")
	if !f.initialized || f.finalized {
		f.violate("FinalizeEx on uninitialized interpreter")
		return -1
	}
	f.finalized = true
	f.holding = false
	return 0
}

func (f *Interp) SaveThread() ports.ThreadState {
	f.requireToken("SaveThread")
	f.holding = false
	f.saves++
	return ports.ThreadState(0x7000 + f.saves)
}

func (f *Interp) RestoreThread(ts ports.ThreadState) {
	if f.holding {
		f.violate("RestoreThread while already holding the token")
	}
	if ts == 0 {
		f.violate("RestoreThread with NULL thread state")
	}
	f.holding = true
	f.restores++
}

func (f *Interp) SetInterrupt() {
	f.interrupts.Add(1)
	f.pendingInterrupt.Store(true)
}

// --- references -----------------------------------------------------------

func (f *Interp) IncRef(o ports.Object) {
	f.requireToken("IncRef")
	f.incRef(o)
}

func (f *Interp) DecRef(o ports.Object) {
	f.requireToken("DecRef")
	f.decRef(o)
}

// --- values ---------------------------------------------------------------

func (f *Interp) None() ports.Object { return f.none }

func (f *Interp) FromString(s string) ports.Object {
	f.requireToken("FromString")
	return f.newObject(&object{kind: kindStr, s: s})
}

func (f *Interp) DecodeFSDefault(s string) ports.Object {
	o := f.FromString(s)
	f.fsDecoded = append(f.fsDecoded, s)
	return o
}

func (f *Interp) AsString(o ports.Object) (string, bool) {
	f.requireToken("AsString")
	obj, ok := f.objs[o]
	if !ok || obj.kind != kindStr {
		f.setErr("TypeError", "bad argument type for AsString")
		return "", false
	}
	return obj.s, true
}

func (f *Interp) FromInt64(v int64) ports.Object {
	f.requireToken("FromInt64")
	return f.newObject(&object{kind: kindInt, i: v})
}

func (f *Interp) AsInt64(o ports.Object) (int64, bool) {
	f.requireToken("AsInt64")
	obj, ok := f.objs[o]
	if !ok || obj.kind != kindInt {
		f.setErr("TypeError", fmt.Sprintf("an integer is required (got type %s)", kindName(obj)))
		return 0, false
	}
	return obj.i, true
}

func (f *Interp) FromBytes(b []byte) ports.Object {
	f.requireToken("FromBytes")
	return f.newObject(&object{kind: kindBytes, b: append([]byte{}, b...)})
}

func (f *Interp) AsBytes(o ports.Object) ([]byte, bool) {
	f.requireToken("AsBytes")
	obj, ok := f.objs[o]
	if !ok || obj.kind != kindBytes {
		f.setErr("TypeError", fmt.Sprintf("expected bytes, %s found", kindName(obj)))
		return nil, false
	}
	return append([]byte{}, obj.b...), true
}

func (f *Interp) NewTuple(n int) ports.Object {
	f.requireToken("NewTuple")
	return f.newObject(&object{kind: kindTuple, items: make([]ports.Object, n)})
}

func (f *Interp) TupleSetItem(t ports.Object, i int, item ports.Object) bool {
	f.requireToken("TupleSetItem")
	obj, ok := f.objs[t]
	if !ok || obj.kind != kindTuple || i < 0 || i >= len(obj.items) {
		f.decRef(item)
		f.setErr("IndexError", "tuple assignment index out of range")
		return false
	}
	f.decRef(obj.items[i])
	obj.items[i] = item
	return true
}

func (f *Interp) TupleGetItem(t ports.Object, i int) ports.Object {
	f.requireToken("TupleGetItem")
	obj, ok := f.objs[t]
	if !ok || obj.kind != kindTuple || i < 0 || i >= len(obj.items) {
		f.setErr("IndexError", "tuple index out of range")
		return 0
	}
	return obj.items[i]
}

func (f *Interp) TupleSize(t ports.Object) int {
	f.requireToken("TupleSize")
	if obj, ok := f.objs[t]; ok && obj.kind == kindTuple {
		return len(obj.items)
	}
	f.setErr("SystemError", "bad argument to TupleSize")
	return -1
}

func (f *Interp) IsSequence(o ports.Object) bool {
	f.requireToken("IsSequence")
	obj, ok := f.objs[o]
	if !ok {
		return false
	}
	switch obj.kind {
	case kindTuple, kindList, kindStr, kindBytes:
		return true
	}
	return false
}

func (f *Interp) SequenceSize(o ports.Object) int {
	f.requireToken("SequenceSize")
	obj, ok := f.objs[o]
	if !ok {
		f.setErr("SystemError", "bad argument to SequenceSize")
		return -1
	}
	switch obj.kind {
	case kindTuple, kindList:
		return len(obj.items)
	case kindStr:
		return len(obj.s)
	case kindBytes:
		return len(obj.b)
	}
	f.setErr("TypeError", fmt.Sprintf("object of type '%s' has no len()", obj.kind))
	return -1
}

func (f *Interp) SequenceItem(o ports.Object, i int) ports.Object {
	f.requireToken("SequenceItem")
	obj, ok := f.objs[o]
	if !ok {
		f.setErr("SystemError", "bad argument to SequenceItem")
		return 0
	}
	switch obj.kind {
	case kindTuple, kindList:
		if i < 0 || i >= len(obj.items) {
			f.setErr("IndexError", "index out of range")
			return 0
		}
		f.incRef(obj.items[i])
		return obj.items[i]
	case kindStr:
		if i < 0 || i >= len(obj.s) {
			f.setErr("IndexError", "string index out of range")
			return 0
		}
		return f.newObject(&object{kind: kindStr, s: obj.s[i : i+1]})
	}
	f.setErr("TypeError", fmt.Sprintf("'%s' object is not subscriptable", obj.kind))
	return 0
}

func (f *Interp) NewMemoryView(buf []byte) ports.Object {
	f.requireToken("NewMemoryView")
	return f.newObject(&object{kind: kindView, view: &View{buf: buf}})
}

func (f *Interp) Str(o ports.Object) ports.Object {
	f.requireToken("Str")
	obj, ok := f.objs[o]
	if !ok {
		f.setErr("SystemError", "bad argument to Str")
		return 0
	}
	switch obj.kind {
	case kindStr:
		f.incRef(o)
		return o
	case kindInt:
		return f.newObject(&object{kind: kindStr, s: strconv.FormatInt(obj.i, 10)})
	case kindException:
		return f.newObject(&object{kind: kindStr, s: obj.s})
	case kindNone:
		return f.newObject(&object{kind: kindStr, s: "None"})
	default:
		return f.newObject(&object{kind: kindStr, s: fmt.Sprintf("<%s object>", obj.kind)})
	}
}

func (f *Interp) GetAttr(o ports.Object, name string) ports.Object {
	f.requireToken("GetAttr")
	obj, ok := f.objs[o]
	if !ok {
		f.setErr("SystemError", "bad argument to GetAttr")
		return 0
	}
	switch obj.kind {
	case kindModule:
		if v, ok := f.objs[obj.dictObj].dict[name]; ok {
			f.incRef(v)
			return v
		}
		f.setErr("AttributeError", fmt.Sprintf("module '%s' has no attribute '%s'", obj.name, name))
		return 0
	case kindInstance:
		if m, ok := obj.inst.Methods[name]; ok {
			return f.boundMethod(name, m)
		}
		if v, ok := obj.inst.Attrs[name]; ok {
			return f.toObject(v)
		}
		f.setErr("AttributeError", fmt.Sprintf("'%s' object has no attribute '%s'", obj.name, name))
		return 0
	case kindType:
		if name == "__name__" {
			return f.newObject(&object{kind: kindStr, s: obj.name})
		}
	case kindView:
		if name == "release" {
			view := obj.view
			return f.newObject(&object{kind: kindCallable, name: "release", call: func([]ports.Object) (ports.Object, error) {
				if view.retained {
					return 0, Raisef("BufferError", "memoryview has 1 exported buffer")
				}
				view.released = true
				f.incRef(f.none)
				return f.none, nil
			}})
		}
	}
	f.setErr("AttributeError", fmt.Sprintf("'%s' object has no attribute '%s'", obj.kind, name))
	return 0
}

func (f *Interp) IsCallable(o ports.Object) bool {
	f.requireToken("IsCallable")
	obj, ok := f.objs[o]
	if !ok {
		return false
	}
	return obj.kind == kindCallable || (obj.kind == kindInstance && obj.inst.Call != nil)
}

func (f *Interp) Call(callable, args ports.Object) ports.Object {
	f.requireToken("Call")
	return f.call(callable, args)
}

func (f *Interp) DictSetItem(d ports.Object, key string, v ports.Object) bool {
	f.requireToken("DictSetItem")
	obj, ok := f.objs[d]
	if !ok || obj.kind != kindDict {
		f.setErr("SystemError", "bad argument to DictSetItem")
		return false
	}
	f.incRef(v)
	if old, ok := obj.dict[key]; ok {
		f.decRef(old)
	}
	obj.dict[key] = v
	return true
}

func (f *Interp) DictGetItem(d ports.Object, key string) ports.Object {
	f.requireToken("DictGetItem")
	obj, ok := f.objs[d]
	if !ok || obj.kind != kindDict {
		return 0
	}
	return obj.dict[key]
}

func (f *Interp) DictDelItem(d ports.Object, key string) bool {
	f.requireToken("DictDelItem")
	obj, ok := f.objs[d]
	if !ok || obj.kind != kindDict {
		f.setErr("SystemError", "bad argument to DictDelItem")
		return false
	}
	old, ok := obj.dict[key]
	if !ok {
		f.setErr("KeyError", key)
		return false
	}
	delete(obj.dict, key)
	f.decRef(old)
	return true
}

// --- error state ----------------------------------------------------------

func (f *Interp) ErrOccurred() bool {
	f.requireToken("ErrOccurred")
	return f.errType != 0
}

func (f *Interp) ErrMatches(kind ports.ExceptionKind) bool {
	f.requireToken("ErrMatches")
	if f.errType == 0 {
		return false
	}
	return f.isSubclass(f.objs[f.errType].name, kind.String())
}

func (f *Interp) ErrFetch() (typ, value, traceback ports.Object) {
	f.requireToken("ErrFetch")
	typ, value = f.errType, f.errValue
	f.errType, f.errValue = 0, 0
	return typ, value, 0
}

func (f *Interp) ErrNormalize(typ, value, traceback *ports.Object) {
	f.requireToken("ErrNormalize")
}

func (f *Interp) ErrClear() {
	f.requireToken("ErrClear")
	f.clearErr()
}

func (f *Interp) ErrSetString(kind ports.ExceptionKind, msg string) {
	f.requireToken("ErrSetString")
	f.setErr(kind.String(), msg)
}

// --- code and modules -----------------------------------------------------

func (f *Interp) Compile(src, filename string, start int) ports.Object {
	f.requireToken("Compile")
	if start != ports.FileInput {
		f.violate("Compile with start token %d", start)
	}
	if _, ok := f.scripts[src]; !ok {
		f.setErr("SyntaxError", fmt.Sprintf("invalid syntax (%s, line 1)", filename))
		return 0
	}
	return f.newObject(&object{kind: kindCode, s: src, name: filename})
}

func (f *Interp) ExecCodeModule(name string, code ports.Object, path string) ports.Object {
	f.requireToken("ExecCodeModule")
	c, ok := f.objs[code]
	if !ok || c.kind != kindCode {
		f.setErr("SystemError", "bad code object")
		return 0
	}
	dict := f.newObject(&object{kind: kindDict, dict: map[string]ports.Object{}})
	mod := f.newObject(&object{kind: kindModule, name: name, dictObj: dict})
	f.DictSetItem(f.sysModules, name, mod)
	f.execCount[path]++

	err := f.scripts[c.s](&Module{f: f, obj: mod, Name: name, Path: path})
	if err != nil {
		f.DictDelItem(f.sysModules, name)
		f.decRef(mod)
		f.setErrFrom(err)
		return 0
	}
	return mod
}

func (f *Interp) ImportModule(name string) ports.Object {
	f.requireToken("ImportModule")
	if m, ok := f.objs[f.sysModules].dict[name]; ok {
		f.incRef(m)
		return m
	}
	if name == "site" {
		m := f.installSite()
		f.incRef(m)
		return m
	}
	f.setErr("ModuleNotFoundError", fmt.Sprintf("No module named '%s'", name))
	return 0
}

func (f *Interp) AddModule(name string) ports.Object {
	f.requireToken("AddModule")
	if m, ok := f.objs[f.sysModules].dict[name]; ok {
		return m
	}
	dict := f.newObject(&object{kind: kindDict, dict: map[string]ports.Object{}})
	mod := f.newObject(&object{kind: kindModule, name: name, dictObj: dict})
	f.objs[mod].immortal = true
	f.objs[dict].immortal = true
	f.objs[f.sysModules].dict[name] = mod
	return mod
}

func (f *Interp) ModuleDict(m ports.Object) ports.Object {
	f.requireToken("ModuleDict")
	obj, ok := f.objs[m]
	if !ok || obj.kind != kindModule {
		return 0
	}
	return obj.dictObj
}

func (f *Interp) RunString(src string, start int, globals, locals ports.Object) ports.Object {
	f.requireToken("RunString")
	f.runStrings = append(f.runStrings, src)
	if f.RunStringHook != nil {
		if err := f.RunStringHook(src, globals); err != nil {
			f.setErrFrom(err)
			return 0
		}
	}
	f.incRef(f.none)
	return f.none
}

func (f *Interp) SysObject(name string) ports.Object {
	f.requireToken("SysObject")
	switch name {
	case "path":
		return f.sysPath
	case "modules":
		return f.sysModules
	}
	return 0
}

func (f *Interp) ListAppend(list, item ports.Object) bool {
	f.requireToken("ListAppend")
	obj, ok := f.objs[list]
	if !ok || obj.kind != kindList {
		f.setErr("SystemError", "bad argument to ListAppend")
		return false
	}
	f.incRef(item)
	obj.items = append(obj.items, item)
	return true
}

func (f *Interp) NewHostFunction(name string, fn ports.HostFunction) (ports.Object, error) {
	f.requireToken("NewHostFunction")
	return f.immortal(&object{kind: kindCallable, name: name, call: func(args []ports.Object) (ports.Object, error) {
		for _, a := range args {
			f.incRef(a)
		}
		t := f.newObject(&object{kind: kindTuple, items: args})
		defer f.decRef(t)
		return fn(t)
	}}), nil
}

func kindName(o *object) string {
	if o == nil {
		return "NULL"
	}
	return o.kind.String()
}
