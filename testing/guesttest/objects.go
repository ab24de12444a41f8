package guesttest

import (
	"fmt"

	"github.com/reglet-dev/vfpython/domain/ports"
)

type kind int

const (
	kindNone kind = iota
	kindStr
	kindInt
	kindBytes
	kindTuple
	kindList
	kindDict
	kindModule
	kindCode
	kindType
	kindException
	kindCallable
	kindInstance
	kindView
)

func (k kind) String() string {
	return [...]string{"NoneType", "str", "int", "bytes", "tuple", "list", "dict", "module",
		"code", "type", "exception", "builtin_function", "object", "memoryview"}[k]
}

type object struct {
	dict     map[string]ports.Object
	call     func(args []ports.Object) (ports.Object, error)
	inst     *Instance
	view     *View
	name     string
	s        string
	b        []byte
	items    []ports.Object
	i        int64
	refs     int
	dictObj  ports.Object
	excType  ports.Object
	kind     kind
	immortal bool
}

// Raise is returned by script code to raise a guest exception.
type Raise struct {
	// Type is the exception type name, e.g. "ValueError".
	Type string
	Msg  string
}

func (r *Raise) Error() string {
	return fmt.Sprintf("%s: %s", r.Type, r.Msg)
}

// Raisef builds a Raise.
func Raisef(typ, format string, args ...any) *Raise {
	return &Raise{Type: typ, Msg: fmt.Sprintf(format, args...)}
}

// View is the script-side face of a memoryview over a host buffer.
type View struct {
	buf      []byte
	retained bool
	released bool
}

// Bytes returns the viewed buffer. Writes are visible to the host.
func (v *View) Bytes() []byte {
	if v.released {
		panic("operation forbidden on released memoryview object")
	}
	return v.buf
}

// Retain keeps an export of the view alive past the call, the way a guest
// that stores the view or a numpy array over it would.
func (v *View) Retain() {
	v.retained = true
}

// Released reports whether the host released the view.
func (v *View) Released() bool {
	return v.released
}

// Method is a filter object method. Arguments and the result are plain Go
// values: nil, bool, integers, string, []byte and slices of those.
type Method func(args ...any) (any, error)

// Instance is a filter object created by a class constructor.
type Instance struct {
	// Methods are looked up as attributes and are callable.
	Methods map[string]Method
	// Attrs are plain, non-callable attributes.
	Attrs map[string]any
	// Call runs when the object itself is called with two views. A nil Call
	// makes the object non-callable.
	Call func(in, out *View) error
	// Closed is set when the guest object is freed.
	Closed bool
}

// Constructor builds an Instance from the single constructor argument.
type Constructor func(arg string) (*Instance, error)

// Module is the script-side face of a module being executed.
type Module struct {
	f    *Interp
	obj  ports.Object
	Name string
	Path string
}

// DefineClass binds a class to name in the module namespace.
func (m *Module) DefineClass(name string, ctor Constructor) {
	cls := m.f.newObject(&object{kind: kindCallable, name: name})
	m.f.objs[cls].call = func(args []ports.Object) (ports.Object, error) {
		if len(args) != 1 {
			return 0, Raisef("TypeError", "%s() takes exactly one argument (%d given)", name, len(args))
		}
		arg := m.f.objs[args[0]]
		if arg == nil || arg.kind != kindStr {
			return 0, Raisef("TypeError", "%s() argument must be str", name)
		}
		inst, err := ctor(arg.s)
		if err != nil {
			return 0, err
		}
		if inst.Methods == nil {
			inst.Methods = map[string]Method{}
		}
		return m.f.newObject(&object{kind: kindInstance, name: name, inst: inst}), nil
	}
	m.setAttr(name, cls)
	m.f.decRef(cls)
}

// Set binds a plain value to name in the module namespace.
func (m *Module) Set(name string, v any) {
	o := m.f.toObject(v)
	m.setAttr(name, o)
	m.f.decRef(o)
}

func (m *Module) setAttr(name string, o ports.Object) {
	d := m.f.objs[m.f.objs[m.obj].dictObj]
	m.f.incRef(o)
	if old, ok := d.dict[name]; ok {
		m.f.decRef(old)
	}
	d.dict[name] = o
}

// Script is the body of a module, keyed by its source text.
type Script func(m *Module) error
