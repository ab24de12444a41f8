package guest

import (
	"github.com/reglet-dev/vfpython/domain/errors"
	"github.com/reglet-dev/vfpython/domain/ports"
)

// NewTuple builds a tuple from items and consumes them: on return every item
// is moved, whether or not construction succeeded.
func NewTuple(api ports.Interpreter, items ...*Ref) (*Ref, error) {
	t := Own(api, api.NewTuple(len(items)))
	if t == nil {
		CloseAll(items...)
		return nil, Failure(api)
	}
	for i, item := range items {
		if !item.Valid() {
			t.Close()
			CloseAll(items[i:]...)
			return nil, &errors.GuestException{Type: "SystemError", Message: "tuple item is not a valid reference"}
		}
		if !api.TupleSetItem(t.Obj(), i, item.steal()) {
			t.Close()
			CloseAll(items[i+1:]...)
			return nil, Failure(api)
		}
	}
	return t, nil
}

// String converts a Go string into a guest str.
func String(api ports.Interpreter, s string) (*Ref, error) {
	r := Own(api, api.FromString(s))
	if r == nil {
		return nil, Failure(api)
	}
	return r, nil
}

// Path converts a file system path into a guest str using the interpreter's
// file system encoding.
func Path(api ports.Interpreter, p string) (*Ref, error) {
	r := Own(api, api.DecodeFSDefault(p))
	if r == nil {
		return nil, Failure(api)
	}
	return r, nil
}

// Int converts an int64 into a guest int.
func Int(api ports.Interpreter, v int64) (*Ref, error) {
	r := Own(api, api.FromInt64(v))
	if r == nil {
		return nil, Failure(api)
	}
	return r, nil
}

// Bytes copies b into a guest bytes object.
func Bytes(api ports.Interpreter, b []byte) (*Ref, error) {
	r := Own(api, api.FromBytes(b))
	if r == nil {
		return nil, Failure(api)
	}
	return r, nil
}

// Call calls callable with the given positional arguments, consuming them.
func Call(api ports.Interpreter, callable *Ref, args ...*Ref) (*Ref, error) {
	t, err := NewTuple(api, args...)
	if err != nil {
		return nil, err
	}
	defer t.Close()

	res := Own(api, api.Call(callable.Obj(), t.Obj()))
	if res == nil {
		return nil, Failure(api)
	}
	return res, nil
}

// GetAttr looks up an attribute.
func GetAttr(api ports.Interpreter, obj *Ref, name string) (*Ref, error) {
	r := Own(api, api.GetAttr(obj.Obj(), name))
	if r == nil {
		return nil, Failure(api)
	}
	return r, nil
}

// CallMethod looks up and calls a method.
func CallMethod(api ports.Interpreter, obj *Ref, name string, args ...*Ref) (*Ref, error) {
	m, err := GetAttr(api, obj, name)
	if err != nil {
		CloseAll(args...)
		return nil, err
	}
	defer m.Close()
	return Call(api, m, args...)
}

// Import imports a module by name.
func Import(api ports.Interpreter, name string) (*Ref, error) {
	r := Own(api, api.ImportModule(name))
	if r == nil {
		return nil, Failure(api)
	}
	return r, nil
}

// Text returns str(obj) as a Go string. Guest errors are cleared.
func Text(api ports.Interpreter, obj ports.Object) string {
	if obj == 0 {
		return ""
	}
	if s, ok := api.AsString(obj); ok {
		return s
	}
	api.ErrClear()
	str := Own(api, api.Str(obj))
	if str == nil {
		api.ErrClear()
		return ""
	}
	defer str.Close()
	s, ok := api.AsString(str.Obj())
	if !ok {
		api.ErrClear()
		return ""
	}
	return s
}
