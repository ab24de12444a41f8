// Package guest wraps guest object references in single-owner values.
//
// A Ref owns exactly one reference. Close releases it once; Move hands it to
// a new owner and leaves the source empty, so the source can no longer reach
// or release the object. Every function returning a *Ref transfers ownership
// to the caller.
package guest

import (
	"fmt"

	"github.com/reglet-dev/vfpython/domain/ports"
)

// Ref is an owned guest reference.
type Ref struct {
	api   ports.Interpreter
	obj   ports.Object
	moved bool
}

// Own takes ownership of a new reference. It returns nil for a zero object.
func Own(api ports.Interpreter, obj ports.Object) *Ref {
	if obj == 0 {
		return nil
	}
	return &Ref{api: api, obj: obj}
}

// Borrow turns a borrowed reference into an owned one.
func Borrow(api ports.Interpreter, obj ports.Object) *Ref {
	if obj == 0 {
		return nil
	}
	api.IncRef(obj)
	return &Ref{api: api, obj: obj}
}

// Obj returns the underlying object without transferring ownership. It
// panics once the reference has been moved or closed.
func (r *Ref) Obj() ports.Object {
	if r == nil {
		return 0
	}
	if r.moved {
		panic("guest: use of moved reference")
	}
	if r.obj == 0 {
		panic("guest: use of closed reference")
	}
	return r.obj
}

// Valid reports whether r still owns an object.
func (r *Ref) Valid() bool {
	return r != nil && !r.moved && r.obj != 0
}

// Close releases the reference. It is a no-op on nil, moved or already
// closed references, so it is safe to defer right after acquisition.
func (r *Ref) Close() {
	if r == nil || r.moved || r.obj == 0 {
		return
	}
	obj := r.obj
	r.obj = 0
	r.api.DecRef(obj)
}

// Move transfers ownership to a new Ref.
func (r *Ref) Move() *Ref {
	return &Ref{api: r.api, obj: r.steal()}
}

// Clone returns a second owned reference to the same object.
func (r *Ref) Clone() *Ref {
	return Borrow(r.api, r.Obj())
}

// steal hands the raw reference to the caller, who becomes responsible for
// it. The Ref is left moved.
func (r *Ref) steal() ports.Object {
	obj := r.Obj()
	r.moved = true
	r.obj = 0
	return obj
}

func (r *Ref) String() string {
	switch {
	case r == nil:
		return "guest.Ref(nil)"
	case r.moved:
		return "guest.Ref(moved)"
	case r.obj == 0:
		return "guest.Ref(closed)"
	default:
		return fmt.Sprintf("guest.Ref(%#x)", uintptr(r.obj))
	}
}

// CloseAll closes every reference.
func CloseAll(refs ...*Ref) {
	for _, r := range refs {
		r.Close()
	}
}
