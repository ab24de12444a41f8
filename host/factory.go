package host

import (
	"fmt"

	domainerrors "github.com/reglet-dev/vfpython/domain/errors"
	"github.com/reglet-dev/vfpython/domain/ports"
	"github.com/reglet-dev/vfpython/guest"
)

// FilterObject is an instance of the user's filter class. It keeps its
// module loaded for as long as it lives.
type FilterObject struct {
	rt       *Runtime
	module   *Module
	ref      *guest.Ref
	class    string
	released bool
}

// Class returns the name the object was instantiated from.
func (o *FilterObject) Class() string {
	return o.class
}

// Object returns the guest object, borrowed from the handle.
func (o *FilterObject) Object() ports.Object {
	return o.ref.Obj()
}

// Close releases the object from outside a job.
func (o *FilterObject) Close() error {
	return closeHandle(o.rt, o)
}

func (o *FilterObject) release() {
	if o.released {
		return
	}
	o.released = true
	o.ref.Close()
	o.module.release()
}

// Instantiate calls mod.className(initArg).
func (s *Session) Instantiate(mod *Module, className, initArg string) (*FilterObject, error) {
	if err := s.check("instantiate"); err != nil {
		return nil, err
	}
	if mod.released {
		return nil, &domainerrors.StateError{Op: "instantiate", State: "released"}
	}
	api := s.rt.api

	cls := guest.Own(api, api.GetAttr(mod.ref.Obj(), className))
	if cls == nil {
		missing := api.ErrMatches(ports.ExcAttributeError)
		return nil, &domainerrors.ConstructionError{Class: className, AttributeMissing: missing, Err: guest.Failure(api)}
	}
	defer cls.Close()
	if !api.IsCallable(cls.Obj()) {
		return nil, &domainerrors.ConstructionError{Class: className, Err: fmt.Errorf("%s is not callable", className)}
	}

	arg, err := guest.String(api, initArg)
	if err != nil {
		return nil, &domainerrors.ConstructionError{Class: className, Err: err}
	}
	obj, err := guest.Call(api, cls, arg)
	if err != nil {
		return nil, &domainerrors.ConstructionError{Class: className, Err: err}
	}
	s.rt.logger.Debug("filter object created", "module", mod.Name(), "class", className)
	return &FilterObject{
		rt:     s.rt,
		module: s.rt.modules.handle(mod.entry),
		ref:    obj,
		class:  className,
	}, nil
}
