package host

import (
	"fmt"

	"github.com/reglet-dev/vfpython/domain/entities"
	domainerrors "github.com/reglet-dev/vfpython/domain/errors"
	"github.com/reglet-dev/vfpython/domain/ports"
	"github.com/reglet-dev/vfpython/guest"
)

// FormatsMethod is the optional filter method that lists supported formats.
const FormatsMethod = "get_formats"

// CapabilityKind tells an absent optional method from a failed lookup.
type CapabilityKind int

const (
	CapabilityAbsent CapabilityKind = iota
	CapabilityPresent
	CapabilityFailed
)

func (k CapabilityKind) String() string {
	switch k {
	case CapabilityAbsent:
		return "absent"
	case CapabilityPresent:
		return "present"
	default:
		return "error"
	}
}

// Capability is the result of looking up an optional method.
type Capability struct {
	// Err is set when Kind is CapabilityFailed.
	Err    error
	method *guest.Ref
	Kind   CapabilityKind
}

// Close releases the method reference, if any.
func (c *Capability) Close() {
	c.method.Close()
}

// LookupCapability looks up an optional method on obj. Only AttributeError
// counts as absent; any other lookup failure is reported.
func (s *Session) LookupCapability(obj *FilterObject, name string) Capability {
	if err := s.check("lookup_capability"); err != nil {
		return Capability{Kind: CapabilityFailed, Err: err}
	}
	api := s.rt.api
	m := guest.Own(api, api.GetAttr(obj.ref.Obj(), name))
	if m != nil {
		return Capability{Kind: CapabilityPresent, method: m}
	}
	if api.ErrMatches(ports.ExcAttributeError) {
		api.ErrClear()
		return Capability{Kind: CapabilityAbsent}
	}
	return Capability{Kind: CapabilityFailed, Err: guest.Failure(api)}
}

// QueryFormats asks obj for its supported pixel formats. A filter without
// get_formats supports fallback only. The result is always terminated.
func (s *Session) QueryFormats(obj *FilterObject, fallback entities.PixelFormat) (entities.FormatList, error) {
	capErr := func(reason string, err error) error {
		return &domainerrors.CapabilityError{Method: FormatsMethod, Reason: reason, Err: err}
	}

	c := s.LookupCapability(obj, FormatsMethod)
	defer c.Close()
	switch c.Kind {
	case CapabilityAbsent:
		return entities.NewFormatList(fallback), nil
	case CapabilityFailed:
		return nil, capErr("lookup failed", c.Err)
	}

	api := s.rt.api
	if !api.IsCallable(c.method.Obj()) {
		return nil, capErr("not callable", nil)
	}
	res, err := guest.Call(api, c.method)
	if err != nil {
		return nil, capErr("call failed", err)
	}
	defer res.Close()

	if !api.IsSequence(res.Obj()) {
		return nil, capErr("result is not a sequence", nil)
	}
	n := api.SequenceSize(res.Obj())
	if n < 0 {
		return nil, capErr("result has no length", guest.Failure(api))
	}
	if n == 0 {
		return nil, capErr("empty format list", nil)
	}

	lo, hi := s.rt.catalog.Range()
	formats := make([]entities.PixelFormat, 0, n)
	for i := 0; i < n; i++ {
		item := guest.Own(api, api.SequenceItem(res.Obj(), i))
		if item == nil {
			return nil, capErr(fmt.Sprintf("element %d unreadable", i), guest.Failure(api))
		}
		v, ok := api.AsInt64(item.Obj())
		item.Close()
		if !ok {
			return nil, capErr(fmt.Sprintf("element %d is not an integer", i), guest.Failure(api))
		}
		f := entities.PixelFormat(v)
		if int64(f) != v || f < lo || f > hi {
			return nil, capErr(fmt.Sprintf("element %d (%d) outside [%d, %d]", i, v, lo, hi), nil)
		}
		formats = append(formats, f)
	}
	return entities.NewFormatList(formats...), nil
}
