package guest

import (
	"strings"

	"github.com/reglet-dev/vfpython/domain/errors"
	"github.com/reglet-dev/vfpython/domain/ports"
)

// Drain takes the pending guest exception, formats it and clears the guest
// error state. It returns nil when no exception is pending. Interrupt-class
// exceptions are classified before anything else runs in the guest.
func Drain(api ports.Interpreter) *errors.GuestException {
	if !api.ErrOccurred() {
		return nil
	}
	exc := &errors.GuestException{Interrupt: api.ErrMatches(ports.ExcKeyboardInterrupt)}

	t, v, tb := api.ErrFetch()
	api.ErrNormalize(&t, &v, &tb)
	typ, val, trace := Own(api, t), Own(api, v), Own(api, tb)
	defer CloseAll(typ, val, trace)

	exc.Type = typeName(api, typ)
	if val.Valid() {
		exc.Message = Text(api, val.Obj())
	}
	exc.Traceback = formatException(api, typ, val, trace)
	if exc.Traceback == "" {
		exc.Traceback = exc.Error()
	}

	api.ErrClear()
	return exc
}

// Failure drains the exception explaining a failed call. A call that failed
// without setting an exception yields a SystemError.
func Failure(api ports.Interpreter) *errors.GuestException {
	if exc := Drain(api); exc != nil {
		return exc
	}
	return &errors.GuestException{Type: "SystemError", Message: "error return without exception set"}
}

func typeName(api ports.Interpreter, typ *Ref) string {
	if !typ.Valid() {
		return "Exception"
	}
	name := Own(api, api.GetAttr(typ.Obj(), "__name__"))
	if name == nil {
		api.ErrClear()
		return "Exception"
	}
	defer name.Close()
	s, ok := api.AsString(name.Obj())
	if !ok {
		api.ErrClear()
		return "Exception"
	}
	return s
}

// formatException renders traceback.format_exception(typ, val, tb). It
// returns "" when formatting itself fails. Only raw calls are used here so a
// failure while formatting never re-enters Drain.
func formatException(api ports.Interpreter, typ, val, tb *Ref) string {
	if !typ.Valid() {
		return ""
	}
	text, ok := tryFormat(api, typ, val, tb)
	if !ok {
		api.ErrClear()
		return ""
	}
	return strings.TrimRight(text, "\n")
}

func tryFormat(api ports.Interpreter, typ, val, tb *Ref) (string, bool) {
	mod := Own(api, api.ImportModule("traceback"))
	if mod == nil {
		return "", false
	}
	defer mod.Close()
	fn := Own(api, api.GetAttr(mod.Obj(), "format_exception"))
	if fn == nil {
		return "", false
	}
	defer fn.Close()

	args := Own(api, api.NewTuple(3))
	if args == nil {
		return "", false
	}
	defer args.Close()
	for i, r := range []*Ref{typ, val, tb} {
		var item *Ref
		if r.Valid() {
			item = r.Clone()
		} else {
			item = Borrow(api, api.None())
		}
		if !api.TupleSetItem(args.Obj(), i, item.steal()) {
			return "", false
		}
	}

	lines := Own(api, api.Call(fn.Obj(), args.Obj()))
	if lines == nil {
		return "", false
	}
	defer lines.Close()

	n := api.SequenceSize(lines.Obj())
	if n < 0 {
		return "", false
	}
	var sb strings.Builder
	for i := 0; i < n; i++ {
		item := Own(api, api.SequenceItem(lines.Obj(), i))
		if item == nil {
			return "", false
		}
		s, ok := api.AsString(item.Obj())
		item.Close()
		if !ok {
			return "", false
		}
		sb.WriteString(s)
	}
	return sb.String(), true
}
