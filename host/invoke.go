package host

import (
	"errors"
	"fmt"

	"github.com/reglet-dev/vfpython/domain/entities"
	domainerrors "github.com/reglet-dev/vfpython/domain/errors"
	"github.com/reglet-dev/vfpython/guest"
)

// Invoke calls obj(in_view, out_view) with writable memoryviews over the
// two frame buffers, headers included. The views are released before
// Invoke returns; a buffer whose view the guest still exports stays pinned
// until the runtime is finalized and the call counts as a failure.
func (s *Session) Invoke(obj *FilterObject, in, out *entities.Frame) entities.Outcome {
	r := s.rt
	if err := s.check("invoke"); err != nil {
		return entities.Outcome{Kind: entities.OutcomeFailure, Code: entities.AVErrorExternal, Err: err}
	}
	if obj.released {
		return entities.Outcome{
			Kind: entities.OutcomeFailure,
			Code: entities.AVErrorExternal,
			Err:  &domainerrors.StateError{Op: "invoke", State: "released"},
		}
	}
	r.invocations.Add(1)

	for _, f := range []*entities.Frame{in, out} {
		if err := f.SyncHeader(); err != nil {
			return r.failure(fmt.Errorf("frame header: %w", err))
		}
	}

	api := r.api
	r.pins.Pin(in.Buf)
	inView := guest.Own(api, api.NewMemoryView(in.Buf))
	if inView == nil {
		r.pins.Unpin(in.Buf)
		return r.failure(guest.Failure(api))
	}
	r.pins.Pin(out.Buf)
	outView := guest.Own(api, api.NewMemoryView(out.Buf))
	if outView == nil {
		r.pins.Unpin(out.Buf)
		_, inErr := s.releaseView(inView, in.Buf)
		return r.failure(errors.Join(guest.Failure(api), inErr))
	}

	res, callErr := guest.Call(api, obj.ref, inView.Clone(), outView.Clone())
	res.Close()

	inInterrupted, inErr := s.releaseView(inView, in.Buf)
	outInterrupted, outErr := s.releaseView(outView, out.Buf)
	releaseErr := errors.Join(inErr, outErr)

	var exc *domainerrors.GuestException
	switch {
	case callErr != nil && errors.As(callErr, &exc) && exc.Interrupt:
		return r.interrupted(exc)
	case callErr != nil:
		return r.failure(errors.Join(callErr, releaseErr))
	case releaseErr != nil:
		return r.failure(releaseErr)
	case inInterrupted || outInterrupted:
		return r.interrupted(nil)
	}
	return entities.Outcome{Kind: entities.OutcomeSuccess}
}

// releaseView calls view.release() and unpins buf. An interrupt landing
// during the release is reported and the release retried once. When the
// guest still exports the buffer, buf is retained.
func (s *Session) releaseView(view *guest.Ref, buf []byte) (interrupted bool, err error) {
	defer view.Close()
	api := s.rt.api
	for attempt := 0; ; attempt++ {
		res, err := guest.CallMethod(api, view, "release")
		if err == nil {
			res.Close()
			s.rt.pins.Unpin(buf)
			return interrupted, nil
		}
		if errors.Is(err, domainerrors.ErrInterrupted) && attempt == 0 {
			interrupted = true
			continue
		}
		s.rt.pins.Retain(buf)
		s.rt.logger.Warn("guest kept a frame buffer exported; buffer retained", "bytes", len(buf), "error", err)
		return interrupted, fmt.Errorf("release memoryview: %w", err)
	}
}

func (r *Runtime) failure(err error) entities.Outcome {
	r.failures.Add(1)
	var exc *domainerrors.GuestException
	if errors.As(err, &exc) {
		r.logger.Error("filter call failed", "error_type", exc.Type, "traceback", exc.Traceback)
	} else {
		r.logger.Error("filter call failed", "error", err)
	}
	return entities.Outcome{
		Kind: entities.OutcomeFailure,
		Code: entities.AVErrorExternal,
		Err:  &domainerrors.InvocationError{Code: entities.AVErrorExternal, Err: err},
	}
}

func (r *Runtime) interrupted(exc *domainerrors.GuestException) entities.Outcome {
	r.interrupts.Add(1)
	sig := r.takeSignal()
	var cause error
	if exc != nil {
		cause = exc
	} else {
		cause = &domainerrors.GuestException{Type: "KeyboardInterrupt", Interrupt: true}
	}
	r.logger.Info("filter call interrupted", "signal", sig.String())
	return entities.Outcome{
		Kind:   entities.OutcomeInterrupt,
		Signal: sig,
		Err:    &domainerrors.InterruptError{Signal: sig.String(), Err: cause},
	}
}
