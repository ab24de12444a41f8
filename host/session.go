package host

import (
	domainerrors "github.com/reglet-dev/vfpython/domain/errors"
	"github.com/reglet-dev/vfpython/domain/ports"
)

// Session is the guest access handed to a Runtime.Do job. It is only valid
// for the duration of that job.
type Session struct {
	rt   *Runtime
	done bool
}

// Handle is a guest resource owned by the host: a *Module or a
// *FilterObject.
type Handle interface {
	release()
}

func (s *Session) check(op string) error {
	if s.done {
		return &domainerrors.StateError{Op: op, State: StateIdle.String()}
	}
	return nil
}

// Runtime returns the runtime the session belongs to.
func (s *Session) Runtime() *Runtime {
	return s.rt
}

// API returns the bound interpreter for direct calls. The usual ownership
// rules of guest.Ref apply.
func (s *Session) API() ports.Interpreter {
	return s.rt.api
}

// ExtendSearchPath appends dir to sys.path unless it is already there.
func (s *Session) ExtendSearchPath(dir string) error {
	if err := s.check("extend_search_path"); err != nil {
		return err
	}
	return s.rt.extendSearchPath(dir)
}

// Release drops h without leaving the job. Releasing twice is a no-op.
func (s *Session) Release(h Handle) error {
	if err := s.check("release"); err != nil {
		return err
	}
	h.release()
	return nil
}
