// Package filtertest provides a test harness for filter classes running on
// the fake interpreter from guesttest.
package filtertest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/reglet-dev/vfpython/application/filter"
	"github.com/reglet-dev/vfpython/domain/entities"
	domainerrors "github.com/reglet-dev/vfpython/domain/errors"
	"github.com/reglet-dev/vfpython/host"
	"github.com/reglet-dev/vfpython/infrastructure/catalog"
	"github.com/reglet-dev/vfpython/testing/guesttest"
)

// Env is a runtime library and script on disk, bound to a fresh fake
// interpreter and its own process guard.
type Env struct {
	Interp       *guesttest.Interp
	Libraries    *guesttest.Libraries
	Dispositions *guesttest.Dispositions
	Process      *host.Process
	// Config points at the library and script; the class is left to the caller.
	Config entities.FilterConfig
}

// NewEnv writes source to a script file and registers body as its behaviour.
func NewEnv(t testing.TB, source string, body guesttest.Script) *Env {
	t.Helper()
	t.Setenv("PYTHONHOME", "")
	dir, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatalf("temp dir: %v", err)
	}
	lib := filepath.Join(dir, "libpython3.12.so")
	script := filepath.Join(dir, "filter.py")
	if err := os.WriteFile(lib, nil, 0o644); err != nil {
		t.Fatalf("write library: %v", err)
	}
	if err := os.WriteFile(script, []byte(source), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}

	interp := guesttest.New()
	interp.RegisterScript(source, body)
	disp := guesttest.NewDispositions()
	interp.Signals = disp

	return &Env{
		Interp:       interp,
		Libraries:    guesttest.NewLibraries(),
		Dispositions: disp,
		Process:      host.NewProcess(),
		Config:       entities.FilterConfig{Library: lib, Script: script},
	}
}

// Options wires filter.New to the fake interpreter. Signal routing is off.
func (e *Env) Options(extra ...filter.Option) []filter.Option {
	opts := []filter.Option{
		filter.WithProcess(e.Process),
		filter.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		filter.WithHostOptions(
			host.WithOpener(e.Libraries.Open),
			host.WithBinder(guesttest.Binder(e.Interp)),
			host.WithSignalTable(e.Dispositions),
			host.WithSignalRouting(false),
		),
	}
	return append(opts, extra...)
}

// New creates class(initArg). The filter is closed when the test ends and
// the interpreter is checked for token violations.
func (e *Env) New(t testing.TB, class, initArg string, extra ...filter.Option) *filter.Filter {
	t.Helper()
	cfg := e.Config
	cfg.Class, cfg.InitArg = class, initArg
	f, err := filter.New(context.Background(), cfg, e.Options(extra...)...)
	if err != nil {
		t.Fatalf("filter.New: %v", err)
	}
	t.Cleanup(func() {
		if err := f.Close(); err != nil {
			t.Errorf("close filter: %v", err)
		}
		if v := e.Interp.Violations(); len(v) > 0 {
			t.Errorf("interpreter violations: %v", v)
		}
	})
	return f
}

// FrameCase defines one frame pushed through a filter.
type FrameCase struct {
	Name string
	// Fill writes the input frame; nil leaves it zeroed.
	Fill     func(in *entities.Frame)
	Validate func(t *testing.T, in, out *entities.Frame, err error)
	Format   entities.PixelFormat
	Width    int
	Height   int
}

// RunFrameTests runs each case as a subtest. Input and output frames are
// returned to the filter's allocator afterwards.
func RunFrameTests(t *testing.T, f *filter.Filter, tests []FrameCase) {
	t.Helper()

	for _, tc := range tests {
		t.Run(tc.Name, func(t *testing.T) {
			desc, ok := catalog.Default().Descriptor(tc.Format)
			if !ok {
				t.Fatalf("unknown format %d", tc.Format)
			}
			in, err := f.Allocator().Allocate(desc, tc.Width, tc.Height)
			if err != nil {
				t.Fatalf("allocate input: %v", err)
			}
			defer func() { _ = f.Release(in) }()
			if tc.Fill != nil {
				tc.Fill(in)
			}

			out, err := f.FilterFrame(context.Background(), in)
			if out != nil {
				defer func() { _ = f.Release(out) }()
			}
			if tc.Validate != nil {
				tc.Validate(t, in, out, err)
			}
		})
	}
}

// CatchInterrupts subscribes to the host side of f's signal router so that
// re-raised guest interrupts land on the returned channel instead of taking
// the default action.
func CatchInterrupts(t testing.TB, f *filter.Filter) <-chan os.Signal {
	t.Helper()
	ch := make(chan os.Signal, 4)
	cancel := f.Runtime().Router().Subscribe(ch)
	t.Cleanup(cancel)
	return ch
}

// AssertSuccess asserts the frame was filtered.
func AssertSuccess(t *testing.T, out *entities.Frame, err error) {
	t.Helper()
	if err != nil {
		t.Errorf("expected success, got %v", err)
	}
	if out == nil {
		t.Errorf("expected an output frame")
	}
}

// AssertFailure asserts the guest call failed with the external error code.
func AssertFailure(t *testing.T, out *entities.Frame, err error) {
	t.Helper()
	var ie *domainerrors.InvocationError
	if !errors.As(err, &ie) {
		t.Errorf("expected InvocationError, got %v", err)
		return
	}
	if ie.Code != entities.AVErrorExternal {
		t.Errorf("expected code %d, got %d", entities.AVErrorExternal, ie.Code)
	}
	if out != nil {
		t.Errorf("expected the output frame to be dropped")
	}
}

// AssertInterrupted asserts the guest call was interrupted.
func AssertInterrupted(t *testing.T, out *entities.Frame, err error) {
	t.Helper()
	if !errors.Is(err, domainerrors.ErrInterrupted) {
		t.Errorf("expected interrupt, got %v", err)
	}
	if out != nil {
		t.Errorf("expected the output frame to be dropped")
	}
}
