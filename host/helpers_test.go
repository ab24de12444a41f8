package host_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/vfpython/host"
	vflog "github.com/reglet-dev/vfpython/log"
	"github.com/reglet-dev/vfpython/testing/guesttest"
)

type fixture struct {
	interp    *guesttest.Interp
	libs      *guesttest.Libraries
	disp      *guesttest.Dispositions
	process   *host.Process
	lib       string
	scriptDir string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	t.Setenv("PYTHONHOME", "")
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	lib := filepath.Join(dir, "libpython3.11.so")
	require.NoError(t, os.WriteFile(lib, nil, 0o644))
	scriptDir := filepath.Join(dir, "scripts")
	require.NoError(t, os.Mkdir(scriptDir, 0o755))

	interp := guesttest.New()
	disp := guesttest.NewDispositions()
	interp.Signals = disp
	return &fixture{
		interp:    interp,
		libs:      guesttest.NewLibraries(),
		disp:      disp,
		process:   host.NewProcess(),
		lib:       lib,
		scriptDir: scriptDir,
	}
}

func (fx *fixture) options(extra ...host.Option) []host.Option {
	opts := []host.Option{
		host.WithOpener(fx.libs.Open),
		host.WithBinder(guesttest.Binder(fx.interp)),
		host.WithSignalTable(fx.disp),
		host.WithSignalRouting(false),
		host.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	return append(opts, extra...)
}

// start starts the runtime with the script directory already on sys.path,
// so reference totals taken afterwards are not disturbed by the first load.
func (fx *fixture) start(t *testing.T, extra ...host.Option) *host.Runtime {
	t.Helper()
	opts := append([]host.Option{host.WithSearchPaths(fx.scriptDir)}, extra...)
	rt, err := fx.process.Start(context.Background(), fx.lib, fx.options(opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() {
		if rt.State() != host.StateFinalized {
			_ = rt.Close()
		}
		require.Empty(t, fx.interp.Violations())
	})
	return rt
}

// script writes src to name in the script directory and registers body for it.
func (fx *fixture) script(t *testing.T, name, src string, body guesttest.Script) string {
	t.Helper()
	path := filepath.Join(fx.scriptDir, name)
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	if body != nil {
		fx.interp.RegisterScript(src, body)
	}
	return path
}

// do runs fn in a job and fails the test on error.
func do(t *testing.T, rt *host.Runtime, fn func(s *host.Session) error) {
	t.Helper()
	require.NoError(t, rt.Do(context.Background(), fn))
}

func newTextLogger(w io.Writer) *slog.Logger {
	return slog.New(vflog.NewHandler(w, vflog.WithLevel(slog.LevelDebug)))
}
