package host

import (
	"log/slog"

	"github.com/reglet-dev/vfpython/domain/ports"
	"github.com/reglet-dev/vfpython/hostfuncs"
	"github.com/reglet-dev/vfpython/infrastructure/catalog"
	"github.com/reglet-dev/vfpython/infrastructure/cpython"
	"github.com/reglet-dev/vfpython/infrastructure/dynlib"
	"github.com/reglet-dev/vfpython/infrastructure/sigaction"
)

// Binder turns an open library into the bound interpreter API.
type Binder func(lib ports.Library) (ports.Interpreter, error)

// Option configures Start.
type Option func(*config)

type config struct {
	opener      ports.LibraryOpener
	canonical   func(string) (string, error)
	binder      Binder
	signals     ports.DispositionTable
	catalog     ports.FormatCatalog
	logger      *slog.Logger
	registry    *hostfuncs.HandlerRegistry
	bundles     []hostfuncs.HostFuncBundle
	home        string
	searchPaths []string
	routing     bool
}

func defaultConfig() config {
	return config{
		opener:    dynlib.Opener,
		canonical: dynlib.Canonical,
		binder: func(lib ports.Library) (ports.Interpreter, error) {
			api, err := cpython.Load(lib)
			if err != nil {
				return nil, err
			}
			return api, nil
		},
		catalog: catalog.Default(),
		logger:  slog.Default(),
		routing: true,
	}
}

// WithOpener replaces the dynamic loader.
func WithOpener(o ports.LibraryOpener) Option {
	return func(c *config) {
		c.opener = o
	}
}

// WithBinder replaces the symbol binder.
func WithBinder(b Binder) Option {
	return func(c *config) {
		c.binder = b
	}
}

// WithSignalTable replaces the OS signal disposition table.
func WithSignalTable(t ports.DispositionTable) Option {
	return func(c *config) {
		c.signals = t
	}
}

// WithCatalog sets the pixel format catalog exposed to scripts and used to
// validate negotiated formats.
func WithCatalog(cat ports.FormatCatalog) Option {
	return func(c *config) {
		c.catalog = cat
	}
}

// WithLogger sets the runtime logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithHostFunctions replaces the registry behind the capability module's
// _host_call.
func WithHostFunctions(r *hostfuncs.HandlerRegistry) Option {
	return func(c *config) {
		c.registry = r
	}
}

// WithBundles adds host functions to the default registry.
func WithBundles(b ...hostfuncs.HostFuncBundle) Option {
	return func(c *config) {
		c.bundles = append(c.bundles, b...)
	}
}

// WithHome sets the interpreter home explicitly.
func WithHome(dir string) Option {
	return func(c *config) {
		c.home = dir
	}
}

// WithSearchPaths appends directories to the module search path at start-up.
func WithSearchPaths(dirs ...string) Option {
	return func(c *config) {
		c.searchPaths = append(c.searchPaths, dirs...)
	}
}

// WithSignalRouting enables or disables os/signal routing of SIGINT and
// SIGTERM into the guest. It is on by default.
func WithSignalRouting(enabled bool) Option {
	return func(c *config) {
		c.routing = enabled
	}
}

func (c *config) signalTable() (ports.DispositionTable, error) {
	if c.signals != nil {
		return c.signals, nil
	}
	t, err := sigaction.New()
	if err != nil {
		return nil, err
	}
	return t, nil
}
