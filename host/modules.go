package host

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	domainerrors "github.com/reglet-dev/vfpython/domain/errors"
	"github.com/reglet-dev/vfpython/domain/ports"
	"github.com/reglet-dev/vfpython/guest"
)

// LoadOption configures LoadModule.
type LoadOption func(*loadConfig)

type loadConfig struct {
	reload bool
}

// WithReload executes the script again even when it is already loaded. The
// cached module is replaced; handles to the old one stay valid.
func WithReload() LoadOption {
	return func(c *loadConfig) {
		c.reload = true
	}
}

type moduleEntry struct {
	ref     *guest.Ref
	name    string
	path    string
	handles int
}

// moduleCache maps canonical script paths to executed modules. It is only
// touched on the guest thread.
type moduleCache struct {
	rt     *Runtime
	byPath map[string]*moduleEntry
	names  map[string]string
}

func newModuleCache(rt *Runtime) *moduleCache {
	return &moduleCache{
		rt:     rt,
		byPath: make(map[string]*moduleEntry),
		names:  make(map[string]string),
	}
}

// Module is a handle to a script executed as a module.
type Module struct {
	rt       *Runtime
	entry    *moduleEntry
	ref      *guest.Ref
	released bool
}

// Name returns the module name in sys.modules.
func (m *Module) Name() string {
	return m.entry.name
}

// Path returns the canonical script path.
func (m *Module) Path() string {
	return m.entry.path
}

// Object returns the module object, borrowed from the handle.
func (m *Module) Object() ports.Object {
	return m.ref.Obj()
}

// Close releases the handle from outside a job.
func (m *Module) Close() error {
	return closeHandle(m.rt, m)
}

func (m *Module) release() {
	if m.released {
		return
	}
	m.released = true
	m.ref.Close()
	m.rt.modules.drop(m.entry)
}

// closeHandle releases h in a job of its own. Handles that outlive the
// runtime are dropped with the interpreter.
func closeHandle(rt *Runtime, h Handle) error {
	if rt.State() == StateFinalized {
		return nil
	}
	err := rt.Do(context.Background(), func(s *Session) error {
		return s.Release(h)
	})
	if errors.Is(err, domainerrors.ErrFinalized) {
		return nil
	}
	return err
}

// LoadModule executes the script at path as a module, or returns another
// handle to it when the same file was loaded before.
func (s *Session) LoadModule(path string, opts ...LoadOption) (*Module, error) {
	if err := s.check("load_module"); err != nil {
		return nil, err
	}
	var cfg loadConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return s.rt.modules.load(path, cfg)
}

func (c *moduleCache) load(path string, cfg loadConfig) (*Module, error) {
	api := c.rt.api
	canonical, err := canonicalScript(path)
	if err != nil {
		return nil, &domainerrors.ModuleError{Path: path, Phase: domainerrors.PhaseRead, Err: err}
	}

	e, cached := c.byPath[canonical]
	if cached && !cfg.reload {
		c.rt.logger.Debug("module cache hit", "path", canonical, "module", e.name)
		return c.handle(e), nil
	}

	src, err := os.ReadFile(canonical)
	if err != nil {
		return nil, &domainerrors.ModuleError{Path: canonical, Phase: domainerrors.PhaseRead, Err: err}
	}
	if bytes.IndexByte(src, 0) >= 0 {
		return nil, &domainerrors.ModuleError{
			Path:  canonical,
			Phase: domainerrors.PhaseCompile,
			Err:   errors.New("source code string cannot contain null bytes"),
		}
	}
	if err := c.rt.extendSearchPath(filepath.Dir(canonical)); err != nil {
		return nil, &domainerrors.ModuleError{Path: canonical, Phase: domainerrors.PhaseRead, Err: err}
	}

	name := c.nameFor(canonical)
	code := guest.Own(api, api.Compile(string(src), canonical, c.rt.grammar))
	if code == nil {
		return nil, &domainerrors.ModuleError{Path: canonical, Phase: domainerrors.PhaseCompile, Err: guest.Failure(api)}
	}
	defer code.Close()

	mod := guest.Own(api, api.ExecCodeModule(name, code.Obj(), canonical))
	if mod == nil {
		return nil, &domainerrors.ModuleError{Path: canonical, Phase: domainerrors.PhaseExec, Err: guest.Failure(api)}
	}

	if cached {
		e.ref.Close()
		e.ref = mod
		c.rt.logger.Debug("module reloaded", "path", canonical, "module", name)
	} else {
		e = &moduleEntry{ref: mod, name: name, path: canonical}
		c.byPath[canonical] = e
		c.names[name] = canonical
		c.rt.logger.Debug("module loaded", "path", canonical, "module", name)
	}
	return c.handle(e), nil
}

func (c *moduleCache) handle(e *moduleEntry) *Module {
	e.handles++
	return &Module{rt: c.rt, entry: e, ref: e.ref.Clone()}
}

// drop removes the module from the cache and sys.modules with its last
// handle.
func (c *moduleCache) drop(e *moduleEntry) {
	e.handles--
	if e.handles > 0 {
		return
	}
	c.evict(e)
}

func (c *moduleCache) evict(e *moduleEntry) {
	api := c.rt.api
	e.ref.Close()
	if modules := api.SysObject("modules"); modules != 0 && api.DictGetItem(modules, e.name) != 0 {
		if !api.DictDelItem(modules, e.name) {
			api.ErrClear()
		}
	}
	delete(c.byPath, e.path)
	delete(c.names, e.name)
	c.rt.logger.Debug("module unloaded", "path", e.path, "module", e.name)
}

// closeAll drops every cached module regardless of outstanding handles.
func (c *moduleCache) closeAll() {
	for _, e := range c.byPath {
		c.evict(e)
	}
}

// nameFor derives a module name from the file stem. A name already used by
// another script or by an unrelated module gets a numeric suffix.
func (c *moduleCache) nameFor(path string) string {
	if e, ok := c.byPath[path]; ok {
		return e.name
	}
	stem := sanitizeModuleName(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	modules := c.rt.api.SysObject("modules")
	name := stem
	for i := 2; ; i++ {
		_, taken := c.names[name]
		if !taken && (modules == 0 || c.rt.api.DictGetItem(modules, name) == 0) {
			return name
		}
		name = fmt.Sprintf("%s_%d", stem, i)
	}
}

func sanitizeModuleName(stem string) string {
	var sb strings.Builder
	for _, r := range stem {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	name := sb.String()
	if name == "" || (name[0] >= '0' && name[0] <= '9') {
		name = "_" + name
	}
	return name
}

func canonicalScript(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", domainerrors.ErrModuleNotFound, abs)
		}
		return "", err
	}
	return resolved, nil
}
