package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	domainerrors "github.com/reglet-dev/vfpython/domain/errors"
	"github.com/reglet-dev/vfpython/domain/ports"
	"github.com/reglet-dev/vfpython/guest"
	"github.com/reglet-dev/vfpython/internal/abi"
	"github.com/reglet-dev/vfpython/signals"
)

// State is the lifecycle state of a Runtime.
type State int32

const (
	StateUninitialized State = iota
	StateIdle
	StateActive
	StateFinalized
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	case StateFinalized:
		return "finalized"
	default:
		return "unknown"
	}
}

// Stats counts token transitions and guest calls since start-up.
type Stats struct {
	Acquires    int64
	Releases    int64
	Invocations int64
	Interrupts  int64
	Failures    int64
	// PinnedBuffers counts buffers currently exposed to the guest.
	PinnedBuffers int
	// RetainedBytes is the size of buffers the guest kept exported.
	RetainedBytes int
}

type signalBox struct {
	sig os.Signal
}

// Runtime is one caller's share of a started interpreter. Guest work goes
// through Do. Shares returned by Start for the same library drive the same
// interpreter; each is closed once.
type Runtime struct {
	*interpreter
	closeOnce sync.Once
	closeErr  error
	closed    atomic.Bool
}

// interpreter is the state shared by every share of a runtime.
type interpreter struct {
	lib       ports.Library
	api       ports.Interpreter
	thread    *guestThread
	ownership *signals.Ownership
	router    *signals.Router
	guard     *signals.Guard
	catalog   ports.FormatCatalog
	logger    *slog.Logger
	process   *Process
	modules   *moduleCache
	pins      *abi.PinTable
	callHost  func(ctx context.Context, name string, payload []byte) []byte
	// ctx is the context of the running job, nil outside Do.
	ctx context.Context

	path        string
	programName ports.WideString
	home        ports.WideString
	ts          ports.ThreadState
	grammar     int
	routing     bool

	lastSignal  atomic.Value
	state       atomic.Int32
	acquires    atomic.Int64
	releases    atomic.Int64
	invocations atomic.Int64
	interrupts  atomic.Int64
	failures    atomic.Int64
}

func newRuntime(path string, lib ports.Library, api ports.Interpreter, cfg *config, p *Process) (*Runtime, error) {
	table, err := cfg.signalTable()
	if err != nil {
		return nil, &domainerrors.InitError{Step: "signals", Err: err}
	}
	logger := cfg.logger.With("library", path)
	rt := &Runtime{interpreter: &interpreter{
		lib:     lib,
		api:     api,
		catalog: cfg.catalog,
		logger:  logger,
		process: p,
		pins:    abi.NewPinTable(),
		path:    path,
		grammar: ports.FileInput,
		routing: cfg.routing,
	}}
	rt.modules = newModuleCache(rt)
	rt.router = signals.NewRouter(rt.forwardSignal, signals.WithRouterLogger(logger))
	rt.ownership = signals.NewOwnership(table,
		signals.WithRouter(rt.router),
		signals.WithOwnershipLogger(logger),
	)

	registry, err := rt.hostRegistry(cfg)
	if err != nil {
		return nil, &domainerrors.InitError{Step: "host_functions", Err: err}
	}
	rt.callHost = registry.Call

	rt.thread = startGuestThread()
	var initErr error
	if err := rt.thread.run(context.Background(), func() { initErr = rt.initialize(cfg) }); err != nil {
		initErr = err
	}
	if initErr != nil {
		rt.thread.stop()
		rt.state.Store(int32(StateFinalized))
		return nil, initErr
	}

	if rt.routing {
		rt.router.Start()
	}
	logger.Info("interpreter started", "grammar", rt.grammar, "routing", rt.routing)
	return rt, nil
}

// forwardSignal runs on the router goroutine while the guest owns the
// guarded signals.
func (r *Runtime) forwardSignal(sig os.Signal) {
	r.lastSignal.Store(signalBox{sig: sig})
	r.api.SetInterrupt()
}

// takeSignal returns the signal forwarded during the current job and clears
// it. An interrupt raised by the guest itself reports os.Interrupt.
func (r *Runtime) takeSignal() os.Signal {
	if b, ok := r.lastSignal.Swap(signalBox{}).(signalBox); ok && b.sig != nil {
		return b.sig
	}
	return os.Interrupt
}

// initialize runs on the guest thread and returns with the token released.
func (r *Runtime) initialize(cfg *config) (err error) {
	fail := func(step string, e error) error {
		return &domainerrors.InitError{Step: step, Err: e}
	}

	r.programName, err = r.api.DecodeLocale(r.path)
	if err != nil {
		return fail("program_name", err)
	}
	r.api.SetProgramName(r.programName)

	if home := r.resolveHome(cfg.home); home != "" {
		r.home, err = r.api.DecodeLocale(home)
		if err != nil {
			r.freeStrings()
			return fail("home", err)
		}
		r.api.SetPythonHome(r.home)
		r.logger.Debug("interpreter home set", "home", home)
	}

	guard, err := r.ownership.EnterGuest()
	if err != nil {
		r.freeStrings()
		return fail("signals", err)
	}
	r.api.InitializeEx(1)
	if !r.api.IsInitialized() {
		_ = guard.Release()
		r.freeStrings()
		return fail("initialize", errors.New("interpreter did not initialize"))
	}

	// From here on failures have to finalize the interpreter first.
	abort := func(step string, e error) error {
		if exc := guest.Drain(r.api); exc != nil {
			r.logger.Debug("pending guest error at init failure", "error", exc)
		}
		r.modules.closeAll()
		r.api.FinalizeEx()
		_ = guard.Release()
		r.releaseHostFunctions()
		r.freeStrings()
		return fail(step, e)
	}

	r.state.Store(int32(StateActive))
	r.grammar = r.grammarToken()
	if err := r.installCapability(); err != nil {
		return abort("capability", err)
	}
	for _, dir := range cfg.searchPaths {
		if err := r.extendSearchPath(dir); err != nil {
			return abort("search_path", err)
		}
	}

	if err := guard.Release(); err != nil {
		return abort("signals", err)
	}
	r.ts = r.api.SaveThread()
	r.state.Store(int32(StateIdle))
	return nil
}

func (r *Runtime) resolveHome(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if r.api.HasPythonHome() || os.Getenv("PYTHONHOME") != "" {
		return ""
	}
	return defaultHome(r.path)
}

// grammarToken reads symbol.file_input. The symbol module is gone from
// newer interpreters, in which case the compile-time constant applies.
func (r *Runtime) grammarToken() int {
	sym := guest.Own(r.api, r.api.ImportModule("symbol"))
	if sym == nil {
		r.api.ErrClear()
		return ports.FileInput
	}
	defer sym.Close()
	tok := guest.Own(r.api, r.api.GetAttr(sym.Obj(), "file_input"))
	if tok == nil {
		r.api.ErrClear()
		return ports.FileInput
	}
	defer tok.Close()
	n, ok := r.api.AsInt64(tok.Obj())
	if !ok {
		r.api.ErrClear()
		return ports.FileInput
	}
	return int(n)
}

// extendSearchPath appends dir to sys.path once. If site has not run yet it
// is imported and site.main() is called so path-dependent setup catches up.
func (r *Runtime) extendSearchPath(dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("search path %q: %w", dir, err)
	}
	path := r.api.SysObject("path")
	if path == 0 {
		return errors.New("sys.path is unavailable")
	}
	n := r.api.SequenceSize(path)
	if n < 0 {
		return guest.Failure(r.api)
	}
	present := false
	for i := 0; i < n; i++ {
		item := guest.Own(r.api, r.api.SequenceItem(path, i))
		if item == nil {
			return guest.Failure(r.api)
		}
		same := guest.Text(r.api, item.Obj()) == abs
		item.Close()
		if same {
			present = true
			break
		}
	}
	if !present {
		entry, err := guest.Path(r.api, abs)
		if err != nil {
			return err
		}
		ok := r.api.ListAppend(path, entry.Obj())
		entry.Close()
		if !ok {
			return guest.Failure(r.api)
		}
		r.logger.Debug("search path extended", "dir", abs)
	}

	if modules := r.api.SysObject("modules"); modules != 0 && r.api.DictGetItem(modules, "site") != 0 {
		return nil
	}
	site, err := guest.Import(r.api, "site")
	if err != nil {
		return fmt.Errorf("import site: %w", err)
	}
	defer site.Close()
	res, err := guest.CallMethod(r.api, site, "main")
	if err != nil {
		return fmt.Errorf("site.main: %w", err)
	}
	res.Close()
	return nil
}

func (r *Runtime) freeStrings() {
	if r.home != 0 {
		r.api.FreeWide(r.home)
		r.home = 0
	}
	if r.programName != 0 {
		r.api.FreeWide(r.programName)
		r.programName = 0
	}
}

func (r *Runtime) releaseHostFunctions() {
	if rel, ok := r.api.(interface{ ReleaseHostFunctions() }); ok {
		rel.ReleaseHostFunctions()
	}
}

// acquire takes the token on the guest thread: guest dispositions in, saved
// thread state restored.
func (r *Runtime) acquire() error {
	r.lastSignal.Store(signalBox{})
	guard, err := r.ownership.EnterGuest()
	if err != nil {
		return fmt.Errorf("acquire: %w", err)
	}
	r.api.RestoreThread(r.ts)
	r.ts = 0
	r.guard = guard
	r.state.Store(int32(StateActive))
	r.acquires.Add(1)
	return nil
}

// release gives the token back. A guest error never survives the boundary.
func (r *Runtime) release() error {
	if exc := guest.Drain(r.api); exc != nil {
		r.logger.Warn("guest error pending at release, cleared", "error", exc)
	}
	err := r.guard.Release()
	r.guard = nil
	r.ts = r.api.SaveThread()
	r.state.Store(int32(StateIdle))
	r.releases.Add(1)
	return err
}

// Do runs fn on the guest thread with the execution token held. Waiting for
// the token honours ctx; fn itself is never cancelled. The token is
// released on every exit path, and a panic in fn is re-raised here after
// the release.
func (r *Runtime) Do(ctx context.Context, fn func(*Session) error) error {
	if r.closed.Load() {
		return &domainerrors.StateError{Op: "do", State: "closed"}
	}
	if st := r.State(); st == StateFinalized {
		return &domainerrors.StateError{Op: "do", State: st.String()}
	}
	var (
		err       error
		recovered any
		panicked  bool
	)
	runErr := r.thread.run(ctx, func() {
		recovered, panicked, err = r.job(ctx, fn)
	})
	if runErr != nil {
		if errors.Is(runErr, errThreadStopped) {
			return &domainerrors.StateError{Op: "do", State: StateFinalized.String()}
		}
		return runErr
	}
	if panicked {
		panic(recovered)
	}
	return err
}

func (r *Runtime) job(ctx context.Context, fn func(*Session) error) (recovered any, panicked bool, err error) {
	if st := r.State(); st != StateIdle {
		return nil, false, &domainerrors.StateError{Op: "do", State: st.String()}
	}
	if err := r.acquire(); err != nil {
		return nil, false, err
	}
	s := &Session{rt: r}
	r.ctx = ctx
	defer func() {
		s.done = true
		r.ctx = nil
		if v := recover(); v != nil {
			recovered, panicked = v, true
		}
		if rerr := r.release(); rerr != nil && err == nil {
			err = rerr
		}
	}()
	return nil, false, fn(s)
}

// Close releases this caller's share of the runtime. Closing a share again
// returns the first result. The last share closed finalizes the interpreter.
func (r *Runtime) Close() error {
	r.closeOnce.Do(func() {
		r.closed.Store(true)
		r.closeErr = r.process.release(r.interpreter)
	})
	return r.closeErr
}

// Shares reports whether r and o drive the same interpreter.
func (r *Runtime) Shares(o *Runtime) bool {
	return o != nil && r.interpreter == o.interpreter
}

// shutdown finalizes once the running job, if any, has finished.
func (r *Runtime) shutdown() error {
	if r.routing {
		r.router.Stop()
	}
	var ferr error
	err := r.thread.run(context.Background(), func() { ferr = r.finalize() })
	r.thread.stop()
	if err != nil {
		return err
	}
	if cerr := r.lib.Close(); cerr != nil {
		ferr = errors.Join(ferr, fmt.Errorf("close library: %w", cerr))
	}
	if n := r.pins.Active(); n > 0 {
		r.logger.Warn("unpinning buffers kept alive by the guest", "buffers", n, "bytes", r.pins.RetainedBytes())
	}
	r.pins.UnpinAll()
	r.logger.Info("interpreter finalized", "acquires", r.acquires.Load(), "releases", r.releases.Load())
	return ferr
}

func (r *Runtime) finalize() error {
	if st := r.State(); st != StateIdle {
		return &domainerrors.StateError{Op: "finalize", State: st.String()}
	}
	r.api.RestoreThread(r.ts)
	r.ts = 0
	guard, gerr := r.ownership.EnterGuest()
	r.state.Store(int32(StateFinalized))

	r.modules.closeAll()
	var errs []error
	if gerr != nil {
		errs = append(errs, gerr)
	}
	if rc := r.api.FinalizeEx(); rc != 0 {
		errs = append(errs, fmt.Errorf("interpreter finalization returned %d", rc))
	}
	if guard != nil {
		if err := guard.Release(); err != nil {
			errs = append(errs, err)
		}
	}
	r.releaseHostFunctions()
	r.freeStrings()
	return errors.Join(errs...)
}

// State returns the current lifecycle state.
func (r *Runtime) State() State {
	return State(r.state.Load())
}

// Path returns the canonical library path.
func (r *Runtime) Path() string {
	return r.path
}

// Router returns the signal router. Host code subscribes to it for the
// interrupts that are not forwarded to the guest.
func (r *Runtime) Router() *signals.Router {
	return r.router
}

// Catalog returns the pixel format catalog used for negotiation.
func (r *Runtime) Catalog() ports.FormatCatalog {
	return r.catalog
}

// Logger returns the runtime logger.
func (r *Runtime) Logger() *slog.Logger {
	return r.logger
}

// Stats returns a snapshot of the counters.
func (r *Runtime) Stats() Stats {
	return Stats{
		Acquires:    r.acquires.Load(),
		Releases:    r.releases.Load(),
		Invocations: r.invocations.Load(),
		Interrupts:  r.interrupts.Load(),
		Failures:    r.failures.Load(),

		PinnedBuffers: r.pins.Active(),
		RetainedBytes: r.pins.RetainedBytes(),
	}
}

// Retains reports whether the guest kept buf exported past a call. Such a
// buffer must stay alive until the runtime is closed.
func (r *Runtime) Retains(buf []byte) bool {
	return r.pins.Retained(buf)
}
