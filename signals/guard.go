// Package signals keeps host and guest signal dispositions apart.
//
// Ownership brackets every entry into the guest: EnterGuest saves the host
// dispositions of the guarded signals and installs the guest's, and the
// returned Guard puts the host's back. Router owns os/signal delivery and
// decides, per signal, whether the guest or the host gets it.
package signals

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"syscall"

	"github.com/reglet-dev/vfpython/domain/ports"
)

// Domain names the side that currently owns the guarded signals.
type Domain int32

const (
	HostDomain Domain = iota
	GuestDomain
)

func (d Domain) String() string {
	if d == GuestDomain {
		return "guest"
	}
	return "host"
}

// Ownership tracks which side's dispositions are installed.
type Ownership struct {
	table  ports.DispositionTable
	router *Router
	logger *slog.Logger
	host   map[syscall.Signal]ports.Disposition
	guest  map[syscall.Signal]ports.Disposition
	sigs   []syscall.Signal
	owner  Domain
	mu     sync.Mutex
}

// OwnershipOption configures an Ownership.
type OwnershipOption func(*ownershipConfig)

type ownershipConfig struct {
	router  *Router
	logger  *slog.Logger
	signals []syscall.Signal
}

func defaultOwnershipConfig() ownershipConfig {
	return ownershipConfig{
		logger:  slog.Default(),
		signals: Guarded(),
	}
}

// WithRouter makes ownership changes switch the router's delivery domain.
func WithRouter(r *Router) OwnershipOption {
	return func(c *ownershipConfig) {
		c.router = r
	}
}

// WithSignals overrides the guarded signal set.
func WithSignals(sigs ...syscall.Signal) OwnershipOption {
	return func(c *ownershipConfig) {
		c.signals = append([]syscall.Signal(nil), sigs...)
	}
}

// WithOwnershipLogger sets the logger.
func WithOwnershipLogger(l *slog.Logger) OwnershipOption {
	return func(c *ownershipConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewOwnership creates an Ownership in the host domain.
func NewOwnership(table ports.DispositionTable, opts ...OwnershipOption) *Ownership {
	cfg := defaultOwnershipConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Ownership{
		table:  table,
		router: cfg.router,
		logger: cfg.logger,
		sigs:   cfg.signals,
		host:   make(map[syscall.Signal]ports.Disposition, len(cfg.signals)),
		guest:  make(map[syscall.Signal]ports.Disposition, len(cfg.signals)),
	}
}

// Signals returns the guarded set.
func (o *Ownership) Signals() []syscall.Signal {
	return append([]syscall.Signal(nil), o.sigs...)
}

// Owner returns the domain whose dispositions are installed.
func (o *Ownership) Owner() Domain {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.owner
}

// SetRouter attaches a router after construction.
func (o *Ownership) SetRouter(r *Router) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.router = r
	if r != nil {
		r.SetOwner(o.owner)
	}
}

// EnterGuest saves the host dispositions and installs the guest's. Before
// the guest has ever run, only the save happens, so whatever the guest
// installs during bring-up is captured by the first Release.
func (o *Ownership) EnterGuest() (*Guard, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.owner == GuestDomain {
		return nil, errors.New("signals: guest already owns the guarded signals")
	}
	host := make(map[syscall.Signal]ports.Disposition, len(o.sigs))
	for _, sig := range o.sigs {
		d, err := o.table.Save(sig)
		if err != nil {
			return nil, fmt.Errorf("save host disposition of %v: %w", sig, err)
		}
		host[sig] = d
	}
	o.host = host

	var errs []error
	for _, sig := range o.sigs {
		if d, ok := o.guest[sig]; ok {
			if err := o.table.Restore(sig, d); err != nil {
				errs = append(errs, fmt.Errorf("install guest disposition of %v: %w", sig, err))
			}
		}
	}
	o.owner = GuestDomain
	if o.router != nil {
		o.router.SetOwner(GuestDomain)
	}
	if len(errs) > 0 {
		// Put the host back before reporting.
		if err := o.release(); err != nil {
			errs = append(errs, err)
		}
		return nil, errors.Join(errs...)
	}
	return &Guard{o: o}, nil
}

// release runs with o.mu held by the caller.
func (o *Ownership) release() error {
	var errs []error
	for _, sig := range o.sigs {
		d, err := o.table.Save(sig)
		if err != nil {
			errs = append(errs, fmt.Errorf("save guest disposition of %v: %w", sig, err))
			continue
		}
		o.guest[sig] = d
	}
	for _, sig := range o.sigs {
		if err := o.table.Restore(sig, o.host[sig]); err != nil {
			errs = append(errs, fmt.Errorf("restore host disposition of %v: %w", sig, err))
		}
	}
	o.owner = HostDomain
	if o.router != nil {
		o.router.SetOwner(HostDomain)
	}
	if len(errs) > 0 {
		o.logger.Error("signal dispositions not fully restored", "error", errors.Join(errs...))
		return errors.Join(errs...)
	}
	return nil
}

// Guard returns the guarded signals to the host when released.
type Guard struct {
	o    *Ownership
	err  error
	once sync.Once
}

// Release saves the guest dispositions and reinstalls the host's. Calls
// after the first return the first result.
func (g *Guard) Release() error {
	g.once.Do(func() {
		g.o.mu.Lock()
		defer g.o.mu.Unlock()
		g.err = g.o.release()
	})
	return g.err
}
