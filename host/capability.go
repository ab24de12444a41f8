package host

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/reglet-dev/vfpython/domain/entities"
	"github.com/reglet-dev/vfpython/domain/ports"
	"github.com/reglet-dev/vfpython/guest"
	"github.com/reglet-dev/vfpython/hostfuncs"
	"github.com/reglet-dev/vfpython/infrastructure/cpython"
)

// CapabilityModule is the name scripts import to reach the host.
const CapabilityModule = "vfpy"

// HostABIVersion is exposed as vfpy.HOST_ABI_VERSION. Bump it when the
// frame header or the host call protocol changes.
const HostABIVersion = 1

// Version is the host version reported by host_info.
const Version = "0.1.0"

//go:embed capability.py
var capabilitySource string

func (r *Runtime) hostRegistry(cfg *config) (*hostfuncs.HandlerRegistry, error) {
	if cfg.registry != nil {
		return cfg.registry, nil
	}
	info := hostfuncs.HostInfo{
		Library:         r.path,
		Version:         Version,
		ABIVersion:      HostABIVersion,
		FrameHeaderSize: entities.FrameHeaderSize,
		Manifest:        cpython.ManifestVersion,
	}
	bundles := []hostfuncs.HostFuncBundle{
		hostfuncs.FormatsBundle(r.catalog),
		hostfuncs.LoggingBundle(r.logger.With("source", "guest")),
		hostfuncs.InfoBundle(info),
	}
	bundles = append(bundles, cfg.bundles...)
	return hostfuncs.NewRegistry(
		hostfuncs.WithMiddleware(
			hostfuncs.PanicRecoveryMiddleware(),
			hostfuncs.LoggingMiddleware(r.logger),
		),
		hostfuncs.WithBundle(hostfuncs.CombineBundles(bundles...)),
	)
}

// installCapability creates the vfpy module: constants first, then
// _host_call, then the Python helpers, which read both.
func (r *Runtime) installCapability() error {
	mod := r.api.AddModule(CapabilityModule)
	if mod == 0 {
		return guest.Failure(r.api)
	}
	dict := r.api.ModuleDict(mod)
	if dict == 0 {
		return errors.New("capability module has no namespace")
	}

	lo, hi := r.catalog.Range()
	ints := []struct {
		name string
		v    int64
	}{
		{"HOST_ABI_VERSION", HostABIVersion},
		{"FRAME_HEADER_SIZE", entities.FrameHeaderSize},
		{"FRAME_HEADER_VERSION", entities.FrameHeaderVersion},
		{"FORMAT_NONE", int64(entities.PixFmtNone)},
		{"MIN_FORMAT", int64(lo)},
		{"MAX_FORMAT", int64(hi)},
	}
	for _, c := range ints {
		v, err := guest.Int(r.api, c.v)
		if err := r.setGlobal(dict, c.name, v, err); err != nil {
			return err
		}
	}
	v, err := guest.String(r.api, entities.FrameHeaderStruct)
	if err := r.setGlobal(dict, "FRAME_HEADER_STRUCT", v, err); err != nil {
		return err
	}
	v, err = guest.String(r.api, Version)
	if err := r.setGlobal(dict, "HOST_VERSION", v, err); err != nil {
		return err
	}
	v, err = guest.Bytes(r.api, []byte(entities.FrameMagic))
	if err := r.setGlobal(dict, "FRAME_MAGIC", v, err); err != nil {
		return err
	}

	fn, err := r.api.NewHostFunction("_host_call", r.hostCall)
	if err != nil {
		return fmt.Errorf("register _host_call: %w", err)
	}
	if err := r.setGlobal(dict, "_host_call", guest.Own(r.api, fn), nil); err != nil {
		return err
	}

	res := guest.Own(r.api, r.api.RunString(capabilitySource, ports.FileInput, dict, dict))
	if res == nil {
		return fmt.Errorf("capability helpers: %w", guest.Failure(r.api))
	}
	res.Close()
	return nil
}

// setGlobal stores v under name and releases v.
func (r *Runtime) setGlobal(dict ports.Object, name string, v *guest.Ref, err error) error {
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	defer v.Close()
	if !r.api.DictSetItem(dict, name, v.Obj()) {
		return fmt.Errorf("%s: %w", name, guest.Failure(r.api))
	}
	return nil
}

// hostCall backs vfpy._host_call(name, payload). It runs on the guest
// thread with the token held.
func (r *Runtime) hostCall(args ports.Object) (ports.Object, error) {
	if n := r.api.TupleSize(args); n != 2 {
		return 0, fmt.Errorf("_host_call() takes 2 arguments (%d given)", n)
	}
	name, ok := r.api.AsString(r.api.TupleGetItem(args, 0))
	if !ok {
		r.api.ErrClear()
		return 0, errors.New("_host_call() name must be str")
	}
	payload, ok := r.api.AsBytes(r.api.TupleGetItem(args, 1))
	if !ok {
		r.api.ErrClear()
		return 0, errors.New("_host_call() payload must be bytes")
	}
	ctx := r.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	resp := r.callHost(ctx, name, payload)
	if e, failed := hostfuncs.IsErrorResponse(resp); failed {
		r.logger.Warn("host function returned an error", "function", name, "error", e.Error, "code", e.Code, "message", e.Message)
	}
	out := r.api.FromBytes(resp)
	if out == 0 {
		r.api.ErrClear()
		return 0, errors.New("_host_call() could not build the response")
	}
	return out, nil
}
