// Package errors provides domain-specific error types for the interpreter host.
// All error types support error unwrapping via errors.As() and errors.Is().
package errors

import (
	stdErrors "errors"
	"fmt"

	"github.com/reglet-dev/vfpython/domain/entities"
)

// ErrorDetail is an alias to entities.ErrorDetail for convenience.
type ErrorDetail = entities.ErrorDetail

// Sentinels matched with errors.Is.
var (
	ErrNotFound         = stdErrors.New("library not found")
	ErrLoadFailed       = stdErrors.New("library load failed")
	ErrSymbolMissing    = stdErrors.New("symbol missing")
	ErrModuleNotFound   = stdErrors.New("script not found")
	ErrModuleRead       = stdErrors.New("script read failed")
	ErrCompile          = stdErrors.New("script compile failed")
	ErrExec             = stdErrors.New("script exec failed")
	ErrAttributeMissing = stdErrors.New("attribute missing")
	ErrConstruction     = stdErrors.New("construction failed")
	ErrExternal         = stdErrors.New("external failure")
	ErrInterrupted      = stdErrors.New("interrupted")
	ErrFinalized        = stdErrors.New("runtime finalized")
)

// DetailedError is an interface for custom error types that can convert themselves
// to a structured ErrorDetail.
type DetailedError interface {
	error
	ToErrorDetail() *entities.ErrorDetail
}

// ToErrorDetail converts a Go error to our structured ErrorDetail.
func ToErrorDetail(err error) *entities.ErrorDetail {
	if err == nil {
		return nil
	}

	var e *entities.ErrorDetail
	if stdErrors.As(err, &e) {
		return e
	}

	var de DetailedError
	if stdErrors.As(err, &de) {
		return de.ToErrorDetail()
	}

	return &entities.ErrorDetail{
		Message: err.Error(),
		Type:    "internal",
	}
}

// GuestException is a guest-side exception drained from the interpreter.
type GuestException struct {
	// Type is the qualified exception type name, e.g. "ValueError".
	Type string
	// Message is str() of the exception value.
	Message string
	// Traceback is the formatted traceback, empty when unavailable.
	Traceback string
	// Interrupt is set for interrupt-class exceptions.
	Interrupt bool
}

func (e *GuestException) Error() string {
	if e.Message == "" {
		return e.Type
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Is makes interrupt-class exceptions match ErrInterrupted.
func (e *GuestException) Is(target error) bool {
	return e.Interrupt && target == ErrInterrupted
}

// ToErrorDetail implements DetailedError.
func (e *GuestException) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{
		Message:     e.Error(),
		Type:        "guest",
		Code:        e.Type,
		Traceback:   e.Traceback,
		IsInterrupt: e.Interrupt,
	}
}

// LoadError represents a failure to open the runtime library or resolve a symbol.
type LoadError struct {
	Err    error
	Path   string
	Symbol string
	// Reason is the loader's own error text.
	Reason string
}

func (e *LoadError) Error() string {
	switch {
	case e.Symbol != "":
		return fmt.Sprintf("load %s: symbol %s: %v", e.Path, e.Symbol, e.Err)
	case e.Reason != "":
		return fmt.Sprintf("load %s: %v: %s", e.Path, e.Err, e.Reason)
	default:
		return fmt.Sprintf("load %s: %v", e.Path, e.Err)
	}
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *LoadError) ToErrorDetail() *entities.ErrorDetail {
	d := &entities.ErrorDetail{Message: e.Error(), Type: "load", Code: "load_failed", IsNotFound: stdErrors.Is(e.Err, ErrNotFound)}
	if e.Symbol != "" {
		d.Code = "symbol_missing"
		d.Details = map[string]any{"symbol": e.Symbol}
	}
	return d
}

// LibraryConflictError is returned when a second, different runtime library
// is requested while one is already loaded.
type LibraryConflictError struct {
	Loaded    string
	Requested string
}

func (e *LibraryConflictError) Error() string {
	return fmt.Sprintf("runtime library %s already loaded, refusing %s", e.Loaded, e.Requested)
}

// ToErrorDetail implements DetailedError.
func (e *LibraryConflictError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{
		Message: e.Error(),
		Type:    "load",
		Code:    "library_conflict",
		Details: map[string]any{"loaded": e.Loaded, "requested": e.Requested},
	}
}

// InitError represents a failure while bringing the interpreter up.
type InitError struct {
	Err  error
	Step string
}

func (e *InitError) Error() string {
	return fmt.Sprintf("interpreter init failed at %s: %v", e.Step, e.Err)
}

func (e *InitError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *InitError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "init", Code: e.Step}
}

// Module loading phases.
const (
	PhaseRead    = "read"
	PhaseCompile = "compile"
	PhaseExec    = "exec"
)

// ModuleError represents a failure to load a script as a module.
type ModuleError struct {
	Err   error
	Path  string
	Phase string
}

func (e *ModuleError) Error() string {
	return fmt.Sprintf("module %s: %s failed: %v", e.Path, e.Phase, e.Err)
}

func (e *ModuleError) Unwrap() error {
	return e.Err
}

// Is matches the phase sentinel.
func (e *ModuleError) Is(target error) bool {
	switch target {
	case ErrModuleRead:
		return e.Phase == PhaseRead
	case ErrCompile:
		return e.Phase == PhaseCompile
	case ErrExec:
		return e.Phase == PhaseExec
	}
	return false
}

// ToErrorDetail implements DetailedError.
func (e *ModuleError) ToErrorDetail() *entities.ErrorDetail {
	d := &entities.ErrorDetail{
		Message:    e.Error(),
		Type:       "module",
		Code:       e.Phase,
		IsNotFound: stdErrors.Is(e.Err, ErrModuleNotFound),
	}
	var ge *GuestException
	if stdErrors.As(e.Err, &ge) {
		d.Traceback = ge.Traceback
	}
	return d
}

// ConstructionError represents a failure to instantiate the filter class.
type ConstructionError struct {
	Err              error
	Class            string
	AttributeMissing bool
}

func (e *ConstructionError) Error() string {
	if e.AttributeMissing {
		return fmt.Sprintf("class %s not found in module", e.Class)
	}
	return fmt.Sprintf("constructing %s failed: %v", e.Class, e.Err)
}

func (e *ConstructionError) Unwrap() error {
	return e.Err
}

// Is matches ErrAttributeMissing or ErrConstruction.
func (e *ConstructionError) Is(target error) bool {
	switch target {
	case ErrAttributeMissing:
		return e.AttributeMissing
	case ErrConstruction:
		return !e.AttributeMissing
	}
	return false
}

// ToErrorDetail implements DetailedError.
func (e *ConstructionError) ToErrorDetail() *entities.ErrorDetail {
	code := "construction_failed"
	if e.AttributeMissing {
		code = "attribute_missing"
	}
	return &entities.ErrorDetail{Message: e.Error(), Type: "construction", Code: code, IsNotFound: e.AttributeMissing}
}

// CapabilityError represents a failed format query. An absent query method is
// not an error.
type CapabilityError struct {
	Err    error
	Method string
	Reason string
}

func (e *CapabilityError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("format query %s failed: %s: %v", e.Method, e.Reason, e.Err)
	}
	return fmt.Sprintf("format query %s failed: %s", e.Method, e.Reason)
}

func (e *CapabilityError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *CapabilityError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "capability", Code: e.Method}
}

// InvocationError is a per-frame guest failure reported with an error code.
type InvocationError struct {
	Err  error
	Code int
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("filter call failed (code %d): %v", e.Code, e.Err)
}

func (e *InvocationError) Unwrap() []error {
	return []error{ErrExternal, e.Err}
}

// ToErrorDetail implements DetailedError.
func (e *InvocationError) ToErrorDetail() *entities.ErrorDetail {
	d := &entities.ErrorDetail{Message: e.Error(), Type: "invocation", Code: fmt.Sprintf("%d", e.Code)}
	var ge *GuestException
	if stdErrors.As(e.Err, &ge) {
		d.Traceback = ge.Traceback
	}
	return d
}

// InterruptError reports that the guest was interrupted and the unit of work
// was abandoned.
type InterruptError struct {
	Err    error
	Signal string
}

func (e *InterruptError) Error() string {
	return fmt.Sprintf("interrupted by %s", e.Signal)
}

func (e *InterruptError) Unwrap() []error {
	return []error{ErrInterrupted, e.Err}
}

// ToErrorDetail implements DetailedError.
func (e *InterruptError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "interrupt", Code: e.Signal, IsInterrupt: true}
}

// StateError represents an operation attempted in the wrong lifecycle state.
type StateError struct {
	Op    string
	State string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s not allowed in state %s", e.Op, e.State)
}

// Is makes operations on a finalized runtime match ErrFinalized.
func (e *StateError) Is(target error) bool {
	return target == ErrFinalized && e.State == "finalized"
}

// ToErrorDetail implements DetailedError.
func (e *StateError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "state", Code: e.Op}
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Err   error
	Field string
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config validation failed for field '%s': %v", e.Field, e.Err)
	}
	return fmt.Sprintf("config validation failed: %v", e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *ConfigError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "config", Code: e.Field}
}

// SchemaError represents a schema generation error.
type SchemaError struct {
	Err  error
	Type string
}

func (e *SchemaError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("schema error for type %s: %v", e.Type, e.Err)
	}
	return fmt.Sprintf("schema error: %v", e.Err)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *SchemaError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "validation", Code: "schema"}
}
