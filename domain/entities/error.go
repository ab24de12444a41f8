package entities

import "fmt"

// ErrorDetail is the structured form of a host error, as printed by the
// command line and attached to log records.
//
// Type is one of "load", "init", "module", "construction", "capability",
// "invocation", "interrupt", "config", "state", "guest", "validation" or
// "internal". Code narrows it down (a load step, a module phase, an error
// code, a config field).
type ErrorDetail struct {
	Details   map[string]any `json:"details,omitempty"`
	Message   string         `json:"message"`
	Type      string         `json:"type"`
	Code      string         `json:"code,omitempty"`
	Traceback string         `json:"traceback,omitempty"`
	// IsInterrupt marks a user interrupt rather than a failure.
	IsInterrupt bool `json:"is_interrupt,omitempty"`
	// IsNotFound marks a missing library, script or class.
	IsNotFound bool `json:"is_not_found,omitempty"`
}

func (e *ErrorDetail) Error() string {
	if e == nil {
		return ""
	}
	if e.Code == "" {
		return fmt.Sprintf("%s: %s", e.Type, e.Message)
	}
	return fmt.Sprintf("%s [%s]: %s", e.Type, e.Code, e.Message)
}

// NewErrorDetail returns a detail with the given type and message.
func NewErrorDetail(errorType, message string) *ErrorDetail {
	return &ErrorDetail{Type: errorType, Message: message}
}
