package hostfuncs

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrorResponse is the error document returned to guest scripts.
type ErrorResponse struct {
	// Error is a machine-readable identifier, e.g. "VALIDATION_ERROR".
	Error string `json:"error"`

	// Message is a human-readable description.
	Message string `json:"message"`

	// Code is an HTTP-like status code.
	Code int `json:"code"`
}

// ToJSON serializes the response. It returns nil only if encoding fails,
// which this type cannot do.
func (e ErrorResponse) ToJSON() []byte {
	data, err := json.Marshal(e)
	if err != nil {
		return nil
	}
	return data
}

// IsErrorResponse reports whether payload is an ErrorResponse document and
// decodes it.
func IsErrorResponse(payload []byte) (ErrorResponse, bool) {
	var doc struct {
		Error   *string `json:"error"`
		Message string  `json:"message"`
		Code    int     `json:"code"`
	}
	if err := json.Unmarshal(payload, &doc); err != nil || doc.Error == nil || doc.Code == 0 {
		return ErrorResponse{}, false
	}
	return ErrorResponse{Error: *doc.Error, Message: doc.Message, Code: doc.Code}, true
}

// NewValidationError is returned for malformed or invalid requests.
func NewValidationError(message string) ErrorResponse {
	return ErrorResponse{Error: "VALIDATION_ERROR", Message: message, Code: 400}
}

// NewNotFoundError is returned for unknown function names.
func NewNotFoundError(name string) ErrorResponse {
	return ErrorResponse{Error: "NOT_FOUND", Message: "unknown host function: " + name, Code: 404}
}

// NewInternalError is returned for unexpected failures.
func NewInternalError(message string) ErrorResponse {
	return ErrorResponse{Error: "INTERNAL_ERROR", Message: message, Code: 500}
}

// NewPanicError is returned for recovered panics.
func NewPanicError(panicValue any) ErrorResponse {
	var msg string
	switch v := panicValue.(type) {
	case error:
		msg = v.Error()
	case string:
		msg = v
	default:
		msg = fmt.Sprintf("%v", v)
	}
	return ErrorResponse{Error: "INTERNAL_ERROR", Message: "panic: " + msg, Code: 500}
}

// ErrorResponseFor maps a handler error to its response document.
func ErrorResponseFor(err error) ErrorResponse {
	var re *RequestError
	if errors.As(err, &re) {
		return NewValidationError(re.Error())
	}
	return NewInternalError(err.Error())
}
