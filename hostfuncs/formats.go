package hostfuncs

import (
	"context"
	"fmt"

	"github.com/reglet-dev/vfpython/domain/entities"
	"github.com/reglet-dev/vfpython/domain/ports"
)

// PixFmtListRequest is the pix_fmt_list request. It has no fields.
type PixFmtListRequest struct{}

// PixFmtListResponse lists every format the host knows.
type PixFmtListResponse struct {
	Formats []PixFmtEntry `json:"formats"`
	// Min and Max bound the valid identifiers.
	Min entities.PixelFormat `json:"min"`
	Max entities.PixelFormat `json:"max"`
}

// PixFmtEntry is one row of PixFmtListResponse.
type PixFmtEntry struct {
	Name string               `json:"name"`
	ID   entities.PixelFormat `json:"id"`
}

// PerformPixFmtList lists the catalog.
func PerformPixFmtList(_ context.Context, cat ports.FormatCatalog, _ PixFmtListRequest) PixFmtListResponse {
	descs := cat.List()
	resp := PixFmtListResponse{Formats: make([]PixFmtEntry, 0, len(descs))}
	for _, d := range descs {
		resp.Formats = append(resp.Formats, PixFmtEntry{ID: d.ID, Name: d.Name})
	}
	resp.Min, resp.Max = cat.Range()
	return resp
}

// PixFmtDescRequest selects a format by ID or by name. Name wins when both
// are set.
type PixFmtDescRequest struct {
	ID   *entities.PixelFormat `json:"id,omitempty"`
	Name string                `json:"name,omitempty"`
}

// PixFmtDescResponse carries a descriptor, or Error when lookup failed.
type PixFmtDescResponse struct {
	Error      *ErrorResponse                  `json:"error,omitempty"`
	Descriptor *entities.PixelFormatDescriptor `json:"descriptor,omitempty"`
}

// PerformPixFmtDesc looks up one descriptor.
func PerformPixFmtDesc(_ context.Context, cat ports.FormatCatalog, req PixFmtDescRequest) PixFmtDescResponse {
	var (
		desc entities.PixelFormatDescriptor
		ok   bool
		key  string
	)
	switch {
	case req.Name != "":
		desc, ok = cat.ByName(req.Name)
		key = fmt.Sprintf("%q", req.Name)
	case req.ID != nil:
		desc, ok = cat.Descriptor(*req.ID)
		key = fmt.Sprintf("%d", *req.ID)
	default:
		e := NewValidationError("id or name is required")
		return PixFmtDescResponse{Error: &e}
	}
	if !ok {
		e := ErrorResponse{Error: "NOT_FOUND", Message: "unknown pixel format " + key, Code: 404}
		return PixFmtDescResponse{Error: &e}
	}
	return PixFmtDescResponse{Descriptor: &desc}
}
