package hostfuncs

import (
	"context"
	"runtime"
)

// HostInfo describes the host to guest scripts.
type HostInfo struct {
	// Library is the canonical path of the interpreter library.
	Library string `json:"library"`
	// Version is the host module version.
	Version string `json:"version"`
	GOOS    string `json:"goos"`
	GOARCH  string `json:"goarch"`
	// ABIVersion is the capability module ABI version.
	ABIVersion int `json:"abi_version"`
	// FrameHeaderSize is the size of the header preceding plane data.
	FrameHeaderSize int `json:"frame_header_size"`
	// Manifest is the symbol manifest version bound at start-up.
	Manifest int `json:"manifest_version"`
}

// HostInfoRequest is the host_info request. It has no fields.
type HostInfoRequest struct{}

// PerformHostInfo fills in the platform fields of info.
func PerformHostInfo(_ context.Context, info HostInfo, _ HostInfoRequest) HostInfo {
	info.GOOS = runtime.GOOS
	info.GOARCH = runtime.GOARCH
	return info
}
