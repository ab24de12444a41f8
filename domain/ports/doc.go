// Package ports defines interfaces for infrastructure operations.
// The host depends on these abstractions; infrastructure adapters (the dynamic
// loader, the bound interpreter API, the signal disposition table, frame
// allocators and the format catalog) implement them.
package ports
