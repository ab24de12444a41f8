// Package entities provides the core domain types of the interpreter host:
// frames and their header layout, pixel formats, invocation outcomes, filter
// configuration and structured error details.
package entities
