// Package guesttest provides an in-memory stand-in for the bound interpreter
// API so the host can be tested without a runtime library.
//
// Interp implements ports.Interpreter with reference-count accounting,
// execution-token checks and a small object model: scripts are Go functions
// registered by source text, classes are Go constructors and filter objects
// are Go values. Libraries, Binder and Dispositions fake the remaining
// platform collaborators.
package guesttest
