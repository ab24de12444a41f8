// Package hostfuncs implements the functions a guest script can call on the
// host through the capability module.
//
// A host function is a ByteHandler: JSON request in, JSON response out.
// Handlers live in an immutable HandlerRegistry built once with options,
// optionally wrapped in middleware. Failures reach the guest as an
// ErrorResponse document rather than as an exception, so a script can
// inspect them.
package hostfuncs
