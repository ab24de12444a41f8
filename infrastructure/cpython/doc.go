// Package cpython binds the CPython C API from a dynamically loaded runtime
// library. Resolve looks up the versioned symbol manifest all-or-nothing;
// Bind turns the resolved table into an API value implementing
// ports.Interpreter.
//
// Function symbols are registered with purego, so no cgo toolchain is
// needed. Exception types are data symbols holding a PyObject* and are read
// lazily, after the interpreter has been initialized.
package cpython
