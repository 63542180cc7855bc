// Package loader opens compiled kernel libraries and resolves their exported
// entry points. Handles are never closed: a loaded kernel may be invoked
// through function pointers held by callers for the rest of the process
// lifetime, so unloading would invalidate them.
package loader

import (
	"errors"
	"unsafe"
)

var (
	// ErrLibraryLoad indicates the OS loader could not open the library.
	ErrLibraryLoad = errors.New("failed to load kernel library")
	// ErrSymbolResolution indicates the kernel symbol is absent from an
	// opened library (stale cache, mismatched source, compiler bug).
	ErrSymbolResolution = errors.New("failed to resolve kernel symbol")
)

// Handle is an opened shared library.
type Handle interface {
	// Lookup resolves an exported symbol. A missing symbol is fatal for the
	// kernel: there is no degraded mode for a partially loaded kernel.
	Lookup(symbol string) (Kernel, error)
}

// Loader opens shared libraries. The production implementation wraps the OS
// dynamic loader; tests substitute fakes that record open calls.
type Loader interface {
	Open(path string) (Handle, error)
}

// Kernel is a loaded kernel entry point with the exported signature
// void fn(void *ctx).
type Kernel struct {
	fn unsafe.Pointer
}

// Valid reports whether the kernel points at a resolved symbol.
func (k Kernel) Valid() bool {
	return k.fn != nil
}

// KernelFromPtr wraps a raw function address. Intended for fakes in tests.
func KernelFromPtr(p unsafe.Pointer) Kernel {
	return Kernel{fn: p}
}
