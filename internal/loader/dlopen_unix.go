//go:build !windows

package loader

/*
#cgo linux LDFLAGS: -ldl
#include <dlfcn.h>
#include <stdlib.h>

typedef void (*taichi_kernel_fn)(void *);

static void taichi_call_kernel(void *fn, void *ctx) {
	((taichi_kernel_fn)fn)(ctx);
}
*/
import "C"

import (
	"fmt"
	"path/filepath"
	"unsafe"
)

type dlLoader struct{}

type dlHandle struct {
	handle unsafe.Pointer
	path   string
}

// System returns the dlopen-backed loader.
func System() Loader {
	return dlLoader{}
}

func (dlLoader) Open(path string) (Handle, error) {
	// dlopen resolves bare relative names against the library search path,
	// not the working directory; anchor relative paths explicitly.
	if !filepath.IsAbs(path) {
		path = "./" + path
	}
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))

	h := C.dlopen(cpath, C.RTLD_LAZY)
	if h == nil {
		return nil, fmt.Errorf("%w: %s: %s", ErrLibraryLoad, path, dlError())
	}
	return &dlHandle{handle: h, path: path}, nil
}

func (h *dlHandle) Lookup(symbol string) (Kernel, error) {
	csym := C.CString(symbol)
	defer C.free(unsafe.Pointer(csym))

	addr := C.dlsym(h.handle, csym)
	if addr == nil {
		return Kernel{}, fmt.Errorf("%w: %q in %s", ErrSymbolResolution, symbol, h.path)
	}
	return Kernel{fn: addr}, nil
}

// Invoke calls the kernel with the given argument context.
func (k Kernel) Invoke(ctx unsafe.Pointer) {
	C.taichi_call_kernel(k.fn, ctx)
}

func dlError() string {
	msg := C.dlerror()
	if msg == nil {
		return "unknown dlopen error"
	}
	return C.GoString(msg)
}
