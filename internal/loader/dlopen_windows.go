//go:build windows

package loader

import (
	"fmt"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

type winLoader struct{}

type winHandle struct {
	handle windows.Handle
	path   string
}

// System returns the LoadLibrary-backed loader.
func System() Loader {
	return winLoader{}
}

func (winLoader) Open(path string) (Handle, error) {
	h, err := windows.LoadLibrary(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLibraryLoad, path, err)
	}
	return &winHandle{handle: h, path: path}, nil
}

func (h *winHandle) Lookup(symbol string) (Kernel, error) {
	addr, err := windows.GetProcAddress(h.handle, symbol)
	if err != nil {
		return Kernel{}, fmt.Errorf("%w: %q in %s: %v", ErrSymbolResolution, symbol, h.path, err)
	}
	// #nosec G103 -- proc addresses come from the OS loader, not the Go heap
	return Kernel{fn: unsafe.Pointer(addr)}, nil
}

// Invoke calls the kernel with the given argument context.
func (k Kernel) Invoke(ctx unsafe.Pointer) {
	// #nosec G103
	_, _, _ = syscall.SyscallN(uintptr(k.fn), uintptr(ctx))
}
