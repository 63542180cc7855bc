package codegen

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"unsafe"

	"github.com/weiplanet/taichi/internal/loader"
)

var dummySymbol byte

type fakeHandle struct {
	symbols map[string]bool
	lookups []string
}

func (h *fakeHandle) Lookup(symbol string) (loader.Kernel, error) {
	h.lookups = append(h.lookups, symbol)
	if !h.symbols[symbol] {
		return loader.Kernel{}, fmt.Errorf("%w: %q", loader.ErrSymbolResolution, symbol)
	}
	return loader.KernelFromPtr(unsafe.Pointer(&dummySymbol)), nil
}

type fakeLoader struct {
	opens    int
	failOpen bool
	paths    []string
	handle   *fakeHandle
}

func (l *fakeLoader) Open(path string) (loader.Handle, error) {
	l.opens++
	l.paths = append(l.paths, path)
	if l.failOpen {
		return nil, fmt.Errorf("%w: %s: no such file", loader.ErrLibraryLoad, path)
	}
	if l.handle == nil {
		l.handle = &fakeHandle{symbols: map[string]bool{}}
	}
	return l.handle, nil
}

func newTestGenerator(t *testing.T, opts Options) *Generator {
	t.Helper()
	if opts.CacheDir == "" {
		opts.CacheDir = t.TempDir()
	}
	if opts.Warn == nil {
		opts.Warn = &bytes.Buffer{}
	}
	if opts.Loader == nil {
		opts.Loader = &fakeLoader{handle: &fakeHandle{symbols: map[string]bool{}}}
	}
	gen, err := New(NewAllocator(), opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return gen
}

func TestEmitLandsInCurrentRegion(t *testing.T) {
	gen := newTestGenerator(t, Options{})
	if gen.CurrentRegion() != RegionHeader {
		t.Fatalf("fresh generator must start in header, got %s", gen.CurrentRegion())
	}
	gen.Emit("#include <stddef.h>")
	if got := gen.Buffer().Text(RegionHeader); got != "#include <stddef.h>\n" {
		t.Fatalf("unexpected header text %q", got)
	}
}

func TestWithRegionNestingRestores(t *testing.T) {
	gen := newTestGenerator(t, Options{})
	gen.WithRegion(RegionBody, func() {
		gen.Emit("b1;")
		gen.WithRegion(RegionResidualBegin, func() {
			gen.Emit("r1;")
			gen.WithRegion(RegionTail, func() {
				gen.Emit("t1;")
			})
			if gen.CurrentRegion() != RegionResidualBegin {
				t.Fatalf("inner scope did not restore residual_begin, got %s", gen.CurrentRegion())
			}
			gen.Emit("r2;")
		})
		if gen.CurrentRegion() != RegionBody {
			t.Fatalf("middle scope did not restore body, got %s", gen.CurrentRegion())
		}
		gen.Emit("b2;")
	})
	if gen.CurrentRegion() != RegionHeader {
		t.Fatalf("outer scope did not restore header, got %s", gen.CurrentRegion())
	}

	if got := gen.Buffer().Text(RegionBody); got != "b1;\nb2;\n" {
		t.Fatalf("body text %q", got)
	}
	if got := gen.Buffer().Text(RegionResidualBegin); got != "r1;\nr2;\n" {
		t.Fatalf("residual_begin text %q", got)
	}
	if got := gen.Buffer().Text(RegionTail); got != "t1;\n" {
		t.Fatalf("tail text %q", got)
	}
}

func TestWithRegionRestoresOnPanic(t *testing.T) {
	gen := newTestGenerator(t, Options{})
	func() {
		defer func() { _ = recover() }()
		gen.WithRegion(RegionBody, func() {
			panic("kernel emission failed")
		})
	}()
	if gen.CurrentRegion() != RegionHeader {
		t.Fatalf("region not restored after panic, got %s", gen.CurrentRegion())
	}
}

func TestEmitPanicsOnBadTemplate(t *testing.T) {
	gen := newTestGenerator(t, Options{})
	defer func() {
		if recover() == nil {
			t.Fatalf("Emit with missing argument must panic")
		}
	}()
	gen.Emit("x = %d;")
}

func TestEmitCustomLineSuffix(t *testing.T) {
	gen := newTestGenerator(t, Options{LineSuffix: ";\n"})
	gen.Emit("int x = %d", 1)
	if got := gen.Buffer().Text(RegionHeader); got != "int x = 1;\n" {
		t.Fatalf("unexpected text %q", got)
	}
}

func TestWriteSourceOrderingAndIdempotence(t *testing.T) {
	gen := newTestGenerator(t, Options{})
	// Body emitted before header; assembled file must show header first.
	gen.WithRegion(RegionBody, func() { gen.Emit("x = 1;") })
	gen.WithRegion(RegionHeader, func() { gen.Emit("y = 2;") })

	if err := gen.WriteSource(); err != nil {
		t.Fatalf("WriteSource: %v", err)
	}
	first, err := os.ReadFile(gen.SourcePath())
	if err != nil {
		t.Fatalf("read source: %v", err)
	}

	want := "// region header\ny = 2;\n// region body\nx = 1;\n"
	if string(first) != want {
		t.Fatalf("source mismatch:\nwant:\n%s\ngot:\n%s", want, first)
	}

	if err := gen.WriteSource(); err != nil {
		t.Fatalf("second WriteSource: %v", err)
	}
	second, err := os.ReadFile(gen.SourcePath())
	if err != nil {
		t.Fatalf("read source: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("WriteSource is not idempotent:\nfirst:\n%s\nsecond:\n%s", first, second)
	}
}

func TestWriteSourceDebugOverride(t *testing.T) {
	var warn bytes.Buffer
	formats := 0
	gen := newTestGenerator(t, Options{
		Warn:   &warn,
		Format: func(string) error { formats++; return nil },
	})
	gen.Emit("generated;")

	handEdited := []byte("// debug: hand-tuned, keep me\nreal code\n")
	if err := os.WriteFile(gen.SourcePath(), handEdited, 0o600); err != nil {
		t.Fatalf("seed source: %v", err)
	}

	if err := gen.WriteSource(); err != nil {
		t.Fatalf("WriteSource: %v", err)
	}
	got, err := os.ReadFile(gen.SourcePath())
	if err != nil {
		t.Fatalf("read source: %v", err)
	}
	if !bytes.Equal(got, handEdited) {
		t.Fatalf("debug-marked file was overwritten:\n%s", got)
	}
	if formats != 0 {
		t.Fatalf("formatter ran %d times on a debug-marked file", formats)
	}
	if !strings.Contains(warn.String(), "warning") {
		t.Fatalf("expected a warning, got %q", warn.String())
	}
}

func TestWriteSourceKeepsUnformattedCopy(t *testing.T) {
	formats := 0
	gen := newTestGenerator(t, Options{
		KeepUnformatted: true,
		Format: func(path string) error {
			formats++
			// Simulate an in-place formatter touching the file.
			return os.WriteFile(path, []byte("formatted\n"), 0o600)
		},
	})
	gen.Emit("raw;")

	if err := gen.WriteSource(); err != nil {
		t.Fatalf("WriteSource: %v", err)
	}
	if formats != 1 {
		t.Fatalf("formatter ran %d times, want 1", formats)
	}
	unformatted, err := os.ReadFile(UnformattedName(gen.SourcePath()))
	if err != nil {
		t.Fatalf("read unformatted copy: %v", err)
	}
	want := "// region header\nraw;\n"
	if string(unformatted) != want {
		t.Fatalf("unformatted copy mismatch:\nwant:\n%s\ngot:\n%s", want, unformatted)
	}
	formattedBytes, err := os.ReadFile(gen.SourcePath())
	if err != nil {
		t.Fatalf("read source: %v", err)
	}
	if string(formattedBytes) != "formatted\n" {
		t.Fatalf("formatter output lost: %q", formattedBytes)
	}
}

func TestWriteSourceFormatterFailureIsNotFatal(t *testing.T) {
	var warn bytes.Buffer
	gen := newTestGenerator(t, Options{
		Warn:   &warn,
		Format: func(string) error { return errors.New("clang-format exploded") },
	})
	gen.Emit("code;")

	if err := gen.WriteSource(); err != nil {
		t.Fatalf("formatter failure must not propagate, got %v", err)
	}
	if !strings.Contains(warn.String(), "formatter failed") {
		t.Fatalf("expected formatter warning, got %q", warn.String())
	}
}

func TestLoadFunctionCachesHandle(t *testing.T) {
	ld := &fakeLoader{handle: &fakeHandle{symbols: map[string]bool{"func000000": true}}}
	gen := newTestGenerator(t, Options{Loader: ld})

	first, err := gen.LoadFunction()
	if err != nil {
		t.Fatalf("first LoadFunction: %v", err)
	}
	second, err := gen.LoadFunction()
	if err != nil {
		t.Fatalf("second LoadFunction: %v", err)
	}
	if !first.Valid() || !second.Valid() {
		t.Fatalf("loaded kernels must be valid")
	}
	if ld.opens != 1 {
		t.Fatalf("library opened %d times, want 1", ld.opens)
	}
	if ld.paths[0] != gen.LibraryPath() {
		t.Fatalf("opened %q, want %q", ld.paths[0], gen.LibraryPath())
	}
	if got := ld.handle.lookups; len(got) != 2 || got[0] != "func000000" || got[1] != "func000000" {
		t.Fatalf("unexpected lookups %v", got)
	}
}

func TestLoadFunctionOpenFailureIsFatal(t *testing.T) {
	ld := &fakeLoader{failOpen: true}
	gen := newTestGenerator(t, Options{Loader: ld})

	if _, err := gen.LoadFunction(); !errors.Is(err, loader.ErrLibraryLoad) {
		t.Fatalf("want ErrLibraryLoad, got %v", err)
	}
}

func TestLoadSymbolMissingIsFatal(t *testing.T) {
	ld := &fakeLoader{handle: &fakeHandle{symbols: map[string]bool{}}}
	gen := newTestGenerator(t, Options{Loader: ld})

	if _, err := gen.LoadFunction(); !errors.Is(err, loader.ErrSymbolResolution) {
		t.Fatalf("want ErrSymbolResolution, got %v", err)
	}
}

func TestDisassemblePlatformGate(t *testing.T) {
	calls := 0
	var gotLib, gotOut string
	opts := Options{
		GOOS: "linux",
		Disassemble: func(lib, out string) error {
			calls++
			gotLib, gotOut = lib, out
			return nil
		},
	}
	gen := newTestGenerator(t, opts)
	gen.Disassemble()
	if calls != 1 {
		t.Fatalf("disassembler ran %d times on linux, want 1", calls)
	}
	if gotLib != gen.LibraryPath() || gotOut != gen.LibraryPath()+".s" {
		t.Fatalf("disassembler paths %q -> %q", gotLib, gotOut)
	}

	opts.GOOS = "darwin"
	darwinGen := newTestGenerator(t, opts)
	darwinGen.Disassemble()
	if calls != 1 {
		t.Fatalf("disassembler must be linux-only, ran %d times", calls)
	}
}

func TestGeneratorNaming(t *testing.T) {
	dir := t.TempDir()
	alloc := NewAllocator()
	opts := Options{CacheDir: dir, GOOS: "linux", Loader: &fakeLoader{}, Warn: &bytes.Buffer{}}

	first, err := New(alloc, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	second, err := New(alloc, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if first.ID() != 0 || second.ID() != 1 {
		t.Fatalf("ids %d, %d", first.ID(), second.ID())
	}
	if first.FuncName() == second.FuncName() {
		t.Fatalf("function names collide: %q", first.FuncName())
	}
	if first.SourceName() != "tmp0000.c" {
		t.Fatalf("source name %q", first.SourceName())
	}
	if second.LibraryName() != "tmp0001.c.so" {
		t.Fatalf("library name %q", second.LibraryName())
	}
}

func TestVecToList(t *testing.T) {
	if got := VecToList([]int{1, 2, 3}, "{"); got != "{1,2,3}" {
		t.Fatalf("got %q", got)
	}
	if got := VecToList([]string{"a"}, "<"); got != "<a>" {
		t.Fatalf("got %q", got)
	}
	if got := VecToList([]int{}, "("); got != "()" {
		t.Fatalf("got %q", got)
	}
	if got := VecToList([]int{4, 5}, ""); got != "4,5" {
		t.Fatalf("got %q", got)
	}
}
