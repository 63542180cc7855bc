package codegen

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/fatih/color"

	"github.com/weiplanet/taichi/internal/loader"
)

// DebugMarker is the escape-hatch token: if the first line of an existing
// generated source file contains it, WriteSource leaves the file untouched so
// a developer can hand-edit generated code and have it survive regeneration.
const DebugMarker = "debug"

// FormatFunc reformats a source file in place. Best-effort: a failure is
// warned about and discarded, never propagated.
type FormatFunc func(path string) error

// DisassembleFunc disassembles a library into the given output file.
// Best-effort, like FormatFunc.
type DisassembleFunc func(libraryPath, outPath string) error

var warnColor = color.New(color.FgYellow)

// Options configures a Generator. Zero values get sensible defaults; the
// loader, formatter and disassembler are injectable so tests can substitute
// fakes and so the cosmetic tools stay optional.
type Options struct {
	CacheDir        string // generated source and library folder, default "_tlang_cache"
	Suffix          string // source-language suffix, default "c"
	LineSuffix      string // appended after every Emit, default "\n"
	GOOS            string // target platform for library naming, default runtime.GOOS
	Loader          loader.Loader
	Format          FormatFunc      // nil disables formatting
	Disassemble     DisassembleFunc // nil disables disassembly
	KeepUnformatted bool            // copy the pre-format source to a sibling for diffing
	Warn            io.Writer       // destination for best-effort warnings, default os.Stderr
}

// Generator accumulates one kernel's source by region, serializes it, and
// loads the compiled artifact back as a callable. One instance per
// kernel-compilation request; the instance exclusively owns its buffer and
// library handle. A Generator is not safe for concurrent use.
type Generator struct {
	id       int
	funcName string
	opts     Options

	current Region
	buf     *Buffer

	// handle is opened lazily on first symbol resolution and retained for
	// the remaining process lifetime. There is no unload.
	handle loader.Handle
}

// New allocates a kernel id and prepares an empty generator writing into the
// cache directory (created if absent). Id exhaustion is fatal for
// construction.
func New(alloc *Allocator, opts Options) (*Generator, error) {
	id, err := alloc.Allocate()
	if err != nil {
		return nil, err
	}
	if opts.CacheDir == "" {
		opts.CacheDir = "_tlang_cache"
	}
	if opts.Suffix == "" {
		opts.Suffix = "c"
	}
	if opts.LineSuffix == "" {
		opts.LineSuffix = "\n"
	}
	if opts.GOOS == "" {
		opts.GOOS = runtime.GOOS
	}
	if opts.Loader == nil {
		opts.Loader = loader.System()
	}
	if opts.Warn == nil {
		opts.Warn = os.Stderr
	}
	if err := os.MkdirAll(opts.CacheDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create cache dir %q: %w", opts.CacheDir, err)
	}
	return &Generator{
		id:       id,
		funcName: FuncNameForID(id),
		opts:     opts,
		current:  RegionHeader,
		buf:      NewBuffer(),
	}, nil
}

// ID returns the process-unique kernel id.
func (g *Generator) ID() int { return g.id }

// FuncName returns the exported symbol name of this kernel.
func (g *Generator) FuncName() string { return g.funcName }

// SourceName returns the cache-relative source file name.
func (g *Generator) SourceName() string { return SourceNameForID(g.id, g.opts.Suffix) }

// SourcePath returns the full source file path.
func (g *Generator) SourcePath() string { return joinCache(g.opts.CacheDir, g.SourceName()) }

// LibraryName returns the cache-relative shared-library file name.
func (g *Generator) LibraryName() string { return LibraryNameForID(g.id, g.opts.Suffix, g.opts.GOOS) }

// LibraryPath returns the full shared-library path.
func (g *Generator) LibraryPath() string { return joinCache(g.opts.CacheDir, g.LibraryName()) }

// CurrentRegion returns the region subsequent emissions land in.
func (g *Generator) CurrentRegion() Region { return g.current }

// Buffer exposes the accumulated code buffer.
func (g *Generator) Buffer() *Buffer { return g.buf }

// Emit formats the template and appends it plus the line suffix to the
// currently active region. Mismatched format arguments are a programmer
// error and panic immediately instead of silently landing in the kernel.
func (g *Generator) Emit(format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	if strings.Contains(text, "%!") {
		panic(fmt.Sprintf("codegen: bad emit template %q: %s", format, text))
	}
	g.buf.Append(g.current, text+g.opts.LineSuffix)
}

// EmitCode is an alias for Emit.
func (g *Generator) EmitCode(format string, args ...any) {
	g.Emit(format, args...)
}

// WithRegion redirects emission to r for the duration of fn and restores the
// previously active region afterwards, panic or not. Scopes nest arbitrarily
// and unwind in reverse order of entry.
func (g *Generator) WithRegion(r Region, fn func()) {
	prev := g.current
	g.current = r
	defer func() { g.current = prev }()
	fn()
}

// WriteSource serializes the code buffer to the source path: a region-marker
// comment line, then the region's text verbatim, for every non-empty region
// in assembly order. If the existing file's first line carries the debug
// marker the write is skipped entirely. The unformatted-sibling copy and the
// formatter run are best-effort.
func (g *Generator) WriteSource() error {
	path := g.SourcePath()
	if g.debugOverridden(path) {
		g.warnf("debugging %s, regenerated code overridden", path)
		return nil
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to write kernel source %q: %w", path, err)
	}
	w := bufio.NewWriter(f)
	if err := g.buf.Assemble(w); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write kernel source %q: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write kernel source %q: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write kernel source %q: %w", path, err)
	}

	if g.opts.KeepUnformatted {
		if err := copyFile(path, UnformattedName(path)); err != nil {
			g.warnf("failed to keep unformatted copy of %s: %v", path, err)
		}
	}
	if g.opts.Format != nil {
		if err := g.opts.Format(path); err != nil {
			g.warnf("formatter failed on %s: %v", path, err)
		}
	}
	return nil
}

// LoadFunction resolves this kernel's exported entry point, opening the
// library on first use. The handle is cached and reused for all later
// lookups on this instance. Concurrent calls on the same instance must be
// serialized by the caller.
func (g *Generator) LoadFunction() (loader.Kernel, error) {
	return g.LoadSymbol(g.funcName)
}

// LoadSymbol resolves an arbitrary exported symbol from this kernel's
// library. Open and resolution failures are fatal for the kernel.
func (g *Generator) LoadSymbol(name string) (loader.Kernel, error) {
	if g.handle == nil {
		h, err := g.opts.Loader.Open(g.LibraryPath())
		if err != nil {
			return loader.Kernel{}, err
		}
		g.handle = h
	}
	return g.handle.Lookup(name)
}

// Disassemble writes a textual disassembly of the compiled library to a .s
// sibling. Only enabled on linux; the tool's outcome is observed but never
// fatal.
func (g *Generator) Disassemble() {
	if g.opts.Disassemble == nil || g.opts.GOOS != "linux" {
		return
	}
	lib := g.LibraryPath()
	if err := g.opts.Disassemble(lib, DisassemblyName(lib)); err != nil {
		g.warnf("disassembly of %s failed: %v", lib, err)
	}
}

// debugOverridden reports whether the existing source file's first line
// contains the debug marker.
func (g *Generator) debugOverridden(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer func() { _ = f.Close() }()
	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return false
	}
	return strings.Contains(scanner.Text(), DebugMarker)
}

func (g *Generator) warnf(format string, args ...any) {
	_, _ = warnColor.Fprintf(g.opts.Warn, "warning: "+format+"\n", args...)
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o600)
}
