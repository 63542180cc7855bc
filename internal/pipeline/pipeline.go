// Package pipeline orchestrates the write → compile → load flow for
// generated kernels.
package pipeline

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"time"

	"fortio.org/safecast"
	"golang.org/x/sync/errgroup"

	"github.com/weiplanet/taichi/internal/cache"
	"github.com/weiplanet/taichi/internal/codegen"
	"github.com/weiplanet/taichi/internal/loader"
	"github.com/weiplanet/taichi/internal/trace"
)

// Compiler turns a generated source file into a shared library at the given
// path. *toolchain.Toolchain is the production implementation.
type Compiler interface {
	Compile(ctx context.Context, sourcePath, libraryPath string) error
}

// Request configures the compilation of one kernel.
type Request struct {
	Generator *codegen.Generator
	Compiler  Compiler
	Manifest  *cache.Manifest // optional artifact bookkeeping
	Progress  ProgressSink
	// Disassemble requests a best-effort disassembly after a successful load.
	Disassemble bool
}

// Result captures the loaded kernel and per-stage timings.
type Result struct {
	Kernel      loader.Kernel
	Timings     Timings
	SourcePath  string
	LibraryPath string
}

// CompileKernel runs the full pipeline for one generator. Write and compile
// failures and load failures are fatal for the kernel; manifest bookkeeping,
// formatting and disassembly never are. Every stage blocks the calling
// goroutine for the duration of its file I/O or child process.
func CompileKernel(ctx context.Context, req *Request) (Result, error) {
	var result Result
	if req == nil || req.Generator == nil {
		return result, fmt.Errorf("missing kernel generator")
	}
	if req.Compiler == nil {
		return result, fmt.Errorf("missing compiler")
	}
	gen := req.Generator
	name := gen.FuncName()
	tr := trace.FromContext(ctx)

	result.SourcePath = gen.SourcePath()
	result.LibraryPath = gen.LibraryPath()

	writeStart := time.Now()
	emitStage(req.Progress, name, StageWrite, StatusWorking, nil, 0)
	if err := gen.WriteSource(); err != nil {
		emitStage(req.Progress, name, StageWrite, StatusError, err, 0)
		return result, err
	}
	result.Timings.Set(StageWrite, time.Since(writeStart))
	emitStage(req.Progress, name, StageWrite, StatusDone, nil, result.Timings.Duration(StageWrite))
	traceStage(tr, name, StageWrite, result.Timings.Duration(StageWrite), "")

	compileStart := time.Now()
	emitStage(req.Progress, name, StageCompile, StatusWorking, nil, 0)
	if err := req.Compiler.Compile(ctx, result.SourcePath, result.LibraryPath); err != nil {
		emitStage(req.Progress, name, StageCompile, StatusError, err, 0)
		return result, fmt.Errorf("failed to compile kernel %s: %w", name, err)
	}
	result.Timings.Set(StageCompile, time.Since(compileStart))
	emitStage(req.Progress, name, StageCompile, StatusDone, nil, result.Timings.Duration(StageCompile))
	traceStage(tr, name, StageCompile, result.Timings.Duration(StageCompile), "")

	if msg := recordArtifact(req.Manifest, gen); msg != "" {
		traceStage(tr, name, StageCompile, 0, msg)
	}

	loadStart := time.Now()
	emitStage(req.Progress, name, StageLoad, StatusWorking, nil, 0)
	kernel, err := gen.LoadFunction()
	if err != nil {
		emitStage(req.Progress, name, StageLoad, StatusError, err, 0)
		return result, err
	}
	result.Kernel = kernel
	result.Timings.Set(StageLoad, time.Since(loadStart))
	emitStage(req.Progress, name, StageLoad, StatusDone, nil, result.Timings.Duration(StageLoad))
	traceStage(tr, name, StageLoad, result.Timings.Duration(StageLoad), "")

	if req.Disassemble {
		gen.Disassemble()
	}
	return result, nil
}

// CompileAll compiles several kernels concurrently with at most jobs in
// flight. The first failure cancels the remaining work.
func CompileAll(ctx context.Context, reqs []*Request, jobs int) ([]Result, error) {
	if jobs <= 0 {
		jobs = 1
	}
	results := make([]Result, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			res, err := CompileKernel(gctx, req)
			results[i] = res
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// recordArtifact stores manifest bookkeeping for a written source. Failures
// are reported back as a message, never as an error: the manifest is
// informational.
func recordArtifact(m *cache.Manifest, gen *codegen.Generator) string {
	if m == nil {
		return ""
	}
	data, err := os.ReadFile(gen.SourcePath())
	if err != nil {
		return fmt.Sprintf("manifest: %v", err)
	}
	size, err := safecast.Conv[int64](len(data))
	if err != nil {
		return fmt.Sprintf("manifest: %v", err)
	}
	rec := &cache.Record{
		ID:          gen.ID(),
		FuncName:    gen.FuncName(),
		SourcePath:  gen.SourcePath(),
		LibraryPath: gen.LibraryPath(),
		SourceHash:  sha256.Sum256(data),
		SourceBytes: size,
		CreatedAt:   time.Now(),
	}
	if err := m.Put(rec); err != nil {
		return fmt.Sprintf("manifest: %v", err)
	}
	return ""
}

func emitStage(sink ProgressSink, kernel string, stage Stage, status Status, err error, elapsed time.Duration) {
	if sink == nil {
		return
	}
	sink.OnEvent(Event{Kernel: kernel, Stage: stage, Status: status, Err: err, Elapsed: elapsed})
}

func traceStage(tr trace.Tracer, kernel string, stage Stage, dur time.Duration, msg string) {
	if !tr.Enabled() {
		return
	}
	tr.Emit(&trace.Event{Time: time.Now(), Kernel: kernel, Stage: string(stage), Dur: dur, Msg: msg})
}
