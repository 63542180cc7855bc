package main

import (
	"fmt"
	"math"
	"os"
	"unsafe"

	"github.com/spf13/cobra"

	"github.com/weiplanet/taichi/internal/codegen"
	"github.com/weiplanet/taichi/internal/observ"
	"github.com/weiplanet/taichi/internal/pipeline"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Generate, compile, load and invoke one sample kernel",
	Long:  "Generate an axpy kernel through the region emitter, compile it with the configured native toolchain, load it and invoke it on sample data.",
	RunE:  demoExecution,
}

func demoExecution(cmd *cobra.Command, args []string) error {
	cacheDir, err := cmd.Flags().GetString("cache")
	if err != nil {
		return err
	}
	printCommands, err := cmd.Flags().GetBool("print-commands")
	if err != nil {
		return err
	}
	disassemble, err := cmd.Flags().GetBool("disassemble")
	if err != nil {
		return err
	}
	quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")
	if err != nil {
		return err
	}
	showTimings, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil {
		return err
	}

	env, err := setupEnv(cacheDir, printCommands)
	if err != nil {
		return err
	}
	ctx, closeTrace, err := traceContext(cmd)
	if err != nil {
		return err
	}
	defer closeTrace()

	timer := observ.NewTimer()

	genPhase := timer.Begin("generate")
	alloc := codegen.NewAllocator()
	gen, err := codegen.New(alloc, env.genOpts)
	if err != nil {
		return err
	}
	emitAxpyKernel(gen)
	timer.End(genPhase, gen.FuncName())

	pipePhase := timer.Begin("pipeline")
	res, err := pipeline.CompileKernel(ctx, &pipeline.Request{
		Generator:   gen,
		Compiler:    env.tools,
		Manifest:    env.manifest,
		Disassemble: disassemble,
	})
	if err != nil {
		return err
	}
	timer.End(pipePhase, res.LibraryPath)

	const (
		n = 8
		a = 2.0
	)
	// Layout: [n, a, x[0..n), y[0..n)].
	buf := make([]float64, 2+2*n)
	buf[0] = n
	buf[1] = a
	for i := 0; i < n; i++ {
		buf[2+i] = float64(i)
		buf[2+n+i] = 1.0
	}

	invokePhase := timer.Begin("invoke")
	res.Kernel.Invoke(unsafe.Pointer(&buf[0]))
	timer.End(invokePhase, "")

	for i := 0; i < n; i++ {
		want := a*float64(i) + 1.0
		if math.Abs(buf[2+n+i]-want) > 1e-12 {
			return fmt.Errorf("kernel %s returned y[%d]=%v, want %v", gen.FuncName(), i, buf[2+n+i], want)
		}
	}

	if !quiet {
		fmt.Fprintf(os.Stdout, "kernel %s ok: y = %v\n", gen.FuncName(), buf[2+n:])
	}
	if showTimings {
		printStageTimings(os.Stdout, res.Timings)
		fmt.Fprint(os.Stdout, timer.Summary())
	}
	return nil
}

func init() {
	demoCmd.Flags().String("cache", "", "override the cache directory")
	demoCmd.Flags().Bool("print-commands", false, "print external tool invocations")
	demoCmd.Flags().Bool("disassemble", false, "write a disassembly of the compiled kernel (linux only)")
}
