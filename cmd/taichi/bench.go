package main

import (
	"fmt"
	"os"
	"runtime"

	"fortio.org/safecast"
	"github.com/spf13/cobra"

	"github.com/weiplanet/taichi/internal/codegen"
	"github.com/weiplanet/taichi/internal/pipeline"
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Generate and compile a batch of kernels concurrently",
	RunE:  benchExecution,
}

func benchExecution(cmd *cobra.Command, args []string) error {
	count, err := cmd.Flags().GetInt("kernels")
	if err != nil {
		return err
	}
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return err
	}
	cacheDir, err := cmd.Flags().GetString("cache")
	if err != nil {
		return err
	}
	printCommands, err := cmd.Flags().GetBool("print-commands")
	if err != nil {
		return err
	}
	uiValue, err := cmd.Flags().GetString("ui")
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

	// The allocator ceiling bounds the batch; reject out-of-range requests
	// before allocating anything.
	if _, err := safecast.Conv[uint16](count); err != nil || count <= 0 || count > codegen.MaxKernels {
		return fmt.Errorf("invalid --kernels value %d (expected 1..%d)", count, codegen.MaxKernels)
	}
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}
	uiModeValue, err := readUIMode(uiValue)
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

	alloc := codegen.NewAllocator()
	reqs := make([]*pipeline.Request, 0, count)
	for i := 0; i < count; i++ {
		gen, err := codegen.New(alloc, env.genOpts)
		if err != nil {
			return err
		}
		emitScaleKernel(gen, float64(i+1))
		reqs = append(reqs, &pipeline.Request{
			Generator: gen,
			Compiler:  env.tools,
			Manifest:  env.manifest,
		})
	}

	var results []pipeline.Result
	if shouldUseTUI(uiModeValue) && !quiet {
		results, err = runCompileAllWithUI(ctx, "taichi bench", reqs, jobs)
	} else {
		results, err = pipeline.CompileAll(ctx, reqs, jobs)
	}
	if err != nil {
		return err
	}

	if !quiet {
		fmt.Fprintf(os.Stdout, "compiled and loaded %d kernels (%d jobs)\n", len(results), jobs)
	}
	if showTimings {
		for i, res := range results {
			fmt.Fprintf(os.Stdout, "%s:\n", reqs[i].Generator.FuncName())
			printStageTimings(os.Stdout, res.Timings)
		}
	}
	return nil
}

func init() {
	benchCmd.Flags().Int("kernels", 8, "number of kernels to generate")
	benchCmd.Flags().Int("jobs", 0, "max concurrent compilations (0 = NumCPU)")
	benchCmd.Flags().String("cache", "", "override the cache directory")
	benchCmd.Flags().Bool("print-commands", false, "print external tool invocations")
	benchCmd.Flags().String("ui", "auto", "progress user interface (auto|on|off)")
}
