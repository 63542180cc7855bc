package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/weiplanet/taichi/internal/cache"
	"github.com/weiplanet/taichi/internal/codegen"
	"github.com/weiplanet/taichi/internal/config"
	"github.com/weiplanet/taichi/internal/toolchain"
	"github.com/weiplanet/taichi/internal/trace"
)

// cliEnv bundles the configuration shared by pipeline-driving commands.
type cliEnv struct {
	cfg      config.Config
	tools    *toolchain.Toolchain
	manifest *cache.Manifest
	genOpts  codegen.Options
}

// setupEnv resolves taichi.toml (plus flag overrides) into a ready toolchain,
// manifest and generator options.
func setupEnv(cacheOverride string, printCommands bool) (*cliEnv, error) {
	cfg, _, err := config.LoadOrDefault(".")
	if err != nil {
		return nil, err
	}
	if cacheOverride != "" {
		cfg.Cache.Dir = cacheOverride
	}

	tools := &toolchain.Toolchain{
		CC:            cfg.Toolchain.CC,
		CFlags:        cfg.Toolchain.CFlags,
		Formatter:     cfg.Toolchain.Formatter,
		Disassembler:  cfg.Toolchain.Disassembler,
		PrintCommands: printCommands,
	}
	if err := tools.CheckCompiler(); err != nil {
		return nil, err
	}

	manifest, err := cache.OpenManifest(cfg.Cache.Dir)
	if err != nil {
		return nil, err
	}

	return &cliEnv{
		cfg:      cfg,
		tools:    tools,
		manifest: manifest,
		genOpts: codegen.Options{
			CacheDir:        cfg.Cache.Dir,
			Format:          tools.Format,
			Disassemble:     tools.Disassemble,
			KeepUnformatted: cfg.Cache.KeepUnformatted,
		},
	}, nil
}

// traceContext attaches a tracer to ctx when --trace is set. The returned
// closer flushes and closes the tracer.
func traceContext(cmd *cobra.Command) (context.Context, func(), error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	path, err := cmd.Root().PersistentFlags().GetString("trace")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get trace flag: %w", err)
	}
	if path == "" {
		return ctx, func() {}, nil
	}
	tr, err := trace.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return trace.WithTracer(ctx, tr), func() { _ = tr.Close() }, nil
}
