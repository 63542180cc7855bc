// Package toolchain invokes the external native tools the codegen backend
// depends on: the compiler that turns generated source into a shared library
// (correctness-critical, failures surface), and the formatter and
// disassembler (cosmetic, failures are observed and discarded by callers).
package toolchain

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Toolchain holds the external tool configuration.
type Toolchain struct {
	CC            string   // native compiler command
	CFlags        []string // extra compiler flags
	Formatter     string   // in-place source formatter, "" disables
	Disassembler  string   // disassembler command, "" disables
	PrintCommands bool     // echo invocations to stdout
}

// Default returns the stock clang-based toolchain.
func Default() *Toolchain {
	return &Toolchain{
		CC:           "clang",
		CFlags:       []string{"-O2"},
		Formatter:    "clang-format",
		Disassembler: "objdump",
	}
}

// CheckCompiler verifies the configured compiler is on PATH before any
// kernel pipeline starts.
func (t *Toolchain) CheckCompiler() error {
	if _, err := exec.LookPath(t.CC); err != nil {
		return fmt.Errorf("%s not found; install a C toolchain (e.g. clang)", t.CC)
	}
	return nil
}

// CompileArgs returns the argument vector used to compile sourcePath into a
// shared library at libraryPath. Split out for testability.
func (t *Toolchain) CompileArgs(sourcePath, libraryPath string) []string {
	args := make([]string, 0, len(t.CFlags)+6)
	args = append(args, "-shared", "-fPIC")
	args = append(args, t.CFlags...)
	args = append(args, sourcePath, "-o", libraryPath)
	return args
}

// Compile turns the generated source into a shared library. No retry: a
// failed compile leaves whatever artifact exists on disk for the next
// attempt to overwrite.
func (t *Toolchain) Compile(ctx context.Context, sourcePath, libraryPath string) error {
	return t.run(ctx, t.CC, t.CompileArgs(sourcePath, libraryPath)...)
}

// Format reformats the source file in place. Callers treat failures as
// best-effort: unformattable generated code still compiles.
func (t *Toolchain) Format(path string) error {
	if t.Formatter == "" {
		return nil
	}
	return t.run(context.Background(), t.Formatter, "-i", path)
}

// Disassemble writes a textual disassembly of libraryPath to outPath.
func (t *Toolchain) Disassemble(libraryPath, outPath string) error {
	if t.Disassembler == "" {
		return nil
	}
	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	cmd := exec.Command(t.Disassembler, "-d", libraryPath) // #nosec G204 -- tool comes from trusted config
	cmd.Stdout = out
	var stderr strings.Builder
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return commandError(t.Disassembler, stderr.String(), err)
	}
	return nil
}

func (t *Toolchain) run(ctx context.Context, name string, args ...string) error {
	if t.PrintCommands {
		fmt.Fprintf(os.Stdout, "%s %s\n", name, strings.Join(args, " "))
	}
	cmd := exec.CommandContext(ctx, name, args...) // #nosec G204 -- tool comes from trusted config
	cmd.Stdout = os.Stdout
	var stderr strings.Builder
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return commandError(name, stderr.String(), err)
	}
	return nil
}

func commandError(name, stderr string, err error) error {
	msg := strings.TrimSpace(stderr)
	if msg == "" {
		return fmt.Errorf("%s: %w", name, err)
	}
	return fmt.Errorf("%s: %s", name, msg)
}
