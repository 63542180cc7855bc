package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadOrDefaultWithoutManifest(t *testing.T) {
	cfg, found, err := LoadOrDefault(t.TempDir())
	if err != nil {
		t.Fatalf("LoadOrDefault: %v", err)
	}
	if found {
		t.Fatalf("manifest reported found in empty dir")
	}
	if cfg.Toolchain.CC != "clang" {
		t.Fatalf("default cc %q", cfg.Toolchain.CC)
	}
	if cfg.Cache.Dir != "_tlang_cache" {
		t.Fatalf("default cache dir %q", cfg.Cache.Dir)
	}
	if !cfg.Cache.KeepUnformatted {
		t.Fatalf("keep_unformatted must default to true")
	}
}

func TestLoadOverrides(t *testing.T) {
	dir := t.TempDir()
	manifest := `
[toolchain]
cc = "gcc"
cflags = ["-O3", "-march=native"]

[cache]
dir = "out/kernels"
keep_unformatted = false
`
	if err := os.WriteFile(filepath.Join(dir, ManifestName), []byte(manifest), 0o600); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	cfg, found, err := LoadOrDefault(dir)
	if err != nil {
		t.Fatalf("LoadOrDefault: %v", err)
	}
	if !found {
		t.Fatalf("manifest not found")
	}
	if cfg.Toolchain.CC != "gcc" {
		t.Fatalf("cc %q", cfg.Toolchain.CC)
	}
	if len(cfg.Toolchain.CFlags) != 2 || cfg.Toolchain.CFlags[0] != "-O3" {
		t.Fatalf("cflags %v", cfg.Toolchain.CFlags)
	}
	if cfg.Cache.Dir != "out/kernels" {
		t.Fatalf("cache dir %q", cfg.Cache.Dir)
	}
	if cfg.Cache.KeepUnformatted {
		t.Fatalf("keep_unformatted override lost")
	}
	// Keys the file does not define keep their defaults.
	if cfg.Toolchain.Formatter != "clang-format" {
		t.Fatalf("formatter default lost: %q", cfg.Toolchain.Formatter)
	}
}

func TestLoadRejectsBadTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ManifestName)
	if err := os.WriteFile(path, []byte("[toolchain\ncc="), 0o600); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	if _, _, err := LoadOrDefault(dir); err == nil {
		t.Fatalf("bad TOML must fail")
	}
}
