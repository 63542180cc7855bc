// Package config loads the optional taichi.toml workspace configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// ManifestName is the workspace configuration file name.
const ManifestName = "taichi.toml"

// ToolchainConfig configures the external native tools.
type ToolchainConfig struct {
	CC           string   `toml:"cc"`
	CFlags       []string `toml:"cflags"`
	Formatter    string   `toml:"formatter"`
	Disassembler string   `toml:"disassembler"`
}

// CacheConfig configures the generated-artifact cache.
type CacheConfig struct {
	Dir             string `toml:"dir"`
	KeepUnformatted bool   `toml:"keep_unformatted"`
}

// Config is the parsed taichi.toml.
type Config struct {
	Toolchain ToolchainConfig `toml:"toolchain"`
	Cache     CacheConfig     `toml:"cache"`
}

// Default returns the configuration used when no taichi.toml exists.
func Default() Config {
	return Config{
		Toolchain: ToolchainConfig{
			CC:           "clang",
			CFlags:       []string{"-O2"},
			Formatter:    "clang-format",
			Disassembler: "objdump",
		},
		Cache: CacheConfig{
			Dir:             "_tlang_cache",
			KeepUnformatted: true,
		},
	}
}

// Load parses the manifest at path. Absent keys keep their defaults.
func Load(path string) (Config, error) {
	// Decode over the defaults: TOML only assigns keys the file defines.
	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault loads dir/taichi.toml if present, or the defaults otherwise.
// The boolean reports whether a manifest was found.
func LoadOrDefault(dir string) (Config, bool, error) {
	path := filepath.Join(dir, ManifestName)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), false, nil
		}
		return Config{}, false, err
	}
	cfg, err := Load(path)
	if err != nil {
		return Config{}, true, err
	}
	return cfg, true, nil
}
