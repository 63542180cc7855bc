package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/weiplanet/taichi/internal/cache"
	"github.com/weiplanet/taichi/internal/config"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove cached kernel sources, libraries and the manifest",
	RunE:  cleanExecution,
}

func cleanExecution(cmd *cobra.Command, args []string) error {
	cacheDir, err := cmd.Flags().GetString("cache")
	if err != nil {
		return err
	}
	quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")
	if err != nil {
		return err
	}

	if cacheDir == "" {
		cfg, _, err := config.LoadOrDefault(".")
		if err != nil {
			return err
		}
		cacheDir = cfg.Cache.Dir
	}
	if err := cache.Clean(cacheDir); err != nil {
		return err
	}
	if !quiet {
		fmt.Fprintf(os.Stdout, "cleaned %s\n", cacheDir)
	}
	return nil
}

func init() {
	cleanCmd.Flags().String("cache", "", "override the cache directory")
}
