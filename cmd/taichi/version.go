package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/weiplanet/taichi/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(os.Stdout, "taichi %s\n", version.Version)
		if version.GitCommit != "" {
			fmt.Fprintf(os.Stdout, "commit: %s\n", version.GitCommit)
		}
		if version.BuildDate != "" {
			fmt.Fprintf(os.Stdout, "built:  %s\n", version.BuildDate)
		}
	},
}
