// Package main implements the mend CLI tool.
package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		var exitErr interface{ ExitCode() int }
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.ExitCode())
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "mend",
	Short: "Mapmend - coordinate map fix tasks across contributors and reviewers",
}

var (
	flagUserID int64
	flagSuper  bool
)

func init() {
	rootCmd.PersistentFlags().Int64Var(&flagUserID, "user", 0, "acting user id")
	rootCmd.PersistentFlags().BoolVar(&flagSuper, "super", false, "act with super-user access")
	rootCmd.SilenceUsage = true
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(lockCmd)
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(bundleCmd)
	rootCmd.AddCommand(challengeCmd)
}
