package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// These variables are set via ldflags during build
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

func newVersionCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long: `Display version information for version-check.

This shows the version number, git commit SHA, and build date.
The version is set at build time via git tags.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(stdout, "version-check version %s\n", Version)
			if Commit != "" && Commit != "unknown" {
				fmt.Fprintf(stdout, "commit: %s\n", Commit)
			}
			if BuildDate != "" && BuildDate != "unknown" {
				fmt.Fprintf(stdout, "built at: %s\n", BuildDate)
			}
			return nil
		},
	}
}
