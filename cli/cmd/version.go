package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fluxbase-eu/broadcaster/cli/output"
)

type versionInfo struct {
	Version   string `json:"version" yaml:"version"`
	Commit    string `json:"commit" yaml:"commit"`
	BuildDate string `json:"build_date" yaml:"build_date"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show CLI version information",
	Long:  `Display the version, commit hash, and build date of the broadcaster CLI.`,
	// No broker or config needed
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE:              runVersion,
}

func runVersion(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(outputFmt)
	if err != nil {
		return err
	}
	f := output.NewFormatter(format, noHeaders, quiet)
	f.Writer = cmd.OutOrStdout()

	if format != output.FormatTable {
		return f.Print(versionInfo{Version: Version, Commit: Commit, BuildDate: BuildDate})
	}

	_, _ = fmt.Fprintf(f.Writer, "broadcaster CLI %s\n", Version)
	_, _ = fmt.Fprintf(f.Writer, "Commit: %s\n", Commit)
	_, _ = fmt.Fprintf(f.Writer, "Build Date: %s\n", BuildDate)
	return nil
}
