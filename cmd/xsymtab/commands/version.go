package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Set by -ldflags "-X".
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

func versionLine() string {
	return fmt.Sprintf("xsymtab %s (commit: %s, built: %s)", Version, Commit, Date)
}

type buildBanner struct{}

func (buildBanner) PlainText() string {
	return versionLine()
}

func (buildBanner) JSON() string {
	data, err := inputJSON.Marshal(map[string]string{
		"app":     "xsymtab",
		"version": Version,
		"commit":  Commit,
		"built":   Date,
	})
	if err != nil {
		return "{}"
	}
	return string(data)
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			printf(cmd.OutOrStdout(), "%s\n", versionLine())
		},
	}
}
