package commands

import (
	"github.com/spf13/cobra"
)

// NewRootCommand builds the xsymtab command tree. The config and the
// logger are opened before a sub command runs and closed after it.
func NewRootCommand() *cobra.Command {
	a := newApp()
	rootCmd := &cobra.Command{
		Use:   "xsymtab",
		Short: "Ordered symbol tables backed by a left-leaning red-black tree",
		Long: `xsymtab keeps named ordered tables as snapshots in a file, redis or
sql store.

Commands:
  load      Load JSON or YAML files into a table
  query     Run an ordered query against a table
  range     Print a key range of a table
  replay    Apply a mutation script to a table
  version   Show version information`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return a.init(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.close()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "config file (default is ./.xsymtab.yaml or ~/.xsymtab.yaml)")
	flags.String("log-level", "INFO", "log level: DEBUG, INFO, WARN or ERROR")
	flags.String("store", StoreFile, "snapshot store backend: file, redis or sql")
	flags.String("dir", "./snapshots", "snapshot directory of the file store")
	flags.Bool("compress", true, "compress the snapshots by lz4")

	rootCmd.AddCommand(
		newLoadCommand(a),
		newQueryCommand(a),
		newRangeCommand(a),
		newReplayCommand(a),
		newVersionCommand(),
	)
	return rootCmd
}
