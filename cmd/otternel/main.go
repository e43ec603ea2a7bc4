package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version information (set by ldflags)
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "otternel",
	Short: "Game server log watcher",
	Long: `otternel watches a folder of game server logs and runs actions
(Discord notifications, player registry updates) when a new line
matches one of the configured triggers.

Each file is named after its server id (5.log is server 5).
Without a subcommand, otternel runs the watcher.`,
	SilenceUsage: true,
	RunE:         runWatch,
}

func init() {
	registerWatchFlags(rootCmd)

	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(triggersCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "otternel %s (commit: %s, built: %s)\n", version, commit, date)
	},
}
