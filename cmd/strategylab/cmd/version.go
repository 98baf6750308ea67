package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "0.3.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  `Display the current version of the strategylab CLI.`,
	Run: func(cmd *cobra.Command, args []string) {
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "strategylab version %s\n", version)
		fmt.Fprintln(w, "A backtesting workbench for bar-based trading strategies")
		fmt.Fprintln(w, "https://github.com/rustyeddy/strategylab")
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
