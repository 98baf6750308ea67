package cmd

import (
	"github.com/spf13/cobra"

	"github.com/rustyeddy/strategylab/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the results API",
	Long: `Serve persisted results, the params cache, the run journal and
Prometheus metrics over HTTP until interrupted.

Example:
  strategylab serve --addr :8080`,
	RunE: runServe,
}

var serveAddr string

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address; overrides server.addr")
}

func runServe(cmd *cobra.Command, args []string) error {
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	a, err := openApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	var runs api.RunStore
	if a.journal != nil {
		runs = a.journal
	}
	srv := api.New(a.runner, runs, cfg.Server.AllowedOrigins)
	return srv.ListenAndServe(cmd.Context(), cfg.Server.Addr)
}
