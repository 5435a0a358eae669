package main

import (
	"github.com/aretw0/concierge/internal/cli"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Serves the chat and resume API, thread administration, server-sent thread
diffs, the OpenAPI document and, when enabled, Prometheus metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("addr") {
			cfg.HTTP.Addr, _ = cmd.Flags().GetString("addr")
		}

		app, err := cli.NewApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer app.Close()

		ctx, stop := signalContext(cmd)
		defer stop()
		return cli.Serve(ctx, app)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", ":8080", "Address to listen on")
}
