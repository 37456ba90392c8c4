package main

import (
	"github.com/spf13/cobra"

	"github.com/brainscore/brainscore/internal/app"
	"github.com/brainscore/brainscore/internal/logging"
	"github.com/brainscore/brainscore/internal/server"
)

func newServeCmd(opts *globalOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the benchmark API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.HTTP.Addr = addr
			}

			ctx, stop := server.SignalContext(cmd.Context())
			defer stop()

			logger := logging.New(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
			a, err := app.New(ctx, cfg, logger)
			if err != nil {
				return err
			}
			return a.Serve(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8090)")
	return cmd
}
