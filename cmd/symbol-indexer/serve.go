package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/DeusData/symbol-indexer/internal/metrics"
	"github.com/DeusData/symbol-indexer/internal/tools"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the index to MCP clients over stdio",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		s, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if cfg.MetricsAddr != "" {
			go func() {
				if err := metrics.Serve(ctx, cfg.MetricsAddr); err != nil {
					logMetricsErr(err)
				}
			}()
		}

		srv := tools.NewServer(s, tools.Options{
			BuildID: cfg.Build,
			Version: version,
			Index:   pipelineOptions(cfg),
		})
		return srv.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
