package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"rrcal/internal/ics"
	appLog "rrcal/internal/log"
	"rrcal/internal/web"
)

func newServeCmd() *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve merged occurrences over HTTP, refreshing sources on a cron schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			// CLI --listen overrides config file listen if provided.
			if listen != "" {
				cfg.Listen = listen
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			appLog.Info("effective config",
				"listen", cfg.Listen,
				"timezone", cfg.Timezone,
				"refresh", cfg.RefreshCron,
				"horizon_days", cfg.HorizonDays,
				"backfill_days", cfg.BackfillDays,
				"source_count", len(cfg.Sources),
			)

			// Root context with cancellation on SIGINT/SIGTERM.
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := web.NewServer(cfg)
			fetcher := ics.NewFetcher(cfg.CacheDir)
			sources := ics.SourcesFromConfig(cfg.Sources)
			refresh := func() {
				cals, err := fetcher.LoadAll(ctx, sources)
				if err != nil {
					appLog.Warn("refresh finished with errors", "err", err)
				}
				srv.SetCalendars(cals, err)
			}
			refresh()

			c := cron.New()
			if _, err := c.AddFunc(cfg.RefreshCron, refresh); err != nil {
				appLog.Error("invalid refresh schedule", err, "refresh", cfg.RefreshCron)
				return err
			}
			c.Start()
			defer func() {
				<-c.Stop().Done()
			}()

			err = srv.Run(ctx)
			appLog.Info("rrcal exiting")
			return err
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (overrides config if set)")
	return cmd
}

func init() {
	rootCmd.AddCommand(newServeCmd())
}
