package commands

import (
	"github.com/spf13/cobra"

	"github.com/codesearch/codesearch/internal/cliopt"
	"github.com/codesearch/codesearch/internal/maintenance"
	"github.com/codesearch/codesearch/internal/server"
)

func NewServeCmd(g *cliopt.GlobalOptions) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the search HTTP API and run scheduled maintenance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			e, err := openEnv(ctx, cmd, g, true)
			if err != nil {
				return err
			}
			defer e.Close()

			if cmd.Flags().Changed("listen") {
				e.cfg.Server.Listen = listen
			}

			if e.cfg.Maintenance.Enabled {
				sched, err := maintenance.New(e.engine, maintenance.Config{
					OrphanCleanupCron: e.cfg.Maintenance.OrphanCleanupCron,
					OrphanGrace:       e.cfg.Maintenance.OrphanGrace.Duration,
					OptimizeCron:      e.cfg.Maintenance.OptimizeCron,
				}, e.logger)
				if err != nil {
					return err
				}
				sched.Start()
				defer func() {
					if err := sched.Stop(); err != nil {
						e.logger.Warn("stop maintenance", "error", err)
					}
				}()
			}

			srv := server.New(e.engine, server.Config{
				UserHeader:     e.cfg.Server.UserHeader,
				RequestTimeout: e.cfg.Server.RequestTimeout.Duration,
				ReadTimeout:    e.cfg.Server.ReadTimeout.Duration,
				WriteTimeout:   e.cfg.Server.WriteTimeout.Duration,
				RateLimit:      e.cfg.Server.RateLimit,
				RateBurst:      e.cfg.Server.RateBurst,
			}, e.logger)
			return srv.ListenAndServe(ctx, e.cfg.Server.Listen)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", ":8080", "listen address")
	return cmd
}
