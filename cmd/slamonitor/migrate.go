package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-sla-service/internal/observability"
	"github.com/spec-kit/ticket-sla-service/internal/persistence"
)

func newMigrateCommand(rt *runtimeState) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply SQL migrations to the ticket database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			logger, err := observability.NewLogger(rt.cfg.Logger, rt.cfg.App)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			pg, err := persistence.NewPostgres(ctx, rt.cfg.Postgres, logger)
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			defer pg.Close()

			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), rt.cfg.Postgres.MigrationsDir, logger); err != nil {
				return err
			}
			logger.Info("migrations applied", zap.String("dir", rt.cfg.Postgres.MigrationsDir))
			return nil
		},
	}
}
