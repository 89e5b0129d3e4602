package main

import (
	"context"
	"os/signal"
	"sync"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/ticket-sla-service/internal/api/http"
	"github.com/spec-kit/ticket-sla-service/internal/api/http/handlers"
	"github.com/spec-kit/ticket-sla-service/internal/auth"
	"github.com/spec-kit/ticket-sla-service/internal/worker"
)

func newServeCommand(rt *runtimeState) *cobra.Command {
	var noWorker bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the periodic SLA worker",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app, err := newApplication(ctx, rt.cfg)
			if err != nil {
				return err
			}
			defer app.Close()
			cfg := app.cfg
			logger := app.logger

			var redisPinger handlers.Pinger
			if app.redis != nil {
				redisPinger = app.redis
			}
			tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)

			server := fiber.New(fiber.Config{AppName: cfg.App.Name, DisableStartupMessage: true})
			httptransport.RegisterMiddlewares(server, logger, app.metrics, cfg.App.RequestTimeout())
			httptransport.RegisterRoutes(server, httptransport.RouteConfig{
				Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, app.postgres, redisPinger),
				SLA:            handlers.NewSLAHandler(app.monitor, app.history),
				AuthMiddleware: auth.NewAuthMiddleware(tokens, app.staffRepo),
				Metrics:        app.metrics,
			})

			var wg sync.WaitGroup
			if !noWorker {
				w := worker.NewSLAWorker(app.monitor, cfg.SLA.RunInterval(), cfg.SLA.RunTimeout(), logger)
				wg.Add(1)
				go func() {
					defer wg.Done()
					w.Start(ctx)
				}()
			}

			listenErr := make(chan error, 1)
			go func() {
				logger.Info("http server listening", zap.String("addr", cfg.App.Addr()))
				listenErr <- server.Listen(cfg.App.Addr())
			}()

			select {
			case <-ctx.Done():
				logger.Info("shutting down")
			case err = <-listenErr:
				logger.Error("fiber listen", zap.Error(err))
				stop()
			}

			if shutdownErr := server.ShutdownWithContext(context.WithoutCancel(ctx)); shutdownErr != nil {
				logger.Warn("http shutdown", zap.Error(shutdownErr))
			}
			wg.Wait()
			return err
		},
	}
	cmd.Flags().BoolVar(&noWorker, "no-worker", false, "Serve the API without the periodic SLA worker")
	return cmd
}
