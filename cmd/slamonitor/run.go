package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/spec-kit/ticket-sla-service/internal/api/dto"
	"github.com/spec-kit/ticket-sla-service/internal/service"
)

func newRunCommand(rt *runtimeState) *cobra.Command {
	var (
		nowFlag string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute a single SLA pass and print its summary",
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := runOptions(nowFlag)
			if err != nil {
				return err
			}
			if timeout == 0 {
				timeout = rt.cfg.SLA.RunTimeout()
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			app, err := newApplication(ctx, rt.cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			summary, runErr := app.monitor.Run(ctx, opts)
			enc := json.NewEncoder(rt.writer)
			enc.SetIndent("", "  ")
			if err := enc.Encode(dto.NewRunSummaryResponse(summary)); err != nil {
				return err
			}
			return runErr
		},
	}
	cmd.Flags().StringVar(&nowFlag, "now", "", "Evaluate as of this RFC3339 instant instead of the current time")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Abort the run after this long (default SLA_RUN_TIMEOUT_SECONDS)")
	return cmd
}

func runOptions(now string) (service.RunOptions, error) {
	if now == "" {
		return service.RunOptions{}, nil
	}
	parsed, err := time.Parse(time.RFC3339, now)
	if err != nil {
		return service.RunOptions{}, fmt.Errorf("invalid --now %q: %w", now, err)
	}
	return service.RunOptions{Now: parsed}, nil
}
