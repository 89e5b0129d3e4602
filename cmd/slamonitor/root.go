package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/spec-kit/ticket-sla-service/internal/config"
)

type runtimeState struct {
	cfg    *config.Config
	writer io.Writer
}

// NewRootCommand assembles the slamonitor CLI.
func NewRootCommand(out io.Writer) *cobra.Command {
	rt := &runtimeState{writer: out}

	root := &cobra.Command{
		Use:           "slamonitor",
		Short:         "Ticket SLA deadline monitor",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if rt.writer == nil {
				rt.writer = os.Stdout
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			rt.cfg = cfg
			return nil
		},
	}

	root.AddCommand(
		newServeCommand(rt),
		newRunCommand(rt),
		newMigrateCommand(rt),
		newTokenCommand(rt),
	)
	return root
}
