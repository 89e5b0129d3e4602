package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/spec-kit/ticket-sla-service/internal/auth"
	"github.com/spec-kit/ticket-sla-service/internal/domain"
)

func newTokenCommand(rt *runtimeState) *cobra.Command {
	var (
		staffID   string
		serviceID string
		role      string
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the admin endpoints",
		RunE: func(_ *cobra.Command, _ []string) error {
			if (staffID == "") == (serviceID == "") {
				return fmt.Errorf("exactly one of --staff-id or --service is required")
			}
			tokens := auth.NewTokenManager(rt.cfg.Auth.JWTSecret, rt.cfg.Auth.AccessTokenTTLMinutes)

			subject, id := domain.SubjectTypeStaff, staffID
			staffRole := domain.StaffRole(strings.ToUpper(role))
			if serviceID != "" {
				subject, id = domain.SubjectTypeService, serviceID
				if staffRole == "" {
					return fmt.Errorf("--role is required for service tokens")
				}
			}

			token, expiresAt, err := tokens.GenerateToken(id, subject, staffRole)
			if err != nil {
				return err
			}
			fmt.Fprintln(rt.writer, token)
			fmt.Fprintf(rt.writer, "# expires %s\n", expiresAt.UTC().Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&staffID, "staff-id", "", "Staff member the token authenticates")
	cmd.Flags().StringVar(&serviceID, "service", "", "Service name for a non-staff caller")
	cmd.Flags().StringVar(&role, "role", "", "Role carried by a service token (ADMIN or TEAM_LEAD)")
	return cmd
}
