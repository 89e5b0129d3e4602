package handlers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-sla-service/internal/api/dto"
	"github.com/spec-kit/ticket-sla-service/internal/domain"
	"github.com/spec-kit/ticket-sla-service/internal/repository"
	"github.com/spec-kit/ticket-sla-service/internal/service"
	apperrors "github.com/spec-kit/ticket-sla-service/pkg/util"
)

// Runner performs one SLA pass.
type Runner interface {
	Run(ctx context.Context, opts service.RunOptions) (domain.RunSummary, error)
}

// SLAHandler exposes manual runs and the last run summary.
type SLAHandler struct {
	runner  Runner
	history repository.RunSummaryStore
}

// NewSLAHandler creates the handler. history may be nil when Redis is disabled.
func NewSLAHandler(runner Runner, history repository.RunSummaryStore) *SLAHandler {
	return &SLAHandler{runner: runner, history: history}
}

// TriggerRun executes a run synchronously and returns its summary.
func (h *SLAHandler) TriggerRun(c *fiber.Ctx) error {
	var req dto.TriggerRunRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid request body", nil)
		}
	}

	opts := service.RunOptions{}
	if now := strings.TrimSpace(req.Now); now != "" {
		parsed, err := time.Parse(time.RFC3339, now)
		if err != nil {
			return apperrors.NewValidationError("now must be an RFC3339 timestamp", map[string]any{"now": req.Now})
		}
		opts.Now = parsed
	}

	summary, err := h.runner.Run(c.UserContext(), opts)
	if err != nil {
		if errors.Is(err, service.ErrRunInProgress) {
			return apperrors.NewConflict("an sla run is already in progress", nil)
		}
		details := map[string]any{"run": dto.NewRunSummaryResponse(summary)}
		if errors.Is(err, context.DeadlineExceeded) && !service.IsLoadFailure(err) {
			timeout := apperrors.ToDomainError(err)
			timeout.Details = details
			return timeout
		}
		return apperrors.NewServiceUnavailable("sla run failed", err, details)
	}
	return c.JSON(dto.NewRunSummaryResponse(summary))
}

// LastRun returns the most recently stored summary.
func (h *SLAHandler) LastRun(c *fiber.Ctx) error {
	if h.history == nil {
		return apperrors.NewNotFound("run history", map[string]any{"reason": "redis not configured"})
	}
	summary, err := h.history.Last(c.UserContext())
	if err != nil {
		if errors.Is(err, repository.ErrNoRunRecorded) {
			return apperrors.NewNotFound("sla run", nil)
		}
		return apperrors.NewServiceUnavailable("run history unavailable", err, nil)
	}
	return c.JSON(dto.NewRunSummaryResponse(*summary))
}
