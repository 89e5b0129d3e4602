package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/ticket-sla-service/internal/domain"
)

const lastRunKey = "sla:monitor:last-run"

// ErrNoRunRecorded is returned when no summary has been stored yet.
var ErrNoRunRecorded = errors.New("no sla run recorded")

// RunSummaryStore keeps the most recent run summary for operators.
type RunSummaryStore interface {
	Save(ctx context.Context, summary domain.RunSummary) error
	Last(ctx context.Context) (*domain.RunSummary, error)
}

type redisRunSummaryStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRunSummaryStore stores summaries in Redis, expiring after ttl (0 keeps them).
func NewRunSummaryStore(client *redis.Client, ttl time.Duration) RunSummaryStore {
	return &redisRunSummaryStore{client: client, ttl: ttl}
}

func (s *redisRunSummaryStore) Save(ctx context.Context, summary domain.RunSummary) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, lastRunKey, payload, s.ttl).Err()
}

func (s *redisRunSummaryStore) Last(ctx context.Context) (*domain.RunSummary, error) {
	payload, err := s.client.Get(ctx, lastRunKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoRunRecorded
	}
	if err != nil {
		return nil, err
	}
	var summary domain.RunSummary
	if err := json.Unmarshal(payload, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}
