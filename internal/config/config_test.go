package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SLA_WARNING_FRACTION", "")
	t.Setenv("SLA_ESCALATION_ROLES", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("SLA_RUN_INTERVAL_SECONDS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultWarningFraction, cfg.SLA.WarningFraction)
	assert.Equal(t, []string{"TEAM_LEAD", "ADMIN"}, cfg.SLA.EscalationRoles)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, "ticket.sla.events", cfg.Kafka.Topic)
	assert.Equal(t, 5*time.Minute, cfg.SLA.RunInterval())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SLA_WARNING_FRACTION", "0.75")
	t.Setenv("SLA_ESCALATION_ROLES", "ADMIN, TEAM_LEAD ,")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("SLA_RUN_TIMEOUT_SECONDS", "0")
	t.Setenv("APP_PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 0.75, cfg.SLA.WarningFraction)
	assert.Equal(t, []string{"ADMIN", "TEAM_LEAD"}, cfg.SLA.EscalationRoles)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Zero(t, cfg.SLA.RunTimeout())
	assert.Equal(t, "0.0.0.0:9090", cfg.App.Addr())
}

func TestLoadRejectsWarningFractionOutOfRange(t *testing.T) {
	for _, v := range []string{"0", "1", "1.5", "-0.2", "abc"} {
		t.Run(v, func(t *testing.T) {
			t.Setenv("SLA_WARNING_FRACTION", v)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
