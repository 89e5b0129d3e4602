package notify

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleMessage() TimerMessage {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return TimerMessage{
		TicketID:      "t-1",
		TicketNumber:  1042,
		Title:         "Printer on fire",
		Priority:      "High",
		Timer:         "first response",
		RecipientName: "Dana",
		Deadline:      now.Add(40 * time.Minute),
		Now:           now,
		Remaining:     40*time.Minute + 10*time.Second,
		TicketURL:     "https://support.example.com/tickets/1042",
	}
}

func TestRenderWarning(t *testing.T) {
	body, err := RenderWarning(sampleMessage())
	require.NoError(t, err)

	assert.Contains(t, body, "Hello Dana")
	assert.Contains(t, body, `Ticket #1042 "Printer on fire" is approaching its first response deadline`)
	assert.Contains(t, body, "Remaining: 40 minutes")
	assert.Contains(t, body, "Sat, 01 Mar 2025 12:40:00 UTC")
	assert.Contains(t, body, "from now")
	assert.Contains(t, body, "https://support.example.com/tickets/1042")
}

func TestRenderBreachAndEscalation(t *testing.T) {
	msg := sampleMessage()
	msg.Deadline = msg.Now.Add(-time.Hour)
	msg.Remaining = 0
	msg.Overdue = time.Hour
	msg.TicketURL = ""
	msg.RecipientName = ""

	body, err := RenderBreach(msg)
	require.NoError(t, err)
	assert.Contains(t, body, "Hello there")
	assert.Contains(t, body, "has missed its first response deadline")
	assert.Contains(t, body, "Overdue:   1 hour")
	assert.Contains(t, body, "ago")
	assert.NotContains(t, body, "Open the ticket")
	assert.NotContains(t, body, "notified")

	body, err = RenderEscalation(msg)
	require.NoError(t, err)
	assert.Contains(t, body, "SLA escalation for ticket #1042")
	assert.Contains(t, body, "Owner:     unassigned")
}

func TestRenderTruncatesLongTitles(t *testing.T) {
	msg := sampleMessage()
	msg.Title = strings.Repeat("x", 300)
	body, err := RenderWarning(msg)
	require.NoError(t, err)
	assert.NotContains(t, body, strings.Repeat("x", 121))
}

func TestSubjects(t *testing.T) {
	assert.Equal(t, "SLA Warning: Ticket #7 approaching resolution deadline", WarningSubject(7, "resolution"))
	assert.Equal(t, "SLA Breach: Ticket #7 missed resolution deadline", BreachSubject(7, "resolution"))
	assert.Equal(t, "SLA Escalation: Ticket #7 breached resolution SLA", EscalationSubject(7, "resolution"))
}

func TestFormatMinutes(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{in: 0, want: "0 minutes"},
		{in: time.Minute, want: "1 minute"},
		{in: 40*time.Minute + 29*time.Second, want: "40 minutes"},
		{in: 59*time.Minute + 31*time.Second, want: "1 hour"},
		{in: 65 * time.Minute, want: "1 hour 5 minutes"},
		{in: 26*time.Hour + time.Minute, want: "26 hours 1 minute"},
		{in: -30 * time.Minute, want: "30 minutes"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatMinutes(tt.in), "input %s", tt.in)
	}
}

func TestTicketURL(t *testing.T) {
	assert.Empty(t, TicketURL("", "id", 1))
	assert.Equal(t, "https://x/t/abc?n=12", TicketURL("https://x/t/{id}?n={number}", "abc", 12))
}
