package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestDispatcherDeliversToAllHandlers(t *testing.T) {
	d := NewInMemoryDispatcher(zaptest.NewLogger(t))

	var got []string
	d.Subscribe(EventSLABreach, func(_ context.Context, e Event) error {
		got = append(got, "first:"+e.TicketID)
		return errors.New("first handler fails")
	})
	d.Subscribe(EventSLABreach, func(_ context.Context, e Event) error {
		got = append(got, "second:"+e.TicketID)
		assert.NotEmpty(t, e.ID)
		return nil
	})
	d.Subscribe(EventSLAWarning, func(_ context.Context, e Event) error {
		got = append(got, "warning")
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), Event{Type: EventSLABreach, TicketID: "t1"}))
	assert.Equal(t, []string{"first:t1", "second:t1"}, got)
}

func TestDispatcherWithoutListeners(t *testing.T) {
	d := NewInMemoryDispatcher(nil)
	assert.NoError(t, d.Publish(context.Background(), Event{Type: EventSLARunCompleted}))
}
