package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublishContinuesAfterHandlerError(t *testing.T) {
	d := NewInMemoryDispatcher(nil)
	var calls []string
	d.Subscribe(EventMemberWarned, func(ctx context.Context, e Event) error {
		calls = append(calls, "first")
		return errors.New("boom")
	})
	d.Subscribe(EventMemberWarned, func(ctx context.Context, e Event) error {
		calls = append(calls, "second")
		return nil
	})

	err := d.Publish(context.Background(), New(EventMemberWarned, "mod", "u1", "warned", nil))
	assert.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestSubscribeAllReceivesEveryDomain(t *testing.T) {
	d := NewInMemoryDispatcher(nil)
	seen := map[LogDomain]int{}
	SubscribeAll(d, func(ctx context.Context, e Event) error {
		seen[e.Domain]++
		return nil
	})

	for _, et := range AllEventTypes() {
		_ = d.Publish(context.Background(), New(et, SystemActor, "", "", nil))
	}
	assert.Len(t, seen, 6)
	assert.Equal(t, 7, seen[DomainModeration])
}

func TestNewAssignsIDAndDomain(t *testing.T) {
	a := New(EventTicketCreated, "u1", "chan", "opened", map[string]any{"number": 1})
	b := New(EventTicketCreated, "u1", "chan", "opened", nil)

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, DomainTickets, a.Domain)
	assert.False(t, a.Timestamp.IsZero())
}
