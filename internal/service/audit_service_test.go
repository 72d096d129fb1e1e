package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/modbot/internal/config"
	"github.com/spec-kit/modbot/internal/domain"
	"github.com/spec-kit/modbot/internal/events"
)

type memoryAudit struct {
	records []domain.AuditRecord
	fail    error
}

func (m *memoryAudit) Insert(_ context.Context, rec *domain.AuditRecord) error {
	if m.fail != nil {
		return m.fail
	}
	m.records = append(m.records, *rec)
	return nil
}

func (m *memoryAudit) List(_ context.Context, targetID string, limit int) ([]domain.AuditRecord, error) {
	var out []domain.AuditRecord
	for i := len(m.records) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if targetID == "" || m.records[i].TargetID == targetID {
			out = append(out, m.records[i])
		}
	}
	return out, nil
}

func TestAuditRoutesEventsToDomainChannels(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	records := &memoryAudit{}
	audit := NewAuditService(h.dispatcher, h.client, records, config.ChannelsConfig{ModLogs: "mod-logs", TicketLogs: "ticket-logs"}, nil)
	audit.RegisterHandlers()

	svc := h.moderation(defaultPunishments())
	_, err := svc.Warn(ctx, h.member("mod1"), "user1", "rude")
	require.NoError(t, err)

	logs := h.client.Messages("mod-logs")
	require.Len(t, logs, 1)
	assert.Contains(t, logs[0].Message.Content, "[member_warned] Case #1")

	require.NoError(t, h.dispatcher.Publish(ctx, events.New(events.EventMemberJoined, "user2", "user2", "joined", nil)))
	assert.Len(t, h.client.Sent, 1, "join events have no channel configured")

	recent, err := audit.Recent(ctx, "user1", 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, string(events.EventMemberWarned), recent[0].Type)
	assert.Equal(t, string(events.DomainModeration), recent[0].Domain)
}

func TestAuditFailuresNeverReachPublisher(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.client.Fail["SendMessage"] = errors.New("down")
	audit := NewAuditService(h.dispatcher, h.client, &memoryAudit{fail: errors.New("db down")}, config.ChannelsConfig{ModLogs: "mod-logs"}, nil)
	audit.RegisterHandlers()

	svc := h.moderation(defaultPunishments())
	_, err := svc.Warn(ctx, h.member("mod1"), "user1", "rude")
	require.NoError(t, err)
}

func TestAuditWithoutStore(t *testing.T) {
	audit := NewAuditService(nil, nil, nil, config.ChannelsConfig{}, nil)
	audit.RegisterHandlers()
	recent, err := audit.Recent(context.Background(), "", 10)
	require.NoError(t, err)
	assert.Empty(t, recent)
}
