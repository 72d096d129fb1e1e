package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/modbot/internal/config"
	"github.com/spec-kit/modbot/internal/domain"
	"github.com/spec-kit/modbot/internal/events"
	"github.com/spec-kit/modbot/internal/platform"
	"github.com/spec-kit/modbot/internal/repository"
)

// AuditService records every domain event to the log, the matching log
// channel and, when configured, the audit table.
type AuditService struct {
	dispatcher events.Dispatcher
	client     platform.Client
	records    repository.AuditRepository
	channels   map[events.LogDomain]string
	logger     *zap.Logger
}

// NewAuditService creates the service. records may be nil.
func NewAuditService(dispatcher events.Dispatcher, client platform.Client, records repository.AuditRepository, channels config.ChannelsConfig, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{
		dispatcher: dispatcher,
		client:     client,
		records:    records,
		channels: map[events.LogDomain]string{
			events.DomainModeration: channels.ModLogs,
			events.DomainAutoMod:    channels.AutoModLogs,
			events.DomainTickets:    channels.TicketLogs,
			events.DomainSuggestion: channels.SuggestionLogs,
			events.DomainServer:     channels.ServerLogs,
			events.DomainJoinLeave:  channels.JoinLeave,
		},
		logger: logger.Named("audit"),
	}
}

// RegisterHandlers subscribes to every event type.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	events.SubscribeAll(a.dispatcher, a.handle)
}

// Recent returns stored audit records, newest first.
func (a *AuditService) Recent(ctx context.Context, targetID string, limit int) ([]domain.AuditRecord, error) {
	if a.records == nil {
		return []domain.AuditRecord{}, nil
	}
	return a.records.List(ctx, targetID, limit)
}

func (a *AuditService) handle(ctx context.Context, event events.Event) error {
	a.logger.Info(string(event.Type),
		zap.String("event_id", event.ID),
		zap.String("domain", string(event.Domain)),
		zap.String("actor_id", event.ActorID),
		zap.String("target_id", event.TargetID),
		zap.String("summary", event.Summary))

	if channelID := a.channels[event.Domain]; channelID != "" && a.client != nil {
		line := fmt.Sprintf("[%s] %s", event.Type, event.Summary)
		if _, err := a.client.SendMessage(ctx, channelID, platform.OutgoingMessage{Content: line}); err != nil {
			a.logger.Warn("log channel post failed",
				zap.String("event_id", event.ID),
				zap.String("channel_id", channelID),
				zap.Error(err))
		}
	}

	if a.records != nil {
		rec := &domain.AuditRecord{
			ID:        event.ID,
			Type:      string(event.Type),
			Domain:    string(event.Domain),
			ActorID:   event.ActorID,
			TargetID:  event.TargetID,
			Summary:   event.Summary,
			Payload:   event.Payload,
			CreatedAt: event.Timestamp,
		}
		if err := a.records.Insert(ctx, rec); err != nil {
			return fmt.Errorf("insert audit record: %w", err)
		}
	}
	return nil
}
