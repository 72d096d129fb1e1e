package automod

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/modbot/internal/auth"
	"github.com/spec-kit/modbot/internal/config"
	"github.com/spec-kit/modbot/internal/domain"
	"github.com/spec-kit/modbot/internal/events"
	"github.com/spec-kit/modbot/internal/observability"
	"github.com/spec-kit/modbot/internal/platform"
	"github.com/spec-kit/modbot/internal/service"
)

// Sanctioner applies the automatic punishments a finding calls for.
type Sanctioner interface {
	AutoMute(ctx context.Context, targetID string, duration time.Duration, reason string) (*domain.ModerationCase, error)
	AutoWarn(ctx context.Context, targetID, reason string) (*service.WarnResult, error)
}

// Verdict describes how the chain handled a message.
type Verdict struct {
	Filter   string
	Reason   string
	Deleted  int
	Sanction *domain.ModerationCase
}

// Chain runs the enabled filters in order and enforces the first finding.
type Chain struct {
	filters    []Filter
	enabled    bool
	client     platform.Client
	perms      *auth.Permissions
	sanctions  Sanctioner
	dispatcher events.Dispatcher
	cleanup    service.DelayedRunner
	metrics    *observability.Metrics
	cfg        config.AutoModConfig
	logger     *zap.Logger
}

// ChainDependencies bundles collaborators for the filter chain.
type ChainDependencies struct {
	Client      platform.Client
	Permissions *auth.Permissions
	Sanctions   Sanctioner
	Dispatcher  events.Dispatcher
	Cleanup     service.DelayedRunner
	Metrics     *observability.Metrics
	Config      config.AutoModConfig
	Logger      *zap.Logger
}

// NewChain builds the chain in its fixed order: spam, invite, caps, banned words.
func NewChain(deps ChainDependencies) *Chain {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := deps.Config
	var filters []Filter
	if cfg.AntiSpam {
		filters = append(filters, NewSpamFilter(cfg.SpamTimeWindow, cfg.SpamMessageLimit))
	}
	if cfg.AntiInvite {
		filters = append(filters, InviteFilter{})
	}
	if cfg.AntiCaps {
		filters = append(filters, CapsFilter{Threshold: cfg.CapsThreshold, MinLength: cfg.CapsMinLength})
	}
	if cfg.BannedWordsEnabled && len(cfg.BannedWords) > 0 {
		filters = append(filters, NewBannedWordFilter(cfg.BannedWords))
	}
	return &Chain{
		filters:    filters,
		enabled:    cfg.Enabled,
		client:     deps.Client,
		perms:      deps.Permissions,
		sanctions:  deps.Sanctions,
		dispatcher: deps.Dispatcher,
		cleanup:    deps.Cleanup,
		metrics:    deps.Metrics,
		cfg:        cfg,
		logger:     logger.Named("automod"),
	}
}

// Filters lists the active filter names in evaluation order.
func (c *Chain) Filters() []string {
	names := make([]string, 0, len(c.filters))
	for _, f := range c.filters {
		names = append(names, f.Name())
	}
	return names
}

// Exempt reports whether msg bypasses every filter.
func (c *Chain) Exempt(msg domain.Message) bool {
	return !c.enabled || msg.AuthorBot || msg.GuildID == "" || c.perms.IsStaff(msg.Member)
}

// Process inspects msg and enforces the first finding. A nil verdict means the
// message passed.
func (c *Chain) Process(ctx context.Context, msg domain.Message) (*Verdict, error) {
	if c.Exempt(msg) {
		return nil, nil
	}
	for _, f := range c.filters {
		finding := f.Inspect(ctx, msg)
		if finding == nil {
			continue
		}
		return c.enforce(ctx, msg, finding)
	}
	return nil, nil
}

func (c *Chain) enforce(ctx context.Context, msg domain.Message, finding *Finding) (*Verdict, error) {
	verdict := &Verdict{Filter: finding.Filter, Reason: finding.Reason}
	c.metrics.RecordFilterTrigger(finding.Filter)

	var errs []error
	deleted, err := c.remove(ctx, finding.Messages)
	verdict.Deleted = deleted
	if err != nil {
		errs = append(errs, err)
	}

	switch finding.Filter {
	case FilterSpam:
		verdict.Sanction, err = c.sanctions.AutoMute(ctx, msg.AuthorID, c.cfg.SpamMuteDuration, "Automatic mute - spam detected")
		if err != nil {
			errs = append(errs, fmt.Errorf("auto mute: %w", err))
		}
	case FilterBannedWord:
		var res *service.WarnResult
		res, err = c.sanctions.AutoWarn(ctx, msg.AuthorID, "Used inappropriate language")
		if err != nil {
			errs = append(errs, fmt.Errorf("auto warn: %w", err))
		} else {
			verdict.Sanction = res.Case
		}
	}

	c.notice(ctx, msg, finding.Filter)

	summary := fmt.Sprintf("%s filter removed %d message(s) from %s in %s",
		finding.Filter, deleted, domain.Mention(msg.AuthorID), domain.ChannelMention(msg.ChannelID))
	payload := map[string]any{
		"filter":     finding.Filter,
		"reason":     finding.Reason,
		"channel_id": msg.ChannelID,
		"deleted":    deleted,
	}
	if finding.Filter != FilterSpam {
		payload["content"] = truncate(msg.Content, 1000)
	}
	if verdict.Sanction != nil {
		payload["case_id"] = verdict.Sanction.ID
	}
	if c.dispatcher != nil {
		_ = c.dispatcher.Publish(ctx, events.New(events.EventFilterTriggered, events.SystemActor, msg.AuthorID, summary, payload))
	}

	c.logger.Info("filter triggered",
		zap.String("filter", finding.Filter),
		zap.String("author_id", msg.AuthorID),
		zap.String("channel_id", msg.ChannelID),
		zap.Int("deleted", deleted))
	return verdict, errors.Join(errs...)
}

// remove deletes the offending messages. Channels with more than one message
// are bulk-deleted.
func (c *Chain) remove(ctx context.Context, byChannel map[string][]string) (int, error) {
	deleted := 0
	var errs []error
	for channelID, ids := range byChannel {
		var err error
		if len(ids) == 1 {
			err = c.client.DeleteMessage(ctx, channelID, ids[0])
		} else {
			err = c.client.BulkDelete(ctx, channelID, ids)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("delete messages in %s: %w", channelID, err))
			continue
		}
		deleted += len(ids)
	}
	return deleted, errors.Join(errs...)
}

var notices = map[string]string{
	FilterSpam:       "%s, you have been muted for spamming.",
	FilterInvite:     "%s, Discord invites are not allowed!",
	FilterCaps:       "%s, please don't use excessive caps!",
	FilterBannedWord: "%s, your message contained inappropriate content and has been removed.",
}

// notice posts a transient warning and schedules its removal.
func (c *Chain) notice(ctx context.Context, msg domain.Message, filter string) {
	format, ok := notices[filter]
	if !ok {
		return
	}
	id, err := c.client.SendMessage(ctx, msg.ChannelID, platform.OutgoingMessage{Content: fmt.Sprintf(format, domain.Mention(msg.AuthorID))})
	if err != nil {
		c.logger.Debug("notice failed", zap.String("channel_id", msg.ChannelID), zap.Error(err))
		return
	}
	if c.cleanup == nil {
		return
	}
	channelID := msg.ChannelID
	c.cleanup.After(c.cfg.WarningMessageDeleteTime, "delete automod notice", func(ctx context.Context) error {
		return c.client.DeleteMessage(ctx, channelID, id)
	})
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
