package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/modbot/internal/auth"
	"github.com/spec-kit/modbot/internal/config"
	"github.com/spec-kit/modbot/internal/domain"
	"github.com/spec-kit/modbot/internal/events"
	"github.com/spec-kit/modbot/internal/observability"
	"github.com/spec-kit/modbot/internal/platform"
	"github.com/spec-kit/modbot/internal/repository"
	"github.com/spec-kit/modbot/internal/sanction"
	apperrors "github.com/spec-kit/modbot/pkg/util/errorutil"
)

const (
	defaultReason = "No reason provided"
	// purgeMaxAge is the platform limit for bulk deletion.
	purgeMaxAge = 14 * 24 * time.Hour
)

// ModerationService applies sanctions, records cases and escalates warnings.
type ModerationService struct {
	repo       repository.ModerationRepository
	client     platform.Client
	perms      *auth.Permissions
	scheduler  *sanction.Scheduler
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	cfg        config.PunishmentsConfig
	mutedRole  string
	guildID    string
	logger     *zap.Logger
	now        func() time.Time

	// reversalMu serializes reversals so a timer and a manual command cannot
	// both remove the same role or ban.
	reversalMu sync.Mutex
}

// ModerationDependencies bundles collaborators for the moderation service.
type ModerationDependencies struct {
	Repo        repository.ModerationRepository
	Client      platform.Client
	Permissions *auth.Permissions
	Scheduler   *sanction.Scheduler
	Dispatcher  events.Dispatcher
	Metrics     *observability.Metrics
	Punishments config.PunishmentsConfig
	MutedRole   string
	GuildID     string
	Logger      *zap.Logger
	Clock       func() time.Time
}

// WarnResult reports a recorded warning and any escalation it caused.
type WarnResult struct {
	Case       *domain.ModerationCase
	Count      int
	Escalation *domain.ModerationCase
}

// NewModerationService constructs the service.
func NewModerationService(deps ModerationDependencies) *ModerationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &ModerationService{
		repo:       deps.Repo,
		client:     deps.Client,
		perms:      deps.Permissions,
		scheduler:  deps.Scheduler,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		cfg:        deps.Punishments,
		mutedRole:  deps.MutedRole,
		guildID:    deps.GuildID,
		logger:     logger.Named("moderation"),
		now:        clock,
	}
}

// ParseSanctionDuration turns a user supplied expression into a duration. An
// empty expression means permanent.
func (s *ModerationService) ParseSanctionDuration(expr string) (time.Duration, error) {
	if expr == "" {
		return 0, nil
	}
	d := ParseDuration(expr)
	if d <= 0 {
		return 0, apperrors.NewInvalidInput("Invalid duration format. Use formats like: 1h, 30m, 1d", map[string]any{"duration": expr})
	}
	if s.cfg.MaxSanctionDuration > 0 && d > s.cfg.MaxSanctionDuration {
		return 0, apperrors.NewInvalidInput(
			fmt.Sprintf("Duration may not exceed %s.", FormatDuration(s.cfg.MaxSanctionDuration)),
			map[string]any{"duration": expr})
	}
	return d, nil
}

// checkTarget enforces the rules shared by warn, mute, kick and ban.
func (s *ModerationService) checkTarget(ctx context.Context, actor *domain.Member, targetID, verb string) (*domain.Member, error) {
	if !s.perms.CanModerate(actor) {
		return nil, apperrors.NewPermissionDenied(fmt.Sprintf("You do not have permission to %s users.", verb))
	}
	if actor.ID == targetID {
		return nil, apperrors.NewInvalidInput(fmt.Sprintf("You cannot %s yourself.", verb), nil)
	}
	target, err := s.client.GetMember(ctx, s.guildID, targetID)
	if err != nil {
		if errors.Is(err, platform.ErrNotFound) {
			return nil, apperrors.NewNotFound("User", map[string]any{"user_id": targetID})
		}
		return nil, apperrors.NewUpstreamFailure("fetch member", err)
	}
	if s.perms.IsStaff(target) {
		return nil, apperrors.NewPermissionDenied(fmt.Sprintf("You cannot %s staff members.", verb))
	}
	return target, nil
}

// Warn records a warning against targetID and escalates when a threshold is crossed.
func (s *ModerationService) Warn(ctx context.Context, actor *domain.Member, targetID, reason string) (*WarnResult, error) {
	if _, err := s.checkTarget(ctx, actor, targetID, "warn"); err != nil {
		return nil, err
	}
	return s.warn(ctx, actor.ID, targetID, reason)
}

// AutoWarn records a warning issued by the filter chain.
func (s *ModerationService) AutoWarn(ctx context.Context, targetID, reason string) (*WarnResult, error) {
	return s.warn(ctx, events.SystemActor, targetID, reason)
}

func (s *ModerationService) warn(ctx context.Context, moderatorID, targetID, reason string) (*WarnResult, error) {
	reason = orDefault(reason)
	now := s.now()

	var result WarnResult
	err := s.repo.Mutate(ctx, func(doc *domain.ModerationDocument) error {
		doc.Warnings[targetID] = append(doc.Warnings[targetID], domain.Warning{
			ID:          now.UnixMilli(),
			ModeratorID: moderatorID,
			Reason:      reason,
			Timestamp:   now,
		})
		c := doc.OpenCase(domain.CaseWarn, moderatorID, targetID, reason, 0, now)
		cp := *c
		result.Case = &cp
		result.Count = len(doc.Warnings[targetID])
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("record warning: %w", err)
	}

	s.metrics.RecordSanction(string(domain.CaseWarn), "apply")
	s.notifyTarget(ctx, targetID, fmt.Sprintf("You have been warned. Reason: %s (case #%d)", reason, result.Case.ID))
	s.publish(ctx, events.EventMemberWarned, moderatorID, targetID,
		fmt.Sprintf("Case #%d: %s warned %s (%d total). Reason: %s",
			result.Case.ID, actorLabel(moderatorID), domain.Mention(targetID), result.Count, reason),
		map[string]any{"case_id": result.Case.ID, "count": result.Count})

	escalation, err := s.escalate(ctx, targetID, result.Count)
	if err != nil {
		s.logger.Error("auto-punishment failed",
			zap.String("target_id", targetID),
			zap.Int("warnings", result.Count),
			zap.Error(err))
	}
	result.Escalation = escalation
	return &result, nil
}

// escalate applies the sanction whose threshold the count just reached.
func (s *ModerationService) escalate(ctx context.Context, targetID string, count int) (*domain.ModerationCase, error) {
	prev := count - 1
	switch {
	case prev < s.cfg.BanThreshold && count >= s.cfg.BanThreshold:
		return s.applyBan(ctx, events.SystemActor, targetID, 0, fmt.Sprintf("Automatic ban - %d warnings", count))
	case prev < s.cfg.MuteThreshold && count >= s.cfg.MuteThreshold:
		return s.applyMute(ctx, events.SystemActor, targetID, s.cfg.DefaultMuteDuration, fmt.Sprintf("Automatic mute - %d warnings", count))
	}
	return nil, nil
}

// Mute adds the muted role. A zero duration is permanent.
func (s *ModerationService) Mute(ctx context.Context, actor *domain.Member, targetID string, duration time.Duration, reason string) (*domain.ModerationCase, error) {
	if _, err := s.checkTarget(ctx, actor, targetID, "mute"); err != nil {
		return nil, err
	}
	return s.applyMute(ctx, actor.ID, targetID, duration, reason)
}

// AutoMute mutes on behalf of the filter chain.
func (s *ModerationService) AutoMute(ctx context.Context, targetID string, duration time.Duration, reason string) (*domain.ModerationCase, error) {
	return s.applyMute(ctx, events.SystemActor, targetID, duration, reason)
}

func (s *ModerationService) applyMute(ctx context.Context, moderatorID, targetID string, duration time.Duration, reason string) (*domain.ModerationCase, error) {
	if s.mutedRole == "" {
		return nil, apperrors.NewInvalidInput("Mute role not found. Please contact an administrator.", nil)
	}
	reason = orDefault(reason)
	if err := s.client.AddRole(ctx, s.guildID, targetID, s.mutedRole, reason); err != nil {
		return nil, apperrors.NewUpstreamFailure("add muted role", err)
	}

	c, err := s.recordSanction(ctx, domain.SanctionMute, domain.CaseMute, moderatorID, targetID, duration, reason)
	if err != nil {
		return nil, err
	}
	s.scheduleReversal(domain.SanctionMute, targetID, duration, "Automatic unmute")

	s.metrics.RecordSanction(string(domain.SanctionMute), "apply")
	s.notifyTarget(ctx, targetID, fmt.Sprintf("You have been muted for %s. Reason: %s (case #%d)", FormatDuration(duration), reason, c.ID))
	s.publish(ctx, events.EventMemberMuted, moderatorID, targetID,
		fmt.Sprintf("Case #%d: %s muted %s for %s. Reason: %s",
			c.ID, actorLabel(moderatorID), domain.Mention(targetID), FormatDuration(duration), reason),
		map[string]any{"case_id": c.ID, "duration_ms": c.DurationMs})
	return c, nil
}

// Kick removes the target from the guild.
func (s *ModerationService) Kick(ctx context.Context, actor *domain.Member, targetID, reason string) (*domain.ModerationCase, error) {
	if _, err := s.checkTarget(ctx, actor, targetID, "kick"); err != nil {
		return nil, err
	}
	reason = orDefault(reason)
	now := s.now()

	var c *domain.ModerationCase
	if err := s.repo.Mutate(ctx, func(doc *domain.ModerationDocument) error {
		opened := *doc.OpenCase(domain.CaseKick, actor.ID, targetID, reason, 0, now)
		c = &opened
		return nil
	}); err != nil {
		return nil, fmt.Errorf("record kick: %w", err)
	}

	s.notifyTarget(ctx, targetID, fmt.Sprintf("You have been kicked. Reason: %s (case #%d)", reason, c.ID))
	auditReason := fmt.Sprintf("%s | Moderator: %s | Case: #%d", reason, actor.ID, c.ID)
	if err := s.client.Kick(ctx, s.guildID, targetID, auditReason); err != nil {
		return nil, apperrors.NewUpstreamFailure("kick member", err)
	}

	s.metrics.RecordSanction(string(domain.CaseKick), "apply")
	s.publish(ctx, events.EventMemberKicked, actor.ID, targetID,
		fmt.Sprintf("Case #%d: %s kicked %s. Reason: %s", c.ID, actorLabel(actor.ID), domain.Mention(targetID), reason),
		map[string]any{"case_id": c.ID})
	return c, nil
}

// Ban bans the target. A zero duration is permanent.
func (s *ModerationService) Ban(ctx context.Context, actor *domain.Member, targetID string, duration time.Duration, reason string) (*domain.ModerationCase, error) {
	if _, err := s.checkTarget(ctx, actor, targetID, "ban"); err != nil {
		return nil, err
	}
	return s.applyBan(ctx, actor.ID, targetID, duration, reason)
}

func (s *ModerationService) applyBan(ctx context.Context, moderatorID, targetID string, duration time.Duration, reason string) (*domain.ModerationCase, error) {
	reason = orDefault(reason)
	s.notifyTarget(ctx, targetID, fmt.Sprintf("You have been banned for %s. Reason: %s", FormatDuration(duration), reason))

	auditReason := fmt.Sprintf("%s | Moderator: %s", reason, actorLabel(moderatorID))
	if err := s.client.Ban(ctx, s.guildID, targetID, auditReason, 1); err != nil {
		return nil, apperrors.NewUpstreamFailure("ban member", err)
	}

	c, err := s.recordSanction(ctx, domain.SanctionBan, domain.CaseBan, moderatorID, targetID, duration, reason)
	if err != nil {
		return nil, err
	}
	s.scheduleReversal(domain.SanctionBan, targetID, duration, "Automatic unban")

	s.metrics.RecordSanction(string(domain.SanctionBan), "apply")
	s.publish(ctx, events.EventMemberBanned, moderatorID, targetID,
		fmt.Sprintf("Case #%d: %s banned %s for %s. Reason: %s",
			c.ID, actorLabel(moderatorID), domain.Mention(targetID), FormatDuration(duration), reason),
		map[string]any{"case_id": c.ID, "duration_ms": c.DurationMs})
	return c, nil
}

// recordSanction opens the case and stores the active sanction, superseding
// any earlier sanction of the same kind.
func (s *ModerationService) recordSanction(ctx context.Context, kind domain.SanctionKind, caseType domain.CaseType, moderatorID, targetID string, duration time.Duration, reason string) (*domain.ModerationCase, error) {
	now := s.now()
	var c *domain.ModerationCase
	err := s.repo.Mutate(ctx, func(doc *domain.ModerationDocument) error {
		active := doc.Sanctions(kind)
		if prev, ok := active[targetID]; ok {
			if old, ok := doc.Cases[prev.CaseID]; ok {
				old.Active = false
			}
		}
		opened := doc.OpenCase(caseType, moderatorID, targetID, reason, duration, now)
		active[targetID] = &domain.Sanction{
			TargetID:    targetID,
			Kind:        kind,
			ModeratorID: moderatorID,
			Reason:      reason,
			AppliedAt:   now,
			DurationMs:  opened.DurationMs,
			CaseID:      opened.ID,
		}
		cp := *opened
		c = &cp
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("record %s: %w", kind, err)
	}
	return c, nil
}

func (s *ModerationService) scheduleReversal(kind domain.SanctionKind, targetID string, after time.Duration, reason string) {
	key := sanction.Key{TargetID: targetID, Kind: kind}
	if after <= 0 {
		s.scheduler.Cancel(key)
		return
	}
	s.scheduler.Schedule(key, after, func(ctx context.Context) error {
		_, err := s.reverse(ctx, kind, events.SystemActor, targetID, reason)
		return err
	})
}

// Unmute removes an active mute. It reports false when there was nothing to reverse.
func (s *ModerationService) Unmute(ctx context.Context, actor *domain.Member, targetID, reason string) (bool, error) {
	if !s.perms.CanModerate(actor) {
		return false, apperrors.NewPermissionDenied("You do not have permission to unmute users.")
	}
	if reason == "" {
		reason = "Manual unmute"
	}
	return s.reverse(ctx, domain.SanctionMute, actor.ID, targetID, reason)
}

// Unban lifts an active ban. It reports false when there was nothing to reverse.
func (s *ModerationService) Unban(ctx context.Context, actor *domain.Member, targetID, reason string) (bool, error) {
	if !s.perms.CanModerate(actor) {
		return false, apperrors.NewPermissionDenied("You do not have permission to unban users.")
	}
	if reason == "" {
		reason = "Manual unban"
	}
	return s.reverse(ctx, domain.SanctionBan, actor.ID, targetID, reason)
}

// reverse lifts a sanction on the platform and in the store. Reversing
// something that is not in effect is a silent no-op.
func (s *ModerationService) reverse(ctx context.Context, kind domain.SanctionKind, moderatorID, targetID, reason string) (bool, error) {
	s.reversalMu.Lock()
	defer s.reversalMu.Unlock()

	s.scheduler.Cancel(sanction.Key{TargetID: targetID, Kind: kind})

	lifted, err := s.liftOnPlatform(ctx, kind, targetID, reason)
	if err != nil {
		return false, err
	}

	caseType := domain.CaseUnmute
	eventType := events.EventMemberUnmuted
	if kind == domain.SanctionBan {
		caseType = domain.CaseUnban
		eventType = events.EventMemberUnbanned
	}

	now := s.now()
	var c *domain.ModerationCase
	err = s.repo.Mutate(ctx, func(doc *domain.ModerationDocument) error {
		active := doc.Sanctions(kind)
		existing, recorded := active[targetID]
		if !recorded && !lifted {
			return nil
		}
		if recorded {
			if orig, ok := doc.Cases[existing.CaseID]; ok {
				orig.Active = false
			}
			delete(active, targetID)
		}
		opened := *doc.OpenCase(caseType, moderatorID, targetID, reason, 0, now)
		c = &opened
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("record %s reversal: %w", kind, err)
	}
	if c == nil {
		s.logger.Debug("nothing to reverse", zap.String("target_id", targetID), zap.String("kind", string(kind)))
		return false, nil
	}

	s.metrics.RecordSanction(string(kind), "reverse")
	s.publish(ctx, eventType, moderatorID, targetID,
		fmt.Sprintf("Case #%d: %s lifted %s on %s. Reason: %s", c.ID, actorLabel(moderatorID), kind, domain.Mention(targetID), reason),
		map[string]any{"case_id": c.ID})
	return true, nil
}

func (s *ModerationService) liftOnPlatform(ctx context.Context, kind domain.SanctionKind, targetID, reason string) (bool, error) {
	if kind == domain.SanctionBan {
		banned, err := s.client.IsBanned(ctx, s.guildID, targetID)
		if err != nil {
			return false, apperrors.NewUpstreamFailure("fetch ban", err)
		}
		if !banned {
			return false, nil
		}
		if err := s.client.Unban(ctx, s.guildID, targetID, reason); err != nil {
			if errors.Is(err, platform.ErrNotFound) {
				return false, nil
			}
			return false, apperrors.NewUpstreamFailure("unban member", err)
		}
		return true, nil
	}

	if s.mutedRole == "" {
		return false, nil
	}
	member, err := s.client.GetMember(ctx, s.guildID, targetID)
	if err != nil {
		if errors.Is(err, platform.ErrNotFound) {
			return false, nil
		}
		return false, apperrors.NewUpstreamFailure("fetch member", err)
	}
	if !member.HasRole(s.mutedRole) {
		return false, nil
	}
	if err := s.client.RemoveRole(ctx, s.guildID, targetID, s.mutedRole, reason); err != nil {
		return false, apperrors.NewUpstreamFailure("remove muted role", err)
	}
	return true, nil
}

// Warnings lists a member's warning history.
func (s *ModerationService) Warnings(ctx context.Context, actor *domain.Member, targetID string) ([]domain.Warning, error) {
	if !s.perms.CanModerate(actor) {
		return nil, apperrors.NewPermissionDenied("You do not have permission to view warnings.")
	}
	return s.repo.Warnings(ctx, targetID)
}

// Case returns one moderation case.
func (s *ModerationService) Case(ctx context.Context, actor *domain.Member, id int) (*domain.ModerationCase, error) {
	if !s.perms.CanModerate(actor) {
		return nil, apperrors.NewPermissionDenied("You do not have permission to view cases.")
	}
	return s.LookupCase(ctx, id)
}

// LookupCase returns a case without a permission check.
func (s *ModerationService) LookupCase(ctx context.Context, id int) (*domain.ModerationCase, error) {
	c, err := s.repo.Case(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewNotFound(fmt.Sprintf("Case #%d", id), map[string]any{"case_id": id})
	}
	return c, err
}

// WarningsFor returns a member's warning history without a permission check.
func (s *ModerationService) WarningsFor(ctx context.Context, targetID string) ([]domain.Warning, error) {
	return s.repo.Warnings(ctx, targetID)
}

// ActiveSanctions lists recorded mutes and bans.
func (s *ModerationService) ActiveSanctions(ctx context.Context) ([]domain.Sanction, error) {
	return s.repo.ActiveSanctions(ctx)
}

// PendingReversals lists scheduled automatic reversals.
func (s *ModerationService) PendingReversals() []sanction.Entry {
	return s.scheduler.Pending()
}

// PurgeRequest describes a bulk message deletion.
type PurgeRequest struct {
	ChannelID string
	Amount    int
	UserID    string
	Reason    string
}

// Purge bulk-deletes recent channel messages, optionally from one user.
func (s *ModerationService) Purge(ctx context.Context, actor *domain.Member, req PurgeRequest) (int, error) {
	if !s.perms.CanModerate(actor) {
		return 0, apperrors.NewPermissionDenied("You do not have permission to purge messages.")
	}
	if req.Amount < 1 || req.Amount > 100 {
		return 0, apperrors.NewInvalidInput("Amount must be between 1 and 100.", map[string]any{"amount": req.Amount})
	}

	limit := req.Amount
	if req.UserID != "" {
		limit = 100
	}
	msgs, err := s.client.FetchMessages(ctx, req.ChannelID, limit)
	if err != nil {
		return 0, apperrors.NewUpstreamFailure("fetch messages", err)
	}

	cutoff := s.now().Add(-purgeMaxAge)
	ids := make([]string, 0, req.Amount)
	for _, m := range msgs {
		if len(ids) == req.Amount {
			break
		}
		if req.UserID != "" && m.AuthorID != req.UserID {
			continue
		}
		if !m.Timestamp.After(cutoff) {
			continue
		}
		ids = append(ids, m.ID)
	}
	if len(ids) == 0 {
		return 0, apperrors.NewInvalidInput("No messages found to delete. Messages must be less than 14 days old.", nil)
	}

	if err := s.client.BulkDelete(ctx, req.ChannelID, ids); err != nil {
		return 0, apperrors.NewUpstreamFailure("bulk delete", err)
	}

	summary := fmt.Sprintf("%s purged %d messages in %s. Reason: %s", actorLabel(actor.ID), len(ids), domain.ChannelMention(req.ChannelID), orDefault(req.Reason))
	if req.UserID != "" {
		summary = fmt.Sprintf("%s purged %d messages from %s in %s. Reason: %s", actorLabel(actor.ID), len(ids), domain.Mention(req.UserID), domain.ChannelMention(req.ChannelID), orDefault(req.Reason))
	}
	s.publish(ctx, events.EventMessagesPurged, actor.ID, req.UserID, summary,
		map[string]any{"channel_id": req.ChannelID, "count": len(ids)})
	return len(ids), nil
}

// ReapplyMute restores the muted role for a member who rejoins while a mute is
// still recorded.
func (s *ModerationService) ReapplyMute(ctx context.Context, memberID string) (bool, error) {
	if s.mutedRole == "" {
		return false, nil
	}
	_, err := s.repo.Sanction(ctx, domain.SanctionMute, memberID)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := s.client.AddRole(ctx, s.guildID, memberID, s.mutedRole, "Mute still active"); err != nil {
		return false, apperrors.NewUpstreamFailure("add muted role", err)
	}
	return true, nil
}

// RestoreSanctions schedules reversals for persisted time-bounded sanctions.
// Sanctions that expired while the bot was offline are reversed immediately.
func (s *ModerationService) RestoreSanctions(ctx context.Context) (int, error) {
	active, err := s.repo.ActiveSanctions(ctx)
	if err != nil {
		return 0, fmt.Errorf("load sanctions: %w", err)
	}

	now := s.now()
	restored := 0
	for _, sn := range active {
		expiresAt, ok := sn.ExpiresAt()
		if !ok {
			continue
		}
		reason := "Automatic unmute"
		if sn.Kind == domain.SanctionBan {
			reason = "Automatic unban"
		}
		if !expiresAt.After(now) {
			if _, err := s.reverse(ctx, sn.Kind, events.SystemActor, sn.TargetID, reason); err != nil {
				s.logger.Warn("expired sanction reversal failed",
					zap.String("target_id", sn.TargetID),
					zap.String("kind", string(sn.Kind)),
					zap.Error(err))
			}
			continue
		}
		s.scheduleReversal(sn.Kind, sn.TargetID, expiresAt.Sub(now), reason)
		restored++
	}
	s.logger.Info("sanction timers restored", zap.Int("count", restored))
	return restored, nil
}

func (s *ModerationService) notifyTarget(ctx context.Context, userID, content string) {
	if err := s.client.SendDirect(ctx, userID, platform.OutgoingMessage{Content: content}); err != nil {
		s.logger.Debug("could not send direct message", zap.String("user_id", userID), zap.Error(err))
	}
}

func (s *ModerationService) publish(ctx context.Context, eventType events.EventType, actorID, targetID, summary string, payload map[string]any) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.New(eventType, actorID, targetID, summary, payload))
}

func orDefault(reason string) string {
	if reason == "" {
		return defaultReason
	}
	return reason
}

func actorLabel(id string) string {
	if id == events.SystemActor {
		return "System"
	}
	return domain.Mention(id)
}
