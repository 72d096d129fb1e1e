package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/modbot/internal/auth"
	"github.com/spec-kit/modbot/internal/config"
	"github.com/spec-kit/modbot/internal/domain"
	"github.com/spec-kit/modbot/internal/events"
	"github.com/spec-kit/modbot/internal/platform"
	"github.com/spec-kit/modbot/internal/repository"
	apperrors "github.com/spec-kit/modbot/pkg/util/errorutil"
)

// DelayedRunner runs detached best-effort work after a delay.
type DelayedRunner interface {
	After(delay time.Duration, name string, fn func(ctx context.Context) error)
}

// TicketService coordinates ticket workflows.
type TicketService struct {
	repo       repository.TicketRepository
	client     platform.Client
	perms      *auth.Permissions
	dispatcher events.Dispatcher
	cleanup    DelayedRunner
	cfg        config.TicketsConfig
	channels   config.ChannelsConfig
	guildID    string
	logger     *zap.Logger
	now        func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	Repo        repository.TicketRepository
	Client      platform.Client
	Permissions *auth.Permissions
	Dispatcher  events.Dispatcher
	Cleanup     DelayedRunner
	Tickets     config.TicketsConfig
	Channels    config.ChannelsConfig
	GuildID     string
	Logger      *zap.Logger
	Clock       func() time.Time
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Category string
	Reason   string
	Priority domain.TicketPriority
}

// TicketStatus summarises a member's open tickets.
type TicketStatus struct {
	Active []domain.Ticket
	Limit  int
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &TicketService{
		repo:       deps.Repo,
		client:     deps.Client,
		perms:      deps.Permissions,
		dispatcher: deps.Dispatcher,
		cleanup:    deps.Cleanup,
		cfg:        deps.Tickets,
		channels:   deps.Channels,
		guildID:    deps.GuildID,
		logger:     logger.Named("tickets"),
		now:        clock,
	}
}

// Categories lists the configured ticket categories.
func (s *TicketService) Categories() []config.TicketCategory {
	return s.cfg.Categories
}

// Create opens a private ticket channel for actor. The per-user cap check and
// the insert happen under the ticket document lock.
func (s *TicketService) Create(ctx context.Context, actor *domain.Member, input TicketCreateInput) (*domain.Ticket, error) {
	if input.Category == "" {
		input.Category = "general"
	}
	category, ok := s.cfg.Category(input.Category)
	if !ok {
		return nil, apperrors.NewInvalidInput("Ticket category not found.", map[string]any{"category": input.Category})
	}
	if input.Priority == "" {
		input.Priority = domain.TicketPriorityLow
	}
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		reason = defaultReason
	}

	var (
		ticket    *domain.Ticket
		channelID string
	)
	err := s.repo.Mutate(ctx, func(doc *domain.TicketDocument) error {
		if len(doc.ActiveFor(actor.ID)) >= s.cfg.MaxTicketsPerUser {
			return apperrors.NewInvalidInput(
				fmt.Sprintf("You have reached the maximum number of active tickets (%d). Please close an existing ticket before creating a new one.", s.cfg.MaxTicketsPerUser),
				map[string]any{"limit": s.cfg.MaxTicketsPerUser})
		}

		number := doc.Counter + 1
		var err error
		channelID, err = s.client.CreateTicketChannel(ctx, platform.TicketChannelSpec{
			GuildID:    s.guildID,
			Name:       ticketChannelName(number, actor),
			ParentID:   s.channels.TicketCategory,
			Topic:      fmt.Sprintf("%s | %s | opened by %s", category.Name, input.Priority, actor.ID),
			OwnerID:    actor.ID,
			StaffRoles: s.cfg.SupportRoles,
		})
		if err != nil {
			return apperrors.NewUpstreamFailure("create ticket channel", err)
		}

		ticket = &domain.Ticket{
			ID:        channelID,
			OwnerID:   actor.ID,
			Category:  category.Key,
			Reason:    reason,
			Priority:  input.Priority,
			Active:    true,
			CreatedAt: s.now(),
		}
		doc.Add(ticket)
		return nil
	})
	if err != nil {
		if channelID != "" {
			s.discardChannel(ctx, channelID)
		}
		return nil, err
	}
	created := *ticket

	welcome := fmt.Sprintf("%s Welcome to your support ticket!\n%s\nTicket #%d - %s\nPriority: %s\nIssue: %s",
		domain.Mention(actor.ID), roleMentions(s.cfg.SupportRoles), created.Number, category.Name, created.Priority, reason)
	if _, err := s.client.SendMessage(ctx, created.ID, platform.OutgoingMessage{
		Content: welcome,
		Buttons: TicketControls(created.ID),
	}); err != nil {
		s.logger.Warn("ticket welcome message failed", zap.String("channel_id", created.ID), zap.Error(err))
	}

	s.publish(ctx, events.EventTicketCreated, actor.ID, created.ID,
		fmt.Sprintf("%s opened ticket #%d (%s) in %s", domain.Mention(actor.ID), created.Number, category.Name, domain.ChannelMention(created.ID)),
		map[string]any{"number": created.Number, "category": created.Category, "priority": string(created.Priority)})
	return &created, nil
}

// discardChannel removes a channel whose ticket record was never stored.
func (s *TicketService) discardChannel(ctx context.Context, channelID string) {
	if err := s.client.DeleteChannel(context.WithoutCancel(ctx), channelID, "Ticket could not be saved"); err != nil {
		s.logger.Error("orphan ticket channel not removed", zap.String("channel_id", channelID), zap.Error(err))
	}
}

// TicketControls are the buttons posted in every ticket channel.
func TicketControls(channelID string) []platform.Button {
	return []platform.Button{
		{CustomID: "ticket_claim_" + channelID, Label: "Claim", Style: platform.ButtonSuccess},
		{CustomID: "ticket_close_" + channelID, Label: "Close", Style: platform.ButtonDanger},
		{CustomID: "ticket_transcript_" + channelID, Label: "Transcript", Style: platform.ButtonSecondary},
	}
}

// Close deactivates the ticket, posts its transcript and schedules the channel
// for deletion.
func (s *TicketService) Close(ctx context.Context, actor *domain.Member, channelID string) (*domain.Ticket, error) {
	current, err := s.activeTicket(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if current.OwnerID != actor.ID && !s.perms.CanManageTickets(actor) {
		return nil, apperrors.NewPermissionDenied("You do not have permission to close this ticket.")
	}

	if s.channels.TicketTranscripts != "" {
		file, err := s.buildTranscript(ctx, current)
		if err != nil {
			s.logger.Warn("transcript generation failed", zap.String("channel_id", channelID), zap.Error(err))
		} else if _, err := s.client.SendMessage(ctx, s.channels.TicketTranscripts, platform.OutgoingMessage{
			Content: fmt.Sprintf("Transcript for Ticket #%d", current.Number),
			Files:   []platform.File{file},
		}); err != nil {
			s.logger.Warn("transcript upload failed", zap.String("channel_id", channelID), zap.Error(err))
		}
	}

	var closed domain.Ticket
	err = s.repo.Mutate(ctx, func(doc *domain.TicketDocument) error {
		t, ok := doc.Tickets[channelID]
		if !ok || !t.Active {
			return apperrors.NewNotFound("Active ticket", map[string]any{"channel_id": channelID})
		}
		now := s.now()
		t.Active = false
		t.ClosedAt = &now
		t.ClosedBy = actor.ID
		closed = *t
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.cleanup != nil {
		s.cleanup.After(s.cfg.CloseDelay, "delete ticket channel", func(ctx context.Context) error {
			return s.client.DeleteChannel(ctx, channelID, fmt.Sprintf("Ticket #%d closed", closed.Number))
		})
	}

	s.publish(ctx, events.EventTicketClosed, actor.ID, channelID,
		fmt.Sprintf("%s closed ticket #%d (%s)", domain.Mention(actor.ID), closed.Number, closed.Category),
		map[string]any{"number": closed.Number, "owner_id": closed.OwnerID})
	return &closed, nil
}

// CloseDelay is how long a closed ticket channel survives.
func (s *TicketService) CloseDelay() time.Duration {
	return s.cfg.CloseDelay
}

// Claim assigns the ticket to actor.
func (s *TicketService) Claim(ctx context.Context, actor *domain.Member, channelID string) (*domain.Ticket, error) {
	if _, err := s.activeTicket(ctx, channelID); err != nil {
		return nil, err
	}
	if !s.perms.CanManageTickets(actor) {
		return nil, apperrors.NewPermissionDenied("You do not have permission to claim tickets.")
	}

	var claimed domain.Ticket
	err := s.repo.Mutate(ctx, func(doc *domain.TicketDocument) error {
		t, ok := doc.Tickets[channelID]
		if !ok || !t.Active {
			return apperrors.NewNotFound("Active ticket", map[string]any{"channel_id": channelID})
		}
		if t.ClaimedBy != "" {
			return apperrors.NewInvalidInput(fmt.Sprintf("This ticket is already claimed by %s.", domain.Mention(t.ClaimedBy)), nil)
		}
		now := s.now()
		t.ClaimedBy = actor.ID
		t.ClaimedAt = &now
		claimed = *t
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventTicketClaimed, actor.ID, channelID,
		fmt.Sprintf("%s claimed ticket #%d", domain.Mention(actor.ID), claimed.Number),
		map[string]any{"number": claimed.Number})
	return &claimed, nil
}

// Transcript renders the ticket history as a text attachment.
func (s *TicketService) Transcript(ctx context.Context, actor *domain.Member, channelID string) (platform.File, error) {
	t, err := s.repo.Get(ctx, channelID)
	if errors.Is(err, repository.ErrNotFound) {
		return platform.File{}, apperrors.NewNotFound("Ticket", map[string]any{"channel_id": channelID})
	}
	if err != nil {
		return platform.File{}, err
	}
	if t.OwnerID != actor.ID && !s.perms.CanManageTickets(actor) {
		return platform.File{}, apperrors.NewPermissionDenied("You do not have permission to view this transcript.")
	}
	return s.buildTranscript(ctx, t)
}

// buildTranscript fetches history (newest first) and renders it oldest first.
func (s *TicketService) buildTranscript(ctx context.Context, t *domain.Ticket) (platform.File, error) {
	msgs, err := s.client.FetchMessages(ctx, t.ID, s.cfg.TranscriptLimit)
	if err != nil {
		return platform.File{}, apperrors.NewUpstreamFailure("fetch ticket history", err)
	}
	var b strings.Builder
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		fmt.Fprintf(&b, "[%s] %s: %s\n", m.Timestamp.UTC().Format(time.RFC3339), m.Author, m.Content)
	}
	return platform.File{
		Name:    fmt.Sprintf("transcript-ticket-%d-%d.txt", t.Number, s.now().Unix()),
		Content: []byte(b.String()),
	}, nil
}

// Status reports userID's active tickets against the cap.
func (s *TicketService) Status(ctx context.Context, userID string) (*TicketStatus, error) {
	active, err := s.repo.ListByOwner(ctx, userID, true)
	if err != nil {
		return nil, err
	}
	return &TicketStatus{Active: active, Limit: s.cfg.MaxTicketsPerUser}, nil
}

// ListForOwner returns every ticket of ownerID, or all active tickets when
// ownerID is empty.
func (s *TicketService) ListForOwner(ctx context.Context, ownerID string) ([]domain.Ticket, error) {
	if ownerID == "" {
		return s.repo.ListActive(ctx)
	}
	return s.repo.ListByOwner(ctx, ownerID, false)
}

// AddMember grants userID access to the ticket channel.
func (s *TicketService) AddMember(ctx context.Context, actor *domain.Member, channelID, userID string) error {
	return s.setAccess(ctx, actor, channelID, userID, true)
}

// RemoveMember revokes userID's access to the ticket channel.
func (s *TicketService) RemoveMember(ctx context.Context, actor *domain.Member, channelID, userID string) error {
	return s.setAccess(ctx, actor, channelID, userID, false)
}

func (s *TicketService) setAccess(ctx context.Context, actor *domain.Member, channelID, userID string, allow bool) error {
	verb, eventType := "add users to", events.EventTicketMemberAdded
	if !allow {
		verb, eventType = "remove users from", events.EventTicketMemberRemoved
	}
	if !s.perms.CanManageTickets(actor) {
		return apperrors.NewPermissionDenied(fmt.Sprintf("You do not have permission to %s tickets.", verb))
	}
	t, err := s.activeTicket(ctx, channelID)
	if err != nil {
		return err
	}
	if !allow && userID == t.OwnerID {
		return apperrors.NewInvalidInput("The ticket owner cannot be removed.", nil)
	}
	if err := s.client.SetChannelAccess(ctx, channelID, userID, allow); err != nil {
		return apperrors.NewUpstreamFailure("update ticket access", err)
	}

	s.publish(ctx, eventType, actor.ID, userID,
		fmt.Sprintf("%s updated access for %s on ticket #%d", domain.Mention(actor.ID), domain.Mention(userID), t.Number),
		map[string]any{"channel_id": channelID, "allow": allow})
	return nil
}

// PostPanel sends the ticket panel with the category select and quick actions.
func (s *TicketService) PostPanel(ctx context.Context, actor *domain.Member, channelID string) error {
	if !s.perms.CanManageTickets(actor) {
		return apperrors.NewPermissionDenied("You do not have permission to create ticket panels.")
	}
	options := make([]platform.SelectOption, 0, len(s.cfg.Categories))
	for _, c := range s.cfg.Categories {
		options = append(options, platform.SelectOption{Label: c.Name, Value: c.Key, Description: c.Description})
	}
	_, err := s.client.SendMessage(ctx, channelID, platform.OutgoingMessage{
		Content: "Support Center\nNeed assistance? Choose a category below or use Quick Support.",
		Select: &platform.SelectMenu{
			CustomID:    "ticket_category_select",
			Placeholder: "Choose your support category...",
			Options:     options,
		},
		Buttons: []platform.Button{
			{CustomID: "ticket_quick_create", Label: "Quick Support", Style: platform.ButtonSuccess},
			{CustomID: "ticket_help_info", Label: "Help & FAQ", Style: platform.ButtonSecondary},
			{CustomID: "ticket_status_check", Label: "Check Status", Style: platform.ButtonSecondary},
		},
	})
	if err != nil {
		return apperrors.NewUpstreamFailure("send ticket panel", err)
	}
	return nil
}

func (s *TicketService) activeTicket(ctx context.Context, channelID string) (*domain.Ticket, error) {
	t, err := s.repo.Get(ctx, channelID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && !t.Active) {
		return nil, apperrors.NewNotFound("Active ticket", map[string]any{"channel_id": channelID})
	}
	return t, err
}

func (s *TicketService) publish(ctx context.Context, eventType events.EventType, actorID, targetID, summary string, payload map[string]any) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.New(eventType, actorID, targetID, summary, payload))
}

func ticketChannelName(number int, owner *domain.Member) string {
	name := strings.ToLower(owner.Username)
	if name == "" {
		name = owner.ID
	}
	return fmt.Sprintf("ticket-%d-%s", number, name)
}

func roleMentions(roles []string) string {
	parts := make([]string, 0, len(roles))
	for _, r := range roles {
		parts = append(parts, "<@&"+r+">")
	}
	return strings.Join(parts, " ")
}
