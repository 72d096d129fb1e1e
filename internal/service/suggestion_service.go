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

const (
	maxSuggestionTitle       = 100
	maxSuggestionDescription = 1000
)

// SuggestionService coordinates suggestion submission, voting and review.
type SuggestionService struct {
	repo       repository.SuggestionRepository
	client     platform.Client
	perms      *auth.Permissions
	dispatcher events.Dispatcher
	cfg        config.SuggestionsConfig
	channels   config.ChannelsConfig
	logger     *zap.Logger
	now        func() time.Time
}

// SuggestionDependencies bundles collaborators for the suggestion service.
type SuggestionDependencies struct {
	Repo        repository.SuggestionRepository
	Client      platform.Client
	Permissions *auth.Permissions
	Dispatcher  events.Dispatcher
	Suggestions config.SuggestionsConfig
	Channels    config.ChannelsConfig
	Logger      *zap.Logger
	Clock       func() time.Time
}

// SuggestionInput describes a new suggestion.
type SuggestionInput struct {
	Title       string
	Description string
	Anonymous   bool
}

// DenyOutcome reports whether a denial completed or needs a reveal decision.
type DenyOutcome struct {
	Suggestion  *domain.Suggestion
	NeedsChoice bool
}

// NewSuggestionService constructs the service.
func NewSuggestionService(deps SuggestionDependencies) *SuggestionService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &SuggestionService{
		repo:       deps.Repo,
		client:     deps.Client,
		perms:      deps.Permissions,
		dispatcher: deps.Dispatcher,
		cfg:        deps.Suggestions,
		channels:   deps.Channels,
		logger:     logger.Named("suggestions"),
		now:        clock,
	}
}

// Create stores a suggestion and posts it for voting.
func (s *SuggestionService) Create(ctx context.Context, actor *domain.Member, input SuggestionInput) (*domain.Suggestion, error) {
	if s.channels.Suggestions == "" {
		return nil, apperrors.NewNotFound("Suggestion channel", nil)
	}
	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if title == "" || description == "" {
		return nil, apperrors.NewInvalidInput("A suggestion needs a title and a description.", nil)
	}
	if len(title) > maxSuggestionTitle || len(description) > maxSuggestionDescription {
		return nil, apperrors.NewInvalidInput(
			fmt.Sprintf("Titles are limited to %d characters and descriptions to %d.", maxSuggestionTitle, maxSuggestionDescription), nil)
	}
	if input.Anonymous && !s.cfg.AllowAnonymous {
		return nil, apperrors.NewInvalidInput("Anonymous suggestions are disabled.", nil)
	}

	now := s.now()
	sug := &domain.Suggestion{
		Title:       title,
		Description: description,
		SubmitterID: actor.ID,
		Anonymous:   input.Anonymous,
		Status:      domain.SuggestionPending,
		Upvotes:     []string{},
		Downvotes:   []string{},
		ChannelID:   s.channels.Suggestions,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, sug); err != nil {
		return nil, fmt.Errorf("store suggestion: %w", err)
	}

	msgID, err := s.client.SendMessage(ctx, s.channels.Suggestions, platform.OutgoingMessage{
		Content: RenderSuggestion(sug),
		Buttons: VoteButtons(sug.ID, false),
	})
	if err != nil {
		if derr := s.repo.Delete(context.WithoutCancel(ctx), sug.ID); derr != nil {
			s.logger.Error("unposted suggestion not removed", zap.Int("suggestion_id", sug.ID), zap.Error(derr))
		}
		return nil, apperrors.NewUpstreamFailure("post suggestion", err)
	}
	var logMsgID string
	if s.channels.SuggestionLogs != "" {
		logMsgID, err = s.client.SendMessage(ctx, s.channels.SuggestionLogs, platform.OutgoingMessage{
			Content: fmt.Sprintf("New suggestion #%d by %s: %s", sug.ID, submitterLabel(sug), sug.Title),
			Buttons: ManagementButtons(sug.ID, false),
		})
		if err != nil {
			s.logger.Warn("management controls failed", zap.Int("suggestion_id", sug.ID), zap.Error(err))
		}
	}

	saved, err := s.repo.Update(ctx, sug.ID, func(st *domain.Suggestion) error {
		st.MessageID = msgID
		st.LogMessage = logMsgID
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store suggestion message: %w", err)
	}

	s.publish(ctx, events.EventSuggestionCreated, actor.ID, fmt.Sprint(saved.ID),
		fmt.Sprintf("Suggestion #%d submitted by %s: %s", saved.ID, submitterLabel(saved), saved.Title),
		map[string]any{"anonymous": saved.Anonymous})
	return saved, nil
}

// Vote records an up or down vote. Voting again on the same side is a no-op;
// voting on the other side moves the vote.
func (s *SuggestionService) Vote(ctx context.Context, actor *domain.Member, id int, up bool) (*domain.Suggestion, error) {
	updated, err := s.repo.Update(ctx, id, func(st *domain.Suggestion) error {
		if st.Status.Final() {
			return apperrors.NewInvalidInput(fmt.Sprintf("Suggestion #%d is closed for voting.", id), nil)
		}
		st.Vote(actor.ID, up)
		st.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return nil, s.mapNotFound(err, id)
	}
	s.refreshPublic(ctx, updated)
	return updated, nil
}

// Approve marks a suggestion approved.
func (s *SuggestionService) Approve(ctx context.Context, actor *domain.Member, id int) (*domain.Suggestion, error) {
	return s.review(ctx, actor, id, domain.SuggestionApproved, false)
}

// Consider marks a suggestion under consideration.
func (s *SuggestionService) Consider(ctx context.Context, actor *domain.Member, id int) (*domain.Suggestion, error) {
	return s.review(ctx, actor, id, domain.SuggestionConsidering, false)
}

// Deny denies a suggestion. Anonymous suggestions are not denied yet; the
// caller must first choose whether to reveal the submitter.
func (s *SuggestionService) Deny(ctx context.Context, actor *domain.Member, id int) (*DenyOutcome, error) {
	if !s.perms.CanManageSuggestions(actor) {
		return nil, apperrors.NewPermissionDenied("You do not have permission to manage suggestions.")
	}
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, s.mapNotFound(err, id)
	}
	if current.Status.Final() {
		return nil, apperrors.NewInvalidInput(fmt.Sprintf("Suggestion #%d has already been %s.", id, current.Status), nil)
	}
	if current.Anonymous {
		return &DenyOutcome{Suggestion: current, NeedsChoice: true}, nil
	}
	denied, err := s.review(ctx, actor, id, domain.SuggestionDenied, false)
	if err != nil {
		return nil, err
	}
	return &DenyOutcome{Suggestion: denied}, nil
}

// ProcessDenial completes the denial of an anonymous suggestion.
func (s *SuggestionService) ProcessDenial(ctx context.Context, actor *domain.Member, id int, reveal bool) (*domain.Suggestion, error) {
	return s.review(ctx, actor, id, domain.SuggestionDenied, reveal)
}

// DenyChoiceButtons offer the reveal decision for an anonymous denial.
func DenyChoiceButtons(id int) []platform.Button {
	return []platform.Button{
		{CustomID: fmt.Sprintf("suggestion_deny_anonymous_%d", id), Label: "Deny (Keep Anonymous)", Style: platform.ButtonDanger},
		{CustomID: fmt.Sprintf("suggestion_deny_reveal_%d", id), Label: "Deny & Reveal User", Style: platform.ButtonDanger},
		{CustomID: fmt.Sprintf("suggestion_deny_cancel_%d", id), Label: "Cancel", Style: platform.ButtonSecondary},
	}
}

func (s *SuggestionService) review(ctx context.Context, actor *domain.Member, id int, status domain.SuggestionStatus, reveal bool) (*domain.Suggestion, error) {
	if !s.perms.CanManageSuggestions(actor) {
		return nil, apperrors.NewPermissionDenied("You do not have permission to manage suggestions.")
	}
	updated, err := s.repo.Update(ctx, id, func(st *domain.Suggestion) error {
		if st.Status.Final() {
			return apperrors.NewInvalidInput(fmt.Sprintf("Suggestion #%d has already been %s.", id, st.Status), nil)
		}
		now := s.now()
		st.Status = status
		st.ReviewedBy = actor.ID
		st.ReviewedAt = &now
		st.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, s.mapNotFound(err, id)
	}

	s.refreshPublic(ctx, updated)
	if updated.LogMessage != "" && s.channels.SuggestionLogs != "" {
		if err := s.client.EditMessage(ctx, s.channels.SuggestionLogs, updated.LogMessage, platform.OutgoingMessage{
			Content: fmt.Sprintf("Suggestion #%d by %s: %s\nStatus: %s by %s",
				updated.ID, submitterLabel(updated), updated.Title, updated.Status, domain.Mention(actor.ID)),
			Buttons: ManagementButtons(updated.ID, updated.Status.Final()),
		}); err != nil {
			s.logger.Warn("management message update failed", zap.Int("suggestion_id", id), zap.Error(err))
		}
	}
	if updated.Status.Final() && s.channels.SuggestionResults != "" {
		if _, err := s.client.SendMessage(ctx, s.channels.SuggestionResults, platform.OutgoingMessage{
			Content: fmt.Sprintf("Suggestion #%d - %s\n%s\nUpvotes: %d | Downvotes: %d",
				updated.ID, updated.Status, updated.Title, len(updated.Upvotes), len(updated.Downvotes)),
		}); err != nil {
			s.logger.Warn("results message failed", zap.Int("suggestion_id", id), zap.Error(err))
		}
	}

	summary := fmt.Sprintf("%s marked suggestion #%d as %s", domain.Mention(actor.ID), updated.ID, updated.Status)
	payload := map[string]any{"status": string(updated.Status)}
	if reveal {
		summary += fmt.Sprintf("; anonymous submitter revealed as %s", domain.Mention(updated.SubmitterID))
		payload["revealed_submitter"] = updated.SubmitterID
	}
	s.publish(ctx, events.EventSuggestionReviewed, actor.ID, fmt.Sprint(updated.ID), summary, payload)
	return updated, nil
}

// Get returns one suggestion.
func (s *SuggestionService) Get(ctx context.Context, id int) (*domain.Suggestion, error) {
	sug, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, s.mapNotFound(err, id)
	}
	return sug, nil
}

// List returns suggestions newest first, limited to the configured size.
func (s *SuggestionService) List(ctx context.Context, status domain.SuggestionStatus) ([]domain.Suggestion, error) {
	return s.repo.List(ctx, status, s.cfg.MaxListItems)
}

// ModalForm is the submission form opened by the suggest modal command.
func ModalForm() platform.Modal {
	return platform.Modal{
		CustomID: "suggestion_modal",
		Title:    "Submit a Suggestion",
		Inputs: []platform.TextInput{
			{CustomID: "suggestion_title", Label: "Suggestion Title", Placeholder: "Brief title for your suggestion", Required: true, MaxLength: maxSuggestionTitle},
			{CustomID: "suggestion_description", Label: "Description", Placeholder: "Describe your suggestion in detail", Paragraph: true, Required: true, MaxLength: maxSuggestionDescription},
		},
	}
}

// RenderSuggestion is the public text of a suggestion.
func RenderSuggestion(s *domain.Suggestion) string {
	return fmt.Sprintf("Suggestion #%d: %s\n%s\nSubmitted by: %s\nStatus: %s\nUpvotes: %d | Downvotes: %d",
		s.ID, s.Title, s.Description, submitterLabel(s), s.Status, len(s.Upvotes), len(s.Downvotes))
}

// VoteButtons are the public voting controls. Disabled controls carry the
// _disabled marker.
func VoteButtons(id int, disabled bool) []platform.Button {
	return []platform.Button{
		{CustomID: controlID("suggestion_upvote", id, disabled), Label: "Upvote", Style: platform.ButtonSuccess, Disabled: disabled},
		{CustomID: controlID("suggestion_downvote", id, disabled), Label: "Downvote", Style: platform.ButtonDanger, Disabled: disabled},
	}
}

// ManagementButtons are the staff review controls.
func ManagementButtons(id int, disabled bool) []platform.Button {
	return []platform.Button{
		{CustomID: controlID("suggestion_approve", id, disabled), Label: "Approve", Style: platform.ButtonSuccess, Disabled: disabled},
		{CustomID: controlID("suggestion_deny", id, disabled), Label: "Deny", Style: platform.ButtonDanger, Disabled: disabled},
		{CustomID: controlID("suggestion_consider", id, disabled), Label: "Consider", Style: platform.ButtonSecondary, Disabled: disabled},
	}
}

func controlID(prefix string, id int, disabled bool) string {
	if disabled {
		return fmt.Sprintf("%s_%d_disabled", prefix, id)
	}
	return fmt.Sprintf("%s_%d", prefix, id)
}

func (s *SuggestionService) refreshPublic(ctx context.Context, sug *domain.Suggestion) {
	if sug.MessageID == "" {
		return
	}
	if err := s.client.EditMessage(ctx, sug.ChannelID, sug.MessageID, platform.OutgoingMessage{
		Content: RenderSuggestion(sug),
		Buttons: VoteButtons(sug.ID, sug.Status.Final()),
	}); err != nil {
		s.logger.Warn("suggestion message update failed", zap.Int("suggestion_id", sug.ID), zap.Error(err))
	}
}

func (s *SuggestionService) mapNotFound(err error, id int) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound("Suggestion", map[string]any{"suggestion_id": id})
	}
	return err
}

func (s *SuggestionService) publish(ctx context.Context, eventType events.EventType, actorID, targetID, summary string, payload map[string]any) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.New(eventType, actorID, targetID, summary, payload))
}

func submitterLabel(s *domain.Suggestion) string {
	if s.Anonymous {
		return "Anonymous"
	}
	return domain.Mention(s.SubmitterID)
}
