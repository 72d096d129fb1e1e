package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/modbot/internal/config"
	"github.com/spec-kit/modbot/internal/domain"
	"github.com/spec-kit/modbot/internal/repository"
	"github.com/spec-kit/modbot/internal/store"
	apperrors "github.com/spec-kit/modbot/pkg/util/errorutil"
)

func newSuggestionService(h *harness, anonymous bool) *SuggestionService {
	repo := repository.NewSuggestionRepository(store.NewCollection(h.dir, "suggestions", domain.NewSuggestionDocument, nil))
	return NewSuggestionService(SuggestionDependencies{
		Repo:        repo,
		Client:      h.client,
		Permissions: h.perms,
		Dispatcher:  h.dispatcher,
		Suggestions: config.SuggestionsConfig{AllowAnonymous: anonymous, MaxListItems: 10},
		Channels: config.ChannelsConfig{
			Suggestions:       "suggestions",
			SuggestionLogs:    "suggestion-logs",
			SuggestionResults: "suggestion-results",
		},
	})
}

func TestSuggestionCreatePostsVoteAndManagementControls(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	svc := newSuggestionService(h, true)

	sug, err := svc.Create(ctx, h.member("user1"), SuggestionInput{Title: "Dark mode", Description: "Please"})
	require.NoError(t, err)
	assert.Equal(t, 1, sug.ID)
	assert.Equal(t, domain.SuggestionPending, sug.Status)
	assert.NotEmpty(t, sug.MessageID)
	assert.NotEmpty(t, sug.LogMessage)

	public := h.client.Messages("suggestions")
	require.Len(t, public, 1)
	assert.Equal(t, "suggestion_upvote_1", public[0].Message.Buttons[0].CustomID)

	logs := h.client.Messages("suggestion-logs")
	require.Len(t, logs, 1)
	assert.Equal(t, "suggestion_approve_1", logs[0].Message.Buttons[0].CustomID)
}

func TestSuggestionCreateValidation(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	svc := newSuggestionService(h, false)

	_, err := svc.Create(ctx, h.member("user1"), SuggestionInput{Title: " ", Description: "x"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))

	_, err = svc.Create(ctx, h.member("user1"), SuggestionInput{Title: "t", Description: "d", Anonymous: true})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))
}

func TestSuggestionCreatePostFailureLeavesNoRecord(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	svc := newSuggestionService(h, false)
	h.client.Fail["SendMessage"] = errors.New("missing access")

	_, err := svc.Create(ctx, h.member("user1"), SuggestionInput{Title: "Dark mode", Description: "Please"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUpstreamFailure))

	all, err := svc.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, all)

	_, err = svc.Get(ctx, 1)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	delete(h.client.Fail, "SendMessage")
	sug, err := svc.Create(ctx, h.member("user1"), SuggestionInput{Title: "Dark mode", Description: "Please"})
	require.NoError(t, err)
	assert.NotEmpty(t, sug.MessageID)
}

func TestSuggestionVotingIsIdempotentAndSwitches(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	svc := newSuggestionService(h, true)

	sug, err := svc.Create(ctx, h.member("user1"), SuggestionInput{Title: "t", Description: "d"})
	require.NoError(t, err)

	voter := h.member("user2")
	for i := 0; i < 3; i++ {
		sug, err = svc.Vote(ctx, voter, sug.ID, true)
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"user2"}, sug.Upvotes)
	assert.Empty(t, sug.Downvotes)

	sug, err = svc.Vote(ctx, voter, sug.ID, false)
	require.NoError(t, err)
	assert.Empty(t, sug.Upvotes)
	assert.Equal(t, []string{"user2"}, sug.Downvotes)

	_, err = svc.Vote(ctx, voter, 99, true)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestSuggestionApproveClosesVoting(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	svc := newSuggestionService(h, true)

	sug, err := svc.Create(ctx, h.member("user1"), SuggestionInput{Title: "t", Description: "d"})
	require.NoError(t, err)

	_, err = svc.Approve(ctx, h.member("user2"), sug.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodePermissionDenied))

	approved, err := svc.Approve(ctx, h.member("staff1"), sug.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SuggestionApproved, approved.Status)
	assert.Equal(t, "staff1", approved.ReviewedBy)
	assert.Len(t, h.client.Messages("suggestion-results"), 1)

	var disabled bool
	for _, e := range h.client.Edited {
		if e.ChannelID == "suggestions" && e.Message.Buttons[0].CustomID == "suggestion_upvote_1_disabled" {
			disabled = true
		}
	}
	assert.True(t, disabled)

	_, err = svc.Vote(ctx, h.member("user2"), sug.ID, true)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))

	_, err = svc.Consider(ctx, h.member("staff1"), sug.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already been approved")
}

func TestSuggestionDenyAnonymousNeedsChoice(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	svc := newSuggestionService(h, true)
	staff := h.member("staff1")

	anon, err := svc.Create(ctx, h.member("user1"), SuggestionInput{Title: "t", Description: "d", Anonymous: true})
	require.NoError(t, err)
	named, err := svc.Create(ctx, h.member("user2"), SuggestionInput{Title: "t2", Description: "d2"})
	require.NoError(t, err)

	outcome, err := svc.Deny(ctx, staff, anon.ID)
	require.NoError(t, err)
	assert.True(t, outcome.NeedsChoice)
	assert.Equal(t, domain.SuggestionPending, outcome.Suggestion.Status)

	denied, err := svc.ProcessDenial(ctx, staff, anon.ID, true)
	require.NoError(t, err)
	assert.Equal(t, domain.SuggestionDenied, denied.Status)

	outcome, err = svc.Deny(ctx, staff, named.ID)
	require.NoError(t, err)
	assert.False(t, outcome.NeedsChoice)
	assert.Equal(t, domain.SuggestionDenied, outcome.Suggestion.Status)

	list, err := svc.List(ctx, domain.SuggestionDenied)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, named.ID, list[0].ID)
}

func TestDenyChoiceButtons(t *testing.T) {
	buttons := DenyChoiceButtons(42)
	require.Len(t, buttons, 3)
	assert.Equal(t, "suggestion_deny_anonymous_42", buttons[0].CustomID)
	assert.Equal(t, "suggestion_deny_reveal_42", buttons[1].CustomID)
	assert.Equal(t, "suggestion_deny_cancel_42", buttons[2].CustomID)
}
