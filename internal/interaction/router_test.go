package interaction

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/modbot/internal/domain"
	"github.com/spec-kit/modbot/internal/platform/platformtest"
	apperrors "github.com/spec-kit/modbot/pkg/util/errorutil"
)

func button(id, token string) *domain.Interaction {
	return &domain.Interaction{ID: id, Kind: domain.InteractionButton, Token: token, Actor: &domain.Member{ID: "user1"}}
}

func newTestRouter() *Router {
	return NewRouter(RouterDependencies{Ledger: NewMemLedger(100, time.Minute)})
}

func TestDispatchRunsHandlerWithSubject(t *testing.T) {
	r := newTestRouter()
	var got Match
	r.Handle(ActionTicketClaim, func(ctx context.Context, req *Request) error {
		got = req.Match
		return req.Ephemeral(ctx, "claimed %s", req.Match.Subject)
	})

	resp := platformtest.NewResponder()
	r.Dispatch(context.Background(), button("i1", "ticket_claim_555"), resp)

	assert.Equal(t, "555", got.Subject)
	assert.Equal(t, "claimed 555", resp.Last())
}

func TestDispatchDisabledControlDoesNotRunHandler(t *testing.T) {
	r := newTestRouter()
	called := false
	r.Handle(ActionSuggestionUpvote, func(context.Context, *Request) error {
		called = true
		return nil
	})

	resp := platformtest.NewResponder()
	r.Dispatch(context.Background(), button("i1", "suggestion_upvote_3_disabled"), resp)

	assert.False(t, called)
	require.Len(t, resp.Replies, 1)
	assert.Equal(t, alreadyProcessedMessage, resp.Replies[0].Content)
	assert.True(t, resp.Replies[0].Ephemeral)
}

func TestDispatchAcknowledgedIsNoop(t *testing.T) {
	r := newTestRouter()
	called := false
	r.Handle(ActionTicketClaim, func(context.Context, *Request) error {
		called = true
		return nil
	})

	resp := platformtest.NewResponder()
	resp.MarkReplied()
	r.Dispatch(context.Background(), button("i1", "ticket_claim_1"), resp)

	assert.False(t, called)
	assert.Zero(t, resp.Count())
}

func TestDispatchDuplicateDeliveryIsIgnored(t *testing.T) {
	r := newTestRouter()
	calls := 0
	r.Handle(ActionSuggestionUpvote, func(ctx context.Context, req *Request) error {
		calls++
		return req.Ephemeral(ctx, "ok")
	})

	r.Dispatch(context.Background(), button("same", "suggestion_upvote_1"), platformtest.NewResponder())
	second := platformtest.NewResponder()
	r.Dispatch(context.Background(), button("same", "suggestion_upvote_1"), second)

	assert.Equal(t, 1, calls)
	assert.Zero(t, second.Count())
}

func TestDispatchDefersSuggestionButtons(t *testing.T) {
	r := newTestRouter()
	r.Handle(ActionSuggestionApprove, func(ctx context.Context, req *Request) error {
		return req.Ephemeral(ctx, "approved")
	})

	resp := platformtest.NewResponder()
	r.Dispatch(context.Background(), button("i1", "suggestion_approve_9"), resp)

	assert.Equal(t, 1, resp.Defers)
	require.Len(t, resp.Edits, 1)
	assert.Equal(t, "approved", resp.Edits[0].Content)
}

func TestDispatchMapsErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"permission", apperrors.NewPermissionDenied("You do not have permission to claim tickets."), "You do not have permission to claim tickets."},
		{"invalid", apperrors.NewInvalidInput("Amount must be between 1 and 100.", nil), "Amount must be between 1 and 100."},
		{"not found", apperrors.NewNotFound("Active ticket", nil), "Active ticket not found"},
		{"upstream", apperrors.NewUpstreamFailure("kick member", errors.New("403 missing access")), genericFailureMessage},
		{"plain", errors.New("disk full"), genericFailureMessage},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestRouter()
			r.Handle(ActionTicketClaim, func(context.Context, *Request) error { return tc.err })

			resp := platformtest.NewResponder()
			r.Dispatch(context.Background(), button("i1", "ticket_claim_1"), resp)
			assert.Equal(t, tc.want, resp.Last())
		})
	}
}

func TestDispatchRecoversPanics(t *testing.T) {
	r := newTestRouter()
	r.Handle(ActionTicketClaim, func(context.Context, *Request) error {
		var m map[string]int
		m["boom"]++
		return nil
	})

	resp := platformtest.NewResponder()
	assert.NotPanics(t, func() {
		r.Dispatch(context.Background(), button("i1", "ticket_claim_1"), resp)
	})
	assert.Equal(t, genericFailureMessage, resp.Last())
}

func TestDispatchErrorAfterReplyUsesFollowUp(t *testing.T) {
	r := newTestRouter()
	r.Handle(ActionTicketClaim, func(ctx context.Context, req *Request) error {
		if err := req.Ephemeral(ctx, "working"); err != nil {
			return err
		}
		return apperrors.NewInvalidInput("second thoughts", nil)
	})

	resp := platformtest.NewResponder()
	r.Dispatch(context.Background(), button("i1", "ticket_claim_1"), resp)
	require.Len(t, resp.FollowUps, 1)
	assert.Equal(t, "second thoughts", resp.FollowUps[0].Content)
}

func TestDispatchUnknownToken(t *testing.T) {
	r := newTestRouter()
	resp := platformtest.NewResponder()
	r.Dispatch(context.Background(), button("i1", "mystery_button"), resp)
	assert.Equal(t, "This interaction is not recognised.", resp.Last())

	unbound := platformtest.NewResponder()
	r.Dispatch(context.Background(), button("i2", "ticket_claim_1"), unbound)
	assert.Equal(t, "This interaction is not recognised.", unbound.Last())
}

func TestMemLedger(t *testing.T) {
	l := NewMemLedger(10, time.Minute)
	seen, err := l.Seen(context.Background(), "a")
	require.NoError(t, err)
	assert.False(t, seen)
	seen, err = l.Seen(context.Background(), "a")
	require.NoError(t, err)
	assert.True(t, seen)
}
