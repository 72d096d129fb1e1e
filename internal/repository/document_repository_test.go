package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/modbot/internal/domain"
	"github.com/spec-kit/modbot/internal/store"
)

func TestSuggestionRepositoryAssignsSequentialIDs(t *testing.T) {
	ctx := context.Background()
	repo := NewSuggestionRepository(store.NewCollection(t.TempDir(), "suggestions", domain.NewSuggestionDocument, nil))

	for i := 0; i < 3; i++ {
		s := &domain.Suggestion{Title: "idea", Status: domain.SuggestionPending}
		require.NoError(t, repo.Create(ctx, s))
		assert.Equal(t, i+1, s.ID)
	}

	_, err := repo.Update(ctx, 2, func(s *domain.Suggestion) error {
		s.Status = domain.SuggestionApproved
		return nil
	})
	require.NoError(t, err)

	all, err := repo.List(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, 3, all[0].ID)

	approved, err := repo.List(ctx, domain.SuggestionApproved, 10)
	require.NoError(t, err)
	require.Len(t, approved, 1)
	assert.Equal(t, 2, approved[0].ID)

	_, err = repo.Get(ctx, 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSuggestionRepositoryDeleteKeepsCounter(t *testing.T) {
	ctx := context.Background()
	repo := NewSuggestionRepository(store.NewCollection(t.TempDir(), "suggestions", domain.NewSuggestionDocument, nil))

	first := &domain.Suggestion{Title: "idea"}
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Delete(ctx, first.ID))
	assert.ErrorIs(t, repo.Delete(ctx, first.ID), ErrNotFound)

	next := &domain.Suggestion{Title: "another"}
	require.NoError(t, repo.Create(ctx, next))
	assert.Equal(t, 2, next.ID)

	all, err := repo.List(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, 2, all[0].ID)
}

func TestTicketRepositoryIndexesByOwner(t *testing.T) {
	ctx := context.Background()
	repo := NewTicketRepository(store.NewCollection(t.TempDir(), "tickets", domain.NewTicketDocument, nil))

	require.NoError(t, repo.Mutate(ctx, func(doc *domain.TicketDocument) error {
		doc.Add(&domain.Ticket{ID: "c1", OwnerID: "u1", Active: true})
		doc.Add(&domain.Ticket{ID: "c2", OwnerID: "u1", Active: false})
		doc.Add(&domain.Ticket{ID: "c3", OwnerID: "u2", Active: true})
		return nil
	}))

	mine, err := repo.ListByOwner(ctx, "u1", true)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "c1", mine[0].ID)
	assert.Equal(t, 1, mine[0].Number)

	active, err := repo.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 2)

	got, err := repo.Get(ctx, "c3")
	require.NoError(t, err)
	assert.Equal(t, 3, got.Number)
}

func TestModerationRepositorySanctions(t *testing.T) {
	ctx := context.Background()
	repo := NewModerationRepository(store.NewCollection(t.TempDir(), "moderation", domain.NewModerationDocument, nil))

	now := time.Now()
	require.NoError(t, repo.Mutate(ctx, func(doc *domain.ModerationDocument) error {
		c := doc.OpenCase(domain.CaseMute, "mod", "u1", "spam", time.Hour, now)
		doc.Mutes["u1"] = &domain.Sanction{TargetID: "u1", Kind: domain.SanctionMute, AppliedAt: now, DurationMs: c.DurationMs, CaseID: c.ID}
		doc.OpenCase(domain.CaseBan, "mod", "u2", "raid", 0, now)
		doc.Bans["u2"] = &domain.Sanction{TargetID: "u2", Kind: domain.SanctionBan, AppliedAt: now.Add(time.Second), CaseID: 2}
		return nil
	}))

	s, err := repo.Sanction(ctx, domain.SanctionMute, "u1")
	require.NoError(t, err)
	exp, ok := s.ExpiresAt()
	require.True(t, ok)
	assert.WithinDuration(t, now.Add(time.Hour), exp, time.Millisecond)

	_, err = repo.Sanction(ctx, domain.SanctionBan, "u1")
	assert.ErrorIs(t, err, ErrNotFound)

	all, err := repo.ActiveSanctions(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "u1", all[0].TargetID)

	c, err := repo.Case(ctx, 2)
	require.NoError(t, err)
	assert.Nil(t, c.DurationMs)
	assert.True(t, c.Active)
}
