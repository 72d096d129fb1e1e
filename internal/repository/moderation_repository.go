package repository

import (
	"context"
	"slices"
	"sort"

	"github.com/spec-kit/modbot/internal/domain"
	"github.com/spec-kit/modbot/internal/store"
)

// ModerationRepository encapsulates cases, warnings and active sanctions.
type ModerationRepository interface {
	Case(ctx context.Context, id int) (*domain.ModerationCase, error)
	Warnings(ctx context.Context, userID string) ([]domain.Warning, error)
	CasesFor(ctx context.Context, userID string) ([]domain.ModerationCase, error)
	Sanction(ctx context.Context, kind domain.SanctionKind, userID string) (*domain.Sanction, error)
	ActiveSanctions(ctx context.Context) ([]domain.Sanction, error)
	Mutate(ctx context.Context, fn func(doc *domain.ModerationDocument) error) error
}

type moderationRepository struct {
	docs *store.Collection[domain.ModerationDocument]
}

// NewModerationRepository instantiates repository.
func NewModerationRepository(docs *store.Collection[domain.ModerationDocument]) ModerationRepository {
	return &moderationRepository{docs: docs}
}

func (r *moderationRepository) Case(ctx context.Context, id int) (*domain.ModerationCase, error) {
	var out *domain.ModerationCase
	err := r.docs.View(ctx, func(doc *domain.ModerationDocument) error {
		c, ok := doc.Cases[id]
		if !ok {
			return ErrNotFound
		}
		cp := *c
		out = &cp
		return nil
	})
	return out, err
}

func (r *moderationRepository) Warnings(ctx context.Context, userID string) ([]domain.Warning, error) {
	var out []domain.Warning
	err := r.docs.View(ctx, func(doc *domain.ModerationDocument) error {
		out = slices.Clone(doc.Warnings[userID])
		return nil
	})
	return out, err
}

func (r *moderationRepository) CasesFor(ctx context.Context, userID string) ([]domain.ModerationCase, error) {
	var out []domain.ModerationCase
	err := r.docs.View(ctx, func(doc *domain.ModerationDocument) error {
		for _, c := range doc.Cases {
			if c.TargetID == userID {
				out = append(out, *c)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

func (r *moderationRepository) Sanction(ctx context.Context, kind domain.SanctionKind, userID string) (*domain.Sanction, error) {
	var out *domain.Sanction
	err := r.docs.View(ctx, func(doc *domain.ModerationDocument) error {
		s, ok := doc.Sanctions(kind)[userID]
		if !ok {
			return ErrNotFound
		}
		cp := *s
		out = &cp
		return nil
	})
	return out, err
}

func (r *moderationRepository) ActiveSanctions(ctx context.Context) ([]domain.Sanction, error) {
	var out []domain.Sanction
	err := r.docs.View(ctx, func(doc *domain.ModerationDocument) error {
		for _, s := range doc.Mutes {
			out = append(out, *s)
		}
		for _, s := range doc.Bans {
			out = append(out, *s)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].AppliedAt.Before(out[j].AppliedAt) })
	return out, err
}

func (r *moderationRepository) Mutate(ctx context.Context, fn func(doc *domain.ModerationDocument) error) error {
	return r.docs.Update(ctx, fn)
}
