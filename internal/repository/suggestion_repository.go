package repository

import (
	"context"
	"sort"

	"github.com/spec-kit/modbot/internal/domain"
	"github.com/spec-kit/modbot/internal/store"
)

// SuggestionRepository encapsulates suggestion persistence.
type SuggestionRepository interface {
	Create(ctx context.Context, s *domain.Suggestion) error
	Get(ctx context.Context, id int) (*domain.Suggestion, error)
	Delete(ctx context.Context, id int) error
	// Update applies fn to the stored suggestion and returns the saved copy.
	Update(ctx context.Context, id int, fn func(s *domain.Suggestion) error) (*domain.Suggestion, error)
	// List returns suggestions newest first. An empty status matches all.
	List(ctx context.Context, status domain.SuggestionStatus, limit int) ([]domain.Suggestion, error)
}

type suggestionRepository struct {
	docs *store.Collection[domain.SuggestionDocument]
}

// NewSuggestionRepository instantiates repository.
func NewSuggestionRepository(docs *store.Collection[domain.SuggestionDocument]) SuggestionRepository {
	return &suggestionRepository{docs: docs}
}

func (r *suggestionRepository) Create(ctx context.Context, s *domain.Suggestion) error {
	return r.docs.Update(ctx, func(doc *domain.SuggestionDocument) error {
		doc.Counter++
		s.ID = doc.Counter
		cp := *s
		doc.Suggestions[s.ID] = &cp
		return nil
	})
}

func (r *suggestionRepository) Get(ctx context.Context, id int) (*domain.Suggestion, error) {
	var out *domain.Suggestion
	err := r.docs.View(ctx, func(doc *domain.SuggestionDocument) error {
		s, ok := doc.Suggestions[id]
		if !ok {
			return ErrNotFound
		}
		cp := *s
		out = &cp
		return nil
	})
	return out, err
}

func (r *suggestionRepository) Delete(ctx context.Context, id int) error {
	return r.docs.Update(ctx, func(doc *domain.SuggestionDocument) error {
		if _, ok := doc.Suggestions[id]; !ok {
			return ErrNotFound
		}
		delete(doc.Suggestions, id)
		return nil
	})
}

func (r *suggestionRepository) Update(ctx context.Context, id int, fn func(s *domain.Suggestion) error) (*domain.Suggestion, error) {
	var out *domain.Suggestion
	err := r.docs.Update(ctx, func(doc *domain.SuggestionDocument) error {
		s, ok := doc.Suggestions[id]
		if !ok {
			return ErrNotFound
		}
		if err := fn(s); err != nil {
			return err
		}
		cp := *s
		out = &cp
		return nil
	})
	return out, err
}

func (r *suggestionRepository) List(ctx context.Context, status domain.SuggestionStatus, limit int) ([]domain.Suggestion, error) {
	var out []domain.Suggestion
	err := r.docs.View(ctx, func(doc *domain.SuggestionDocument) error {
		for _, s := range doc.Suggestions {
			if status == "" || s.Status == status {
				out = append(out, *s)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
