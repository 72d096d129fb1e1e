package repository

import (
	"context"
	"sort"

	"github.com/spec-kit/modbot/internal/domain"
	"github.com/spec-kit/modbot/internal/store"
)

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Get(ctx context.Context, channelID string) (*domain.Ticket, error)
	ListByOwner(ctx context.Context, ownerID string, activeOnly bool) ([]domain.Ticket, error)
	ListActive(ctx context.Context) ([]domain.Ticket, error)
	// Mutate runs fn against the ticket document and persists the result when
	// fn succeeds. Nothing else can write the document while fn runs.
	Mutate(ctx context.Context, fn func(doc *domain.TicketDocument) error) error
}

type ticketRepository struct {
	docs *store.Collection[domain.TicketDocument]
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(docs *store.Collection[domain.TicketDocument]) TicketRepository {
	return &ticketRepository{docs: docs}
}

func (r *ticketRepository) Get(ctx context.Context, channelID string) (*domain.Ticket, error) {
	var out *domain.Ticket
	err := r.docs.View(ctx, func(doc *domain.TicketDocument) error {
		t, ok := doc.Tickets[channelID]
		if !ok {
			return ErrNotFound
		}
		cp := *t
		out = &cp
		return nil
	})
	return out, err
}

func (r *ticketRepository) ListByOwner(ctx context.Context, ownerID string, activeOnly bool) ([]domain.Ticket, error) {
	var out []domain.Ticket
	err := r.docs.View(ctx, func(doc *domain.TicketDocument) error {
		for _, id := range doc.UserTickets[ownerID] {
			t, ok := doc.Tickets[id]
			if !ok || (activeOnly && !t.Active) {
				continue
			}
			out = append(out, *t)
		}
		return nil
	})
	return out, err
}

func (r *ticketRepository) ListActive(ctx context.Context) ([]domain.Ticket, error) {
	var out []domain.Ticket
	err := r.docs.View(ctx, func(doc *domain.TicketDocument) error {
		for _, t := range doc.Tickets {
			if t.Active {
				out = append(out, *t)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, err
}

func (r *ticketRepository) Mutate(ctx context.Context, fn func(doc *domain.TicketDocument) error) error {
	return r.docs.Update(ctx, fn)
}
