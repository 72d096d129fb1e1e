package dto

import (
	"time"

	"github.com/spec-kit/modbot/internal/domain"
)

// TicketSummary response.
type TicketSummary struct {
	ChannelID string                `json:"channel_id"`
	Number    int                   `json:"number"`
	OwnerID   string                `json:"owner_id"`
	Category  string                `json:"category"`
	Reason    string                `json:"reason"`
	Priority  domain.TicketPriority `json:"priority"`
	Active    bool                  `json:"active"`
	ClaimedBy string                `json:"claimed_by,omitempty"`
	CreatedAt time.Time             `json:"created_at"`
	ClosedAt  *time.Time            `json:"closed_at,omitempty"`
	ClosedBy  string                `json:"closed_by,omitempty"`
}

// NewTicketSummary maps a ticket.
func NewTicketSummary(t *domain.Ticket) TicketSummary {
	return TicketSummary{
		ChannelID: t.ID,
		Number:    t.Number,
		OwnerID:   t.OwnerID,
		Category:  t.Category,
		Reason:    t.Reason,
		Priority:  t.Priority,
		Active:    t.Active,
		ClaimedBy: t.ClaimedBy,
		CreatedAt: t.CreatedAt,
		ClosedAt:  t.ClosedAt,
		ClosedBy:  t.ClosedBy,
	}
}
