package domain

import (
	"strings"
	"time"
)

// TicketPriority enumerates how urgent the requester says a ticket is.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "Low"
	TicketPriorityMedium TicketPriority = "Medium"
	TicketPriorityHigh   TicketPriority = "High"
	TicketPriorityUrgent TicketPriority = "Urgent"
)

// ParseTicketPriority maps free text onto a known priority, defaulting to Low.
func ParseTicketPriority(raw string) TicketPriority {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "medium":
		return TicketPriorityMedium
	case "high":
		return TicketPriorityHigh
	case "urgent":
		return TicketPriorityUrgent
	default:
		return TicketPriorityLow
	}
}

// Ticket is a private support channel opened by a member. ID is the channel id.
type Ticket struct {
	ID        string         `json:"id"`
	Number    int            `json:"number"`
	OwnerID   string         `json:"ownerId"`
	Category  string         `json:"category"`
	Reason    string         `json:"reason"`
	Priority  TicketPriority `json:"priority"`
	Active    bool           `json:"active"`
	ClaimedBy string         `json:"claimedBy,omitempty"`
	ClaimedAt *time.Time     `json:"claimedAt,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	ClosedAt  *time.Time     `json:"closedAt,omitempty"`
	ClosedBy  string         `json:"closedBy,omitempty"`
}

// TicketDocument is the persisted ticket state. UserTickets indexes channel
// ids by owner.
type TicketDocument struct {
	Tickets     map[string]*Ticket  `json:"tickets"`
	UserTickets map[string][]string `json:"userTickets"`
	Counter     int                 `json:"counter"`
}

// NewTicketDocument returns the empty document shape.
func NewTicketDocument() *TicketDocument {
	return &TicketDocument{
		Tickets:     map[string]*Ticket{},
		UserTickets: map[string][]string{},
	}
}

// Normalize fills maps missing from older or hand-edited files.
func (d *TicketDocument) Normalize() {
	if d.Tickets == nil {
		d.Tickets = map[string]*Ticket{}
	}
	if d.UserTickets == nil {
		d.UserTickets = map[string][]string{}
	}
}

// ActiveFor returns the owner's open tickets in creation order.
func (d *TicketDocument) ActiveFor(ownerID string) []*Ticket {
	var out []*Ticket
	for _, id := range d.UserTickets[ownerID] {
		if t, ok := d.Tickets[id]; ok && t.Active {
			out = append(out, t)
		}
	}
	return out
}

// Add stores a new ticket, assigning the next ticket number.
func (d *TicketDocument) Add(t *Ticket) {
	d.Counter++
	t.Number = d.Counter
	d.Tickets[t.ID] = t
	d.UserTickets[t.OwnerID] = append(d.UserTickets[t.OwnerID], t.ID)
}
