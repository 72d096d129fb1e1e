package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/modbot/internal/api/dto"
	"github.com/spec-kit/modbot/internal/domain"
)

// TicketLister is the read side of the ticket service.
type TicketLister interface {
	ListForOwner(ctx context.Context, ownerID string) ([]domain.Ticket, error)
}

// TicketsHandler lists tickets.
type TicketsHandler struct {
	tickets TicketLister
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(tickets TicketLister) *TicketsHandler {
	return &TicketsHandler{tickets: tickets}
}

// ListTickets GET /api/tickets?user=. Without a user, every open ticket.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	tickets, err := h.tickets.ListForOwner(c.UserContext(), c.Query("user"))
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, dto.NewTicketSummary(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}
