package handlers

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/modbot/internal/api/dto"
	"github.com/spec-kit/modbot/internal/domain"
	"github.com/spec-kit/modbot/internal/sanction"
	apperrors "github.com/spec-kit/modbot/pkg/util/errorutil"
)

// ModerationReader is the read side of the moderation service.
type ModerationReader interface {
	LookupCase(ctx context.Context, id int) (*domain.ModerationCase, error)
	WarningsFor(ctx context.Context, userID string) ([]domain.Warning, error)
	ActiveSanctions(ctx context.Context) ([]domain.Sanction, error)
	PendingReversals() []sanction.Entry
}

// ModerationHandler exposes cases, warnings and sanctions.
type ModerationHandler struct {
	moderation ModerationReader
}

// NewModerationHandler constructs handler.
func NewModerationHandler(moderation ModerationReader) *ModerationHandler {
	return &ModerationHandler{moderation: moderation}
}

// GetCase GET /api/cases/:id.
func (h *ModerationHandler) GetCase(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil || id <= 0 {
		return apperrors.NewInvalidInput("invalid case id", map[string]any{"id": c.Params("id")})
	}
	mc, err := h.moderation.LookupCase(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewCaseResponse(mc)})
}

// ListWarnings GET /api/users/:id/warnings.
func (h *ModerationHandler) ListWarnings(c *fiber.Ctx) error {
	warnings, err := h.moderation.WarningsFor(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.WarningResponse, 0, len(warnings))
	for _, w := range warnings {
		items = append(items, dto.WarningResponse{ID: w.ID, ModeratorID: w.ModeratorID, Reason: w.Reason, Timestamp: w.Timestamp})
	}
	return c.JSON(fiber.Map{"data": items, "count": len(items)})
}

// ListSanctions GET /api/sanctions.
func (h *ModerationHandler) ListSanctions(c *fiber.Ctx) error {
	sanctions, err := h.moderation.ActiveSanctions(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewSanctionResponses(sanctions, h.moderation.PendingReversals())})
}
