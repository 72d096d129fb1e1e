package handlers

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/modbot/internal/api/dto"
	"github.com/spec-kit/modbot/internal/domain"
	apperrors "github.com/spec-kit/modbot/pkg/util/errorutil"
)

// SuggestionReader is the read side of the suggestion service.
type SuggestionReader interface {
	Get(ctx context.Context, id int) (*domain.Suggestion, error)
	List(ctx context.Context, status domain.SuggestionStatus) ([]domain.Suggestion, error)
}

// SuggestionsHandler lists suggestions.
type SuggestionsHandler struct {
	suggestions SuggestionReader
}

// NewSuggestionsHandler constructs handler.
func NewSuggestionsHandler(suggestions SuggestionReader) *SuggestionsHandler {
	return &SuggestionsHandler{suggestions: suggestions}
}

// ListSuggestions GET /api/suggestions?status=.
func (h *SuggestionsHandler) ListSuggestions(c *fiber.Ctx) error {
	status := domain.SuggestionStatus(c.Query("status"))
	switch status {
	case "", domain.SuggestionPending, domain.SuggestionApproved, domain.SuggestionDenied, domain.SuggestionConsidering:
	default:
		return apperrors.NewInvalidInput("unknown status", map[string]any{"status": string(status)})
	}
	list, err := h.suggestions.List(c.UserContext(), status)
	if err != nil {
		return err
	}
	items := make([]dto.SuggestionResponse, 0, len(list))
	for i := range list {
		items = append(items, dto.NewSuggestionResponse(&list[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetSuggestion GET /api/suggestions/:id.
func (h *SuggestionsHandler) GetSuggestion(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil || id <= 0 {
		return apperrors.NewInvalidInput("invalid suggestion id", map[string]any{"id": c.Params("id")})
	}
	s, err := h.suggestions.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewSuggestionResponse(s)})
}
