package dto

import (
	"time"

	"github.com/spec-kit/modbot/internal/domain"
)

// SuggestionResponse represents a suggestion. The submitter is withheld for
// anonymous suggestions.
type SuggestionResponse struct {
	ID          int                     `json:"id"`
	Title       string                  `json:"title"`
	Description string                  `json:"description"`
	SubmitterID string                  `json:"submitter_id,omitempty"`
	Anonymous   bool                    `json:"anonymous"`
	Status      domain.SuggestionStatus `json:"status"`
	Upvotes     int                     `json:"upvotes"`
	Downvotes   int                     `json:"downvotes"`
	Score       int                     `json:"score"`
	CreatedAt   time.Time               `json:"created_at"`
	ReviewedBy  string                  `json:"reviewed_by,omitempty"`
	ReviewedAt  *time.Time              `json:"reviewed_at,omitempty"`
}

// NewSuggestionResponse maps a suggestion.
func NewSuggestionResponse(s *domain.Suggestion) SuggestionResponse {
	resp := SuggestionResponse{
		ID:          s.ID,
		Title:       s.Title,
		Description: s.Description,
		Anonymous:   s.Anonymous,
		Status:      s.Status,
		Upvotes:     len(s.Upvotes),
		Downvotes:   len(s.Downvotes),
		Score:       s.Score(),
		CreatedAt:   s.CreatedAt,
		ReviewedBy:  s.ReviewedBy,
		ReviewedAt:  s.ReviewedAt,
	}
	if !s.Anonymous {
		resp.SubmitterID = s.SubmitterID
	}
	return resp
}
