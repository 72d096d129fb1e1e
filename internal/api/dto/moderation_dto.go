package dto

import (
	"time"

	"github.com/spec-kit/modbot/internal/domain"
	"github.com/spec-kit/modbot/internal/sanction"
)

// CaseResponse represents one moderation case.
type CaseResponse struct {
	ID          int             `json:"id"`
	Type        domain.CaseType `json:"type"`
	ModeratorID string          `json:"moderator_id"`
	TargetID    string          `json:"target_id"`
	Reason      string          `json:"reason"`
	DurationMs  *int64          `json:"duration_ms"`
	Timestamp   time.Time       `json:"timestamp"`
	Active      bool            `json:"active"`
}

// NewCaseResponse maps a case.
func NewCaseResponse(c *domain.ModerationCase) CaseResponse {
	return CaseResponse{
		ID:          c.ID,
		Type:        c.Type,
		ModeratorID: c.ModeratorID,
		TargetID:    c.TargetID,
		Reason:      c.Reason,
		DurationMs:  c.DurationMs,
		Timestamp:   c.Timestamp,
		Active:      c.Active,
	}
}

// WarningResponse is one warning history entry.
type WarningResponse struct {
	ID          int64     `json:"id"`
	ModeratorID string    `json:"moderator_id"`
	Reason      string    `json:"reason"`
	Timestamp   time.Time `json:"timestamp"`
}

// SanctionResponse describes an active mute or ban and its pending reversal.
type SanctionResponse struct {
	TargetID    string              `json:"target_id"`
	Kind        domain.SanctionKind `json:"kind"`
	ModeratorID string              `json:"moderator_id"`
	Reason      string              `json:"reason"`
	CaseID      int                 `json:"case_id"`
	AppliedAt   time.Time           `json:"applied_at"`
	ExpiresAt   *time.Time          `json:"expires_at"`
	Scheduled   bool                `json:"scheduled"`
}

// NewSanctionResponses joins recorded sanctions with the scheduler's pending
// reversals.
func NewSanctionResponses(sanctions []domain.Sanction, pending []sanction.Entry) []SanctionResponse {
	scheduled := make(map[sanction.Key]bool, len(pending))
	for _, e := range pending {
		scheduled[e.Key] = true
	}
	out := make([]SanctionResponse, 0, len(sanctions))
	for _, s := range sanctions {
		resp := SanctionResponse{
			TargetID:    s.TargetID,
			Kind:        s.Kind,
			ModeratorID: s.ModeratorID,
			Reason:      s.Reason,
			CaseID:      s.CaseID,
			AppliedAt:   s.AppliedAt,
			Scheduled:   scheduled[sanction.Key{TargetID: s.TargetID, Kind: s.Kind}],
		}
		if at, ok := s.ExpiresAt(); ok {
			resp.ExpiresAt = &at
		}
		out = append(out, resp)
	}
	return out
}
