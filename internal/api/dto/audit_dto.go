package dto

import (
	"time"

	"github.com/spec-kit/modbot/internal/domain"
)

// AuditRecordResponse is one stored audit event.
type AuditRecordResponse struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Domain    string         `json:"domain"`
	ActorID   string         `json:"actor_id"`
	TargetID  string         `json:"target_id"`
	Summary   string         `json:"summary"`
	Payload   map[string]any `json:"payload,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// NewAuditRecordResponse maps a record.
func NewAuditRecordResponse(r *domain.AuditRecord) AuditRecordResponse {
	return AuditRecordResponse{
		ID:        r.ID,
		Type:      r.Type,
		Domain:    r.Domain,
		ActorID:   r.ActorID,
		TargetID:  r.TargetID,
		Summary:   r.Summary,
		Payload:   r.Payload,
		CreatedAt: r.CreatedAt,
	}
}
