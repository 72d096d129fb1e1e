package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/modbot/internal/api/dto"
	"github.com/spec-kit/modbot/internal/domain"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 500
)

// AuditReader returns stored audit records.
type AuditReader interface {
	Recent(ctx context.Context, targetID string, limit int) ([]domain.AuditRecord, error)
}

// AuditHandler exposes the audit sink.
type AuditHandler struct {
	audit AuditReader
}

// NewAuditHandler constructs handler.
func NewAuditHandler(audit AuditReader) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// ListAudit GET /api/audit?limit=&target=.
func (h *AuditHandler) ListAudit(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", defaultAuditLimit)
	if limit <= 0 {
		limit = defaultAuditLimit
	}
	limit = min(limit, maxAuditLimit)

	records, err := h.audit.Recent(c.UserContext(), c.Query("target"), limit)
	if err != nil {
		return err
	}
	items := make([]dto.AuditRecordResponse, 0, len(records))
	for i := range records {
		items = append(items, dto.NewAuditRecordResponse(&records[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}
