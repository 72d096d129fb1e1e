package domain

import "time"

// AuditRecord is an event persisted to the audit sink.
type AuditRecord struct {
	ID        string
	Type      string
	Domain    string
	ActorID   string
	TargetID  string
	Summary   string
	Payload   map[string]any
	CreatedAt time.Time
}
