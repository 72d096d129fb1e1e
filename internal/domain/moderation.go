package domain

import "time"

// CaseType enumerates moderation case kinds.
type CaseType string

const (
	CaseWarn   CaseType = "warn"
	CaseMute   CaseType = "mute"
	CaseKick   CaseType = "kick"
	CaseBan    CaseType = "ban"
	CaseUnmute CaseType = "unmute"
	CaseUnban  CaseType = "unban"
)

// ModerationCase is the immutable record of one moderation action. Only Active
// changes after creation.
type ModerationCase struct {
	ID          int       `json:"id"`
	Type        CaseType  `json:"type"`
	ModeratorID string    `json:"moderatorId"`
	TargetID    string    `json:"targetId"`
	Reason      string    `json:"reason"`
	DurationMs  *int64    `json:"duration"`
	Timestamp   time.Time `json:"timestamp"`
	Active      bool      `json:"active"`
}

// Duration returns the case duration, zero when permanent.
func (c ModerationCase) Duration() time.Duration {
	if c.DurationMs == nil {
		return 0
	}
	return time.Duration(*c.DurationMs) * time.Millisecond
}

// Warning is one entry in a user's warning history.
type Warning struct {
	ID          int64     `json:"id"`
	ModeratorID string    `json:"moderatorId"`
	Reason      string    `json:"reason"`
	Timestamp   time.Time `json:"timestamp"`
}

// SanctionKind enumerates reversible sanctions.
type SanctionKind string

const (
	SanctionMute SanctionKind = "mute"
	SanctionBan  SanctionKind = "ban"
)

// Sanction is an active mute or ban. A nil DurationMs means permanent.
type Sanction struct {
	TargetID    string       `json:"targetId"`
	Kind        SanctionKind `json:"kind"`
	ModeratorID string       `json:"moderatorId"`
	Reason      string       `json:"reason"`
	AppliedAt   time.Time    `json:"appliedAt"`
	DurationMs  *int64       `json:"durationMs"`
	CaseID      int          `json:"caseId"`
}

// ExpiresAt reports when a time-bounded sanction lapses.
func (s Sanction) ExpiresAt() (time.Time, bool) {
	if s.DurationMs == nil {
		return time.Time{}, false
	}
	return s.AppliedAt.Add(time.Duration(*s.DurationMs) * time.Millisecond), true
}

// ModerationDocument is the persisted moderation state.
type ModerationDocument struct {
	Warnings    map[string][]Warning    `json:"warnings"`
	Mutes       map[string]*Sanction    `json:"mutes"`
	Bans        map[string]*Sanction    `json:"bans"`
	Cases       map[int]*ModerationCase `json:"cases"`
	CaseCounter int                     `json:"caseCounter"`
}

// NewModerationDocument returns the empty document shape.
func NewModerationDocument() *ModerationDocument {
	return &ModerationDocument{
		Warnings: map[string][]Warning{},
		Mutes:    map[string]*Sanction{},
		Bans:     map[string]*Sanction{},
		Cases:    map[int]*ModerationCase{},
	}
}

// Normalize fills maps missing from older or hand-edited files.
func (d *ModerationDocument) Normalize() {
	if d.Warnings == nil {
		d.Warnings = map[string][]Warning{}
	}
	if d.Mutes == nil {
		d.Mutes = map[string]*Sanction{}
	}
	if d.Bans == nil {
		d.Bans = map[string]*Sanction{}
	}
	if d.Cases == nil {
		d.Cases = map[int]*ModerationCase{}
	}
}

// Sanctions returns the map holding sanctions of the given kind.
func (d *ModerationDocument) Sanctions(kind SanctionKind) map[string]*Sanction {
	if kind == SanctionBan {
		return d.Bans
	}
	return d.Mutes
}

// DurationMillis converts a duration into the persisted representation.
func DurationMillis(d time.Duration) *int64 {
	if d <= 0 {
		return nil
	}
	ms := d.Milliseconds()
	return &ms
}

// OpenCase appends a new case with the next case id.
func (d *ModerationDocument) OpenCase(caseType CaseType, moderatorID, targetID, reason string, duration time.Duration, at time.Time) *ModerationCase {
	d.CaseCounter++
	c := &ModerationCase{
		ID:          d.CaseCounter,
		Type:        caseType,
		ModeratorID: moderatorID,
		TargetID:    targetID,
		Reason:      reason,
		DurationMs:  DurationMillis(duration),
		Timestamp:   at,
		Active:      true,
	}
	d.Cases[c.ID] = c
	return c
}
