package domain

import (
	"slices"
	"time"
)

// SuggestionStatus enumerates review states.
type SuggestionStatus string

const (
	SuggestionPending     SuggestionStatus = "pending"
	SuggestionApproved    SuggestionStatus = "approved"
	SuggestionDenied      SuggestionStatus = "denied"
	SuggestionConsidering SuggestionStatus = "considering"
)

// Final reports whether no further review is possible.
func (s SuggestionStatus) Final() bool {
	return s == SuggestionApproved || s == SuggestionDenied
}

// Suggestion is a community proposal that members vote on.
type Suggestion struct {
	ID          int              `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	SubmitterID string           `json:"submitterId"`
	Anonymous   bool             `json:"anonymous"`
	Status      SuggestionStatus `json:"status"`
	Upvotes     []string         `json:"upvotes"`
	Downvotes   []string         `json:"downvotes"`
	ChannelID   string           `json:"channelId,omitempty"`
	MessageID   string           `json:"messageId,omitempty"`
	LogMessage  string           `json:"logMessageId,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
	ReviewedBy  string           `json:"reviewedBy,omitempty"`
	ReviewedAt  *time.Time       `json:"reviewedAt,omitempty"`
}

// Vote records userID on one side, removing any vote on the other side.
func (s *Suggestion) Vote(userID string, up bool) {
	s.Upvotes = slices.DeleteFunc(s.Upvotes, func(id string) bool { return id == userID })
	s.Downvotes = slices.DeleteFunc(s.Downvotes, func(id string) bool { return id == userID })
	if up {
		s.Upvotes = append(s.Upvotes, userID)
	} else {
		s.Downvotes = append(s.Downvotes, userID)
	}
}

// Score is upvotes minus downvotes.
func (s *Suggestion) Score() int {
	return len(s.Upvotes) - len(s.Downvotes)
}

// SuggestionDocument is the persisted suggestion state.
type SuggestionDocument struct {
	Suggestions map[int]*Suggestion `json:"suggestions"`
	Counter     int                 `json:"counter"`
}

// NewSuggestionDocument returns the empty document shape.
func NewSuggestionDocument() *SuggestionDocument {
	return &SuggestionDocument{Suggestions: map[int]*Suggestion{}}
}

// Normalize fills maps missing from older or hand-edited files.
func (d *SuggestionDocument) Normalize() {
	if d.Suggestions == nil {
		d.Suggestions = map[int]*Suggestion{}
	}
}
