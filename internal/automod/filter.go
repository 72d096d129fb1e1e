// Package automod inspects guild messages and enforces the configured filters.
package automod

import (
	"context"

	"github.com/spec-kit/modbot/internal/domain"
)

// Filter names, also used as metric labels.
const (
	FilterSpam       = "spam"
	FilterInvite     = "invite"
	FilterCaps       = "caps"
	FilterBannedWord = "banned_word"
)

// Finding is what a filter reports when a message violates it.
type Finding struct {
	Filter string
	Reason string
	// Messages lists everything to remove, grouped by channel. Content filters
	// only remove the offending message.
	Messages map[string][]string
}

// Filter inspects one message.
type Filter interface {
	Name() string
	Inspect(ctx context.Context, msg domain.Message) *Finding
}

func single(filter, reason string, msg domain.Message) *Finding {
	return &Finding{
		Filter:   filter,
		Reason:   reason,
		Messages: map[string][]string{msg.ChannelID: {msg.ID}},
	}
}
