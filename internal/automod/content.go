package automod

import (
	"context"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/spec-kit/modbot/internal/domain"
)

var invitePattern = regexp.MustCompile(`(?i)(https?://)?(www\.)?(discord\.(gg|io|me|li)|discordapp\.com/invite)/.+`)

// InviteFilter rejects server invite links.
type InviteFilter struct{}

func (InviteFilter) Name() string { return FilterInvite }

func (InviteFilter) Inspect(_ context.Context, msg domain.Message) *Finding {
	if !invitePattern.MatchString(msg.Content) {
		return nil
	}
	return single(FilterInvite, "Discord invite link", msg)
}

// CapsFilter rejects long messages that are mostly uppercase.
type CapsFilter struct {
	Threshold float64
	MinLength int
}

func (CapsFilter) Name() string { return FilterCaps }

func (f CapsFilter) Inspect(_ context.Context, msg domain.Message) *Finding {
	if CapsRatio(msg.Content, f.MinLength) <= f.Threshold {
		return nil
	}
	return single(FilterCaps, "Excessive caps", msg)
}

// CapsRatio is the fraction of uppercase runes in content. Content with
// minLength runes or fewer scores zero.
func CapsRatio(content string, minLength int) float64 {
	n := utf8.RuneCountInString(content)
	if n <= minLength || n == 0 {
		return 0
	}
	upper := 0
	for _, r := range content {
		if unicode.IsUpper(r) {
			upper++
		}
	}
	return float64(upper) / float64(n)
}

// BannedWordFilter rejects messages containing a configured word.
type BannedWordFilter struct {
	words []string
}

// NewBannedWordFilter lowercases and drops empty entries.
func NewBannedWordFilter(words []string) *BannedWordFilter {
	f := &BannedWordFilter{}
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			f.words = append(f.words, w)
		}
	}
	return f
}

func (f *BannedWordFilter) Name() string { return FilterBannedWord }

func (f *BannedWordFilter) Inspect(_ context.Context, msg domain.Message) *Finding {
	content := strings.ToLower(msg.Content)
	for _, w := range f.words {
		if strings.Contains(content, w) {
			return single(FilterBannedWord, "Inappropriate language", msg)
		}
	}
	return nil
}
