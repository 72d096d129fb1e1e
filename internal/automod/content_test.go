package automod

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/modbot/internal/domain"
)

func TestInvitePattern(t *testing.T) {
	cases := map[string]bool{
		"discord.gg/abc":                       true,
		"https://www.discord.io/xyz":           true,
		"see HTTP://DISCORDAPP.COM/INVITE/abc": true,
		"discord.me/":                          false,
		"discord.com/channels/1":               false,
		"just chatting":                        false,
	}
	for content, want := range cases {
		got := InviteFilter{}.Inspect(context.Background(), domain.Message{ID: "1", Content: content}) != nil
		assert.Equal(t, want, got, content)
	}
}

func TestCapsRatio(t *testing.T) {
	assert.Zero(t, CapsRatio("HELLO", 10))
	assert.Zero(t, CapsRatio("ABCDEFGHIJ", 10))
	assert.InDelta(t, 1.0, CapsRatio("ABCDEFGHIJK", 10), 0.001)
	assert.InDelta(t, 0.5, CapsRatio("ABCDEFghijkl", 10), 0.001)

	f := CapsFilter{Threshold: 0.7, MinLength: 10}
	assert.NotNil(t, f.Inspect(context.Background(), domain.Message{Content: "STOP SHOUTING NOW"}))
	assert.Nil(t, f.Inspect(context.Background(), domain.Message{Content: "Stop shouting now"}))
}

func TestBannedWordFilterIgnoresCaseAndBlanks(t *testing.T) {
	f := NewBannedWordFilter([]string{" Spoiler ", ""})
	assert.NotNil(t, f.Inspect(context.Background(), domain.Message{Content: "SPOILERS ahead"}))
	assert.Nil(t, f.Inspect(context.Background(), domain.Message{Content: "nothing here"}))
}
