package domain

import "slices"

// Member is a guild member as seen by permission checks.
type Member struct {
	ID            string   `json:"id"`
	Username      string   `json:"username"`
	Roles         []string `json:"roles"`
	Administrator bool     `json:"administrator"`
	Bot           bool     `json:"bot"`
}

// HasRole reports whether the member carries roleID. Empty ids never match.
func (m *Member) HasRole(roleID string) bool {
	if m == nil || roleID == "" {
		return false
	}
	return slices.Contains(m.Roles, roleID)
}

// Mention renders the platform mention for a user id.
func Mention(userID string) string {
	return "<@" + userID + ">"
}

// ChannelMention renders the platform mention for a channel id.
func ChannelMention(channelID string) string {
	return "<#" + channelID + ">"
}
