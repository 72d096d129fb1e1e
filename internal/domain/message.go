package domain

import "time"

// Message is a guild chat message delivered to the filter chain.
type Message struct {
	ID        string
	GuildID   string
	ChannelID string
	AuthorID  string
	AuthorBot bool
	Member    *Member
	Content   string
	Timestamp time.Time
}

// ChatMessage is a message fetched from channel history.
type ChatMessage struct {
	ID        string
	AuthorID  string
	Author    string
	Content   string
	Timestamp time.Time
}
