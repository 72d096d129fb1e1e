// Package platform defines the chat-platform surface the bot core depends on.
// The discord subpackage implements it over the gateway and REST API.
package platform

import (
	"context"
	"errors"

	"github.com/spec-kit/modbot/internal/domain"
)

// ErrNotFound is returned when a member, message or channel does not exist.
var ErrNotFound = errors.New("platform: not found")

// Client is the outbound API used by services.
type Client interface {
	GetMember(ctx context.Context, guildID, userID string) (*domain.Member, error)
	AddRole(ctx context.Context, guildID, userID, roleID, reason string) error
	RemoveRole(ctx context.Context, guildID, userID, roleID, reason string) error
	Kick(ctx context.Context, guildID, userID, reason string) error
	Ban(ctx context.Context, guildID, userID, reason string, deleteMessageDays int) error
	Unban(ctx context.Context, guildID, userID, reason string) error
	IsBanned(ctx context.Context, guildID, userID string) (bool, error)

	SendMessage(ctx context.Context, channelID string, msg OutgoingMessage) (string, error)
	EditMessage(ctx context.Context, channelID, messageID string, msg OutgoingMessage) error
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	BulkDelete(ctx context.Context, channelID string, messageIDs []string) error
	FetchMessages(ctx context.Context, channelID string, limit int) ([]domain.ChatMessage, error)
	SendDirect(ctx context.Context, userID string, msg OutgoingMessage) error

	CreateTicketChannel(ctx context.Context, spec TicketChannelSpec) (string, error)
	SetChannelAccess(ctx context.Context, channelID, userID string, allow bool) error
	DeleteChannel(ctx context.Context, channelID, reason string) error
}

// Responder answers one inbound interaction.
type Responder interface {
	// Acknowledged reports whether the interaction was replied to or deferred.
	Acknowledged() bool
	// Deferred reports whether a deferred response is waiting for an edit.
	Deferred() bool

	Reply(ctx context.Context, reply Reply) error
	Defer(ctx context.Context, ephemeral bool) error
	Edit(ctx context.Context, reply Reply) error
	FollowUp(ctx context.Context, reply Reply) error
	Modal(ctx context.Context, modal Modal) error
	// UpdateMessage replaces the message the component is attached to.
	UpdateMessage(ctx context.Context, reply Reply) error
}

// Respond delivers reply using whichever primitive the interaction state allows.
func Respond(ctx context.Context, r Responder, reply Reply) error {
	switch {
	case r.Deferred():
		return r.Edit(ctx, reply)
	case r.Acknowledged():
		return r.FollowUp(ctx, reply)
	default:
		return r.Reply(ctx, reply)
	}
}

// ButtonStyle maps onto the platform button colours.
type ButtonStyle int

const (
	ButtonPrimary ButtonStyle = iota + 1
	ButtonSecondary
	ButtonSuccess
	ButtonDanger
)

// Button is a clickable component. CustomID is the interaction token.
type Button struct {
	CustomID string
	Label    string
	Style    ButtonStyle
	Disabled bool
}

// SelectOption is one entry of a select menu.
type SelectOption struct {
	Label       string
	Value       string
	Description string
}

// SelectMenu is a string select component.
type SelectMenu struct {
	CustomID    string
	Placeholder string
	Options     []SelectOption
}

// File is an attachment.
type File struct {
	Name    string
	Content []byte
}

// OutgoingMessage is a channel message.
type OutgoingMessage struct {
	Content string
	Buttons []Button
	Select  *SelectMenu
	Files   []File
}

// Reply is an interaction response.
type Reply struct {
	Content   string
	Ephemeral bool
	Buttons   []Button
	Select    *SelectMenu
	Files     []File
}

// TextInput is a modal field.
type TextInput struct {
	CustomID    string
	Label       string
	Placeholder string
	Paragraph   bool
	Required    bool
	MaxLength   int
}

// Modal is a pop-up form.
type Modal struct {
	CustomID string
	Title    string
	Inputs   []TextInput
}

// TicketChannelSpec describes a private ticket channel.
type TicketChannelSpec struct {
	GuildID    string
	Name       string
	ParentID   string
	Topic      string
	OwnerID    string
	StaffRoles []string
}
