// Package discord implements the platform surface over discordgo.
package discord

import (
	"bytes"
	"context"
	"errors"
	"net/http"

	"github.com/bwmarrin/discordgo"

	"github.com/spec-kit/modbot/internal/domain"
	"github.com/spec-kit/modbot/internal/platform"
)

// historyPageSize is the largest page the messages endpoint returns.
const historyPageSize = 100

var _ platform.Client = (*Client)(nil)

// Client is the REST side of the platform.
type Client struct {
	session *discordgo.Session
}

// NewClient wraps an authenticated session.
func NewClient(session *discordgo.Session) *Client {
	return &Client{session: session}
}

func opts(ctx context.Context, reason string) []discordgo.RequestOption {
	o := []discordgo.RequestOption{discordgo.WithContext(ctx)}
	if reason != "" {
		o = append(o, discordgo.WithAuditLogReason(reason))
	}
	return o
}

// translate maps "unknown entity" responses onto platform.ErrNotFound.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var rest *discordgo.RESTError
	if !errors.As(err, &rest) {
		return err
	}
	if rest.Response != nil && rest.Response.StatusCode == http.StatusNotFound {
		return errors.Join(platform.ErrNotFound, err)
	}
	if rest.Message != nil {
		switch rest.Message.Code {
		case discordgo.ErrCodeUnknownMember, discordgo.ErrCodeUnknownMessage,
			discordgo.ErrCodeUnknownChannel, discordgo.ErrCodeUnknownUser, discordgo.ErrCodeUnknownBan:
			return errors.Join(platform.ErrNotFound, err)
		}
	}
	return err
}

func (c *Client) GetMember(ctx context.Context, guildID, userID string) (*domain.Member, error) {
	m, err := c.session.GuildMember(guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, translate(err)
	}
	return toMember(m, c.adminRoles(guildID)), nil
}

func (c *Client) AddRole(ctx context.Context, guildID, userID, roleID, reason string) error {
	return translate(c.session.GuildMemberRoleAdd(guildID, userID, roleID, opts(ctx, reason)...))
}

func (c *Client) RemoveRole(ctx context.Context, guildID, userID, roleID, reason string) error {
	return translate(c.session.GuildMemberRoleRemove(guildID, userID, roleID, opts(ctx, reason)...))
}

func (c *Client) Kick(ctx context.Context, guildID, userID, reason string) error {
	return translate(c.session.GuildMemberDeleteWithReason(guildID, userID, reason, discordgo.WithContext(ctx)))
}

func (c *Client) Ban(ctx context.Context, guildID, userID, reason string, deleteMessageDays int) error {
	return translate(c.session.GuildBanCreateWithReason(guildID, userID, reason, deleteMessageDays, discordgo.WithContext(ctx)))
}

func (c *Client) Unban(ctx context.Context, guildID, userID, reason string) error {
	return translate(c.session.GuildBanDelete(guildID, userID, opts(ctx, reason)...))
}

func (c *Client) IsBanned(ctx context.Context, guildID, userID string) (bool, error) {
	_, err := c.session.GuildBan(guildID, userID, discordgo.WithContext(ctx))
	if err == nil {
		return true, nil
	}
	if err = translate(err); errors.Is(err, platform.ErrNotFound) {
		return false, nil
	}
	return false, err
}

func (c *Client) SendMessage(ctx context.Context, channelID string, msg platform.OutgoingMessage) (string, error) {
	sent, err := c.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content:    msg.Content,
		Components: components(msg.Buttons, msg.Select),
		Files:      files(msg.Files),
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Parse: []discordgo.AllowedMentionType{discordgo.AllowedMentionTypeUsers},
		},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", translate(err)
	}
	return sent.ID, nil
}

func (c *Client) EditMessage(ctx context.Context, channelID, messageID string, msg platform.OutgoingMessage) error {
	edit := discordgo.NewMessageEdit(channelID, messageID).SetContent(msg.Content)
	comps := components(msg.Buttons, msg.Select)
	edit.Components = &comps
	edit.Files = files(msg.Files)
	_, err := c.session.ChannelMessageEditComplex(edit, discordgo.WithContext(ctx))
	return translate(err)
}

func (c *Client) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	return translate(c.session.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx)))
}

func (c *Client) BulkDelete(ctx context.Context, channelID string, messageIDs []string) error {
	for len(messageIDs) > 0 {
		n := min(len(messageIDs), historyPageSize)
		if err := c.session.ChannelMessagesBulkDelete(channelID, messageIDs[:n], discordgo.WithContext(ctx)); err != nil {
			return translate(err)
		}
		messageIDs = messageIDs[n:]
	}
	return nil
}

// FetchMessages returns up to limit messages, newest first.
func (c *Client) FetchMessages(ctx context.Context, channelID string, limit int) ([]domain.ChatMessage, error) {
	var (
		out    []domain.ChatMessage
		before string
	)
	for limit <= 0 || len(out) < limit {
		page := historyPageSize
		if limit > 0 {
			page = min(page, limit-len(out))
		}
		msgs, err := c.session.ChannelMessages(channelID, page, before, "", "", discordgo.WithContext(ctx))
		if err != nil {
			return nil, translate(err)
		}
		for _, m := range msgs {
			out = append(out, toChatMessage(m))
		}
		if len(msgs) < page {
			break
		}
		before = msgs[len(msgs)-1].ID
	}
	return out, nil
}

func (c *Client) SendDirect(ctx context.Context, userID string, msg platform.OutgoingMessage) error {
	ch, err := c.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return translate(err)
	}
	_, err = c.SendMessage(ctx, ch.ID, msg)
	return err
}

const ticketMemberPermissions = discordgo.PermissionViewChannel |
	discordgo.PermissionSendMessages |
	discordgo.PermissionReadMessageHistory |
	discordgo.PermissionAttachFiles

func (c *Client) CreateTicketChannel(ctx context.Context, spec platform.TicketChannelSpec) (string, error) {
	overwrites := []*discordgo.PermissionOverwrite{
		// @everyone shares the guild id
		{ID: spec.GuildID, Type: discordgo.PermissionOverwriteTypeRole, Deny: discordgo.PermissionViewChannel},
		{ID: spec.OwnerID, Type: discordgo.PermissionOverwriteTypeMember, Allow: ticketMemberPermissions},
	}
	for _, role := range spec.StaffRoles {
		if role == "" {
			continue
		}
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID: role, Type: discordgo.PermissionOverwriteTypeRole, Allow: ticketMemberPermissions,
		})
	}
	ch, err := c.session.GuildChannelCreateComplex(spec.GuildID, discordgo.GuildChannelCreateData{
		Name:                 spec.Name,
		Type:                 discordgo.ChannelTypeGuildText,
		Topic:                spec.Topic,
		ParentID:             spec.ParentID,
		PermissionOverwrites: overwrites,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", translate(err)
	}
	return ch.ID, nil
}

func (c *Client) SetChannelAccess(ctx context.Context, channelID, userID string, allow bool) error {
	var grant, deny int64
	if allow {
		grant = ticketMemberPermissions
	} else {
		deny = discordgo.PermissionViewChannel
	}
	return translate(c.session.ChannelPermissionSet(channelID, userID, discordgo.PermissionOverwriteTypeMember, grant, deny, discordgo.WithContext(ctx)))
}

func (c *Client) DeleteChannel(ctx context.Context, channelID, reason string) error {
	_, err := c.session.ChannelDelete(channelID, opts(ctx, reason)...)
	return translate(err)
}

// adminRoles lists the guild roles carrying Administrator, read from the
// gateway state cache.
func (c *Client) adminRoles(guildID string) map[string]bool {
	if c.session.State == nil {
		return nil
	}
	g, err := c.session.State.Guild(guildID)
	if err != nil {
		return nil
	}
	out := make(map[string]bool)
	for _, r := range g.Roles {
		if r.Permissions&discordgo.PermissionAdministrator != 0 {
			out[r.ID] = true
		}
	}
	return out
}

func toMember(m *discordgo.Member, adminRoles map[string]bool) *domain.Member {
	out := &domain.Member{Roles: append([]string(nil), m.Roles...)}
	if m.User != nil {
		out.ID = m.User.ID
		out.Username = m.User.Username
		out.Bot = m.User.Bot
	}
	out.Administrator = m.Permissions&discordgo.PermissionAdministrator != 0
	for _, r := range m.Roles {
		if adminRoles[r] {
			out.Administrator = true
		}
	}
	return out
}

func toChatMessage(m *discordgo.Message) domain.ChatMessage {
	out := domain.ChatMessage{ID: m.ID, Content: m.Content, Timestamp: m.Timestamp}
	if m.Author != nil {
		out.AuthorID = m.Author.ID
		out.Author = m.Author.Username
	}
	return out
}

func files(in []platform.File) []*discordgo.File {
	if len(in) == 0 {
		return nil
	}
	out := make([]*discordgo.File, 0, len(in))
	for _, f := range in {
		out = append(out, &discordgo.File{Name: f.Name, ContentType: "text/plain", Reader: bytes.NewReader(f.Content)})
	}
	return out
}

var buttonStyles = map[platform.ButtonStyle]discordgo.ButtonStyle{
	platform.ButtonPrimary:   discordgo.PrimaryButton,
	platform.ButtonSecondary: discordgo.SecondaryButton,
	platform.ButtonSuccess:   discordgo.SuccessButton,
	platform.ButtonDanger:    discordgo.DangerButton,
}

// maxRowButtons is the platform limit of buttons per action row.
const maxRowButtons = 5

// components lays buttons out in rows of five and puts a select menu on its
// own row. The result is never nil so edits clear stale components.
func components(buttons []platform.Button, sel *platform.SelectMenu) []discordgo.MessageComponent {
	out := []discordgo.MessageComponent{}
	for len(buttons) > 0 {
		n := min(len(buttons), maxRowButtons)
		row := discordgo.ActionsRow{}
		for _, b := range buttons[:n] {
			style, ok := buttonStyles[b.Style]
			if !ok {
				style = discordgo.SecondaryButton
			}
			row.Components = append(row.Components, discordgo.Button{
				CustomID: b.CustomID, Label: b.Label, Style: style, Disabled: b.Disabled,
			})
		}
		out = append(out, row)
		buttons = buttons[n:]
	}
	if sel != nil {
		menu := discordgo.SelectMenu{
			MenuType:    discordgo.StringSelectMenu,
			CustomID:    sel.CustomID,
			Placeholder: sel.Placeholder,
		}
		for _, o := range sel.Options {
			menu.Options = append(menu.Options, discordgo.SelectMenuOption{Label: o.Label, Value: o.Value, Description: o.Description})
		}
		out = append(out, discordgo.ActionsRow{Components: []discordgo.MessageComponent{menu}})
	}
	return out
}
