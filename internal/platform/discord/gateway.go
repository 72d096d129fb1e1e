package discord

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/spec-kit/modbot/internal/domain"
	"github.com/spec-kit/modbot/internal/platform"
)

const (
	// eventTimeout bounds the work done for one gateway event.
	eventTimeout = 30 * time.Second
	// stateMessages is how many messages per channel the state cache keeps,
	// which is what lets deletions report the original content.
	stateMessages = 200
)

// Handler receives normalized gateway events.
type Handler interface {
	HandleInteraction(ctx context.Context, in *domain.Interaction, resp platform.Responder)
	HandleMessage(ctx context.Context, msg domain.Message)
	HandleMemberJoin(ctx context.Context, member *domain.Member)
	HandleMemberLeave(ctx context.Context, userID, username string)
	HandleBanAdd(ctx context.Context, userID, username string)
	HandleBanRemove(ctx context.Context, userID, username string)
	HandleMessageDelete(ctx context.Context, channelID, messageID, authorID, content string)
}

// GatewayConfig identifies the application and the guild it serves.
type GatewayConfig struct {
	Token    string
	ClientID string
	GuildID  string
	Commands []*discordgo.ApplicationCommand
}

// Gateway owns the websocket session and feeds events to a Handler.
type Gateway struct {
	session *discordgo.Session
	cfg     GatewayConfig
	handler Handler
	logger  *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// NewSession creates an unopened bot session with the intents the bot needs.
func NewSession(token string) (*discordgo.Session, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildBans |
		discordgo.IntentsMessageContent
	session.State.MaxMessageCount = stateMessages
	return session, nil
}

// NewGateway binds handler to session events.
func NewGateway(session *discordgo.Session, cfg GatewayConfig, handler Handler, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Gateway{
		session: session,
		cfg:     cfg,
		handler: handler,
		logger:  logger.Named("gateway"),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Open connects and registers the slash commands for the guild.
func (g *Gateway) Open() error {
	g.session.AddHandler(g.onReady)
	g.session.AddHandler(g.onInteractionCreate)
	g.session.AddHandler(g.onMessageCreate)
	g.session.AddHandler(g.onMessageDelete)
	g.session.AddHandler(g.onMemberAdd)
	g.session.AddHandler(g.onMemberRemove)
	g.session.AddHandler(g.onBanAdd)
	g.session.AddHandler(g.onBanRemove)

	if err := g.session.Open(); err != nil {
		return fmt.Errorf("open gateway: %w", err)
	}
	return g.registerCommands()
}

// Close cancels in-flight handlers and disconnects.
func (g *Gateway) Close() error {
	g.cancel()
	return g.session.Close()
}

func (g *Gateway) registerCommands() error {
	if len(g.cfg.Commands) == 0 {
		return nil
	}
	appID := g.cfg.ClientID
	if appID == "" && g.session.State != nil && g.session.State.User != nil {
		appID = g.session.State.User.ID
	}
	created, err := g.session.ApplicationCommandBulkOverwrite(appID, g.cfg.GuildID, g.cfg.Commands)
	if err != nil {
		return fmt.Errorf("register commands: %w", err)
	}
	g.logger.Info("slash commands registered", zap.Int("count", len(created)))
	return nil
}

// run executes fn off the event loop with a bounded context and panic guard.
func (g *Gateway) run(event string, fn func(ctx context.Context)) {
	go func() {
		ctx, cancel := context.WithTimeout(g.ctx, eventTimeout)
		defer cancel()
		defer func() {
			if p := recover(); p != nil {
				g.logger.Error("event handler panicked",
					zap.String("event", event),
					zap.Any("panic", p),
					zap.ByteString("stack", debug.Stack()))
			}
		}()
		fn(ctx)
	}()
}

func (g *Gateway) ours(guildID string) bool {
	return guildID != "" && (g.cfg.GuildID == "" || guildID == g.cfg.GuildID)
}

func (g *Gateway) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	name := ""
	if r.User != nil {
		name = r.User.Username
	}
	g.logger.Info("gateway ready", zap.String("user", name), zap.Int("guilds", len(r.Guilds)))
}

func (g *Gateway) onInteractionCreate(s *discordgo.Session, e *discordgo.InteractionCreate) {
	in := toInteraction(e.Interaction)
	if in == nil || !g.ours(in.GuildID) {
		return
	}
	resp := NewResponder(s, e.Interaction)
	g.run("interaction", func(ctx context.Context) {
		g.handler.HandleInteraction(ctx, in, resp)
	})
}

func (g *Gateway) onMessageCreate(s *discordgo.Session, e *discordgo.MessageCreate) {
	if e.Message == nil || e.Author == nil || !g.ours(e.GuildID) {
		return
	}
	if s.State != nil && s.State.User != nil && e.Author.ID == s.State.User.ID {
		return
	}
	client := NewClient(s)
	msg := toMessage(e.Message, client.adminRoles(e.GuildID))
	g.run("message_create", func(ctx context.Context) {
		g.handler.HandleMessage(ctx, msg)
	})
}

func (g *Gateway) onMessageDelete(_ *discordgo.Session, e *discordgo.MessageDelete) {
	if e.Message == nil || !g.ours(e.GuildID) {
		return
	}
	var authorID, content string
	if before := e.BeforeDelete; before != nil {
		content = before.Content
		if before.Author != nil {
			if before.Author.Bot {
				return
			}
			authorID = before.Author.ID
		}
	}
	channelID, messageID := e.ChannelID, e.ID
	g.run("message_delete", func(ctx context.Context) {
		g.handler.HandleMessageDelete(ctx, channelID, messageID, authorID, content)
	})
}

func (g *Gateway) onMemberAdd(s *discordgo.Session, e *discordgo.GuildMemberAdd) {
	if e.Member == nil || e.User == nil || !g.ours(e.GuildID) {
		return
	}
	member := toMember(e.Member, NewClient(s).adminRoles(e.GuildID))
	g.run("member_add", func(ctx context.Context) {
		g.handler.HandleMemberJoin(ctx, member)
	})
}

func (g *Gateway) onMemberRemove(_ *discordgo.Session, e *discordgo.GuildMemberRemove) {
	if e.Member == nil || e.User == nil || !g.ours(e.GuildID) {
		return
	}
	id, name := e.User.ID, e.User.Username
	g.run("member_remove", func(ctx context.Context) {
		g.handler.HandleMemberLeave(ctx, id, name)
	})
}

func (g *Gateway) onBanAdd(_ *discordgo.Session, e *discordgo.GuildBanAdd) {
	if e.User == nil || !g.ours(e.GuildID) {
		return
	}
	id, name := e.User.ID, e.User.Username
	g.run("ban_add", func(ctx context.Context) {
		g.handler.HandleBanAdd(ctx, id, name)
	})
}

func (g *Gateway) onBanRemove(_ *discordgo.Session, e *discordgo.GuildBanRemove) {
	if e.User == nil || !g.ours(e.GuildID) {
		return
	}
	id, name := e.User.ID, e.User.Username
	g.run("ban_remove", func(ctx context.Context) {
		g.handler.HandleBanRemove(ctx, id, name)
	})
}

// toMessage converts a gateway message. The partial member on message events
// carries no user, so the author fills it in.
func toMessage(m *discordgo.Message, adminRoles map[string]bool) domain.Message {
	out := domain.Message{
		ID:        m.ID,
		GuildID:   m.GuildID,
		ChannelID: m.ChannelID,
		Content:   m.Content,
		Timestamp: m.Timestamp,
	}
	if m.Author != nil {
		out.AuthorID = m.Author.ID
		out.AuthorBot = m.Author.Bot
	}
	if m.Member != nil {
		member := toMember(m.Member, adminRoles)
		if m.Author != nil {
			member.ID = m.Author.ID
			member.Username = m.Author.Username
			member.Bot = m.Author.Bot
		}
		out.Member = member
	}
	return out
}

// toInteraction normalizes the three interaction shapes the bot routes.
// Pings and autocomplete return nil.
func toInteraction(i *discordgo.Interaction) *domain.Interaction {
	out := &domain.Interaction{
		ID:        i.ID,
		GuildID:   i.GuildID,
		ChannelID: i.ChannelID,
	}
	if i.Member != nil {
		out.Actor = toMember(i.Member, nil)
	} else if i.User != nil {
		out.Actor = &domain.Member{ID: i.User.ID, Username: i.User.Username, Bot: i.User.Bot}
	}
	if i.Message != nil {
		out.MessageID = i.Message.ID
	}

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		data := i.ApplicationCommandData()
		out.Kind = domain.InteractionCommand
		out.Command = data.Name
		out.Token = data.Name
		options := data.Options
		if len(options) > 0 && options[0].Type == discordgo.ApplicationCommandOptionSubCommand {
			out.Sub = options[0].Name
			options = options[0].Options
		}
		out.Options = commandOptions(options, data.Resolved)
	case discordgo.InteractionMessageComponent:
		data := i.MessageComponentData()
		out.Token = data.CustomID
		out.Values = data.Values
		out.Kind = domain.InteractionButton
		if data.ComponentType != discordgo.ButtonComponent {
			out.Kind = domain.InteractionSelect
		}
	case discordgo.InteractionModalSubmit:
		data := i.ModalSubmitData()
		out.Kind = domain.InteractionModal
		out.Token = data.CustomID
		out.Fields = modalFields(data.Components)
	default:
		return nil
	}
	return out
}

func commandOptions(options []*discordgo.ApplicationCommandInteractionDataOption, resolved *discordgo.ApplicationCommandInteractionDataResolved) map[string]domain.Option {
	out := make(map[string]domain.Option, len(options))
	for _, o := range options {
		value := domain.Option{Name: o.Name}
		switch o.Type {
		case discordgo.ApplicationCommandOptionString:
			value.String = o.StringValue()
		case discordgo.ApplicationCommandOptionInteger:
			value.Int = o.IntValue()
		case discordgo.ApplicationCommandOptionBoolean:
			value.Bool = o.BoolValue()
		case discordgo.ApplicationCommandOptionUser:
			id, _ := o.Value.(string)
			value.String = id
			value.User = resolveUser(id, resolved)
		default:
			continue
		}
		out[o.Name] = value
	}
	return out
}

// resolveUser joins the resolved user with its partial member, if any.
func resolveUser(id string, resolved *discordgo.ApplicationCommandInteractionDataResolved) *domain.Member {
	if id == "" {
		return nil
	}
	member := &domain.Member{ID: id}
	if resolved == nil {
		return member
	}
	if u, ok := resolved.Users[id]; ok && u != nil {
		member.Username = u.Username
		member.Bot = u.Bot
	}
	if m, ok := resolved.Members[id]; ok && m != nil {
		member.Roles = append([]string(nil), m.Roles...)
		member.Administrator = m.Permissions&discordgo.PermissionAdministrator != 0
	}
	return member
}

func modalFields(rows []discordgo.MessageComponent) map[string]string {
	out := make(map[string]string)
	for _, c := range rows {
		row, ok := c.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, inner := range row.Components {
			if input, ok := inner.(*discordgo.TextInput); ok {
				out[input.CustomID] = input.Value
			}
		}
	}
	return out
}
