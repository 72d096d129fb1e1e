// Package bot binds slash commands, components and gateway events to the
// moderation, ticket and suggestion services.
package bot

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/spec-kit/modbot/internal/automod"
	"github.com/spec-kit/modbot/internal/config"
	"github.com/spec-kit/modbot/internal/domain"
	"github.com/spec-kit/modbot/internal/events"
	"github.com/spec-kit/modbot/internal/interaction"
	"github.com/spec-kit/modbot/internal/platform"
	"github.com/spec-kit/modbot/internal/service"
	apperrors "github.com/spec-kit/modbot/pkg/util/errorutil"
)

// Bot is the platform-independent core the gateway adapter feeds.
type Bot struct {
	router      *interaction.Router
	moderation  *service.ModerationService
	tickets     *service.TicketService
	suggestions *service.SuggestionService
	chain       *automod.Chain
	client      platform.Client
	dispatcher  events.Dispatcher
	roles       config.RolesConfig
	guildID     string
	logger      *zap.Logger
}

// Dependencies bundles the services the bot routes to.
type Dependencies struct {
	Router      *interaction.Router
	Moderation  *service.ModerationService
	Tickets     *service.TicketService
	Suggestions *service.SuggestionService
	Chain       *automod.Chain
	Client      platform.Client
	Dispatcher  events.Dispatcher
	Roles       config.RolesConfig
	GuildID     string
	Logger      *zap.Logger
}

// New creates the bot and binds every interaction handler.
func New(deps Dependencies) *Bot {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Bot{
		router:      deps.Router,
		moderation:  deps.Moderation,
		tickets:     deps.Tickets,
		suggestions: deps.Suggestions,
		chain:       deps.Chain,
		client:      deps.Client,
		dispatcher:  deps.Dispatcher,
		roles:       deps.Roles,
		guildID:     deps.GuildID,
		logger:      logger.Named("bot"),
	}
	b.registerCommands()
	b.registerComponents()
	return b
}

// HandleInteraction routes one inbound interaction.
func (b *Bot) HandleInteraction(ctx context.Context, in *domain.Interaction, resp platform.Responder) {
	b.router.Dispatch(ctx, in, resp)
}

func requireUser(req *interaction.Request, name string) (*domain.Member, error) {
	u, ok := req.Interaction.UserOption(name)
	if !ok {
		return nil, apperrors.NewInvalidInput("Please specify a user.", map[string]any{"option": name})
	}
	return u, nil
}

func subjectID(req *interaction.Request) (int, error) {
	id, err := strconv.Atoi(req.Match.Subject)
	if err != nil || id <= 0 {
		return 0, apperrors.NewInvalidInput("Invalid suggestion id.", map[string]any{"id": req.Match.Subject})
	}
	return id, nil
}

func (b *Bot) publish(ctx context.Context, eventType events.EventType, actorID, targetID, summary string, payload map[string]any) {
	if b.dispatcher == nil {
		return
	}
	_ = b.dispatcher.Publish(ctx, events.New(eventType, actorID, targetID, summary, payload))
}
