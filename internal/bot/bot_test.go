package bot

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/modbot/internal/auth"
	"github.com/spec-kit/modbot/internal/config"
	"github.com/spec-kit/modbot/internal/domain"
	"github.com/spec-kit/modbot/internal/events"
	"github.com/spec-kit/modbot/internal/interaction"
	"github.com/spec-kit/modbot/internal/platform/platformtest"
	"github.com/spec-kit/modbot/internal/repository"
	"github.com/spec-kit/modbot/internal/sanction"
	"github.com/spec-kit/modbot/internal/service"
	"github.com/spec-kit/modbot/internal/store"
)

type testBot struct {
	bot    *Bot
	client *platformtest.Client
	events []events.Event
}

func newTestBot(t *testing.T) *testBot {
	t.Helper()
	dir := t.TempDir()
	tb := &testBot{client: platformtest.NewClient()}

	roles := config.RolesConfig{Staff: "staff", Moderator: "mod", Muted: "muted", AutoRole: "member"}
	perms := auth.NewPermissions(roles, nil)
	dispatcher := events.NewInMemoryDispatcher(nil)
	events.SubscribeAll(dispatcher, func(_ context.Context, e events.Event) error {
		tb.events = append(tb.events, e)
		return nil
	})
	scheduler := sanction.NewScheduler(time.Second, nil)
	t.Cleanup(scheduler.Stop)

	moderation := service.NewModerationService(service.ModerationDependencies{
		Repo:        repository.NewModerationRepository(store.NewCollection(dir, "moderation", domain.NewModerationDocument, nil)),
		Client:      tb.client,
		Permissions: perms,
		Scheduler:   scheduler,
		Dispatcher:  dispatcher,
		Punishments: config.PunishmentsConfig{MuteThreshold: 3, BanThreshold: 5, DefaultMuteDuration: time.Hour},
		MutedRole:   roles.Muted,
		GuildID:     "guild",
	})
	tickets := service.NewTicketService(service.TicketDependencies{
		Repo:        repository.NewTicketRepository(store.NewCollection(dir, "tickets", domain.NewTicketDocument, nil)),
		Client:      tb.client,
		Permissions: perms,
		Dispatcher:  dispatcher,
		Tickets:     config.TicketsConfig{MaxTicketsPerUser: 1, Categories: config.DefaultTicketCategories(), TranscriptLimit: 50},
		GuildID:     "guild",
	})
	suggestions := service.NewSuggestionService(service.SuggestionDependencies{
		Repo:        repository.NewSuggestionRepository(store.NewCollection(dir, "suggestions", domain.NewSuggestionDocument, nil)),
		Client:      tb.client,
		Permissions: perms,
		Dispatcher:  dispatcher,
		Suggestions: config.SuggestionsConfig{AllowAnonymous: true, MaxListItems: 10},
		Channels:    config.ChannelsConfig{Suggestions: "suggestions", SuggestionLogs: "suggestion-logs"},
	})

	tb.bot = New(Dependencies{
		Router:      interaction.NewRouter(interaction.RouterDependencies{Ledger: interaction.NewMemLedger(100, time.Minute)}),
		Moderation:  moderation,
		Tickets:     tickets,
		Suggestions: suggestions,
		Client:      tb.client,
		Dispatcher:  dispatcher,
		Roles:       roles,
		GuildID:     "guild",
	})

	tb.client.AddMember(&domain.Member{ID: "mod1", Roles: []string{"mod"}})
	tb.client.AddMember(&domain.Member{ID: "user1", Username: "alice"})
	return tb
}

var seq int

func (tb *testBot) dispatch(in *domain.Interaction) *platformtest.Responder {
	seq++
	if in.ID == "" {
		in.ID = fmt.Sprintf("interaction-%d", seq)
	}
	resp := platformtest.NewResponder()
	tb.bot.HandleInteraction(context.Background(), in, resp)
	return resp
}

func (tb *testBot) member(id string) *domain.Member {
	m, err := tb.client.GetMember(context.Background(), "guild", id)
	if err != nil {
		panic(err)
	}
	return m
}

func command(actor *domain.Member, cmd, sub string, opts map[string]domain.Option) *domain.Interaction {
	return &domain.Interaction{Kind: domain.InteractionCommand, Command: cmd, Sub: sub, Options: opts, Actor: actor, GuildID: "guild", ChannelID: "general"}
}

func button(actor *domain.Member, token string) *domain.Interaction {
	return &domain.Interaction{Kind: domain.InteractionButton, Token: token, Actor: actor, GuildID: "guild", ChannelID: "general"}
}

func TestWarnCommandEscalatesToMute(t *testing.T) {
	tb := newTestBot(t)
	mod := tb.member("mod1")
	target := &domain.Member{ID: "user1"}

	var resp *platformtest.Responder
	for i := 0; i < 3; i++ {
		resp = tb.dispatch(command(mod, "mod", "warn", map[string]domain.Option{"user": {Name: "user", User: target}}))
	}
	assert.Contains(t, resp.Last(), "Total warnings: 3")
	assert.Contains(t, resp.Last(), "Automatic mute - 3 warnings")
	assert.True(t, tb.client.HasRole("user1", "muted"))
}

func TestModCommandRejectsNonModerator(t *testing.T) {
	tb := newTestBot(t)
	resp := tb.dispatch(command(tb.member("user1"), "mod", "kick", map[string]domain.Option{"user": {Name: "user", User: &domain.Member{ID: "mod1"}}}))
	require.Len(t, resp.Replies, 1)
	assert.True(t, resp.Replies[0].Ephemeral)
	assert.Equal(t, "You do not have permission to kick users.", resp.Last())
}

func TestMuteCommandRejectsBadDuration(t *testing.T) {
	tb := newTestBot(t)
	resp := tb.dispatch(command(tb.member("mod1"), "mod", "mute", map[string]domain.Option{
		"user":     {Name: "user", User: &domain.Member{ID: "user1"}},
		"duration": {Name: "duration", String: "soon"},
	}))
	assert.Contains(t, resp.Last(), "Invalid duration format")
	assert.False(t, tb.client.HasRole("user1", "muted"))
}

func TestAnonymousSuggestionDenyFlow(t *testing.T) {
	tb := newTestBot(t)
	resp := tb.dispatch(command(tb.member("user1"), "suggest", "create", map[string]domain.Option{
		"title":       {Name: "title", String: "Dark mode"},
		"description": {Name: "description", String: "Easier on the eyes"},
		"anonymous":   {Name: "anonymous", Bool: true},
	}))
	require.Contains(t, resp.Last(), "Suggestion #1 has been submitted")

	deny := tb.dispatch(button(tb.member("mod1"), "suggestion_deny_1"))
	assert.Equal(t, 1, deny.Defers)
	require.Len(t, deny.Edits, 1)
	assert.Len(t, deny.Edits[0].Buttons, 3)

	reveal := tb.dispatch(button(tb.member("mod1"), "suggestion_deny_reveal_1"))
	assert.Equal(t, "Suggestion #1 has been denied. Submitter: <@user1>", reveal.Last())

	again := tb.dispatch(button(tb.member("mod1"), "suggestion_upvote_1_disabled"))
	assert.Equal(t, "This action has already been processed.", again.Last())
}

func TestTicketCategorySelectAndCap(t *testing.T) {
	tb := newTestBot(t)
	user := tb.member("user1")
	sel := &domain.Interaction{Kind: domain.InteractionSelect, Token: "ticket_category_select", Values: []string{"billing"}, Actor: user, GuildID: "guild"}

	resp := tb.dispatch(sel)
	assert.Contains(t, resp.Last(), "Ticket #1 created!")

	again := *sel
	again.ID = ""
	resp = tb.dispatch(&again)
	assert.Contains(t, resp.Last(), "maximum number of active tickets (1)")
}

func TestQuickCreateOpensModal(t *testing.T) {
	tb := newTestBot(t)
	resp := tb.dispatch(button(tb.member("user1"), "ticket_quick_create"))
	require.Len(t, resp.Modals, 1)
	assert.Equal(t, "ticket_confirm_general", resp.Modals[0].CustomID)

	submit := &domain.Interaction{
		Kind:   domain.InteractionModal,
		Token:  "ticket_confirm_general",
		Fields: map[string]string{"ticket_reason": "cannot log in", "ticket_priority": "high"},
		Actor:  tb.member("user1"),
	}
	resp = tb.dispatch(submit)
	assert.Contains(t, resp.Last(), "Ticket #1 created!")
}

func TestMemberJoinReappliesMute(t *testing.T) {
	ctx := context.Background()
	tb := newTestBot(t)
	_, err := tb.bot.moderation.Mute(ctx, tb.member("mod1"), "user1", 0, "")
	require.NoError(t, err)

	require.NoError(t, tb.client.Kick(ctx, "guild", "user1", "left"))
	tb.client.AddMember(&domain.Member{ID: "user1", Username: "alice"})
	tb.bot.HandleMemberJoin(ctx, tb.member("user1"))

	assert.True(t, tb.client.HasRole("user1", "muted"))
	assert.True(t, tb.client.HasRole("user1", "member"))
	last := tb.events[len(tb.events)-1]
	assert.Equal(t, events.EventMemberJoined, last.Type)
	assert.Equal(t, true, last.Payload["remuted"])
}

func TestEveryRouteHasHandler(t *testing.T) {
	tb := newTestBot(t)
	bound := map[string]bool{}
	for _, a := range tb.bot.router.Actions() {
		bound[a] = true
	}
	for _, r := range interaction.DefaultRoutes() {
		assert.True(t, bound[r.Action], r.Action)
	}
}
