package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spec-kit/modbot/internal/domain"
	"github.com/spec-kit/modbot/internal/events"
	"github.com/spec-kit/modbot/internal/interaction"
	"github.com/spec-kit/modbot/internal/platform"
	"github.com/spec-kit/modbot/internal/service"
	apperrors "github.com/spec-kit/modbot/pkg/util/errorutil"
)

const maxWarningsShown = 10

func (b *Bot) registerCommands() {
	r := b.router
	r.Handle(interaction.ActionCmdTicketCreate, b.ticketCreate)
	r.Handle(interaction.ActionCmdTicketClose, b.ticketCloseHere)
	r.Handle(interaction.ActionCmdTicketAdd, b.ticketAdd)
	r.Handle(interaction.ActionCmdTicketRemove, b.ticketRemove)
	r.Handle(interaction.ActionCmdTicketStatus, b.ticketStatus)
	r.Handle(interaction.ActionCmdTicketPanel, b.ticketPanel)

	r.Handle(interaction.ActionCmdSuggestCreate, b.suggestCreate)
	r.Handle(interaction.ActionCmdSuggestModal, b.suggestModal)
	r.Handle(interaction.ActionCmdSuggestList, b.suggestList)
	r.Handle(interaction.ActionCmdSuggestInfo, b.suggestInfo)

	r.Handle(interaction.ActionCmdModWarn, b.modWarn)
	r.Handle(interaction.ActionCmdModMute, b.modMute)
	r.Handle(interaction.ActionCmdModUnmute, b.modUnmute)
	r.Handle(interaction.ActionCmdModKick, b.modKick)
	r.Handle(interaction.ActionCmdModBan, b.modBan)
	r.Handle(interaction.ActionCmdModUnban, b.modUnban)
	r.Handle(interaction.ActionCmdModWarnings, b.modWarnings)
	r.Handle(interaction.ActionCmdModCase, b.modCase)
	r.Handle(interaction.ActionCmdPurge, b.purge)
}

// tickets

func (b *Bot) ticketCreate(ctx context.Context, req *interaction.Request) error {
	in := req.Interaction
	return b.openTicket(ctx, req, service.TicketCreateInput{
		Category: in.StringOption("category", "general"),
		Reason:   in.StringOption("reason", ""),
	})
}

func (b *Bot) openTicket(ctx context.Context, req *interaction.Request, input service.TicketCreateInput) error {
	ticket, err := b.tickets.Create(ctx, req.Actor(), input)
	if err != nil {
		return err
	}
	return req.Ephemeral(ctx, "Ticket #%d created! Please check %s", ticket.Number, domain.ChannelMention(ticket.ID))
}

func (b *Bot) ticketCloseHere(ctx context.Context, req *interaction.Request) error {
	return b.closeTicket(ctx, req, req.Interaction.ChannelID)
}

func (b *Bot) closeTicket(ctx context.Context, req *interaction.Request, channelID string) error {
	ticket, err := b.tickets.Close(ctx, req.Actor(), channelID)
	if err != nil {
		return err
	}
	return req.Reply(ctx, platform.Reply{Content: fmt.Sprintf("Ticket #%d closed by %s. This channel will be deleted in %s.",
		ticket.Number, domain.Mention(req.Actor().ID), service.FormatDuration(b.tickets.CloseDelay()))})
}

func (b *Bot) ticketAdd(ctx context.Context, req *interaction.Request) error {
	user, err := requireUser(req, "user")
	if err != nil {
		return err
	}
	if err := b.tickets.AddMember(ctx, req.Actor(), req.Interaction.ChannelID, user.ID); err != nil {
		return err
	}
	return req.Reply(ctx, platform.Reply{Content: fmt.Sprintf("%s has been added to this ticket.", domain.Mention(user.ID))})
}

func (b *Bot) ticketRemove(ctx context.Context, req *interaction.Request) error {
	user, err := requireUser(req, "user")
	if err != nil {
		return err
	}
	if err := b.tickets.RemoveMember(ctx, req.Actor(), req.Interaction.ChannelID, user.ID); err != nil {
		return err
	}
	return req.Reply(ctx, platform.Reply{Content: fmt.Sprintf("%s has been removed from this ticket.", domain.Mention(user.ID))})
}

func (b *Bot) ticketStatus(ctx context.Context, req *interaction.Request) error {
	status, err := b.tickets.Status(ctx, req.Actor().ID)
	if err != nil {
		return err
	}
	var sb strings.Builder
	if len(status.Active) == 0 {
		sb.WriteString("You have no active tickets.\n")
	} else {
		fmt.Fprintf(&sb, "You have %d active ticket(s):\n", len(status.Active))
		for _, t := range status.Active {
			fmt.Fprintf(&sb, "- Ticket #%d - %s in %s (opened %s)\n", t.Number, t.Category, domain.ChannelMention(t.ID), t.CreatedAt.UTC().Format(time.RFC822))
		}
	}
	fmt.Fprintf(&sb, "%d/%d tickets used", len(status.Active), status.Limit)
	return req.Ephemeral(ctx, "%s", sb.String())
}

func (b *Bot) ticketPanel(ctx context.Context, req *interaction.Request) error {
	if err := b.tickets.PostPanel(ctx, req.Actor(), req.Interaction.ChannelID); err != nil {
		return err
	}
	return req.Ephemeral(ctx, "Ticket panel created.")
}

// suggestions

func (b *Bot) suggestCreate(ctx context.Context, req *interaction.Request) error {
	in := req.Interaction
	return b.submitSuggestion(ctx, req, service.SuggestionInput{
		Title:       in.StringOption("title", ""),
		Description: in.StringOption("description", ""),
		Anonymous:   in.BoolOption("anonymous", false),
	})
}

func (b *Bot) submitSuggestion(ctx context.Context, req *interaction.Request, input service.SuggestionInput) error {
	sug, err := b.suggestions.Create(ctx, req.Actor(), input)
	if err != nil {
		return err
	}
	return req.Ephemeral(ctx, "Suggestion #%d has been submitted in %s.", sug.ID, domain.ChannelMention(sug.ChannelID))
}

func (b *Bot) suggestModal(ctx context.Context, req *interaction.Request) error {
	return req.Responder.Modal(ctx, service.ModalForm())
}

func (b *Bot) suggestList(ctx context.Context, req *interaction.Request) error {
	status := domain.SuggestionStatus(req.Interaction.StringOption("status", ""))
	list, err := b.suggestions.List(ctx, status)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		return req.Ephemeral(ctx, "No suggestions found.")
	}
	var sb strings.Builder
	sb.WriteString("Suggestions:\n")
	for _, s := range list {
		fmt.Fprintf(&sb, "#%d %s [%s] +%d/-%d\n", s.ID, s.Title, s.Status, len(s.Upvotes), len(s.Downvotes))
	}
	return req.Ephemeral(ctx, "%s", strings.TrimRight(sb.String(), "\n"))
}

func (b *Bot) suggestInfo(ctx context.Context, req *interaction.Request) error {
	id := int(req.Interaction.IntOption("id", 0))
	sug, err := b.suggestions.Get(ctx, id)
	if err != nil {
		return err
	}
	return req.Ephemeral(ctx, "%s", service.RenderSuggestion(sug))
}

// moderation

func (b *Bot) modWarn(ctx context.Context, req *interaction.Request) error {
	user, err := requireUser(req, "user")
	if err != nil {
		return err
	}
	res, err := b.moderation.Warn(ctx, req.Actor(), user.ID, req.Interaction.StringOption("reason", ""))
	if err != nil {
		return err
	}
	msg := fmt.Sprintf("%s has been warned (case #%d). Reason: %s\nTotal warnings: %d",
		domain.Mention(user.ID), res.Case.ID, res.Case.Reason, res.Count)
	if res.Escalation != nil {
		msg += fmt.Sprintf("\n%s (case #%d)", res.Escalation.Reason, res.Escalation.ID)
	}
	return req.Reply(ctx, platform.Reply{Content: msg})
}

func (b *Bot) modMute(ctx context.Context, req *interaction.Request) error {
	user, err := requireUser(req, "user")
	if err != nil {
		return err
	}
	d, err := b.moderation.ParseSanctionDuration(req.Interaction.StringOption("duration", ""))
	if err != nil {
		return err
	}
	c, err := b.moderation.Mute(ctx, req.Actor(), user.ID, d, req.Interaction.StringOption("reason", ""))
	if err != nil {
		return err
	}
	return req.Reply(ctx, platform.Reply{Content: fmt.Sprintf("%s has been muted for %s (case #%d). Reason: %s",
		domain.Mention(user.ID), service.FormatDuration(c.Duration()), c.ID, c.Reason)})
}

func (b *Bot) modUnmute(ctx context.Context, req *interaction.Request) error {
	user, err := requireUser(req, "user")
	if err != nil {
		return err
	}
	ok, err := b.moderation.Unmute(ctx, req.Actor(), user.ID, req.Interaction.StringOption("reason", ""))
	if err != nil {
		return err
	}
	if !ok {
		return req.Ephemeral(ctx, "%s is not muted.", domain.Mention(user.ID))
	}
	return req.Reply(ctx, platform.Reply{Content: fmt.Sprintf("%s has been unmuted.", domain.Mention(user.ID))})
}

func (b *Bot) modKick(ctx context.Context, req *interaction.Request) error {
	user, err := requireUser(req, "user")
	if err != nil {
		return err
	}
	c, err := b.moderation.Kick(ctx, req.Actor(), user.ID, req.Interaction.StringOption("reason", ""))
	if err != nil {
		return err
	}
	return req.Reply(ctx, platform.Reply{Content: fmt.Sprintf("%s has been kicked (case #%d). Reason: %s",
		domain.Mention(user.ID), c.ID, c.Reason)})
}

func (b *Bot) modBan(ctx context.Context, req *interaction.Request) error {
	user, err := requireUser(req, "user")
	if err != nil {
		return err
	}
	d, err := b.moderation.ParseSanctionDuration(req.Interaction.StringOption("duration", ""))
	if err != nil {
		return err
	}
	c, err := b.moderation.Ban(ctx, req.Actor(), user.ID, d, req.Interaction.StringOption("reason", ""))
	if err != nil {
		return err
	}
	return req.Reply(ctx, platform.Reply{Content: fmt.Sprintf("%s has been banned for %s (case #%d). Reason: %s",
		domain.Mention(user.ID), service.FormatDuration(c.Duration()), c.ID, c.Reason)})
}

func (b *Bot) modUnban(ctx context.Context, req *interaction.Request) error {
	userID := strings.TrimSpace(req.Interaction.StringOption("userid", ""))
	if userID == "" {
		return apperrors.NewInvalidInput("Please specify a user id.", nil)
	}
	ok, err := b.moderation.Unban(ctx, req.Actor(), userID, req.Interaction.StringOption("reason", ""))
	if err != nil {
		return err
	}
	if !ok {
		return req.Ephemeral(ctx, "User %s is not banned.", userID)
	}
	return req.Reply(ctx, platform.Reply{Content: fmt.Sprintf("User %s has been unbanned.", userID)})
}

func (b *Bot) modWarnings(ctx context.Context, req *interaction.Request) error {
	user, err := requireUser(req, "user")
	if err != nil {
		return err
	}
	warnings, err := b.moderation.Warnings(ctx, req.Actor(), user.ID)
	if err != nil {
		return err
	}
	if len(warnings) == 0 {
		return req.Ephemeral(ctx, "%s has no warnings.", domain.Mention(user.ID))
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s has %d warning(s).", domain.Mention(user.ID), len(warnings))
	start := max(len(warnings)-maxWarningsShown, 0)
	for i, w := range warnings[start:] {
		fmt.Fprintf(&sb, "\n%d. %s - by %s on %s", start+i+1, w.Reason, moderatorLabel(w.ModeratorID), w.Timestamp.UTC().Format(time.RFC822))
	}
	return req.Ephemeral(ctx, "%s", sb.String())
}

func (b *Bot) modCase(ctx context.Context, req *interaction.Request) error {
	c, err := b.moderation.Case(ctx, req.Actor(), int(req.Interaction.IntOption("id", 0)))
	if err != nil {
		return err
	}
	state := "Inactive"
	if c.Active {
		state = "Active"
	}
	msg := fmt.Sprintf("Case #%d\nType: %s\nTarget: %s\nModerator: %s\nReason: %s\nDate: %s\nStatus: %s",
		c.ID, c.Type, domain.Mention(c.TargetID), moderatorLabel(c.ModeratorID), c.Reason, c.Timestamp.UTC().Format(time.RFC822), state)
	if c.DurationMs != nil {
		msg += "\nDuration: " + service.FormatDuration(c.Duration())
	}
	return req.Ephemeral(ctx, "%s", msg)
}

func (b *Bot) purge(ctx context.Context, req *interaction.Request) error {
	in := req.Interaction
	purge := service.PurgeRequest{
		ChannelID: in.ChannelID,
		Amount:    int(in.IntOption("amount", 0)),
		Reason:    in.StringOption("reason", ""),
	}
	if u, ok := in.UserOption("user"); ok {
		purge.UserID = u.ID
	}
	n, err := b.moderation.Purge(ctx, req.Actor(), purge)
	if err != nil {
		return err
	}
	return req.Ephemeral(ctx, "Successfully deleted %d message(s).", n)
}

func moderatorLabel(id string) string {
	if id == events.SystemActor {
		return "System"
	}
	return domain.Mention(id)
}
