package bot

import (
	"context"
	"fmt"

	"github.com/spec-kit/modbot/internal/config"
	"github.com/spec-kit/modbot/internal/domain"
	"github.com/spec-kit/modbot/internal/interaction"
	"github.com/spec-kit/modbot/internal/platform"
	"github.com/spec-kit/modbot/internal/service"
	apperrors "github.com/spec-kit/modbot/pkg/util/errorutil"
)

const helpText = `Help & Frequently Asked Questions

Before creating a ticket:
- Check whether your issue is already answered in the FAQ
- Make sure you have the necessary permissions
- Check whether others are seeing the same issue

Writing a good ticket:
- Be specific about the problem and include steps to reproduce it
- Mention what you expected and what happened instead

Response times:
- General Support: 1-24 hours
- Technical Issues: 2-48 hours
- Billing: 1-12 hours
- Reports: 1-6 hours`

func (b *Bot) registerComponents() {
	r := b.router
	r.Handle(interaction.ActionTicketClose, b.ticketCloseButton)
	r.Handle(interaction.ActionTicketClaim, b.ticketClaim)
	r.Handle(interaction.ActionTicketTranscript, b.ticketTranscript)
	r.Handle(interaction.ActionTicketQuickCreate, b.ticketQuickCreate)
	r.Handle(interaction.ActionTicketHelp, b.ticketHelp)
	r.Handle(interaction.ActionTicketStatusCheck, b.ticketStatus)
	r.Handle(interaction.ActionTicketCategory, b.ticketCategorySelect)
	r.Handle(interaction.ActionTicketConfirm, b.ticketConfirm)

	r.Handle(interaction.ActionSuggestionApprove, b.suggestionApprove)
	r.Handle(interaction.ActionSuggestionConsider, b.suggestionConsider)
	r.Handle(interaction.ActionSuggestionDeny, b.suggestionDeny)
	r.Handle(interaction.ActionSuggestionDenyAnon, b.suggestionDenial(false))
	r.Handle(interaction.ActionSuggestionReveal, b.suggestionDenial(true))
	r.Handle(interaction.ActionSuggestionCancel, b.suggestionDenyCancel)
	r.Handle(interaction.ActionSuggestionUpvote, b.suggestionVote(true))
	r.Handle(interaction.ActionSuggestionDownvote, b.suggestionVote(false))
	r.Handle(interaction.ActionSuggestionSubmit, b.suggestionModalSubmit)
	r.Handle(interaction.ActionReportSubmit, b.reportSubmit)
}

// ticket components

func (b *Bot) ticketCloseButton(ctx context.Context, req *interaction.Request) error {
	return b.closeTicket(ctx, req, req.Match.Subject)
}

func (b *Bot) ticketClaim(ctx context.Context, req *interaction.Request) error {
	ticket, err := b.tickets.Claim(ctx, req.Actor(), req.Match.Subject)
	if err != nil {
		return err
	}
	return req.Reply(ctx, platform.Reply{Content: fmt.Sprintf("Ticket #%d has been claimed by %s.", ticket.Number, domain.Mention(req.Actor().ID))})
}

func (b *Bot) ticketTranscript(ctx context.Context, req *interaction.Request) error {
	file, err := b.tickets.Transcript(ctx, req.Actor(), req.Match.Subject)
	if err != nil {
		return err
	}
	return req.Reply(ctx, platform.Reply{Content: "Here is the ticket transcript.", Ephemeral: true, Files: []platform.File{file}})
}

// TicketModal is the reason and priority form for a category.
func TicketModal(category config.TicketCategory) platform.Modal {
	return platform.Modal{
		CustomID: "ticket_confirm_" + category.Key,
		Title:    category.Name,
		Inputs: []platform.TextInput{
			{CustomID: "ticket_reason", Label: "Please describe your issue", Placeholder: "What were you trying to do and what went wrong?", Paragraph: true, Required: true, MaxLength: 1000},
			{CustomID: "ticket_priority", Label: "Priority Level (Low/Medium/High)", Placeholder: "Low", MaxLength: 10},
		},
	}
}

func (b *Bot) ticketQuickCreate(ctx context.Context, req *interaction.Request) error {
	return req.Responder.Modal(ctx, TicketModal(config.TicketCategory{Key: "general", Name: "Quick Support Ticket"}))
}

func (b *Bot) ticketHelp(ctx context.Context, req *interaction.Request) error {
	return req.Ephemeral(ctx, "%s", helpText)
}

func (b *Bot) ticketCategorySelect(ctx context.Context, req *interaction.Request) error {
	if len(req.Interaction.Values) == 0 {
		return apperrors.NewInvalidInput("Please choose a category.", nil)
	}
	return b.openTicket(ctx, req, service.TicketCreateInput{Category: req.Interaction.Values[0]})
}

func (b *Bot) ticketConfirm(ctx context.Context, req *interaction.Request) error {
	in := req.Interaction
	return b.openTicket(ctx, req, service.TicketCreateInput{
		Category: req.Match.Subject,
		Reason:   in.Field("ticket_reason"),
		Priority: domain.ParseTicketPriority(in.Field("ticket_priority")),
	})
}

// suggestion components

func (b *Bot) suggestionApprove(ctx context.Context, req *interaction.Request) error {
	id, err := subjectID(req)
	if err != nil {
		return err
	}
	if _, err := b.suggestions.Approve(ctx, req.Actor(), id); err != nil {
		return err
	}
	return req.Ephemeral(ctx, "Suggestion #%d has been approved.", id)
}

func (b *Bot) suggestionConsider(ctx context.Context, req *interaction.Request) error {
	id, err := subjectID(req)
	if err != nil {
		return err
	}
	if _, err := b.suggestions.Consider(ctx, req.Actor(), id); err != nil {
		return err
	}
	return req.Ephemeral(ctx, "Suggestion #%d is now under consideration.", id)
}

func (b *Bot) suggestionDeny(ctx context.Context, req *interaction.Request) error {
	id, err := subjectID(req)
	if err != nil {
		return err
	}
	outcome, err := b.suggestions.Deny(ctx, req.Actor(), id)
	if err != nil {
		return err
	}
	if outcome.NeedsChoice {
		return req.Reply(ctx, platform.Reply{
			Content:   fmt.Sprintf("Suggestion #%d was submitted anonymously. Should the submitter be revealed in the denial?", id),
			Ephemeral: true,
			Buttons:   service.DenyChoiceButtons(id),
		})
	}
	return req.Ephemeral(ctx, "Suggestion #%d has been denied.", id)
}

func (b *Bot) suggestionDenial(reveal bool) interaction.Handler {
	return func(ctx context.Context, req *interaction.Request) error {
		id, err := subjectID(req)
		if err != nil {
			return err
		}
		sug, err := b.suggestions.ProcessDenial(ctx, req.Actor(), id, reveal)
		if err != nil {
			return err
		}
		if reveal {
			return req.Ephemeral(ctx, "Suggestion #%d has been denied. Submitter: %s", id, domain.Mention(sug.SubmitterID))
		}
		return req.Ephemeral(ctx, "Suggestion #%d has been denied. The submitter stays anonymous.", id)
	}
}

func (b *Bot) suggestionDenyCancel(ctx context.Context, req *interaction.Request) error {
	id, err := subjectID(req)
	if err != nil {
		return err
	}
	return req.Ephemeral(ctx, "Denial of suggestion #%d cancelled.", id)
}

func (b *Bot) suggestionVote(up bool) interaction.Handler {
	return func(ctx context.Context, req *interaction.Request) error {
		id, err := subjectID(req)
		if err != nil {
			return err
		}
		sug, err := b.suggestions.Vote(ctx, req.Actor(), id, up)
		if err != nil {
			return err
		}
		return req.Ephemeral(ctx, "Your vote has been recorded. Upvotes: %d | Downvotes: %d", len(sug.Upvotes), len(sug.Downvotes))
	}
}

func (b *Bot) suggestionModalSubmit(ctx context.Context, req *interaction.Request) error {
	in := req.Interaction
	return b.submitSuggestion(ctx, req, service.SuggestionInput{
		Title:       in.Field("suggestion_title"),
		Description: in.Field("suggestion_description"),
	})
}

func (b *Bot) reportSubmit(ctx context.Context, req *interaction.Request) error {
	return req.Ephemeral(ctx, "Report submitted successfully.")
}
