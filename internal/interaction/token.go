// Package interaction routes inbound commands, buttons, selects and modals to
// their handlers.
package interaction

import (
	"sort"
	"strings"

	"github.com/spec-kit/modbot/internal/domain"
	apperrors "github.com/spec-kit/modbot/pkg/util/errorutil"
)

// DisabledMarker suffixes the custom id of a control that was switched off.
const DisabledMarker = "_disabled"

// Actions bound by the bot.
const (
	ActionTicketClose        = "ticket.close"
	ActionTicketClaim        = "ticket.claim"
	ActionTicketTranscript   = "ticket.transcript"
	ActionTicketQuickCreate  = "ticket.quick_create"
	ActionTicketHelp         = "ticket.help"
	ActionTicketStatusCheck  = "ticket.status_check"
	ActionTicketCategory     = "ticket.category_select"
	ActionTicketConfirm      = "ticket.confirm"
	ActionSuggestionApprove  = "suggestion.approve"
	ActionSuggestionDenyAnon = "suggestion.deny_anonymous"
	ActionSuggestionReveal   = "suggestion.deny_reveal"
	ActionSuggestionCancel   = "suggestion.deny_cancel"
	ActionSuggestionDeny     = "suggestion.deny"
	ActionSuggestionUpvote   = "suggestion.upvote"
	ActionSuggestionDownvote = "suggestion.downvote"
	ActionSuggestionConsider = "suggestion.consider"
	ActionSuggestionSubmit   = "suggestion.submit"
	ActionReportSubmit       = "report.submit"

	ActionCmdTicketCreate  = "cmd.ticket.create"
	ActionCmdTicketClose   = "cmd.ticket.close"
	ActionCmdTicketAdd     = "cmd.ticket.add"
	ActionCmdTicketRemove  = "cmd.ticket.remove"
	ActionCmdTicketStatus  = "cmd.ticket.status"
	ActionCmdTicketPanel   = "cmd.ticket.panel"
	ActionCmdSuggestCreate = "cmd.suggest.create"
	ActionCmdSuggestModal  = "cmd.suggest.modal"
	ActionCmdSuggestList   = "cmd.suggest.list"
	ActionCmdSuggestInfo   = "cmd.suggest.info"
	ActionCmdModWarn       = "cmd.mod.warn"
	ActionCmdModMute       = "cmd.mod.mute"
	ActionCmdModUnmute     = "cmd.mod.unmute"
	ActionCmdModKick       = "cmd.mod.kick"
	ActionCmdModBan        = "cmd.mod.ban"
	ActionCmdModUnban      = "cmd.mod.unban"
	ActionCmdModWarnings   = "cmd.mod.warnings"
	ActionCmdModCase       = "cmd.mod.case"
	ActionCmdPurge         = "cmd.purge"
)

// Route maps a token literal to an action.
type Route struct {
	Kind    domain.InteractionKind
	Literal string
	// Prefix routes match any token starting with Literal; the rest of the
	// token is the subject.
	Prefix bool
	Action string
	// Defer acknowledges the interaction before the handler runs.
	Defer bool
}

// Match is the result of parsing a token.
type Match struct {
	Action   string
	Subject  string
	Disabled bool
	Defer    bool
}

// Table is an ordered set of routes: exact literals first, then prefixes by
// decreasing length.
type Table struct {
	routes []Route
}

// NewTable builds a table from routes.
func NewTable(routes ...Route) *Table {
	t := &Table{}
	for _, r := range routes {
		t.Add(r)
	}
	return t
}

// Add inserts a route and restores the table order. Not safe for use while
// Parse runs concurrently.
func (t *Table) Add(r Route) {
	t.routes = append(t.routes, r)
	sort.SliceStable(t.routes, func(i, j int) bool {
		a, b := t.routes[i], t.routes[j]
		if a.Prefix != b.Prefix {
			return !a.Prefix
		}
		return len(a.Literal) > len(b.Literal)
	})
}

// Routes returns the routes in evaluation order.
func (t *Table) Routes() []Route {
	return append([]Route(nil), t.routes...)
}

// Parse resolves token for the given interaction kind.
func (t *Table) Parse(kind domain.InteractionKind, token string) (Match, error) {
	disabled := false
	if stripped, ok := strings.CutSuffix(token, DisabledMarker); ok {
		token, disabled = stripped, true
	}
	for _, r := range t.routes {
		if r.Kind != kind {
			continue
		}
		if !r.Prefix {
			if token == r.Literal {
				return Match{Action: r.Action, Disabled: disabled, Defer: r.Defer}, nil
			}
			continue
		}
		if subject, ok := strings.CutPrefix(token, r.Literal); ok && subject != "" {
			return Match{Action: r.Action, Subject: subject, Disabled: disabled, Defer: r.Defer}, nil
		}
	}
	return Match{}, apperrors.NewUnknownInteraction(token)
}

var defaultTable = NewTable(DefaultRoutes()...)

// ParseToken resolves token against the default routes.
func ParseToken(kind domain.InteractionKind, token string) (Match, error) {
	return defaultTable.Parse(kind, token)
}

// CommandToken is the routing token of a slash command: the command name and
// its subcommand, if any.
func CommandToken(command, sub string) string {
	return strings.TrimSpace(command + " " + sub)
}

// DefaultRoutes lists every interaction the bot understands.
func DefaultRoutes() []Route {
	button := func(literal, action string, prefix, deferred bool) Route {
		return Route{Kind: domain.InteractionButton, Literal: literal, Prefix: prefix, Action: action, Defer: deferred}
	}
	command := func(literal, action string, deferred bool) Route {
		return Route{Kind: domain.InteractionCommand, Literal: literal, Action: action, Defer: deferred}
	}
	return []Route{
		button("ticket_close_", ActionTicketClose, true, false),
		button("ticket_claim_", ActionTicketClaim, true, false),
		button("ticket_transcript_", ActionTicketTranscript, true, true),
		button("ticket_quick_create", ActionTicketQuickCreate, false, false),
		button("ticket_help_info", ActionTicketHelp, false, false),
		button("ticket_status_check", ActionTicketStatusCheck, false, false),
		button("suggestion_approve_", ActionSuggestionApprove, true, true),
		button("suggestion_deny_anonymous_", ActionSuggestionDenyAnon, true, true),
		button("suggestion_deny_reveal_", ActionSuggestionReveal, true, true),
		button("suggestion_deny_cancel_", ActionSuggestionCancel, true, true),
		button("suggestion_deny_", ActionSuggestionDeny, true, true),
		button("suggestion_upvote_", ActionSuggestionUpvote, true, true),
		button("suggestion_downvote_", ActionSuggestionDownvote, true, true),
		button("suggestion_consider_", ActionSuggestionConsider, true, true),

		{Kind: domain.InteractionSelect, Literal: "ticket_category_select", Action: ActionTicketCategory},

		{Kind: domain.InteractionModal, Literal: "suggestion_modal", Action: ActionSuggestionSubmit},
		{Kind: domain.InteractionModal, Literal: "report_modal", Action: ActionReportSubmit},
		{Kind: domain.InteractionModal, Literal: "ticket_confirm_", Prefix: true, Action: ActionTicketConfirm},

		command("ticket create", ActionCmdTicketCreate, false),
		command("ticket close", ActionCmdTicketClose, false),
		command("ticket add", ActionCmdTicketAdd, false),
		command("ticket remove", ActionCmdTicketRemove, false),
		command("ticket status", ActionCmdTicketStatus, false),
		command("ticket panel", ActionCmdTicketPanel, false),
		command("suggest create", ActionCmdSuggestCreate, false),
		command("suggest modal", ActionCmdSuggestModal, false),
		command("suggest list", ActionCmdSuggestList, false),
		command("suggest info", ActionCmdSuggestInfo, false),
		command("mod warn", ActionCmdModWarn, false),
		command("mod mute", ActionCmdModMute, false),
		command("mod unmute", ActionCmdModUnmute, false),
		command("mod kick", ActionCmdModKick, false),
		command("mod ban", ActionCmdModBan, false),
		command("mod unban", ActionCmdModUnban, false),
		command("mod warnings", ActionCmdModWarnings, false),
		command("mod case", ActionCmdModCase, false),
		command("purge", ActionCmdPurge, true),
	}
}
