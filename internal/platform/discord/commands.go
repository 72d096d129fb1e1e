package discord

import (
	"github.com/bwmarrin/discordgo"

	"github.com/spec-kit/modbot/internal/config"
	"github.com/spec-kit/modbot/internal/domain"
)

var (
	moderatePermission int64 = discordgo.PermissionModerateMembers
	purgePermission    int64 = discordgo.PermissionManageMessages
	guildOnly                = false
)

func sub(name, description string, options ...*discordgo.ApplicationCommandOption) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionSubCommand,
		Name:        name,
		Description: description,
		Options:     options,
	}
}

func opt(kind discordgo.ApplicationCommandOptionType, name, description string, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{Type: kind, Name: name, Description: description, Required: required}
}

func userOpt(description string) *discordgo.ApplicationCommandOption {
	return opt(discordgo.ApplicationCommandOptionUser, "user", description, true)
}

func reasonOpt() *discordgo.ApplicationCommandOption {
	return opt(discordgo.ApplicationCommandOptionString, "reason", "Reason", false)
}

func durationOpt() *discordgo.ApplicationCommandOption {
	return opt(discordgo.ApplicationCommandOptionString, "duration", "Duration such as 30m, 2h or 7d; empty for permanent", false)
}

// Commands builds the slash command set. Ticket categories become choices.
func Commands(tickets config.TicketsConfig) []*discordgo.ApplicationCommand {
	category := opt(discordgo.ApplicationCommandOptionString, "category", "Ticket category", false)
	for _, c := range tickets.Categories {
		category.Choices = append(category.Choices, &discordgo.ApplicationCommandOptionChoice{Name: c.Name, Value: c.Key})
	}

	status := opt(discordgo.ApplicationCommandOptionString, "status", "Filter by status", false)
	for _, s := range []domain.SuggestionStatus{
		domain.SuggestionPending, domain.SuggestionApproved, domain.SuggestionDenied, domain.SuggestionConsidering,
	} {
		status.Choices = append(status.Choices, &discordgo.ApplicationCommandOptionChoice{Name: string(s), Value: string(s)})
	}

	minAmount := 1.0
	amount := opt(discordgo.ApplicationCommandOptionInteger, "amount", "Number of messages to delete (1-100)", true)
	amount.MinValue = &minAmount
	amount.MaxValue = 100

	return []*discordgo.ApplicationCommand{
		{
			Name:         "ticket",
			Description:  "Support tickets",
			DMPermission: &guildOnly,
			Options: []*discordgo.ApplicationCommandOption{
				sub("create", "Open a support ticket", category, reasonOpt()),
				sub("close", "Close this ticket"),
				sub("add", "Add a user to this ticket", userOpt("User to add")),
				sub("remove", "Remove a user from this ticket", userOpt("User to remove")),
				sub("status", "Show your open tickets"),
				sub("panel", "Post the ticket panel in this channel"),
			},
		},
		{
			Name:         "suggest",
			Description:  "Community suggestions",
			DMPermission: &guildOnly,
			Options: []*discordgo.ApplicationCommandOption{
				sub("create", "Submit a suggestion",
					opt(discordgo.ApplicationCommandOptionString, "title", "Short title", true),
					opt(discordgo.ApplicationCommandOptionString, "description", "What should change", true),
					opt(discordgo.ApplicationCommandOptionBoolean, "anonymous", "Hide your name", false)),
				sub("modal", "Submit a suggestion with a form"),
				sub("list", "List suggestions", status),
				sub("info", "Show one suggestion",
					opt(discordgo.ApplicationCommandOptionInteger, "id", "Suggestion id", true)),
			},
		},
		{
			Name:                     "mod",
			Description:              "Moderation",
			DefaultMemberPermissions: &moderatePermission,
			DMPermission:             &guildOnly,
			Options: []*discordgo.ApplicationCommandOption{
				sub("warn", "Warn a member", userOpt("Member to warn"), reasonOpt()),
				sub("mute", "Mute a member", userOpt("Member to mute"), durationOpt(), reasonOpt()),
				sub("unmute", "Unmute a member", userOpt("Member to unmute"), reasonOpt()),
				sub("kick", "Kick a member", userOpt("Member to kick"), reasonOpt()),
				sub("ban", "Ban a member", userOpt("Member to ban"), durationOpt(), reasonOpt()),
				sub("unban", "Lift a ban",
					opt(discordgo.ApplicationCommandOptionString, "userid", "User id", true), reasonOpt()),
				sub("warnings", "List warnings", userOpt("Member")),
				sub("case", "Show a moderation case",
					opt(discordgo.ApplicationCommandOptionInteger, "id", "Case id", true)),
			},
		},
		{
			Name:                     "purge",
			Description:              "Bulk delete recent messages",
			DefaultMemberPermissions: &purgePermission,
			DMPermission:             &guildOnly,
			Options: []*discordgo.ApplicationCommandOption{
				amount,
				opt(discordgo.ApplicationCommandOptionUser, "user", "Only this author", false),
				reasonOpt(),
			},
		},
	}
}
