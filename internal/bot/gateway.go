package bot

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/modbot/internal/domain"
	"github.com/spec-kit/modbot/internal/events"
)

// HandleMessage runs a new guild message through the filter chain.
func (b *Bot) HandleMessage(ctx context.Context, msg domain.Message) {
	if b.chain == nil {
		return
	}
	verdict, err := b.chain.Process(ctx, msg)
	if err != nil {
		b.logger.Warn("automod enforcement incomplete",
			zap.String("message_id", msg.ID),
			zap.String("author_id", msg.AuthorID),
			zap.Error(err))
	}
	if verdict != nil {
		b.logger.Debug("message filtered", zap.String("filter", verdict.Filter), zap.String("message_id", msg.ID))
	}
}

// HandleMemberJoin applies the auto role and restores a mute the member tried
// to shed by leaving.
func (b *Bot) HandleMemberJoin(ctx context.Context, member *domain.Member) {
	if member == nil || member.Bot {
		return
	}
	if b.roles.AutoRole != "" {
		if err := b.client.AddRole(ctx, b.guildID, member.ID, b.roles.AutoRole, "Auto role"); err != nil {
			b.logger.Warn("auto role failed", zap.String("user_id", member.ID), zap.Error(err))
		}
	}
	remuted := false
	if b.moderation != nil {
		var err error
		remuted, err = b.moderation.ReapplyMute(ctx, member.ID)
		if err != nil {
			b.logger.Warn("mute re-apply failed", zap.String("user_id", member.ID), zap.Error(err))
		}
	}

	summary := fmt.Sprintf("%s (%s) joined the server", domain.Mention(member.ID), member.Username)
	if remuted {
		summary += "; active mute re-applied"
	}
	b.publish(ctx, events.EventMemberJoined, member.ID, member.ID, summary, map[string]any{"remuted": remuted})
}

// HandleMemberLeave records a departure.
func (b *Bot) HandleMemberLeave(ctx context.Context, userID, username string) {
	b.publish(ctx, events.EventMemberLeft, userID, userID,
		fmt.Sprintf("%s (%s) left the server", domain.Mention(userID), username), nil)
}

// HandleBanAdd records a ban applied from any source.
func (b *Bot) HandleBanAdd(ctx context.Context, userID, username string) {
	b.publish(ctx, events.EventGuildBanAdded, events.SystemActor, userID,
		fmt.Sprintf("%s (%s) was banned", domain.Mention(userID), username), nil)
}

// HandleBanRemove records a ban lifted from any source.
func (b *Bot) HandleBanRemove(ctx context.Context, userID, username string) {
	b.publish(ctx, events.EventGuildBanRemove, events.SystemActor, userID,
		fmt.Sprintf("%s (%s) was unbanned", domain.Mention(userID), username), nil)
}

// HandleMessageDelete records a deleted message. Content is empty when the
// message was not cached.
func (b *Bot) HandleMessageDelete(ctx context.Context, channelID, messageID, authorID, content string) {
	summary := fmt.Sprintf("Message %s deleted in %s", messageID, domain.ChannelMention(channelID))
	if authorID != "" {
		summary = fmt.Sprintf("Message by %s deleted in %s", domain.Mention(authorID), domain.ChannelMention(channelID))
	}
	payload := map[string]any{"channel_id": channelID, "message_id": messageID}
	if content != "" {
		payload["content"] = content
	}
	b.publish(ctx, events.EventMessageDeleted, events.SystemActor, authorID, summary, payload)
}
