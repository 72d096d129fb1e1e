package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventMemberWarned   EventType = "member_warned"
	EventMemberMuted    EventType = "member_muted"
	EventMemberUnmuted  EventType = "member_unmuted"
	EventMemberKicked   EventType = "member_kicked"
	EventMemberBanned   EventType = "member_banned"
	EventMemberUnbanned EventType = "member_unbanned"
	EventMessagesPurged EventType = "messages_purged"

	EventFilterTriggered EventType = "filter_triggered"

	EventTicketCreated       EventType = "ticket_created"
	EventTicketClaimed       EventType = "ticket_claimed"
	EventTicketClosed        EventType = "ticket_closed"
	EventTicketMemberAdded   EventType = "ticket_member_added"
	EventTicketMemberRemoved EventType = "ticket_member_removed"

	EventSuggestionCreated  EventType = "suggestion_created"
	EventSuggestionReviewed EventType = "suggestion_reviewed"

	EventMemberJoined   EventType = "member_joined"
	EventMemberLeft     EventType = "member_left"
	EventGuildBanAdded  EventType = "guild_ban_added"
	EventGuildBanRemove EventType = "guild_ban_removed"
	EventMessageDeleted EventType = "message_deleted"
)

// LogDomain selects the log channel an event is recorded in.
type LogDomain string

const (
	DomainModeration LogDomain = "moderation"
	DomainAutoMod    LogDomain = "automod"
	DomainTickets    LogDomain = "tickets"
	DomainSuggestion LogDomain = "suggestions"
	DomainServer     LogDomain = "server"
	DomainJoinLeave  LogDomain = "join_leave"
)

var eventDomains = map[EventType]LogDomain{
	EventMemberWarned:        DomainModeration,
	EventMemberMuted:         DomainModeration,
	EventMemberUnmuted:       DomainModeration,
	EventMemberKicked:        DomainModeration,
	EventMemberBanned:        DomainModeration,
	EventMemberUnbanned:      DomainModeration,
	EventMessagesPurged:      DomainModeration,
	EventFilterTriggered:     DomainAutoMod,
	EventTicketCreated:       DomainTickets,
	EventTicketClaimed:       DomainTickets,
	EventTicketClosed:        DomainTickets,
	EventTicketMemberAdded:   DomainTickets,
	EventTicketMemberRemoved: DomainTickets,
	EventSuggestionCreated:   DomainSuggestion,
	EventSuggestionReviewed:  DomainSuggestion,
	EventMemberJoined:        DomainJoinLeave,
	EventMemberLeft:          DomainJoinLeave,
	EventGuildBanAdded:       DomainServer,
	EventGuildBanRemove:      DomainServer,
	EventMessageDeleted:      DomainServer,
}

// AllEventTypes lists every event type in a stable order.
func AllEventTypes() []EventType {
	return []EventType{
		EventMemberWarned, EventMemberMuted, EventMemberUnmuted, EventMemberKicked,
		EventMemberBanned, EventMemberUnbanned, EventMessagesPurged,
		EventFilterTriggered,
		EventTicketCreated, EventTicketClaimed, EventTicketClosed,
		EventTicketMemberAdded, EventTicketMemberRemoved,
		EventSuggestionCreated, EventSuggestionReviewed,
		EventMemberJoined, EventMemberLeft, EventGuildBanAdded, EventGuildBanRemove,
		EventMessageDeleted,
	}
}

// SystemActor is the actor id recorded for automatic actions.
const SystemActor = "system"

// Event represents a domain event emitted by services.
type Event struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Domain    LogDomain      `json:"domain"`
	ActorID   string         `json:"actor_id"`
	TargetID  string         `json:"target_id,omitempty"`
	Summary   string         `json:"summary"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// New builds an event with a fresh id and the domain implied by its type.
func New(eventType EventType, actorID, targetID, summary string, payload map[string]any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Domain:    eventDomains[eventType],
		ActorID:   actorID,
		TargetID:  targetID,
		Summary:   summary,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}
