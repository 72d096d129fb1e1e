// Package platformtest provides in-memory platform fakes for tests.
package platformtest

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/spec-kit/modbot/internal/domain"
	"github.com/spec-kit/modbot/internal/platform"
)

// SentMessage records a message posted through the fake client.
type SentMessage struct {
	ID        string
	ChannelID string
	Message   platform.OutgoingMessage
}

// Client is a thread-safe fake platform.Client.
type Client struct {
	mu sync.Mutex

	Members     map[string]*domain.Member
	Bans        map[string]string
	Kicked      []string
	Sent        []SentMessage
	Edited      []SentMessage
	Deleted     []string
	BulkDeleted [][]string
	Directs     map[string][]platform.OutgoingMessage
	Channels    map[string]platform.TicketChannelSpec
	Removed     []string
	Access      map[string]map[string]bool
	History     map[string][]domain.ChatMessage

	// Fail makes the named method return the given error.
	Fail map[string]error

	seq int
}

// NewClient returns an empty fake.
func NewClient() *Client {
	return &Client{
		Members:  map[string]*domain.Member{},
		Bans:     map[string]string{},
		Directs:  map[string][]platform.OutgoingMessage{},
		Channels: map[string]platform.TicketChannelSpec{},
		Access:   map[string]map[string]bool{},
		History:  map[string][]domain.ChatMessage{},
		Fail:     map[string]error{},
	}
}

// AddMember registers a member.
func (c *Client) AddMember(m *domain.Member) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Members[m.ID] = m
}

// HasRole reports whether userID currently carries roleID.
func (c *Client) HasRole(userID, roleID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.Members[userID]
	return ok && slices.Contains(m.Roles, roleID)
}

// IsBannedNow reports the fake ban state without a context.
func (c *Client) IsBannedNow(userID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.Bans[userID]
	return ok
}

// Messages returns a copy of everything sent to channelID.
func (c *Client) Messages(channelID string) []SentMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []SentMessage
	for _, m := range c.Sent {
		if m.ChannelID == channelID {
			out = append(out, m)
		}
	}
	return out
}

// DeletedIDs returns a copy of the deleted message ids.
func (c *Client) DeletedIDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.Deleted)
}

// BulkDeletes returns a copy of the bulk-delete batches.
func (c *Client) BulkDeletes() [][]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.BulkDeleted)
}

func (c *Client) fail(op string) error {
	if err, ok := c.Fail[op]; ok {
		return err
	}
	return nil
}

func (c *Client) GetMember(_ context.Context, _, userID string) (*domain.Member, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fail("GetMember"); err != nil {
		return nil, err
	}
	m, ok := c.Members[userID]
	if !ok {
		return nil, platform.ErrNotFound
	}
	cp := *m
	cp.Roles = slices.Clone(m.Roles)
	return &cp, nil
}

func (c *Client) AddRole(_ context.Context, _, userID, roleID, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fail("AddRole"); err != nil {
		return err
	}
	m, ok := c.Members[userID]
	if !ok {
		return platform.ErrNotFound
	}
	if !slices.Contains(m.Roles, roleID) {
		m.Roles = append(m.Roles, roleID)
	}
	return nil
}

func (c *Client) RemoveRole(_ context.Context, _, userID, roleID, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fail("RemoveRole"); err != nil {
		return err
	}
	m, ok := c.Members[userID]
	if !ok {
		return platform.ErrNotFound
	}
	m.Roles = slices.DeleteFunc(m.Roles, func(r string) bool { return r == roleID })
	return nil
}

func (c *Client) Kick(_ context.Context, _, userID, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fail("Kick"); err != nil {
		return err
	}
	delete(c.Members, userID)
	c.Kicked = append(c.Kicked, userID)
	return nil
}

func (c *Client) Ban(_ context.Context, _, userID, reason string, _ int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fail("Ban"); err != nil {
		return err
	}
	c.Bans[userID] = reason
	delete(c.Members, userID)
	return nil
}

func (c *Client) Unban(_ context.Context, _, userID, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fail("Unban"); err != nil {
		return err
	}
	if _, ok := c.Bans[userID]; !ok {
		return platform.ErrNotFound
	}
	delete(c.Bans, userID)
	return nil
}

func (c *Client) IsBanned(_ context.Context, _, userID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fail("IsBanned"); err != nil {
		return false, err
	}
	_, ok := c.Bans[userID]
	return ok, nil
}

func (c *Client) SendMessage(_ context.Context, channelID string, msg platform.OutgoingMessage) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fail("SendMessage"); err != nil {
		return "", err
	}
	c.seq++
	id := fmt.Sprintf("msg-%d", c.seq)
	c.Sent = append(c.Sent, SentMessage{ID: id, ChannelID: channelID, Message: msg})
	return id, nil
}

func (c *Client) EditMessage(_ context.Context, channelID, messageID string, msg platform.OutgoingMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fail("EditMessage"); err != nil {
		return err
	}
	c.Edited = append(c.Edited, SentMessage{ID: messageID, ChannelID: channelID, Message: msg})
	return nil
}

func (c *Client) DeleteMessage(_ context.Context, _, messageID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fail("DeleteMessage"); err != nil {
		return err
	}
	c.Deleted = append(c.Deleted, messageID)
	return nil
}

func (c *Client) BulkDelete(_ context.Context, _ string, messageIDs []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fail("BulkDelete"); err != nil {
		return err
	}
	c.BulkDeleted = append(c.BulkDeleted, slices.Clone(messageIDs))
	return nil
}

func (c *Client) FetchMessages(_ context.Context, channelID string, limit int) ([]domain.ChatMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fail("FetchMessages"); err != nil {
		return nil, err
	}
	msgs := c.History[channelID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[:limit]
	}
	return slices.Clone(msgs), nil
}

func (c *Client) SendDirect(_ context.Context, userID string, msg platform.OutgoingMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fail("SendDirect"); err != nil {
		return err
	}
	c.Directs[userID] = append(c.Directs[userID], msg)
	return nil
}

func (c *Client) CreateTicketChannel(_ context.Context, spec platform.TicketChannelSpec) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fail("CreateTicketChannel"); err != nil {
		return "", err
	}
	c.seq++
	id := fmt.Sprintf("chan-%d", c.seq)
	c.Channels[id] = spec
	return id, nil
}

func (c *Client) SetChannelAccess(_ context.Context, channelID, userID string, allow bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fail("SetChannelAccess"); err != nil {
		return err
	}
	if c.Access[channelID] == nil {
		c.Access[channelID] = map[string]bool{}
	}
	c.Access[channelID][userID] = allow
	return nil
}

func (c *Client) DeleteChannel(_ context.Context, channelID, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fail("DeleteChannel"); err != nil {
		return err
	}
	delete(c.Channels, channelID)
	c.Removed = append(c.Removed, channelID)
	return nil
}

// Responder records every response made to one interaction.
type Responder struct {
	mu sync.Mutex

	Replies   []platform.Reply
	Edits     []platform.Reply
	FollowUps []platform.Reply
	Updates   []platform.Reply
	Modals    []platform.Modal
	Defers    int

	replied  bool
	deferred bool
	contents []string
}

// NewResponder returns a fresh, unacknowledged responder.
func NewResponder() *Responder {
	return &Responder{}
}

// MarkReplied simulates an interaction acknowledged elsewhere.
func (r *Responder) MarkReplied() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replied = true
}

// Last returns the text of the most recent message-bearing response.
func (r *Responder) Last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.contents) == 0 {
		return ""
	}
	return r.contents[len(r.contents)-1]
}

// Count returns how many responses carried content.
func (r *Responder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.contents)
}

func (r *Responder) Acknowledged() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.replied || r.deferred
}

func (r *Responder) Deferred() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.deferred && !r.replied
}

func (r *Responder) Reply(_ context.Context, reply platform.Reply) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.replied || r.deferred {
		return fmt.Errorf("interaction already acknowledged")
	}
	r.replied = true
	r.Replies = append(r.Replies, reply)
	r.contents = append(r.contents, reply.Content)
	return nil
}

func (r *Responder) Defer(_ context.Context, _ bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.replied || r.deferred {
		return fmt.Errorf("interaction already acknowledged")
	}
	r.deferred = true
	r.Defers++
	return nil
}

func (r *Responder) Edit(_ context.Context, reply platform.Reply) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replied = true
	r.Edits = append(r.Edits, reply)
	r.contents = append(r.contents, reply.Content)
	return nil
}

func (r *Responder) FollowUp(_ context.Context, reply platform.Reply) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.FollowUps = append(r.FollowUps, reply)
	r.contents = append(r.contents, reply.Content)
	return nil
}

func (r *Responder) Modal(_ context.Context, modal platform.Modal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.replied || r.deferred {
		return fmt.Errorf("interaction already acknowledged")
	}
	r.replied = true
	r.Modals = append(r.Modals, modal)
	return nil
}

func (r *Responder) UpdateMessage(_ context.Context, reply platform.Reply) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replied = true
	r.Updates = append(r.Updates, reply)
	r.contents = append(r.contents, reply.Content)
	return nil
}
