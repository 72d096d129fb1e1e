package discord

import (
	"context"
	"errors"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/spec-kit/modbot/internal/platform"
)

var errAcknowledged = errors.New("discord: interaction already acknowledged")

var _ platform.Responder = (*Responder)(nil)

// Responder answers one gateway interaction. It tracks whether the initial
// response was sent so later calls pick the right endpoint.
type Responder struct {
	session *discordgo.Session
	in      *discordgo.Interaction

	mu       sync.Mutex
	replied  bool
	deferred bool
}

// NewResponder binds a responder to in.
func NewResponder(session *discordgo.Session, in *discordgo.Interaction) *Responder {
	return &Responder{session: session, in: in}
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

// claim marks the initial response as sent, failing when it already was.
func (r *Responder) claim(deferred bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.replied || r.deferred {
		return errAcknowledged
	}
	if deferred {
		r.deferred = true
	} else {
		r.replied = true
	}
	return nil
}

func (r *Responder) release(deferred bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if deferred {
		r.deferred = false
	} else {
		r.replied = false
	}
}

func (r *Responder) respond(ctx context.Context, deferred bool, resp *discordgo.InteractionResponse) error {
	if err := r.claim(deferred); err != nil {
		return err
	}
	if err := r.session.InteractionRespond(r.in, resp, discordgo.WithContext(ctx)); err != nil {
		r.release(deferred)
		return translate(err)
	}
	return nil
}

func (r *Responder) Reply(ctx context.Context, reply platform.Reply) error {
	return r.respond(ctx, false, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: responseData(reply),
	})
}

func (r *Responder) Defer(ctx context.Context, ephemeral bool) error {
	data := &discordgo.InteractionResponseData{}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return r.respond(ctx, true, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: data,
	})
}

// Edit replaces the deferred placeholder.
func (r *Responder) Edit(ctx context.Context, reply platform.Reply) error {
	content := reply.Content
	comps := components(reply.Buttons, reply.Select)
	_, err := r.session.InteractionResponseEdit(r.in, &discordgo.WebhookEdit{
		Content:    &content,
		Components: &comps,
		Files:      files(reply.Files),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return translate(err)
	}
	r.mu.Lock()
	r.replied = true
	r.mu.Unlock()
	return nil
}

func (r *Responder) FollowUp(ctx context.Context, reply platform.Reply) error {
	params := &discordgo.WebhookParams{
		Content:    reply.Content,
		Components: components(reply.Buttons, reply.Select),
		Files:      files(reply.Files),
	}
	if reply.Ephemeral {
		params.Flags = discordgo.MessageFlagsEphemeral
	}
	_, err := r.session.FollowupMessageCreate(r.in, true, params, discordgo.WithContext(ctx))
	return translate(err)
}

func (r *Responder) Modal(ctx context.Context, modal platform.Modal) error {
	rows := make([]discordgo.MessageComponent, 0, len(modal.Inputs))
	for _, in := range modal.Inputs {
		style := discordgo.TextInputShort
		if in.Paragraph {
			style = discordgo.TextInputParagraph
		}
		rows = append(rows, discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.TextInput{
				CustomID:    in.CustomID,
				Label:       in.Label,
				Style:       style,
				Placeholder: in.Placeholder,
				Required:    in.Required,
				MaxLength:   in.MaxLength,
			},
		}})
	}
	return r.respond(ctx, false, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID:   modal.CustomID,
			Title:      modal.Title,
			Components: rows,
		},
	})
}

// UpdateMessage rewrites the message carrying the component. Once the
// interaction was deferred the message is edited over REST instead.
func (r *Responder) UpdateMessage(ctx context.Context, reply platform.Reply) error {
	if r.Acknowledged() {
		if r.in.Message == nil {
			return errAcknowledged
		}
		edit := discordgo.NewMessageEdit(r.in.ChannelID, r.in.Message.ID).SetContent(reply.Content)
		comps := components(reply.Buttons, reply.Select)
		edit.Components = &comps
		_, err := r.session.ChannelMessageEditComplex(edit, discordgo.WithContext(ctx))
		return translate(err)
	}
	return r.respond(ctx, false, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: responseData(reply),
	})
}

func responseData(reply platform.Reply) *discordgo.InteractionResponseData {
	data := &discordgo.InteractionResponseData{
		Content:    reply.Content,
		Components: components(reply.Buttons, reply.Select),
		Files:      files(reply.Files),
	}
	if reply.Ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return data
}
