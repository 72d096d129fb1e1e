package interaction

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/modbot/internal/domain"
	"github.com/spec-kit/modbot/internal/observability"
	"github.com/spec-kit/modbot/internal/platform"
	apperrors "github.com/spec-kit/modbot/pkg/util/errorutil"
)

const (
	alreadyProcessedMessage = "This action has already been processed."
	genericFailureMessage   = "An error occurred while processing your request."
)

// Request is what a handler receives.
type Request struct {
	Interaction *domain.Interaction
	Match       Match
	Responder   platform.Responder
}

// Actor is the member who triggered the interaction.
func (r *Request) Actor() *domain.Member {
	return r.Interaction.Actor
}

// Reply answers the interaction, editing the deferred response when needed.
func (r *Request) Reply(ctx context.Context, reply platform.Reply) error {
	return platform.Respond(ctx, r.Responder, reply)
}

// Ephemeral answers with text only the actor can see.
func (r *Request) Ephemeral(ctx context.Context, format string, args ...any) error {
	return r.Reply(ctx, platform.Reply{Content: fmt.Sprintf(format, args...), Ephemeral: true})
}

// Handler processes one routed interaction.
type Handler func(ctx context.Context, req *Request) error

// Router dispatches interactions by token.
type Router struct {
	table    *Table
	handlers map[string]Handler
	ledger   Ledger
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// RouterDependencies bundles collaborators for the router.
type RouterDependencies struct {
	Table   *Table
	Ledger  Ledger
	Metrics *observability.Metrics
	Logger  *zap.Logger
}

// NewRouter creates a router. A nil table uses the default routes.
func NewRouter(deps RouterDependencies) *Router {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	table := deps.Table
	if table == nil {
		table = defaultTable
	}
	return &Router{
		table:    table,
		handlers: make(map[string]Handler),
		ledger:   deps.Ledger,
		metrics:  deps.Metrics,
		logger:   logger.Named("interactions"),
	}
}

// Handle binds an action to its handler. Registration must finish before the
// first Dispatch.
func (r *Router) Handle(action string, h Handler) {
	r.handlers[action] = h
}

// Actions lists the bound actions.
func (r *Router) Actions() []string {
	out := make([]string, 0, len(r.handlers))
	for a := range r.handlers {
		out = append(out, a)
	}
	return out
}

// Dispatch routes in to its handler. Errors and panics are answered here and
// never returned.
func (r *Router) Dispatch(ctx context.Context, in *domain.Interaction, resp platform.Responder) {
	token := in.Token
	if in.Kind == domain.InteractionCommand {
		token = CommandToken(in.Command, in.Sub)
	}
	log := r.logger.With(
		zap.String("interaction_id", in.ID),
		zap.String("kind", string(in.Kind)),
		zap.String("token", token))
	if in.Actor != nil {
		log = log.With(zap.String("actor_id", in.Actor.ID))
	}

	if resp.Acknowledged() {
		log.Debug("interaction already acknowledged")
		r.metrics.RecordInteraction("", "acknowledged")
		return
	}
	if r.ledger != nil && in.ID != "" {
		seen, err := r.ledger.Seen(ctx, in.ID)
		if err != nil {
			log.Warn("interaction ledger unavailable", zap.Error(err))
		} else if seen {
			log.Debug("duplicate interaction ignored")
			r.metrics.RecordInteraction("", "duplicate")
			return
		}
	}
	if in.Kind != domain.InteractionCommand && strings.Contains(token, DisabledMarker) {
		r.metrics.RecordInteraction("", "disabled")
		r.answer(ctx, log, resp, alreadyProcessedMessage)
		return
	}

	match, err := r.table.Parse(in.Kind, token)
	var h Handler
	if err == nil {
		if h = r.handlers[match.Action]; h == nil {
			err = apperrors.NewUnknownInteraction(token)
		}
	}
	if err != nil {
		log.Warn("unknown interaction")
		r.metrics.RecordInteraction("", "unknown")
		r.answer(ctx, log, resp, apperrors.ToDomainError(err).Message)
		return
	}
	log = log.With(zap.String("action", match.Action))

	if match.Defer {
		if err := resp.Defer(ctx, true); err != nil {
			log.Warn("defer failed", zap.Error(err))
		}
	}

	outcome := r.run(ctx, log, h, &Request{Interaction: in, Match: match, Responder: resp})
	r.metrics.RecordInteraction(match.Action, outcome)
}

func (r *Router) run(ctx context.Context, log *zap.Logger, h Handler, req *Request) (outcome string) {
	defer func() {
		if p := recover(); p != nil {
			log.Error("interaction handler panicked",
				zap.Any("panic", p),
				zap.ByteString("stack", debug.Stack()))
			r.answer(ctx, log, req.Responder, genericFailureMessage)
			outcome = "panic"
		}
	}()

	err := h(ctx, req)
	if err == nil {
		return "ok"
	}
	if apperrors.IsUserFacing(err) {
		log.Debug("interaction rejected", zap.Error(err))
		r.answer(ctx, log, req.Responder, apperrors.ToDomainError(err).Message)
		return "rejected"
	}
	log.Error("interaction failed", zap.Error(err))
	r.answer(ctx, log, req.Responder, genericFailureMessage)
	return "error"
}

func (r *Router) answer(ctx context.Context, log *zap.Logger, resp platform.Responder, content string) {
	if err := platform.Respond(ctx, resp, platform.Reply{Content: content, Ephemeral: true}); err != nil {
		log.Warn("could not answer interaction", zap.Error(err))
	}
}
