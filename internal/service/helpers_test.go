package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/spec-kit/modbot/internal/auth"
	"github.com/spec-kit/modbot/internal/config"
	"github.com/spec-kit/modbot/internal/domain"
	"github.com/spec-kit/modbot/internal/events"
	"github.com/spec-kit/modbot/internal/platform/platformtest"
	"github.com/spec-kit/modbot/internal/repository"
	"github.com/spec-kit/modbot/internal/sanction"
	"github.com/spec-kit/modbot/internal/store"
)

const (
	guildID   = "guild"
	mutedRole = "muted"
	modRole   = "mod"
	staffRole = "staff"
)

var roles = config.RolesConfig{Staff: staffRole, Moderator: modRole, Admin: "admin", Muted: mutedRole}

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) handle(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type immediateRunner struct {
	mu    sync.Mutex
	names []string
	fns   []func(ctx context.Context) error
}

func (r *immediateRunner) After(_ time.Duration, name string, fn func(ctx context.Context) error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = append(r.names, name)
	r.fns = append(r.fns, fn)
}

func (r *immediateRunner) runAll() {
	r.mu.Lock()
	fns := r.fns
	r.fns = nil
	r.mu.Unlock()
	for _, fn := range fns {
		_ = fn(context.Background())
	}
}

type harness struct {
	client     *platformtest.Client
	perms      *auth.Permissions
	scheduler  *sanction.Scheduler
	dispatcher events.Dispatcher
	events     *recorder
	runner     *immediateRunner
	modRepo    repository.ModerationRepository
	dir        string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		client:     platformtest.NewClient(),
		perms:      auth.NewPermissions(roles, []string{"support"}),
		scheduler:  sanction.NewScheduler(time.Second, nil),
		dispatcher: events.NewInMemoryDispatcher(nil),
		events:     &recorder{},
		runner:     &immediateRunner{},
		dir:        t.TempDir(),
	}
	h.modRepo = repository.NewModerationRepository(store.NewCollection(h.dir, "moderation", domain.NewModerationDocument, nil))
	events.SubscribeAll(h.dispatcher, h.events.handle)
	t.Cleanup(h.scheduler.Stop)

	h.client.AddMember(&domain.Member{ID: "mod1", Username: "Mod", Roles: []string{modRole}})
	h.client.AddMember(&domain.Member{ID: "staff1", Username: "Staff", Roles: []string{staffRole}})
	h.client.AddMember(&domain.Member{ID: "user1", Username: "Alice"})
	h.client.AddMember(&domain.Member{ID: "user2", Username: "Bob"})
	return h
}

func (h *harness) member(id string) *domain.Member {
	m, err := h.client.GetMember(context.Background(), guildID, id)
	if err != nil {
		panic(err)
	}
	return m
}

func (h *harness) moderation(punish config.PunishmentsConfig) *ModerationService {
	return NewModerationService(ModerationDependencies{
		Repo:        h.modRepo,
		Client:      h.client,
		Permissions: h.perms,
		Scheduler:   h.scheduler,
		Dispatcher:  h.dispatcher,
		Punishments: punish,
		MutedRole:   mutedRole,
		GuildID:     guildID,
	})
}

func defaultPunishments() config.PunishmentsConfig {
	return config.PunishmentsConfig{
		MuteThreshold:       3,
		BanThreshold:        5,
		DefaultMuteDuration: time.Hour,
		MaxSanctionDuration: 365 * 24 * time.Hour,
	}
}
