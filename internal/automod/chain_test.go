package automod

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/modbot/internal/auth"
	"github.com/spec-kit/modbot/internal/config"
	"github.com/spec-kit/modbot/internal/domain"
	"github.com/spec-kit/modbot/internal/events"
	"github.com/spec-kit/modbot/internal/platform/platformtest"
	"github.com/spec-kit/modbot/internal/service"
)

type fakeSanctions struct {
	mu    sync.Mutex
	mutes []string
	warns []string
}

func (f *fakeSanctions) AutoMute(_ context.Context, targetID string, d time.Duration, reason string) (*domain.ModerationCase, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mutes = append(f.mutes, targetID)
	return &domain.ModerationCase{ID: len(f.mutes), Type: domain.CaseMute, TargetID: targetID, Reason: reason, DurationMs: domain.DurationMillis(d)}, nil
}

func (f *fakeSanctions) AutoWarn(_ context.Context, targetID, reason string) (*service.WarnResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.warns = append(f.warns, targetID)
	return &service.WarnResult{Case: &domain.ModerationCase{ID: 100 + len(f.warns), Type: domain.CaseWarn, Reason: reason}, Count: len(f.warns)}, nil
}

type delayed struct {
	mu     sync.Mutex
	delays []time.Duration
	fns    []func(context.Context) error
}

func (d *delayed) After(delay time.Duration, _ string, fn func(context.Context) error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.delays = append(d.delays, delay)
	d.fns = append(d.fns, fn)
}

type fixture struct {
	chain     *Chain
	client    *platformtest.Client
	sanctions *fakeSanctions
	cleanup   *delayed
	triggered []events.Event
}

func testConfig() config.AutoModConfig {
	return config.AutoModConfig{
		Enabled:                  true,
		AntiSpam:                 true,
		AntiInvite:               true,
		AntiCaps:                 true,
		BannedWordsEnabled:       true,
		SpamTimeWindow:           5 * time.Second,
		SpamMessageLimit:         5,
		SpamMuteDuration:         5 * time.Minute,
		CapsThreshold:            0.7,
		CapsMinLength:            10,
		WarningMessageDeleteTime: 5 * time.Second,
		BannedWords:              []string{"Badword"},
	}
}

func newFixture(t *testing.T, cfg config.AutoModConfig) *fixture {
	t.Helper()
	f := &fixture{
		client:    platformtest.NewClient(),
		sanctions: &fakeSanctions{},
		cleanup:   &delayed{},
	}
	dispatcher := events.NewInMemoryDispatcher(nil)
	dispatcher.Subscribe(events.EventFilterTriggered, func(_ context.Context, e events.Event) error {
		f.triggered = append(f.triggered, e)
		return nil
	})
	f.chain = NewChain(ChainDependencies{
		Client:      f.client,
		Permissions: auth.NewPermissions(config.RolesConfig{Staff: "staff"}, nil),
		Sanctions:   f.sanctions,
		Dispatcher:  dispatcher,
		Cleanup:     f.cleanup,
		Config:      cfg,
	})
	return f
}

func message(id, content string, at time.Time) domain.Message {
	return domain.Message{
		ID:        id,
		GuildID:   "guild",
		ChannelID: "general",
		AuthorID:  "user1",
		Member:    &domain.Member{ID: "user1"},
		Content:   content,
		Timestamp: at,
	}
}

func TestChainOrder(t *testing.T) {
	f := newFixture(t, testConfig())
	assert.Equal(t, []string{FilterSpam, FilterInvite, FilterCaps, FilterBannedWord}, f.chain.Filters())
}

func TestSpamBurstMutesOnceAndClearsWindow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, testConfig())
	start := time.Now()

	var verdicts []*Verdict
	for i := 0; i < 6; i++ {
		v, err := f.chain.Process(ctx, message(fmt.Sprintf("m%d", i), "hello", start.Add(time.Duration(i)*500*time.Millisecond)))
		require.NoError(t, err)
		verdicts = append(verdicts, v)
	}

	for i, v := range verdicts {
		if i == 4 {
			require.NotNil(t, v)
			assert.Equal(t, FilterSpam, v.Filter)
			assert.Equal(t, 5, v.Deleted)
			continue
		}
		assert.Nil(t, v, "message %d", i)
	}

	assert.Equal(t, []string{"user1"}, f.sanctions.mutes)
	assert.Equal(t, [][]string{{"m0", "m1", "m2", "m3", "m4"}}, f.client.BulkDeletes())
	assert.Equal(t, 1, f.chain.filters[0].(*SpamFilter).Tracked("user1"))
	require.Len(t, f.triggered, 1)
	assert.Equal(t, events.DomainAutoMod, f.triggered[0].Domain)
}

func TestSpamWindowSlides(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, testConfig())
	start := time.Now()

	for i := 0; i < 10; i++ {
		v, err := f.chain.Process(ctx, message(fmt.Sprintf("m%d", i), "hello", start.Add(time.Duration(i)*2*time.Second)))
		require.NoError(t, err)
		assert.Nil(t, v)
	}
	assert.Empty(t, f.sanctions.mutes)
}

func TestSpamWindowDropsLateOlderMessages(t *testing.T) {
	ctx := context.Background()
	spam := NewSpamFilter(5*time.Second, 3)
	start := time.Now()

	assert.Nil(t, spam.Inspect(ctx, message("a", "hi", start.Add(10*time.Second))))
	assert.Nil(t, spam.Inspect(ctx, message("b", "hi", start.Add(4*time.Second))))
	assert.Nil(t, spam.Inspect(ctx, message("c", "hi", start.Add(10500*time.Millisecond))))
	assert.Equal(t, 2, spam.Tracked("user1"))

	finding := spam.Inspect(ctx, message("d", "hi", start.Add(11*time.Second)))
	require.NotNil(t, finding)
	assert.Equal(t, []string{"a", "c", "d"}, finding.Messages["general"])
}

func TestInviteIsDeletedWithTransientNotice(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, testConfig())

	v, err := f.chain.Process(ctx, message("m1", "join us at discord.gg/abc", time.Now()))
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, FilterInvite, v.Filter)
	assert.Equal(t, []string{"m1"}, f.client.DeletedIDs())

	notices := f.client.Messages("general")
	require.Len(t, notices, 1)
	assert.Contains(t, notices[0].Message.Content, "invites are not allowed")

	require.Len(t, f.cleanup.fns, 1)
	assert.Equal(t, 5*time.Second, f.cleanup.delays[0])
	require.NoError(t, f.cleanup.fns[0](ctx))
	assert.Equal(t, []string{"m1", notices[0].ID}, f.client.DeletedIDs())
}

func TestFirstFindingShortCircuits(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, testConfig())

	v, err := f.chain.Process(ctx, message("m1", "DISCORD.GG/ABCDEF BADWORD SHOUTING", time.Now()))
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, FilterInvite, v.Filter)
	assert.Empty(t, f.sanctions.warns)
	assert.Len(t, f.triggered, 1)
}

func TestBannedWordWarns(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, testConfig())

	v, err := f.chain.Process(ctx, message("m1", "what a badword", time.Now()))
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, FilterBannedWord, v.Filter)
	require.NotNil(t, v.Sanction)
	assert.Equal(t, domain.CaseWarn, v.Sanction.Type)
	assert.Equal(t, []string{"user1"}, f.sanctions.warns)
}

func TestExemptions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, testConfig())
	invite := "discord.gg/abc"

	bot := message("m1", invite, time.Now())
	bot.AuthorBot = true
	dm := message("m2", invite, time.Now())
	dm.GuildID = ""
	staff := message("m3", invite, time.Now())
	staff.Member = &domain.Member{ID: "user1", Roles: []string{"staff"}}

	for _, msg := range []domain.Message{bot, dm, staff} {
		v, err := f.chain.Process(ctx, msg)
		require.NoError(t, err)
		assert.Nil(t, v)
	}

	cfg := testConfig()
	cfg.Enabled = false
	disabled := newFixture(t, cfg)
	v, err := disabled.chain.Process(ctx, message("m4", invite, time.Now()))
	require.NoError(t, err)
	assert.Nil(t, v)
	assert.Empty(t, f.client.DeletedIDs())
}

func TestDisabledFilterIsSkipped(t *testing.T) {
	cfg := testConfig()
	cfg.AntiInvite = false
	f := newFixture(t, cfg)

	v, err := f.chain.Process(context.Background(), message("m1", "discord.gg/abc", time.Now()))
	require.NoError(t, err)
	assert.Nil(t, v)
}
