package sanction

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/modbot/internal/domain"
)

func TestScheduleFiresOnce(t *testing.T) {
	s := NewScheduler(time.Second, nil)
	defer s.Stop()

	done := make(chan struct{}, 2)
	s.Schedule(Key{TargetID: "u1", Kind: domain.SanctionMute}, 10*time.Millisecond, func(ctx context.Context) error {
		done <- struct{}{}
		return nil
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reversal did not fire")
	}
	time.Sleep(30 * time.Millisecond)
	assert.Len(t, done, 0)
	assert.Empty(t, s.Pending())
}

func TestScheduleReplacesExistingTimer(t *testing.T) {
	s := NewScheduler(time.Second, nil)
	defer s.Stop()

	key := Key{TargetID: "u1", Kind: domain.SanctionMute}
	var first, second atomic.Int32
	s.Schedule(key, 20*time.Millisecond, func(ctx context.Context) error {
		first.Add(1)
		return nil
	})
	s.Schedule(key, 40*time.Millisecond, func(ctx context.Context) error {
		second.Add(1)
		return nil
	})
	require.Len(t, s.Pending(), 1)

	require.Eventually(t, func() bool { return second.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(0), first.Load())
}

func TestCancelPreventsFiring(t *testing.T) {
	s := NewScheduler(time.Second, nil)
	defer s.Stop()

	key := Key{TargetID: "u2", Kind: domain.SanctionBan}
	var fired atomic.Bool
	s.Schedule(key, 20*time.Millisecond, func(ctx context.Context) error {
		fired.Store(true)
		return nil
	})

	assert.True(t, s.Cancel(key))
	assert.False(t, s.Cancel(key))
	time.Sleep(50 * time.Millisecond)
	assert.False(t, fired.Load())
}

func TestKeysAreIndependentPerKind(t *testing.T) {
	s := NewScheduler(time.Second, nil)
	defer s.Stop()

	noop := func(ctx context.Context) error { return nil }
	s.Schedule(Key{TargetID: "u1", Kind: domain.SanctionMute}, time.Hour, noop)
	s.Schedule(Key{TargetID: "u1", Kind: domain.SanctionBan}, 2*time.Hour, noop)

	pending := s.Pending()
	require.Len(t, pending, 2)
	assert.Equal(t, domain.SanctionMute, pending[0].Key.Kind)
	assert.Equal(t, domain.SanctionBan, pending[1].Key.Kind)
}

func TestStopCancelsEverything(t *testing.T) {
	s := NewScheduler(time.Second, nil)
	var fired atomic.Bool
	s.Schedule(Key{TargetID: "u1", Kind: domain.SanctionMute}, 10*time.Millisecond, func(ctx context.Context) error {
		fired.Store(true)
		return nil
	})
	s.Stop()
	s.Schedule(Key{TargetID: "u3", Kind: domain.SanctionMute}, 0, func(ctx context.Context) error {
		fired.Store(true)
		return nil
	})

	time.Sleep(40 * time.Millisecond)
	assert.False(t, fired.Load())
	assert.Empty(t, s.Pending())
}

func TestPanickingCallbackIsContained(t *testing.T) {
	s := NewScheduler(time.Second, nil)
	defer s.Stop()

	var after atomic.Bool
	s.Schedule(Key{TargetID: "u1", Kind: domain.SanctionMute}, 0, func(ctx context.Context) error {
		panic("boom")
	})
	s.Schedule(Key{TargetID: "u2", Kind: domain.SanctionMute}, 10*time.Millisecond, func(ctx context.Context) error {
		after.Store(true)
		return nil
	})

	require.Eventually(t, after.Load, time.Second, 5*time.Millisecond)
}
