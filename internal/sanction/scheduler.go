// Package sanction schedules the automatic reversal of time-bounded sanctions.
package sanction

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/modbot/internal/domain"
)

// Key identifies the single pending reversal for a target and sanction kind.
type Key struct {
	TargetID string
	Kind     domain.SanctionKind
}

// Entry describes a pending reversal.
type Entry struct {
	Key    Key
	FireAt time.Time
}

// Func is invoked when a reversal fires.
type Func func(ctx context.Context) error

type timer struct {
	t      *time.Timer
	gen    uint64
	fireAt time.Time
}

// Scheduler holds at most one timer per Key.
type Scheduler struct {
	mu      sync.Mutex
	timers  map[Key]*timer
	gen     uint64
	stopped bool
	timeout time.Duration
	logger  *zap.Logger
}

// NewScheduler creates a scheduler. timeout bounds each callback run.
func NewScheduler(timeout time.Duration, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Scheduler{
		timers:  make(map[Key]*timer),
		timeout: timeout,
		logger:  logger,
	}
}

// Schedule arranges for fn to run once after the given delay, replacing any
// pending timer for key.
func (s *Scheduler) Schedule(key Key, after time.Duration, fn Func) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if existing, ok := s.timers[key]; ok {
		existing.t.Stop()
	}
	if after < 0 {
		after = 0
	}

	s.gen++
	gen := s.gen
	entry := &timer{gen: gen, fireAt: time.Now().Add(after)}
	entry.t = time.AfterFunc(after, func() { s.fire(key, gen, fn) })
	s.timers[key] = entry
}

func (s *Scheduler) fire(key Key, gen uint64, fn Func) {
	s.mu.Lock()
	current, ok := s.timers[key]
	if !ok || current.gen != gen {
		s.mu.Unlock()
		return
	}
	delete(s.timers, key)
	s.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("sanction reversal panicked",
				zap.String("target_id", key.TargetID),
				zap.String("kind", string(key.Kind)),
				zap.Any("panic", r))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		s.logger.Error("sanction reversal failed",
			zap.String("target_id", key.TargetID),
			zap.String("kind", string(key.Kind)),
			zap.Error(err))
	}
}

// Cancel drops the pending timer for key and reports whether one existed.
func (s *Scheduler) Cancel(key Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.timers[key]
	if !ok {
		return false
	}
	existing.t.Stop()
	delete(s.timers, key)
	return true
}

// Pending lists scheduled reversals ordered by fire time.
func (s *Scheduler) Pending() []Entry {
	s.mu.Lock()
	out := make([]Entry, 0, len(s.timers))
	for k, t := range s.timers {
		out = append(out, Entry{Key: k, FireAt: t.fireAt})
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].FireAt.Before(out[j].FireAt) })
	return out
}

// Stop cancels every pending timer. Later Schedule calls are ignored.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, t := range s.timers {
		t.t.Stop()
		delete(s.timers, k)
	}
	s.stopped = true
}
