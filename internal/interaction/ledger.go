package interaction

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
)

// Ledger remembers interaction ids so a redelivered interaction is handled
// once.
type Ledger interface {
	// Seen records id and reports whether it had been recorded before.
	Seen(ctx context.Context, id string) (bool, error)
}

// MemLedger is a process-local ledger with bounded size and expiry.
type MemLedger struct {
	mu   sync.Mutex
	data *expirable.LRU[string, struct{}]
}

// NewMemLedger creates a ledger holding up to capacity ids for ttl.
func NewMemLedger(capacity int, ttl time.Duration) *MemLedger {
	return &MemLedger{data: expirable.NewLRU[string, struct{}](capacity, nil, ttl)}
}

func (l *MemLedger) Seen(_ context.Context, id string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.data.Contains(id) {
		return true, nil
	}
	l.data.Add(id, struct{}{})
	return false, nil
}

// RedisLedger shares the ledger between bot replicas.
type RedisLedger struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisLedger creates a ledger backed by client.
func NewRedisLedger(client *redis.Client, ttl time.Duration) *RedisLedger {
	return &RedisLedger{client: client, ttl: ttl}
}

func redisLedgerKey(id string) string {
	return "modbot/interaction/" + id
}

func (l *RedisLedger) Seen(ctx context.Context, id string) (bool, error) {
	created, err := l.client.SetNX(ctx, redisLedgerKey(id), 1, l.ttl).Result()
	if err != nil {
		return false, err
	}
	return !created, nil
}
