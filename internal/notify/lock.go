package notify

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker serializes fan-out per match.
type Locker interface {
	Lock(ctx context.Context, matchID int64) (unlock func(), err error)
}

// MemoryLocker is a keyed mutex for a single process.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[int64]*keyedLock
}

type keyedLock struct {
	ch   chan struct{}
	refs int
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{locks: make(map[int64]*keyedLock)}
}

func (l *MemoryLocker) Lock(ctx context.Context, matchID int64) (func(), error) {
	l.mu.Lock()
	k, ok := l.locks[matchID]
	if !ok {
		k = &keyedLock{ch: make(chan struct{}, 1)}
		l.locks[matchID] = k
	}
	k.refs++
	l.mu.Unlock()

	select {
	case k.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(matchID, k)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-k.ch
			l.release(matchID, k)
		})
	}, nil
}

func (l *MemoryLocker) release(matchID int64, k *keyedLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	k.refs--
	if k.refs == 0 {
		delete(l.locks, matchID)
	}
}

const (
	redisLockTTL  = 2 * time.Minute
	redisLockPoll = 100 * time.Millisecond
)

var redisUnlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker holds the per-match lock in Redis so several replicas share it.
type RedisLocker struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisLocker connects to redisURL and checks the connection.
func NewRedisLocker(ctx context.Context, redisURL string) (*RedisLocker, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisLocker{client: client, prefix: "goals-zone:match-lock:", ttl: redisLockTTL}, nil
}

func (l *RedisLocker) Lock(ctx context.Context, matchID int64) (func(), error) {
	key := l.prefix + strconv.FormatInt(matchID, 10)
	token := uuid.NewString()
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire match lock %d: %w", matchID, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(redisLockPoll):
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = redisUnlockScript.Run(releaseCtx, l.client, []string{key}, token).Err()
		})
	}, nil
}

func (l *RedisLocker) Close() error {
	return l.client.Close()
}
