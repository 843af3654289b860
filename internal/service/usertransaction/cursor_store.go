package usertransaction

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultProcessingLockTTL = 5 * time.Minute

type CursorStore interface {
	Load(ctx context.Context, key string) (int64, bool, error)
	Save(ctx context.Context, key string, cursor int64) error
	AcquireProcessingLock(ctx context.Context, key string, ttl time.Duration, owner string) (bool, error)
	ReleaseProcessingLock(ctx context.Context, key string, owner string) error
}

var releaseLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
else
    return 0
end
`)

type RedisCursorStore struct {
	client redis.UniversalClient
}

func NewRedisCursorStore(client redis.UniversalClient) *RedisCursorStore {
	return &RedisCursorStore{client: client}
}

func (s *RedisCursorStore) Load(ctx context.Context, key string) (int64, bool, error) {
	rawCursor, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, err
	}

	cursor, err := strconv.ParseInt(rawCursor, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("invalid cursor %q at %s: %w", rawCursor, key, err)
	}

	return cursor, true, nil
}

func (s *RedisCursorStore) Save(ctx context.Context, key string, cursor int64) error {
	return s.client.Set(ctx, key, strconv.FormatInt(cursor, 10), 0).Err()
}

func (s *RedisCursorStore) AcquireProcessingLock(ctx context.Context, key string, ttl time.Duration, owner string) (bool, error) {
	if ttl <= 0 {
		ttl = defaultProcessingLockTTL
	}

	return s.client.SetNX(ctx, processingLockKey(key), owner, ttl).Result()
}

// ReleaseProcessingLock deletes the lock only while owner still holds it.
func (s *RedisCursorStore) ReleaseProcessingLock(ctx context.Context, key string, owner string) error {
	_, err := releaseLockScript.Run(ctx, s.client, []string{processingLockKey(key)}, owner).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}

	return nil
}

func processingLockKey(cursorKey string) string {
	return fmt.Sprintf("%s:processing-lock", cursorKey)
}
