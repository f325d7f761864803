package stores

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// entryKeyGrace keeps the Redis key alive past the entry's own expiry so
	// the strict predicate in Entry.Expired stays authoritative.
	entryKeyGrace = 30 * time.Second
	scanBatchSize = 256
)

// deleteIfUnchangedLua removes KEYS[1] only while it still holds ARGV[1].
// Returns 1 when the key was deleted, 0 otherwise.
var deleteIfUnchangedLua = redis.NewScript(`
local current = redis.call('GET', KEYS[1])
if current and current == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`)

// RedisEntryStore persists entries in Redis so several processes can share
// one authority.
type RedisEntryStore struct {
	redis  redis.UniversalClient
	prefix string
}

func NewRedisEntryStore(redisClient redis.UniversalClient, prefix string) *RedisEntryStore {
	if prefix == "" {
		prefix = "otp"
	}
	return &RedisEntryStore{
		redis:  redisClient,
		prefix: prefix + ":e:",
	}
}

func (s *RedisEntryStore) key(identity string) string {
	return s.prefix + identity
}

func (s *RedisEntryStore) Put(ctx context.Context, identity string, entry Entry) error {
	encoded, err := encodeEntry(entry)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.key(identity), encoded, entry.TTL+entryKeyGrace).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *RedisEntryStore) Get(ctx context.Context, identity string) (Entry, bool, error) {
	data, err := s.redis.Get(ctx, s.key(identity)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Entry{}, false, nil
		}
		return Entry{}, false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	entry, err := decodeEntry(data)
	if err != nil {
		// An unreadable record cannot be verified against; drop it.
		_ = s.redis.Del(ctx, s.key(identity)).Err()
		return Entry{}, false, nil
	}
	return entry, true, nil
}

func (s *RedisEntryStore) Remove(ctx context.Context, identity string) error {
	if err := s.redis.Del(ctx, s.key(identity)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Consume deletes the record only while it still holds the encoding of
// entry, so two processes consuming one issuance cannot both succeed.
func (s *RedisEntryStore) Consume(ctx context.Context, identity string, entry Entry) (bool, error) {
	encoded, err := encodeEntry(entry)
	if err != nil {
		return false, err
	}
	n, err := deleteIfUnchangedLua.Run(ctx, s.redis, []string{s.key(identity)}, encoded).Int()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n == 1, nil
}

// Sweep scans the entry namespace and deletes records expired at now. Each
// delete is conditional on the record being unchanged since it was read.
func (s *RedisEntryStore) Sweep(ctx context.Context, now time.Time) (int, error) {
	removed := 0
	err := s.scan(ctx, func(key string, data []byte) (bool, error) {
		entry, err := decodeEntry(data)
		if err == nil && !entry.Expired(now) {
			return true, nil
		}
		n, err := deleteIfUnchangedLua.Run(ctx, s.redis, []string{key}, data).Int()
		if err != nil {
			return false, err
		}
		removed += n
		return true, nil
	})
	if err != nil {
		return removed, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return removed, nil
}

func (s *RedisEntryStore) Range(ctx context.Context, fn func(identity string, entry Entry) bool) error {
	err := s.scan(ctx, func(key string, data []byte) (bool, error) {
		entry, err := decodeEntry(data)
		if err != nil {
			return true, nil
		}
		return fn(strings.TrimPrefix(key, s.prefix), entry), nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *RedisEntryStore) Clear(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := s.redis.Scan(ctx, cursor, s.prefix+"*", scanBatchSize).Result()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		if len(keys) > 0 {
			if err := s.redis.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("%w: %v", ErrUnavailable, err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

func (s *RedisEntryStore) scan(ctx context.Context, visit func(key string, data []byte) (bool, error)) error {
	var cursor uint64
	for {
		keys, next, err := s.redis.Scan(ctx, cursor, s.prefix+"*", scanBatchSize).Result()
		if err != nil {
			return err
		}
		for _, key := range keys {
			data, err := s.redis.Get(ctx, key).Bytes()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					continue
				}
				return err
			}
			more, err := visit(key, data)
			if err != nil {
				return err
			}
			if !more {
				return nil
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}
