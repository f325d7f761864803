package limiters

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	attemptRecordVersionV1 = 1
	attemptRecordSizeV1    = 1 + 4 + 8
	attemptKeyGrace        = 30 * time.Second
	attemptScanBatchSize   = 256
	recordFailureRetries   = 8
)

var errInvalidAttemptRecord = errors.New("invalid attempt record")

var deleteAttemptIfUnchangedLua = redis.NewScript(`
local current = redis.call('GET', KEYS[1])
if current and current == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`)

// RedisLockoutTracker tracks failed attempts in Redis.
type RedisLockoutTracker struct {
	redis  redis.UniversalClient
	prefix string
	config LockoutConfig
}

// NewRedisLockoutTracker creates a Redis-backed tracker.
func NewRedisLockoutTracker(redisClient redis.UniversalClient, prefix string, cfg LockoutConfig) *RedisLockoutTracker {
	if prefix == "" {
		prefix = "otp"
	}
	return &RedisLockoutTracker{
		redis:  redisClient,
		prefix: prefix + ":a:",
		config: cfg,
	}
}

func (t *RedisLockoutTracker) key(identity string) string {
	return t.prefix + identity
}

func (t *RedisLockoutTracker) Config() LockoutConfig {
	return t.config
}

// RecordFailure applies the increment-or-reset rule inside a WATCH/MULTI
// transaction and retries on contention.
func (t *RedisLockoutTracker) RecordFailure(ctx context.Context, identity string, now time.Time) (AttemptRecord, error) {
	key := t.key(identity)

	for i := 0; i < recordFailureRetries; i++ {
		var next AttemptRecord

		err := t.redis.Watch(ctx, func(tx *redis.Tx) error {
			prev, found := AttemptRecord{}, false
			data, err := tx.Get(ctx, key).Bytes()
			switch {
			case err == nil:
				if decoded, decErr := decodeAttemptRecord(data); decErr == nil {
					prev, found = decoded, true
				}
			case errors.Is(err, redis.Nil):
			default:
				return err
			}

			next = nextRecord(prev, found, now, t.config.Window)
			encoded, err := encodeAttemptRecord(next)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, encoded, t.config.Window+attemptKeyGrace)
				return nil
			})
			return err
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return AttemptRecord{}, fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
		}
		return next, nil
	}

	return AttemptRecord{}, fmt.Errorf("%w: too much contention", ErrLockoutUnavailable)
}

func (t *RedisLockoutTracker) Get(ctx context.Context, identity string, now time.Time) (AttemptRecord, bool, error) {
	data, err := t.redis.Get(ctx, t.key(identity)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return AttemptRecord{}, false, nil
		}
		return AttemptRecord{}, false, fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}

	record, err := decodeAttemptRecord(data)
	if err != nil || record.WindowExpired(now, t.config.Window) {
		return AttemptRecord{}, false, nil
	}
	return record, true, nil
}

func (t *RedisLockoutTracker) IsLocked(ctx context.Context, identity string, now time.Time) (bool, error) {
	record, ok, err := t.Get(ctx, identity, now)
	if err != nil || !ok {
		return false, err
	}
	return record.Locked(now, t.config), nil
}

func (t *RedisLockoutTracker) Clear(ctx context.Context, identity string) error {
	if err := t.redis.Del(ctx, t.key(identity)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}
	return nil
}

func (t *RedisLockoutTracker) Sweep(ctx context.Context, now time.Time) (int, error) {
	removed := 0
	err := t.scan(ctx, func(key string, data []byte) (bool, error) {
		record, err := decodeAttemptRecord(data)
		if err == nil && !record.WindowExpired(now, t.config.Window) {
			return true, nil
		}
		n, err := deleteAttemptIfUnchangedLua.Run(ctx, t.redis, []string{key}, data).Int()
		if err != nil {
			return false, err
		}
		removed += n
		return true, nil
	})
	if err != nil {
		return removed, fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}
	return removed, nil
}

func (t *RedisLockoutTracker) Range(ctx context.Context, fn func(identity string, record AttemptRecord) bool) error {
	err := t.scan(ctx, func(key string, data []byte) (bool, error) {
		record, err := decodeAttemptRecord(data)
		if err != nil {
			return true, nil
		}
		return fn(strings.TrimPrefix(key, t.prefix), record), nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}
	return nil
}

func (t *RedisLockoutTracker) ClearAll(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := t.redis.Scan(ctx, cursor, t.prefix+"*", attemptScanBatchSize).Result()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
		}
		if len(keys) > 0 {
			if err := t.redis.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

func (t *RedisLockoutTracker) scan(ctx context.Context, visit func(key string, data []byte) (bool, error)) error {
	var cursor uint64
	for {
		keys, next, err := t.redis.Scan(ctx, cursor, t.prefix+"*", attemptScanBatchSize).Result()
		if err != nil {
			return err
		}
		for _, key := range keys {
			data, err := t.redis.Get(ctx, key).Bytes()
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

func encodeAttemptRecord(record AttemptRecord) ([]byte, error) {
	if record.Failures < 0 {
		return nil, errInvalidAttemptRecord
	}

	var buf bytes.Buffer
	buf.Grow(attemptRecordSizeV1)
	buf.WriteByte(attemptRecordVersionV1)
	if err := binary.Write(&buf, binary.BigEndian, uint32(record.Failures)); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.LastFailureAt.UnixNano()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeAttemptRecord(data []byte) (AttemptRecord, error) {
	if len(data) != attemptRecordSizeV1 || data[0] != attemptRecordVersionV1 {
		return AttemptRecord{}, errInvalidAttemptRecord
	}
	failures := binary.BigEndian.Uint32(data[1:5])
	last := int64(binary.BigEndian.Uint64(data[5:13]))
	return AttemptRecord{
		Failures:      int(failures),
		LastFailureAt: time.Unix(0, last),
	}, nil
}
