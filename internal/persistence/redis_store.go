package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/petrijr/advisa/pkg/api"
)

// RedisStore is a Store backed by Redis. It uses a simple key structure:
//
//	<prefix>cp:<thread>:<seq>  => JSON-encoded checkpoint
//	<prefix>seq:<thread>       => latest sequence number
//	<prefix>lease:<thread>     => lease owner, with TTL
//	<prefix>idx:threads        => SET of known thread IDs
//
// Saves guard the sequence with a Lua script so two engines racing for the
// same thread cannot both persist the same sequence number.
type RedisStore struct {
	client *redis.Client
	prefix string
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a RedisStore.
// prefix is optional but recommended (e.g. "advisa:").
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "advisa:"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (r *RedisStore) keyCheckpoint(threadID string, seq int64) string {
	return r.prefix + "cp:" + threadID + ":" + strconv.FormatInt(seq, 10)
}

func (r *RedisStore) keySeq(threadID string) string {
	return r.prefix + "seq:" + threadID
}

func (r *RedisStore) keyLease(threadID string) string {
	return r.prefix + "lease:" + threadID
}

func (r *RedisStore) keyThreads() string {
	return r.prefix + "idx:threads"
}

// saveScript bumps the sequence counter only if the new value is exactly
// one past the current one, then stores the checkpoint payload.
var saveScript = redis.NewScript(`
	local current = tonumber(redis.call('GET', KEYS[1]) or '0')
	local next = tonumber(ARGV[1])
	if next ~= current + 1 then
		return 0
	end
	redis.call('SET', KEYS[1], ARGV[1])
	redis.call('SET', KEYS[2], ARGV[2])
	redis.call('SADD', KEYS[3], ARGV[3])
	return 1
`)

func (r *RedisStore) Save(ctx context.Context, cp *api.Checkpoint) error {
	payload, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}

	ok, err := saveScript.Run(ctx, r.client,
		[]string{r.keySeq(cp.ThreadID), r.keyCheckpoint(cp.ThreadID, cp.Seq), r.keyThreads()},
		cp.Seq, payload, cp.ThreadID,
	).Int()
	if err != nil {
		return err
	}
	if ok == 0 {
		return ErrSequenceConflict
	}
	return nil
}

func (r *RedisStore) Latest(ctx context.Context, threadID string) (*api.Checkpoint, error) {
	seqStr, err := r.client.Get(ctx, r.keySeq(threadID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrThreadNotFound
		}
		return nil, err
	}
	seq, err := strconv.ParseInt(seqStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt sequence for thread %s: %w", threadID, err)
	}

	raw, err := r.client.Get(ctx, r.keyCheckpoint(threadID, seq)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrThreadNotFound
		}
		return nil, err
	}

	var cp api.Checkpoint
	if err := json.Unmarshal([]byte(raw), &cp); err != nil {
		return nil, fmt.Errorf("decode checkpoint: %w", err)
	}
	return &cp, nil
}

func (r *RedisStore) Threads(ctx context.Context) ([]string, error) {
	ids, err := r.client.SMembers(ctx, r.keyThreads()).Result()
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *RedisStore) TryAcquireLease(ctx context.Context, threadID, owner string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, r.keyLease(threadID), owner, ttl).Result()
	if err != nil {
		return false, err
	}
	if ok {
		return true, nil
	}

	// Re-entrant for the same owner: refresh the TTL.
	current, err := r.client.Get(ctx, r.keyLease(threadID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// Lease expired between SETNX and GET; try once more.
			return r.client.SetNX(ctx, r.keyLease(threadID), owner, ttl).Result()
		}
		return false, err
	}
	if current != owner {
		return false, nil
	}
	if err := r.client.Set(ctx, r.keyLease(threadID), owner, ttl).Err(); err != nil {
		return false, err
	}
	return true, nil
}

func (r *RedisStore) RenewLease(ctx context.Context, threadID, owner string, ttl time.Duration) error {
	current, err := r.client.Get(ctx, r.keyLease(threadID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrLeaseNotHeld
		}
		return err
	}
	if current != owner {
		return ErrLeaseNotHeld
	}
	return r.client.Set(ctx, r.keyLease(threadID), owner, ttl).Err()
}

func (r *RedisStore) ReleaseLease(ctx context.Context, threadID, owner string) error {
	current, err := r.client.Get(ctx, r.keyLease(threadID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return err
	}
	if current != owner {
		return nil
	}
	return r.client.Del(ctx, r.keyLease(threadID)).Err()
}
