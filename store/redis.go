package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisRecordPrefix = "tempokv:rec:"
	redisExpiryIndex  = "tempokv:expiry"
)

// RedisStore keeps each record as JSON under a prefixed key and maintains a
// sorted set as the expiry index: the score is the created timestamp in
// seconds and the member embeds the ttl ahead of the compound key, so equal
// scores still sort by ttl. Redis-native expiration is deliberately not
// used: an expired record must stay readable until it is swept.
type RedisStore struct {
	client *redis.Client
	ctx    context.Context
}

func NewRedisStore(addr string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{
		client: client,
		ctx:    ctx,
	}, nil
}

func (rs *RedisStore) Close() error {
	return rs.client.Close()
}

func recordKey(group, key string) string {
	return redisRecordPrefix + CompoundKey(group, key)
}

// indexMember is ttl (zero padded, so it sorts numerically) plus the
// compound key. Score carries the created timestamp.
func indexMember(rec Record) string {
	return fmt.Sprintf("%020d%s", int64(rec.TTL), keySep+CompoundKey(rec.Group, rec.Key))
}

func indexScore(rec Record) float64 {
	return float64(rec.Created.UnixNano()) / float64(time.Second)
}

func (rs *RedisStore) Get(group, key string) (Record, bool, error) {
	data, err := rs.client.Get(rs.ctx, recordKey(group, key)).Bytes()
	if err == redis.Nil {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}
	rec, err := decodeRecord(group, key, data)
	if err != nil {
		return Record{}, false, err
	}
	return rec, true, nil
}

func (rs *RedisStore) Put(rec Record) error {
	data, err := encodeRecord(rec)
	if err != nil {
		return err
	}

	// A changed ttl changes the index member, so the old entry has to go.
	old, found, err := rs.Get(rec.Group, rec.Key)
	if err != nil {
		return err
	}

	pipe := rs.client.TxPipeline()
	pipe.Set(rs.ctx, recordKey(rec.Group, rec.Key), data, 0)
	if found && old.TTL != rec.TTL {
		pipe.ZRem(rs.ctx, redisExpiryIndex, indexMember(old))
	}
	pipe.ZAdd(rs.ctx, redisExpiryIndex, redis.Z{
		Score:  indexScore(rec),
		Member: indexMember(rec),
	})
	_, err = pipe.Exec(rs.ctx)
	return err
}

func (rs *RedisStore) Delete(group, key string) (bool, error) {
	rec, found, err := rs.Get(group, key)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}

	pipe := rs.client.TxPipeline()
	pipe.Del(rs.ctx, recordKey(group, key))
	pipe.ZRem(rs.ctx, redisExpiryIndex, indexMember(rec))
	_, err = pipe.Exec(rs.ctx)
	return err == nil, err
}

func (rs *RedisStore) ScanOrdered(fn func(Record) (bool, error)) error {
	members, err := rs.client.ZRange(rs.ctx, redisExpiryIndex, 0, -1).Result()
	if err != nil {
		return err
	}
	return rs.walk(members, fn)
}

func (rs *RedisStore) ScanAll(fn func(Record) error) error {
	members, err := rs.client.ZRange(rs.ctx, redisExpiryIndex, 0, -1).Result()
	if err != nil {
		return err
	}
	return rs.walk(members, func(rec Record) (bool, error) {
		return true, fn(rec)
	})
}

func (rs *RedisStore) walk(members []string, fn func(Record) (bool, error)) error {
	for _, m := range members {
		if len(m) < 20+len(keySep) {
			continue
		}
		group, key := SplitCompoundKey(m[20+len(keySep):])
		rec, found, err := rs.Get(group, key)
		if err != nil {
			return err
		}
		if !found {
			// Index entry orphaned by a concurrent delete.
			continue
		}
		cont, err := fn(rec)
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}
	return nil
}
