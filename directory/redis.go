package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	roomKeyTemplate = "sweep:room:%s" // one JSON summary per room
	roomIndexKey    = "sweep:rooms"   // set of listed room ids
)

// RedisDirectory shares summaries between server processes. Each entry
// expires after ttl unless it is refreshed, so rooms of a dead process drop
// out of the listing on their own.
type RedisDirectory struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisDirectory(rdb *redis.Client, ttl time.Duration) *RedisDirectory {
	return &RedisDirectory{rdb: rdb, ttl: ttl}
}

// DialRedis connects and checks the server is reachable.
func DialRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return rdb, nil
}

func roomKey(id string) string {
	return fmt.Sprintf(roomKeyTemplate, id)
}

func (d *RedisDirectory) Put(ctx context.Context, s Summary) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	_, err = d.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, roomKey(s.ID), data, d.ttl)
		pipe.SAdd(ctx, roomIndexKey, s.ID)
		return nil
	})
	return err
}

func (d *RedisDirectory) Get(ctx context.Context, id string) (Summary, error) {
	data, err := d.rdb.Get(ctx, roomKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Summary{}, ErrNotFound
	}
	if err != nil {
		return Summary{}, err
	}
	var s Summary
	if err := json.Unmarshal(data, &s); err != nil {
		return Summary{}, fmt.Errorf("room %s: %w", id, err)
	}
	return s, nil
}

func (d *RedisDirectory) Delete(ctx context.Context, id string) error {
	_, err := d.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, roomKey(id))
		pipe.SRem(ctx, roomIndexKey, id)
		return nil
	})
	return err
}

// List also prunes index entries whose summary has expired.
func (d *RedisDirectory) List(ctx context.Context) ([]Summary, error) {
	ids, err := d.rdb.SMembers(ctx, roomIndexKey).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []Summary{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = roomKey(id)
	}
	values, err := d.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	list := make([]Summary, 0, len(ids))
	var stale []interface{}
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			stale = append(stale, ids[i])
			continue
		}
		var s Summary
		if err := json.Unmarshal([]byte(raw), &s); err != nil {
			stale = append(stale, ids[i])
			continue
		}
		list = append(list, s)
	}
	if len(stale) > 0 {
		d.rdb.SRem(ctx, roomIndexKey, stale...)
	}
	sortSummaries(list)
	return list, nil
}

func (d *RedisDirectory) Close() error {
	return d.rdb.Close()
}
