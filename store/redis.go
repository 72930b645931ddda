/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Seednode/partyrooms/patch"
	"github.com/redis/go-redis/v9"
)

const deletedPayload = "deleted"

// claimScript takes the lease when it is free or already ours, and renews
// it either way.
var claimScript = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if cur and cur ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[2])
return 1
`)

type RedisOptions struct {
	Addr     string
	Password string
	DB       int

	// Prefix namespaces every key; defaults to "partyrooms:".
	Prefix string

	// TTL is the retention window refreshed on every write.
	TTL time.Duration
}

// Redis stores each room as a hash of top-level fields and announces
// changes on a per-room channel.
type Redis struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedis(ctx context.Context, opts RedisOptions) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", opts.Addr, err)
	}

	prefix := opts.Prefix
	if prefix == "" {
		prefix = "partyrooms:"
	}

	return &Redis{rdb: rdb, prefix: prefix, ttl: opts.TTL}, nil
}

func (r *Redis) key(room string) string     { return r.prefix + "room:" + room }
func (r *Redis) channel(room string) string { return r.prefix + "room:" + room + ":changes" }
func (r *Redis) lease(room string) string   { return r.prefix + "room:" + room + ":lease" }

func (r *Redis) Load(ctx context.Context, room string) (patch.Document, error) {
	fields, err := r.rdb.HGetAll(ctx, r.key(room)).Result()
	if err != nil {
		return nil, fmt.Errorf("loading room %s: %w", room, err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}

	doc := make(patch.Document, len(fields))
	for k, v := range fields {
		doc[k] = json.RawMessage(v)
	}

	return doc, nil
}

func (r *Redis) Apply(ctx context.Context, room string, p patch.Patch) error {
	if p.Empty() {
		return nil
	}

	values := make([]any, 0, len(p)*2)
	for _, k := range p.Keys() {
		values = append(values, k, string(p[k]))
	}

	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, r.key(room), values...)
		if r.ttl > 0 {
			pipe.Expire(ctx, r.key(room), r.ttl)
		}
		pipe.Publish(ctx, r.channel(room), room)
		return nil
	})
	if err != nil {
		return fmt.Errorf("writing room %s: %w", room, err)
	}

	return nil
}

func (r *Redis) Subscribe(ctx context.Context, room string) (<-chan patch.Document, func(), error) {
	ctx, cancelCtx := context.WithCancel(ctx)

	ps := r.rdb.Subscribe(ctx, r.channel(room))
	if _, err := ps.Receive(ctx); err != nil {
		cancelCtx()
		_ = ps.Close()
		return nil, nil, fmt.Errorf("subscribing to room %s: %w", room, err)
	}

	out := make(chan patch.Document, subscriberBuffer)

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			cancelCtx()
			_ = ps.Close()
		})
	}

	go func() {
		defer close(out)
		defer cancel()

		if doc, err := r.Load(ctx, room); err == nil {
			offer(out, doc)
		}

		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok || msg.Payload == deletedPayload {
					return
				}

				doc, err := r.Load(ctx, room)
				switch {
				case errors.Is(err, ErrNotFound):
					return
				case err != nil:
					continue
				}
				offer(out, doc)
			}
		}
	}()

	return out, cancel, nil
}

func (r *Redis) Delete(ctx context.Context, room string) error {
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.key(room), r.lease(room))
		pipe.Publish(ctx, r.channel(room), deletedPayload)
		return nil
	})
	if err != nil {
		return fmt.Errorf("deleting room %s: %w", room, err)
	}

	return nil
}

func (r *Redis) Claim(ctx context.Context, room, owner string, ttl time.Duration) (bool, error) {
	n, err := claimScript.Run(ctx, r.rdb, []string{r.lease(room)}, owner, ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("claiming room %s: %w", room, err)
	}

	return n == 1, nil
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}
