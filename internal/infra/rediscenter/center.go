// Package rediscenter keeps pending notifications in Redis so they survive
// daemon restarts and can be drained by any dispatcher instance.
package rediscenter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/julianstephens/tradertime/internal/constants"
	"github.com/julianstephens/tradertime/internal/notify"
)

// Center stores each request as a JSON payload key and indexes it in a
// sorted set scored by trigger time in Unix milliseconds.
type Center struct {
	client *redis.Client
}

var (
	_ notify.Center         = (*Center)(nil)
	_ notify.DispatchCenter = (*Center)(nil)
)

func New(client *redis.Client) *Center {
	return &Center{client: client}
}

func payloadKey(member string) string {
	return constants.RedisPayloadPrefix + member
}

func score(t time.Time) float64 {
	return float64(t.UnixMilli())
}

func (c *Center) Schedule(ctx context.Context, req notify.Request) error {
	data, err := json.Marshal(req)
	if err != nil {
		return ErrInvalidPayload
	}
	member := req.ID.String()

	pipe := c.client.TxPipeline()
	pipe.Set(ctx, payloadKey(member), data, 0)
	pipe.ZAdd(ctx, constants.RedisPendingKey, redis.Z{Score: score(req.At), Member: member})
	_, err = pipe.Exec(ctx)
	return err
}

func (c *Center) Cancel(ctx context.Context, ids ...notify.NotificationID) error {
	if len(ids) == 0 {
		return nil
	}
	members := make([]any, len(ids))
	keys := make([]string, len(ids))
	for i, id := range ids {
		members[i] = id.String()
		keys[i] = payloadKey(id.String())
	}

	pipe := c.client.TxPipeline()
	pipe.ZRem(ctx, constants.RedisPendingKey, members...)
	pipe.Del(ctx, keys...)
	_, err := pipe.Exec(ctx)
	return err
}

func (c *Center) CancelAll(ctx context.Context) error {
	members, err := c.client.ZRange(ctx, constants.RedisPendingKey, 0, -1).Result()
	if err != nil {
		return err
	}

	pipe := c.client.TxPipeline()
	for _, m := range members {
		pipe.Del(ctx, payloadKey(m))
	}
	pipe.Del(ctx, constants.RedisPendingKey)
	_, err = pipe.Exec(ctx)
	return err
}

// Pending returns scheduled notifications ordered by trigger time.
func (c *Center) Pending(ctx context.Context) ([]notify.Request, error) {
	members, err := c.client.ZRange(ctx, constants.RedisPendingKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	return c.load(ctx, members)
}

// PopDue claims every notification due at or before now. A member is only
// returned by the caller whose ZREM removed it.
func (c *Center) PopDue(ctx context.Context, now time.Time) ([]notify.Request, error) {
	members, err := c.client.ZRangeByScore(ctx, constants.RedisPendingKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprintf("%d", now.UnixMilli()),
	}).Result()
	if err != nil {
		return nil, err
	}

	var claimed []string
	for _, m := range members {
		n, err := c.client.ZRem(ctx, constants.RedisPendingKey, m).Result()
		if err != nil {
			return nil, err
		}
		if n == 1 {
			claimed = append(claimed, m)
		}
	}

	due, err := c.load(ctx, claimed)
	if err != nil {
		return nil, err
	}
	if len(claimed) > 0 {
		keys := make([]string, len(claimed))
		for i, m := range claimed {
			keys[i] = payloadKey(m)
		}
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			return due, err
		}
	}
	return due, nil
}

func (c *Center) load(ctx context.Context, members []string) ([]notify.Request, error) {
	if len(members) == 0 {
		return nil, nil
	}
	keys := make([]string, len(members))
	for i, m := range members {
		keys[i] = payloadKey(m)
	}
	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	out := make([]notify.Request, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			// Payload expired or was cancelled between the two reads.
			continue
		}
		var req notify.Request
		if err := json.Unmarshal([]byte(s), &req); err != nil {
			return nil, ErrInvalidPayload
		}
		out = append(out, req)
	}
	return out, nil
}

// Permission reads the stored notification permission. A store that never
// recorded one reports granted.
func (c *Center) Permission(ctx context.Context) (notify.Permission, error) {
	v, err := c.client.Get(ctx, constants.RedisPermissionKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return notify.PermissionGranted, nil
		}
		return notify.PermissionUndetermined, err
	}
	switch v {
	case notify.PermissionGranted.String():
		return notify.PermissionGranted, nil
	case notify.PermissionDenied.String():
		return notify.PermissionDenied, nil
	case notify.PermissionUndetermined.String():
		return notify.PermissionUndetermined, nil
	}
	return notify.PermissionUndetermined, ErrInvalidPermission
}

func (c *Center) SetPermission(ctx context.Context, p notify.Permission) error {
	return c.client.Set(ctx, constants.RedisPermissionKey, p.String(), 0).Err()
}

// Ping checks the connection.
func (c *Center) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
