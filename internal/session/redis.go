package session

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"

	"github.com/xenking/nilecart/internal/domain/cart"
)

var _ Store = (*Redis)(nil)

const (
	redisKeyPrefix = "nilecart:cart:"
	// maxTxRetries bounds optimistic retries when a concurrent writer
	// touched the same session.
	maxTxRetries = 5
)

// ErrConflict is returned when a session kept changing underneath Update.
var ErrConflict = errors.New("session update conflict")

// Redis stores cart snapshots in Redis so carts survive restarts and are
// shared between API replicas.
type Redis struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedis creates a Redis store. Non-positive ttl means DefaultTTL.
func NewRedis(client redis.UniversalClient, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{client: client, ttl: ttl}
}

func redisKey(id string) string {
	return redisKeyPrefix + id
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func load(ctx context.Context, c getter, key string) (cart.State, error) {
	data, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return cart.State{}, nil
	}
	if err != nil {
		return cart.State{}, errors.Wrap(err, "get cart")
	}
	return decodeSnapshot(data)
}

// View returns the current cart of session id.
func (r *Redis) View(ctx context.Context, id string) (cart.State, error) {
	return load(ctx, r.client, redisKey(id))
}

// Update runs fn inside a WATCH/MULTI transaction on the session key and
// retries when another writer committed first.
func (r *Redis) Update(ctx context.Context, id string, fn func(*cart.Engine) error) (cart.State, error) {
	key := redisKey(id)

	var result cart.State
	txf := func(tx *redis.Tx) error {
		current, err := load(ctx, tx, key)
		if err != nil {
			return err
		}

		engine := cart.Restore(current)
		if err := fn(engine); err != nil {
			return err
		}
		next := engine.State()

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if next.IsEmpty() {
				pipe.Del(ctx, key)
				return nil
			}
			pipe.Set(ctx, key, encodeSnapshot(next), r.ttl)
			return nil
		})
		if err != nil {
			return err
		}
		result = next
		return nil
	}

	for range maxTxRetries {
		err := r.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return cart.State{}, err
		}
		return result, nil
	}
	return cart.State{}, errors.Wrapf(ErrConflict, "session %s", id)
}

// Delete drops session id.
func (r *Redis) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, redisKey(id)).Err(); err != nil {
		return errors.Wrap(err, "delete cart")
	}
	return nil
}
