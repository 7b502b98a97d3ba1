// Package storeadapter adapts github.com/redis/go-redis/v9 to the
// domain.Store contract the queue core depends on.
package storeadapter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fairyhunter13/redisqueue/domain"
)

// claimScript refreshes a lock key's TTL and reads the prior value of a
// state key in one round trip, closing the race between a consumer's lock
// refresh and a concurrent claim reading a half-written state.
var claimScript = redis.NewScript(`
local ok = redis.call('SET', KEYS[1], 'locked', 'PX', ARGV[1])
local state = redis.call('GET', KEYS[2])
if state == false then
  return {0, ''}
end
return {1, state}
`)

// Store adapts a *redis.Client to domain.Store.
type Store struct {
	client *redis.Client
}

// New wraps an existing go-redis client.
func New(client *redis.Client) *Store { return &Store{client: client} }

// Pipeline implements domain.Store.
func (s *Store) Pipeline() domain.Pipeline { return &pipeline{client: s.client} }

// Get implements domain.Store.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis GET %s: %w", key, err)
	}
	return v, true, nil
}

// TTL implements domain.Store. Redis reports -2 for a missing key and -1
// for a key with no expiry; both are "not a live bounded lock" here since
// every key this store manages is always written with an explicit TTL.
func (s *Store) TTL(ctx context.Context, key string) (time.Duration, bool, error) {
	d, err := s.client.TTL(ctx, key).Result()
	if err != nil {
		return 0, false, fmt.Errorf("redis TTL %s: %w", key, err)
	}
	if d < 0 {
		return 0, false, nil
	}
	return d, true, nil
}

// LRange implements domain.Store.
func (s *Store) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	vs, err := s.client.LRange(ctx, key, start, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("redis LRANGE %s: %w", key, err)
	}
	return vs, nil
}

// LLen implements domain.Store.
func (s *Store) LLen(ctx context.Context, key string) (int64, error) {
	n, err := s.client.LLen(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis LLEN %s: %w", key, err)
	}
	return n, nil
}

// BRPopLPush implements domain.Store.
func (s *Store) BRPopLPush(ctx context.Context, source, destination string, timeout time.Duration) (string, bool, error) {
	v, err := s.client.BRPopLPush(ctx, source, destination, timeout).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis BRPOPLPUSH %s -> %s: %w", source, destination, err)
	}
	return v, true, nil
}

// Publish implements domain.Store.
func (s *Store) Publish(ctx context.Context, channel, message string) error {
	if err := s.client.Publish(ctx, channel, message).Err(); err != nil {
		return fmt.Errorf("redis PUBLISH %s: %w", channel, err)
	}
	return nil
}

// Subscribe implements domain.Store. It blocks until the subscription is
// confirmed active, so a caller performing a catch-up read immediately
// afterward cannot miss a message published after that read starts.
func (s *Store) Subscribe(ctx context.Context, channel string) (domain.Subscription, error) {
	ps := s.client.Subscribe(ctx, channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("redis SUBSCRIBE %s: %w", channel, err)
	}
	out := make(chan domain.Message)
	go func() {
		defer close(out)
		for msg := range ps.Channel() {
			out <- domain.Message{Payload: msg.Payload}
		}
	}()
	return &subscription{ps: ps, ch: out}, nil
}

// Keys implements domain.Store.
func (s *Store) Keys(ctx context.Context, pattern string) ([]string, error) {
	ks, err := s.client.Keys(ctx, pattern).Result()
	if err != nil {
		return nil, fmt.Errorf("redis KEYS %s: %w", pattern, err)
	}
	return ks, nil
}

// ClaimLock implements domain.Store via a small Lua script.
func (s *Store) ClaimLock(ctx context.Context, lockKey string, lockTTL time.Duration, stateKey string) (string, bool, error) {
	res, err := claimScript.Run(ctx, s.client, []string{lockKey, stateKey}, lockTTL.Milliseconds()).Result()
	if err != nil {
		return "", false, fmt.Errorf("redis EVAL claim %s: %w", lockKey, err)
	}
	vals, ok := res.([]interface{})
	if !ok || len(vals) != 2 {
		return "", false, fmt.Errorf("redis EVAL claim %s: unexpected result shape %#v", lockKey, res)
	}
	hadState := toInt64(vals[0]) == 1
	state, _ := vals[1].(string)
	return state, hadState, nil
}

func toInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	default:
		return 0
	}
}

type subscription struct {
	ps *redis.PubSub
	ch chan domain.Message
}

func (s *subscription) Channel() <-chan domain.Message { return s.ch }
func (s *subscription) Close() error                   { return s.ps.Close() }

type pipeline struct {
	client *redis.Client
	cmds   []func(ctx context.Context, pipe redis.Pipeliner)
}

func (p *pipeline) SetEX(key string, ttl time.Duration, value string) {
	p.cmds = append(p.cmds, func(ctx context.Context, pipe redis.Pipeliner) {
		pipe.SetEx(ctx, key, value, ttl)
	})
}

func (p *pipeline) LPush(key string, values ...string) {
	p.cmds = append(p.cmds, func(ctx context.Context, pipe redis.Pipeliner) {
		args := make([]interface{}, len(values))
		for i, v := range values {
			args[i] = v
		}
		pipe.LPush(ctx, key, args...)
	})
}

func (p *pipeline) LRem(key string, count int64, value string) {
	p.cmds = append(p.cmds, func(ctx context.Context, pipe redis.Pipeliner) {
		pipe.LRem(ctx, key, count, value)
	})
}

func (p *pipeline) Publish(channel, message string) {
	p.cmds = append(p.cmds, func(ctx context.Context, pipe redis.Pipeliner) {
		pipe.Publish(ctx, channel, message)
	})
}

// Exec implements domain.Pipeline using MULTI/EXEC so the batch applies
// all-or-nothing, per spec.
func (p *pipeline) Exec(ctx context.Context) error {
	_, err := p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, cmd := range p.cmds {
			cmd(ctx, pipe)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis pipeline exec: %w", err)
	}
	return nil
}
