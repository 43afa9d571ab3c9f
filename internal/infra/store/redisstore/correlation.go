// Package redisstore backs the correlation store with Redis so the
// ref mapping survives a process restart. Every state transition runs as
// a Lua script: Redis executes scripts atomically, which gives the
// per-order exclusivity the reconciliation protocol needs without any
// client-side locking.
package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"storefront-payment-bridge/internal/config"
	"storefront-payment-bridge/internal/domain"
	"storefront-payment-bridge/internal/domain/ports/repository"
)

var _ repository.CorrelationStore = (*CorrelationStore)(nil)

// Script result codes shared by all transitions.
const (
	codeOK              = 0
	codeNotFound        = -2
	codeIntakeInFlight  = -3
	codeAlreadyHandled  = -4
	codeInvalidState    = -5
	codeCaptureInFlight = -6
	codeFinalized       = -7
)

var (
	luaPut = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
	return -4
end
redis.call("HSET", KEYS[1], "ref", ARGV[1], "status", "pending", "link_state", "requesting", "created_at", ARGV[2])
redis.call("SET", KEYS[2], ARGV[3])
return 0`)

	luaClaimIntake = redis.NewScript(`
local st = redis.call("HGET", KEYS[1], "link_state")
if not st then return -2 end
if st == "pending" then
	redis.call("HSET", KEYS[1], "link_state", "requesting")
	return redis.call("HGET", KEYS[1], "ref")
end
if st == "requesting" then return -3 end
return -4`)

	luaLinkFromRequesting = redis.NewScript(`
if redis.call("HGET", KEYS[1], "link_state") ~= "requesting" then
	if redis.call("EXISTS", KEYS[1]) == 0 then return -2 end
	return -5
end
if ARGV[1] == "stored" then
	redis.call("HSET", KEYS[1], "link", ARGV[2], "link_state", "stored")
else
	redis.call("HSET", KEYS[1], "link_state", ARGV[1])
end
return 0`)

	luaTakeLink = redis.NewScript(`
if redis.call("HGET", KEYS[1], "link_state") ~= "stored" then return -2 end
local link = redis.call("HGET", KEYS[1], "link")
redis.call("HSET", KEYS[1], "link", "", "link_state", "consumed")
return link`)

	luaClaimCapture = redis.NewScript(`
local st = redis.call("HGET", KEYS[1], "status")
if not st then return -2 end
if st == "pending" then
	redis.call("HSET", KEYS[1], "status", "capturing")
	return 0
end
if st == "capturing" then return -6 end
return -7`)

	luaFinishCapture = redis.NewScript(`
if redis.call("HGET", KEYS[1], "status") ~= "capturing" then
	if redis.call("EXISTS", KEYS[1]) == 0 then return -2 end
	return -5
end
redis.call("HSET", KEYS[1], "status", ARGV[1])
return 0`)

	luaMarkFailed = redis.NewScript(`
local st = redis.call("HGET", KEYS[1], "status")
if not st then return -2 end
if st == "pending" then
	redis.call("HSET", KEYS[1], "status", "failed")
	return 0
end
if st == "capturing" then return -6 end
return -7`)
)

type CorrelationStore struct {
	cli *redis.Client
}

func NewCorrelationStore(ctx context.Context, cfg *config.RedisConfig) (*CorrelationStore, error) {
	cli := redis.NewClient(&redis.Options{
		Addr:     cfg.URL,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := cli.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &CorrelationStore{cli: cli}, nil
}

func (s *CorrelationStore) Close() error { return s.cli.Close() }

func orderKey(orderID string) string { return "corr:order:" + orderID }
func refKey(ref string) string       { return "corr:ref:" + ref }

// codeErr maps a script result code to its domain error.
func codeErr(code int64) error {
	switch code {
	case codeOK:
		return nil
	case codeNotFound:
		return domain.ErrNotFound
	case codeIntakeInFlight:
		return domain.ErrIntakeInFlight
	case codeAlreadyHandled:
		return domain.ErrAlreadyHandled
	case codeInvalidState:
		return domain.ErrInvalidArgument
	case codeCaptureInFlight:
		return domain.ErrCaptureInFlight
	case codeFinalized:
		return domain.ErrAlreadyFinalized
	default:
		return fmt.Errorf("unexpected script result %d", code)
	}
}

func (s *CorrelationStore) runCode(ctx context.Context, script *redis.Script, keys []string, args ...interface{}) error {
	res, err := script.Run(ctx, s.cli, keys, args...).Result()
	if err != nil {
		return fmt.Errorf("redis script: %w", err)
	}
	code, ok := res.(int64)
	if !ok {
		return fmt.Errorf("unexpected script result type %T", res)
	}
	return codeErr(code)
}

func (s *CorrelationStore) Put(ctx context.Context, orderID, ref string) error {
	err := s.runCode(ctx, luaPut, []string{orderKey(orderID), refKey(ref)},
		ref, time.Now().Unix(), orderID)
	if err == domain.ErrAlreadyHandled {
		return domain.ErrAlreadyExists
	}
	return err
}

func (s *CorrelationStore) ClaimIntake(ctx context.Context, orderID string) (string, error) {
	res, err := luaClaimIntake.Run(ctx, s.cli, []string{orderKey(orderID)}).Result()
	if err != nil {
		return "", fmt.Errorf("redis script: %w", err)
	}
	switch v := res.(type) {
	case string:
		return v, nil
	case int64:
		return "", codeErr(v)
	default:
		return "", fmt.Errorf("unexpected script result type %T", res)
	}
}

func (s *CorrelationStore) ReleaseIntake(ctx context.Context, orderID string) error {
	return s.runCode(ctx, luaLinkFromRequesting, []string{orderKey(orderID)}, "pending", "")
}

func (s *CorrelationStore) StoreLink(ctx context.Context, orderID, link string) error {
	return s.runCode(ctx, luaLinkFromRequesting, []string{orderKey(orderID)}, "stored", link)
}

func (s *CorrelationStore) RejectLink(ctx context.Context, orderID string) error {
	return s.runCode(ctx, luaLinkFromRequesting, []string{orderKey(orderID)}, "rejected", "")
}

func (s *CorrelationStore) TakeLink(ctx context.Context, orderID string) (string, error) {
	res, err := luaTakeLink.Run(ctx, s.cli, []string{orderKey(orderID)}).Result()
	if err != nil {
		return "", fmt.Errorf("redis script: %w", err)
	}
	switch v := res.(type) {
	case string:
		return v, nil
	case int64:
		return "", codeErr(v)
	default:
		return "", fmt.Errorf("unexpected script result type %T", res)
	}
}

func (s *CorrelationStore) Resolve(ctx context.Context, ref string) (string, error) {
	orderID, err := s.cli.Get(ctx, refKey(ref)).Result()
	if err == redis.Nil {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis get: %w", err)
	}
	return orderID, nil
}

func (s *CorrelationStore) Ref(ctx context.Context, orderID string) (string, error) {
	ref, err := s.cli.HGet(ctx, orderKey(orderID), "ref").Result()
	if err == redis.Nil {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis hget: %w", err)
	}
	return ref, nil
}

func (s *CorrelationStore) ClaimCapture(ctx context.Context, orderID string) error {
	return s.runCode(ctx, luaClaimCapture, []string{orderKey(orderID)})
}

func (s *CorrelationStore) FinishCapture(ctx context.Context, orderID string, captured bool) error {
	status := "pending"
	if captured {
		status = "captured"
	}
	return s.runCode(ctx, luaFinishCapture, []string{orderKey(orderID)}, status)
}

func (s *CorrelationStore) MarkFailed(ctx context.Context, orderID string) error {
	return s.runCode(ctx, luaMarkFailed, []string{orderKey(orderID)})
}
