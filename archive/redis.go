package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hupe1980/literaryfinder/engine"
)

// DefaultNamespace prefixes every key written by Redis.
const DefaultNamespace = "literaryfinder"

// RedisOptions configures a Redis archive.
type RedisOptions struct {
	// Namespace prefixes all keys. Defaults to DefaultNamespace.
	Namespace string

	// TTL expires archived responses. Zero keeps them forever.
	TTL time.Duration
}

// Redis is a Store backed by Redis. Each response is a JSON string at
// {ns}:response:{id}; a sorted set per subject at {ns}:subject:{subject}
// indexes request IDs by completion time.
//
// The client is safe for concurrent use.
type Redis struct {
	rdb  *redis.Client
	opts RedisOptions
}

// NewRedis creates an archive using a new client for redisOpts.
func NewRedis(redisOpts *redis.Options, optFns ...func(o *RedisOptions)) *Redis {
	return NewRedisFromClient(redis.NewClient(redisOpts), optFns...)
}

// NewRedisFromClient creates an archive on an existing client. Close closes
// the client.
func NewRedisFromClient(rdb *redis.Client, optFns ...func(o *RedisOptions)) *Redis {
	opts := RedisOptions{Namespace: DefaultNamespace}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Namespace == "" {
		opts.Namespace = DefaultNamespace
	}
	return &Redis{rdb: rdb, opts: opts}
}

func (r *Redis) responseKey(requestID string) string {
	return r.opts.Namespace + ":response:" + requestID
}

func (r *Redis) subjectKey(subject string) string {
	return r.opts.Namespace + ":subject:" + subjectKey(subject)
}

// Save writes resp and indexes it under its subject in one transaction.
func (r *Redis) Save(ctx context.Context, resp *engine.Response) error {
	if resp == nil || resp.RequestID == "" {
		return ErrMissingRequestID
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to encode response %s: %w", resp.RequestID, err)
	}

	score := float64(resp.CompletedAt.UnixMilli())
	index := r.subjectKey(resp.Subject)
	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.responseKey(resp.RequestID), data, r.opts.TTL)
		pipe.ZAdd(ctx, index, redis.Z{Score: score, Member: resp.RequestID})
		if r.opts.TTL > 0 {
			pipe.Expire(ctx, index, r.opts.TTL)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write response %s to Redis: %w", resp.RequestID, err)
	}
	return nil
}

// Get reads the response of requestID.
func (r *Redis) Get(ctx context.Context, requestID string) (*engine.Response, error) {
	data, err := r.rdb.Get(ctx, r.responseKey(requestID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%s: %w", requestID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read response %s from Redis: %w", requestID, err)
	}
	return decode(data)
}

// ListBySubject reads all indexed responses for subject, oldest first.
// Index entries whose response already expired are skipped.
func (r *Redis) ListBySubject(ctx context.Context, subject string) ([]*engine.Response, error) {
	ids, err := r.rdb.ZRange(ctx, r.subjectKey(subject), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read subject index: %w", err)
	}
	if len(ids) == 0 {
		return []*engine.Response{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.responseKey(id)
	}
	values, err := r.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read responses from Redis: %w", err)
	}

	out := make([]*engine.Response, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		resp, err := decode([]byte(s))
		if err != nil {
			return nil, err
		}
		out = append(out, resp)
	}
	return out, nil
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (r *Redis) Close() error {
	return r.rdb.Close()
}
