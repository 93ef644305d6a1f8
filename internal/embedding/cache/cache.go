// Package cache memoises embeddings in Redis so identical texts are only
// sent to the model once per TTL.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spigell/skillbridge-matcher/internal/embedding"
	"github.com/spigell/skillbridge-matcher/internal/logger"
)

const keyPrefix = "skillbridge:embedding:"

// Store is a minimal key/value store.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RedisStore implements Store on a go-redis client.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore wraps rdb.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// Connect opens a client from a redis:// URL or a bare host:port and pings it.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("redis address is required")
	}
	var rdb *redis.Client
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		opt, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		rdb = redis.NewClient(opt)
	} else {
		rdb = redis.NewClient(&redis.Options{Addr: addr})
	}
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.rdb.Set(ctx, key, value, ttl).Err()
}

// Backend decorates another backend with a cache. Cache failures are
// logged and bypassed.
type Backend struct {
	next   embedding.Backend
	store  Store
	ttl    time.Duration
	logger *zap.Logger
}

var _ embedding.Backend = (*Backend)(nil)

// New wraps next. A zero ttl keeps entries forever.
func New(next embedding.Backend, store Store, ttl time.Duration, l *zap.Logger) *Backend {
	return &Backend{next: next, store: store, ttl: ttl, logger: logger.OrNop(l)}
}

func (b *Backend) Model() string { return b.next.Model() }

func (b *Backend) Provider() string {
	if p, ok := b.next.(embedding.Provider); ok {
		return p.Provider() + "+cache"
	}
	return "cache"
}

func (b *Backend) Embed(ctx context.Context, text string) ([]float32, error) {
	key := Key(b.next.Model(), text)

	raw, ok, err := b.store.Get(ctx, key)
	switch {
	case err != nil:
		b.logger.Warn("embedding cache read failed", zap.Error(err))
	case ok:
		var vec []float32
		if err := json.Unmarshal(raw, &vec); err == nil && len(vec) > 0 {
			b.logger.Debug("embedding cache hit", zap.String("key", key))
			return vec, nil
		}
		b.logger.Warn("discarding corrupt embedding cache entry", zap.String("key", key))
	}

	vec, err := b.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	encoded, err := json.Marshal(vec)
	if err == nil {
		err = b.store.Set(ctx, key, encoded, b.ttl)
	}
	if err != nil {
		b.logger.Warn("embedding cache write failed", zap.Error(err))
	}
	return vec, nil
}

// Key derives the cache key from the model identity and the text.
func Key(model, text string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + text))
	return keyPrefix + hex.EncodeToString(sum[:])
}
