package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/harel159/email-automation-system/internal/auth/domain"
)

const keyPrefix = "sess:"

// RedisStore stores sessions as JSON under sess:<id> with a TTL.
type RedisStore struct{ rc redis.Cmdable }

func NewRedisStore(rc redis.Cmdable) *RedisStore { return &RedisStore{rc: rc} }

func (r *RedisStore) Save(ctx context.Context, s domain.Session, ttl time.Duration) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return r.rc.Set(ctx, keyPrefix+s.ID, b, ttl).Err()
}

func (r *RedisStore) Get(ctx context.Context, id string) (domain.Session, error) {
	b, err := r.rc.Get(ctx, keyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.Session{}, err
	}
	var s domain.Session
	if err := json.Unmarshal(b, &s); err != nil {
		return domain.Session{}, err
	}
	return s, nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	return r.rc.Del(ctx, keyPrefix+id).Err()
}
