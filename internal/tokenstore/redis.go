package tokenstore

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/spec-kit/academia-portal/pkg/util"
)

// Redis stores the token under a single key without expiry.
type Redis struct {
	client redis.Cmdable
	key    string
}

func NewRedis(client redis.Cmdable, key string) *Redis {
	return &Redis{client: client, key: key}
}

func (r *Redis) Save(ctx context.Context, token string) error {
	if err := r.client.Set(ctx, r.key, token, 0).Err(); err != nil {
		return apperrors.NewStorageError("save", err)
	}
	return nil
}

func (r *Redis) Load(ctx context.Context) (string, bool, error) {
	token, err := r.client.Get(ctx, r.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, apperrors.NewStorageError("load", err)
	}
	return token, true, nil
}

func (r *Redis) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return apperrors.NewStorageError("clear", err)
	}
	return nil
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
