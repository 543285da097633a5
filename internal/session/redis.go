package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jwalitptl/schoolmed/pkg/security"
)

// RedisStore keeps sessions in redis, encrypted so a dump of the keyspace
// does not leak bearer tokens.
type RedisStore struct {
	client redis.Cmdable
	enc    security.Encryptor
	prefix string
	now    func() time.Time
}

func NewRedisStore(client redis.Cmdable, secret, prefix string) (*RedisStore, error) {
	key, err := security.DeriveKey(secret, "schoolmed-session")
	if err != nil {
		return nil, fmt.Errorf("derive session key: %w", err)
	}
	enc, err := security.NewAESEncryptor(key)
	if err != nil {
		return nil, err
	}
	return &RedisStore{client: client, enc: enc, prefix: prefix, now: time.Now}, nil
}

func (r *RedisStore) key(id string) string {
	return r.prefix + id
}

func (r *RedisStore) Save(ctx context.Context, s *Session) error {
	ttl := ttlFor(s, r.now())
	if ttl == 0 {
		return ErrNotFound
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	sealed, err := r.enc.Encrypt(raw)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key(s.ID), sealed, ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (r *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	sealed, err := r.client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	raw, err := r.enc.Decrypt(sealed)
	if err != nil {
		return nil, ErrNotFound
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &s, nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, r.key(id)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
