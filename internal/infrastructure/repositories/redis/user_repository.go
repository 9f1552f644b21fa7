package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"notemesh/internal/core/domain"
	"notemesh/internal/core/ports"

	"github.com/redis/go-redis/v9"
)

type RedisUserRepository struct {
	client *redis.Client
}

func NewRedisUserRepository(client *redis.Client) ports.UserRepository {
	return &RedisUserRepository{client: client}
}

func (r *RedisUserRepository) emailKey(email string) string {
	return fmt.Sprintf("notemesh:user:email:%s", email)
}

func (r *RedisUserRepository) Create(ctx context.Context, user *domain.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}

	ok, err := r.client.SetNX(ctx, r.emailKey(user.Email), data, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to set user in Redis: %w", err)
	}
	if !ok {
		return fmt.Errorf("user already exists: %s", user.Email)
	}
	return nil
}

func (r *RedisUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	data, err := r.client.Get(ctx, r.emailKey(email)).Result()
	if err == redis.Nil {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user from Redis: %w", err)
	}

	var user domain.User
	if err := json.Unmarshal([]byte(data), &user); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user: %w", err)
	}
	return &user, nil
}
