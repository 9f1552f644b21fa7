package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"notemesh/internal/core/domain"
	"notemesh/internal/core/ports"

	"github.com/redis/go-redis/v9"
)

type RedisInviteRepository struct {
	client *redis.Client
	prefix string
}

func NewRedisInviteRepository(client *redis.Client) ports.InviteRepository {
	return &RedisInviteRepository{
		client: client,
		prefix: "notemesh:invite:",
	}
}

func (r *RedisInviteRepository) inviteKey(token string) string {
	return r.prefix + token
}

func (r *RedisInviteRepository) noteInvitesKey(noteID domain.NoteID) string {
	return fmt.Sprintf("notemesh:note:%s:invites", noteID)
}

// Create stores the invite with a key TTL slightly past its expiry. Expiry
// enforcement still happens in the access check, with the key TTL as
// garbage collection.
func (r *RedisInviteRepository) Create(ctx context.Context, invite *domain.Invite) error {
	data, err := json.Marshal(invite)
	if err != nil {
		return fmt.Errorf("failed to marshal invite: %w", err)
	}

	ttl := time.Until(invite.ExpiresAt) + time.Hour
	if ttl <= 0 {
		ttl = time.Hour
	}

	ok, err := r.client.SetNX(ctx, r.inviteKey(invite.Token), data, ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to set invite in Redis: %w", err)
	}
	if !ok {
		return fmt.Errorf("invite token already exists")
	}

	if err := r.client.SAdd(ctx, r.noteInvitesKey(invite.NoteID), invite.Token).Err(); err != nil {
		return fmt.Errorf("failed to index invite by note: %w", err)
	}
	return nil
}

func (r *RedisInviteRepository) GetByToken(ctx context.Context, token string) (*domain.Invite, error) {
	data, err := r.client.Get(ctx, r.inviteKey(token)).Result()
	if err == redis.Nil {
		return nil, domain.ErrInviteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invite from Redis: %w", err)
	}

	var invite domain.Invite
	if err := json.Unmarshal([]byte(data), &invite); err != nil {
		return nil, fmt.Errorf("failed to unmarshal invite: %w", err)
	}
	return &invite, nil
}

func (r *RedisInviteRepository) DeleteByNote(ctx context.Context, noteID domain.NoteID) error {
	indexKey := r.noteInvitesKey(noteID)
	tokens, err := r.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return fmt.Errorf("failed to get note invites from Redis: %w", err)
	}

	pipe := r.client.Pipeline()
	for _, token := range tokens {
		pipe.Del(ctx, r.inviteKey(token))
	}
	pipe.Del(ctx, indexKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete note invites: %w", err)
	}
	return nil
}
