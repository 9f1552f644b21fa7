package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"notemesh/internal/core/domain"
	"notemesh/internal/core/ports"

	"github.com/redis/go-redis/v9"
)

type RedisShareRepository struct {
	client *redis.Client
}

func NewRedisShareRepository(client *redis.Client) ports.ShareRepository {
	return &RedisShareRepository{client: client}
}

func (r *RedisShareRepository) grantKey(noteID domain.NoteID, userID domain.UserID) string {
	return fmt.Sprintf("notemesh:share:%s:%s", noteID, userID)
}

func (r *RedisShareRepository) userSharesKey(userID domain.UserID) string {
	return fmt.Sprintf("notemesh:user:%s:shares", userID)
}

func (r *RedisShareRepository) noteSharesKey(noteID domain.NoteID) string {
	return fmt.Sprintf("notemesh:note:%s:shares", noteID)
}

func (r *RedisShareRepository) Create(ctx context.Context, grant *domain.ShareGrant) error {
	data, err := json.Marshal(grant)
	if err != nil {
		return fmt.Errorf("failed to marshal share grant: %w", err)
	}

	ok, err := r.client.SetNX(ctx, r.grantKey(grant.NoteID, grant.UserID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to set share grant in Redis: %w", err)
	}
	if !ok {
		return domain.ErrAlreadyShared
	}

	pipe := r.client.Pipeline()
	pipe.SAdd(ctx, r.userSharesKey(grant.UserID), string(grant.NoteID))
	pipe.SAdd(ctx, r.noteSharesKey(grant.NoteID), string(grant.UserID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to index share grant: %w", err)
	}
	return nil
}

func (r *RedisShareRepository) Exists(ctx context.Context, noteID domain.NoteID, userID domain.UserID) (bool, error) {
	n, err := r.client.Exists(ctx, r.grantKey(noteID, userID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check share grant in Redis: %w", err)
	}
	return n > 0, nil
}

func (r *RedisShareRepository) ListByUser(ctx context.Context, userID domain.UserID) ([]*domain.ShareGrant, error) {
	noteIDs, err := r.client.SMembers(ctx, r.userSharesKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get user shares from Redis: %w", err)
	}

	var grants []*domain.ShareGrant
	for _, noteID := range noteIDs {
		data, err := r.client.Get(ctx, r.grantKey(domain.NoteID(noteID), userID)).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get share grant from Redis: %w", err)
		}

		var grant domain.ShareGrant
		if err := json.Unmarshal([]byte(data), &grant); err != nil {
			return nil, fmt.Errorf("failed to unmarshal share grant: %w", err)
		}
		grants = append(grants, &grant)
	}

	sort.Slice(grants, func(i, j int) bool {
		return grants[i].CreatedAt.Before(grants[j].CreatedAt)
	})
	return grants, nil
}

func (r *RedisShareRepository) DeleteByNote(ctx context.Context, noteID domain.NoteID) error {
	indexKey := r.noteSharesKey(noteID)
	userIDs, err := r.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return fmt.Errorf("failed to get note shares from Redis: %w", err)
	}

	pipe := r.client.Pipeline()
	for _, userID := range userIDs {
		pipe.Del(ctx, r.grantKey(noteID, domain.UserID(userID)))
		pipe.SRem(ctx, r.userSharesKey(domain.UserID(userID)), string(noteID))
	}
	pipe.Del(ctx, indexKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete note shares: %w", err)
	}
	return nil
}
