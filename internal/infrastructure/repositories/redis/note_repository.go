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

type RedisNoteRepository struct {
	client *redis.Client
	prefix string
}

func NewRedisNoteRepository(client *redis.Client) ports.NoteRepository {
	return &RedisNoteRepository{
		client: client,
		prefix: "notemesh:note:",
	}
}

func (r *RedisNoteRepository) noteKey(id domain.NoteID) string {
	return r.prefix + string(id)
}

func (r *RedisNoteRepository) ownerNotesKey(owner domain.UserID) string {
	return fmt.Sprintf("notemesh:user:%s:notes", owner)
}

func (r *RedisNoteRepository) allNotesKey() string {
	return "notemesh:notes"
}

func (r *RedisNoteRepository) Create(ctx context.Context, note *domain.Note) error {
	data, err := json.Marshal(note)
	if err != nil {
		return fmt.Errorf("failed to marshal note: %w", err)
	}

	ok, err := r.client.SetNX(ctx, r.noteKey(note.ID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to set note in Redis: %w", err)
	}
	if !ok {
		return fmt.Errorf("note already exists: %s", note.ID)
	}

	pipe := r.client.Pipeline()
	pipe.SAdd(ctx, r.ownerNotesKey(note.OwnerID), string(note.ID))
	pipe.SAdd(ctx, r.allNotesKey(), string(note.ID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to index note: %w", err)
	}
	return nil
}

func (r *RedisNoteRepository) GetByID(ctx context.Context, id domain.NoteID) (*domain.Note, error) {
	data, err := r.client.Get(ctx, r.noteKey(id)).Result()
	if err == redis.Nil {
		return nil, domain.ErrNoteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get note from Redis: %w", err)
	}

	var note domain.Note
	if err := json.Unmarshal([]byte(data), &note); err != nil {
		return nil, fmt.Errorf("failed to unmarshal note: %w", err)
	}
	return &note, nil
}

func (r *RedisNoteRepository) Update(ctx context.Context, note *domain.Note) error {
	data, err := json.Marshal(note)
	if err != nil {
		return fmt.Errorf("failed to marshal note: %w", err)
	}

	ok, err := r.client.SetXX(ctx, r.noteKey(note.ID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to update note in Redis: %w", err)
	}
	if !ok {
		return domain.ErrNoteNotFound
	}
	return nil
}

func (r *RedisNoteRepository) Delete(ctx context.Context, id domain.NoteID) error {
	note, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}

	pipe := r.client.Pipeline()
	pipe.SRem(ctx, r.ownerNotesKey(note.OwnerID), string(id))
	pipe.SRem(ctx, r.allNotesKey(), string(id))
	pipe.Del(ctx, r.noteKey(id))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete note from Redis: %w", err)
	}
	return nil
}

func (r *RedisNoteRepository) ListByOwner(ctx context.Context, owner domain.UserID) ([]*domain.Note, error) {
	ids, err := r.client.SMembers(ctx, r.ownerNotesKey(owner)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get owner notes from Redis: %w", err)
	}

	var notes []*domain.Note
	for _, id := range ids {
		note, err := r.GetByID(ctx, domain.NoteID(id))
		if err != nil {
			// Skip notes that no longer exist
			continue
		}
		notes = append(notes, note)
	}

	sort.Slice(notes, func(i, j int) bool {
		return notes[i].UpdatedAt.After(notes[j].UpdatedAt)
	})
	return notes, nil
}

func (r *RedisNoteRepository) ListAll(ctx context.Context) ([]*domain.Note, error) {
	ids, err := r.client.SMembers(ctx, r.allNotesKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get note index from Redis: %w", err)
	}

	var notes []*domain.Note
	for _, id := range ids {
		note, err := r.GetByID(ctx, domain.NoteID(id))
		if err != nil {
			continue
		}
		notes = append(notes, note)
	}

	sort.Slice(notes, func(i, j int) bool {
		return notes[i].ID < notes[j].ID
	})
	return notes, nil
}
