package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"notemesh/internal/core/domain"
	"notemesh/internal/core/ports"

	"github.com/redis/go-redis/v9"
)

type RedisCategoryRepository struct {
	client *redis.Client
	prefix string
}

func NewRedisCategoryRepository(client *redis.Client) ports.CategoryRepository {
	return &RedisCategoryRepository{
		client: client,
		prefix: "notemesh:category:",
	}
}

func (r *RedisCategoryRepository) categoryKey(id domain.CategoryID) string {
	return r.prefix + string(id)
}

// ownerNamesKey maps lowercased category names to IDs for one owner.
func (r *RedisCategoryRepository) ownerNamesKey(owner domain.UserID) string {
	return fmt.Sprintf("notemesh:user:%s:category_names", owner)
}

func (r *RedisCategoryRepository) ownerCategoriesKey(owner domain.UserID) string {
	return fmt.Sprintf("notemesh:user:%s:categories", owner)
}

func (r *RedisCategoryRepository) Create(ctx context.Context, category *domain.Category) error {
	data, err := json.Marshal(category)
	if err != nil {
		return fmt.Errorf("failed to marshal category: %w", err)
	}

	ok, err := r.client.SetNX(ctx, r.categoryKey(category.ID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to set category in Redis: %w", err)
	}
	if !ok {
		return fmt.Errorf("category already exists: %s", category.ID)
	}

	pipe := r.client.Pipeline()
	pipe.SAdd(ctx, r.ownerCategoriesKey(category.OwnerID), string(category.ID))
	pipe.HSet(ctx, r.ownerNamesKey(category.OwnerID), strings.ToLower(category.Name), string(category.ID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to index category: %w", err)
	}
	return nil
}

func (r *RedisCategoryRepository) GetByName(ctx context.Context, owner domain.UserID, name string) (*domain.Category, error) {
	id, err := r.client.HGet(ctx, r.ownerNamesKey(owner), strings.ToLower(name)).Result()
	if err == redis.Nil {
		return nil, domain.ErrCategoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up category name: %w", err)
	}
	return r.getByID(ctx, domain.CategoryID(id))
}

func (r *RedisCategoryRepository) ListByOwner(ctx context.Context, owner domain.UserID) ([]*domain.Category, error) {
	ids, err := r.client.SMembers(ctx, r.ownerCategoriesKey(owner)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get owner categories from Redis: %w", err)
	}

	var categories []*domain.Category
	for _, id := range ids {
		category, err := r.getByID(ctx, domain.CategoryID(id))
		if err != nil {
			continue
		}
		categories = append(categories, category)
	}

	sort.Slice(categories, func(i, j int) bool {
		return categories[i].Name < categories[j].Name
	})
	return categories, nil
}

func (r *RedisCategoryRepository) getByID(ctx context.Context, id domain.CategoryID) (*domain.Category, error) {
	data, err := r.client.Get(ctx, r.categoryKey(id)).Result()
	if err == redis.Nil {
		return nil, domain.ErrCategoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category from Redis: %w", err)
	}

	var category domain.Category
	if err := json.Unmarshal([]byte(data), &category); err != nil {
		return nil, fmt.Errorf("failed to unmarshal category: %w", err)
	}
	return &category, nil
}
