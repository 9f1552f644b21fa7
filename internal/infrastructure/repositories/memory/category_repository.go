package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"notemesh/internal/core/domain"
	"notemesh/internal/core/ports"
)

type MemoryCategoryRepository struct {
	categories map[domain.CategoryID]*domain.Category
	mu         sync.RWMutex
}

func NewMemoryCategoryRepository() ports.CategoryRepository {
	return &MemoryCategoryRepository{
		categories: make(map[domain.CategoryID]*domain.Category),
	}
}

func (r *MemoryCategoryRepository) Create(ctx context.Context, category *domain.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.categories[category.ID]; exists {
		return fmt.Errorf("category already exists: %s", category.ID)
	}

	stored := *category
	r.categories[category.ID] = &stored
	return nil
}

func (r *MemoryCategoryRepository) GetByName(ctx context.Context, owner domain.UserID, name string) (*domain.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, category := range r.categories {
		if category.OwnerID == owner && strings.EqualFold(category.Name, name) {
			copied := *category
			return &copied, nil
		}
	}
	return nil, domain.ErrCategoryNotFound
}

func (r *MemoryCategoryRepository) ListByOwner(ctx context.Context, owner domain.UserID) ([]*domain.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var categories []*domain.Category
	for _, category := range r.categories {
		if category.OwnerID == owner {
			copied := *category
			categories = append(categories, &copied)
		}
	}

	sort.Slice(categories, func(i, j int) bool {
		return categories[i].Name < categories[j].Name
	})
	return categories, nil
}
