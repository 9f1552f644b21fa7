package memory

import (
	"context"
	"fmt"
	"sync"

	"notemesh/internal/core/domain"
	"notemesh/internal/core/ports"
)

type MemoryUserRepository struct {
	byEmail map[string]*domain.User
	mu      sync.RWMutex
}

func NewMemoryUserRepository() ports.UserRepository {
	return &MemoryUserRepository{
		byEmail: make(map[string]*domain.User),
	}
}

func (r *MemoryUserRepository) Create(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[user.Email]; exists {
		return fmt.Errorf("user already exists: %s", user.Email)
	}

	stored := *user
	r.byEmail[user.Email] = &stored
	return nil
}

func (r *MemoryUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, exists := r.byEmail[email]
	if !exists {
		return nil, domain.ErrUserNotFound
	}

	copied := *user
	return &copied, nil
}
