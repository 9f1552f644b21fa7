package memory

import (
	"context"
	"fmt"
	"sync"

	"notemesh/internal/core/domain"
	"notemesh/internal/core/ports"
)

type MemoryInviteRepository struct {
	invites map[string]*domain.Invite
	mu      sync.RWMutex
}

func NewMemoryInviteRepository() ports.InviteRepository {
	return &MemoryInviteRepository{
		invites: make(map[string]*domain.Invite),
	}
}

func (r *MemoryInviteRepository) Create(ctx context.Context, invite *domain.Invite) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.invites[invite.Token]; exists {
		return fmt.Errorf("invite token already exists")
	}

	stored := *invite
	r.invites[invite.Token] = &stored
	return nil
}

func (r *MemoryInviteRepository) GetByToken(ctx context.Context, token string) (*domain.Invite, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	invite, exists := r.invites[token]
	if !exists {
		return nil, domain.ErrInviteNotFound
	}

	copied := *invite
	return &copied, nil
}

func (r *MemoryInviteRepository) DeleteByNote(ctx context.Context, noteID domain.NoteID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for token, invite := range r.invites {
		if invite.NoteID == noteID {
			delete(r.invites, token)
		}
	}
	return nil
}
