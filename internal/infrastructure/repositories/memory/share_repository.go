package memory

import (
	"context"
	"sort"
	"sync"

	"notemesh/internal/core/domain"
	"notemesh/internal/core/ports"
)

type shareKey struct {
	noteID domain.NoteID
	userID domain.UserID
}

type MemoryShareRepository struct {
	grants map[shareKey]*domain.ShareGrant
	mu     sync.RWMutex
}

func NewMemoryShareRepository() ports.ShareRepository {
	return &MemoryShareRepository{
		grants: make(map[shareKey]*domain.ShareGrant),
	}
}

func (r *MemoryShareRepository) Create(ctx context.Context, grant *domain.ShareGrant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := shareKey{noteID: grant.NoteID, userID: grant.UserID}
	if _, exists := r.grants[key]; exists {
		return domain.ErrAlreadyShared
	}

	stored := *grant
	r.grants[key] = &stored
	return nil
}

func (r *MemoryShareRepository) Exists(ctx context.Context, noteID domain.NoteID, userID domain.UserID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.grants[shareKey{noteID: noteID, userID: userID}]
	return exists, nil
}

func (r *MemoryShareRepository) ListByUser(ctx context.Context, userID domain.UserID) ([]*domain.ShareGrant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var grants []*domain.ShareGrant
	for _, grant := range r.grants {
		if grant.UserID == userID {
			copied := *grant
			grants = append(grants, &copied)
		}
	}

	sort.Slice(grants, func(i, j int) bool {
		return grants[i].CreatedAt.Before(grants[j].CreatedAt)
	})
	return grants, nil
}

func (r *MemoryShareRepository) DeleteByNote(ctx context.Context, noteID domain.NoteID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key := range r.grants {
		if key.noteID == noteID {
			delete(r.grants, key)
		}
	}
	return nil
}
