package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"notemesh/internal/core/domain"
	"notemesh/internal/core/ports"
)

type MemoryNoteRepository struct {
	notes map[domain.NoteID]*domain.Note
	mu    sync.RWMutex
}

func NewMemoryNoteRepository() ports.NoteRepository {
	return &MemoryNoteRepository{
		notes: make(map[domain.NoteID]*domain.Note),
	}
}

func (r *MemoryNoteRepository) Create(ctx context.Context, note *domain.Note) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.notes[note.ID]; exists {
		return fmt.Errorf("note already exists: %s", note.ID)
	}

	stored := *note
	r.notes[note.ID] = &stored
	return nil
}

func (r *MemoryNoteRepository) GetByID(ctx context.Context, id domain.NoteID) (*domain.Note, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	note, exists := r.notes[id]
	if !exists {
		return nil, domain.ErrNoteNotFound
	}

	copied := *note
	return &copied, nil
}

func (r *MemoryNoteRepository) Update(ctx context.Context, note *domain.Note) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.notes[note.ID]; !exists {
		return domain.ErrNoteNotFound
	}

	stored := *note
	r.notes[note.ID] = &stored
	return nil
}

func (r *MemoryNoteRepository) Delete(ctx context.Context, id domain.NoteID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.notes[id]; !exists {
		return domain.ErrNoteNotFound
	}

	delete(r.notes, id)
	return nil
}

func (r *MemoryNoteRepository) ListByOwner(ctx context.Context, owner domain.UserID) ([]*domain.Note, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var notes []*domain.Note
	for _, note := range r.notes {
		if note.OwnerID == owner {
			copied := *note
			notes = append(notes, &copied)
		}
	}

	sort.Slice(notes, func(i, j int) bool {
		return notes[i].UpdatedAt.After(notes[j].UpdatedAt)
	})
	return notes, nil
}

func (r *MemoryNoteRepository) ListAll(ctx context.Context) ([]*domain.Note, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	notes := make([]*domain.Note, 0, len(r.notes))
	for _, note := range r.notes {
		copied := *note
		notes = append(notes, &copied)
	}

	sort.Slice(notes, func(i, j int) bool {
		return notes[i].ID < notes[j].ID
	})
	return notes, nil
}
