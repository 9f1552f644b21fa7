package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"notemesh/internal/core/domain"
	"notemesh/internal/core/ports"
	"notemesh/pkg/utils"

	"go.uber.org/zap"
)

type noteService struct {
	notes      ports.NoteRepository
	categories ports.CategoryRepository
	shares     ports.ShareRepository
	invites    ports.InviteRepository

	categorizer ports.Categorizer

	now    func() time.Time
	logger *zap.SugaredLogger
}

func NewNoteService(
	notes ports.NoteRepository,
	categories ports.CategoryRepository,
	shares ports.ShareRepository,
	invites ports.InviteRepository,
	categorizer ports.Categorizer,
	logger *zap.SugaredLogger,
) ports.NoteService {
	return &noteService{
		notes:       notes,
		categories:  categories,
		shares:      shares,
		invites:     invites,
		categorizer: categorizer,
		now:         time.Now,
		logger:      logger,
	}
}

func (s *noteService) CreateNote(ctx context.Context, owner domain.UserID, title, content string, userCategory domain.CategoryID) (*domain.Note, error) {
	if owner == "" {
		return nil, fmt.Errorf("owner is required")
	}
	if title == "" {
		title = "Untitled"
	}

	note := &domain.Note{
		ID:                  domain.NoteID(utils.GenerateNoteID()),
		Title:               title,
		Content:             content,
		OwnerID:             owner,
		UserUpdatedCategory: userCategory,
		CreatedAt:           s.now(),
		UpdatedAt:           s.now(),
	}

	// A user-picked category always suppresses the AI suggestion.
	if userCategory == "" {
		note.AIGeneratedCategory = s.suggestCategory(ctx, owner, content)
	}

	if err := s.notes.Create(ctx, note); err != nil {
		return nil, fmt.Errorf("create note: %w", err)
	}
	return note, nil
}

func (s *noteService) GetNote(ctx context.Context, noteID domain.NoteID, identity *domain.Identity, token string) (*domain.Note, error) {
	if err := s.authorizeRead(ctx, noteID, identity, token); err != nil {
		return nil, err
	}
	return s.notes.GetByID(ctx, noteID)
}

func (s *noteService) UpdateNote(ctx context.Context, noteID domain.NoteID, identity *domain.Identity, token string, title, content string, userCategory domain.CategoryID) (*domain.Note, error) {
	if err := s.authorizeRead(ctx, noteID, identity, token); err != nil {
		return nil, err
	}

	note, err := s.notes.GetByID(ctx, noteID)
	if err != nil {
		return nil, err
	}

	if title != "" {
		note.Title = title
	}
	note.Content = content
	note.UserUpdatedCategory = userCategory
	note.UpdatedAt = s.now()

	if userCategory == "" {
		owner := note.OwnerID
		note.AIGeneratedCategory = s.suggestCategory(ctx, owner, content)
	} else {
		note.AIGeneratedCategory = ""
	}

	if err := s.notes.Update(ctx, note); err != nil {
		return nil, fmt.Errorf("update note: %w", err)
	}
	return note, nil
}

func (s *noteService) DeleteNote(ctx context.Context, noteID domain.NoteID, owner domain.UserID) error {
	note, err := s.notes.GetByID(ctx, noteID)
	if err != nil {
		return err
	}
	if !note.IsOwner(owner) {
		return domain.ErrAccessDenied
	}

	if err := s.invites.DeleteByNote(ctx, noteID); err != nil {
		s.logger.Warnw("failed to delete invites for note", "note_id", noteID, "error", err)
	}
	if err := s.shares.DeleteByNote(ctx, noteID); err != nil {
		s.logger.Warnw("failed to delete shares for note", "note_id", noteID, "error", err)
	}

	return s.notes.Delete(ctx, noteID)
}

// ListNotes returns the notes a user owns plus the notes shared with them.
func (s *noteService) ListNotes(ctx context.Context, userID domain.UserID) ([]*domain.Note, error) {
	owned, err := s.notes.ListByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list owned notes: %w", err)
	}

	grants, err := s.shares.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list share grants: %w", err)
	}

	seen := make(map[domain.NoteID]bool, len(owned))
	for _, n := range owned {
		seen[n.ID] = true
	}

	result := owned
	for _, grant := range grants {
		if seen[grant.NoteID] {
			continue
		}
		note, err := s.notes.GetByID(ctx, grant.NoteID)
		if err != nil {
			if errors.Is(err, domain.ErrNoteNotFound) {
				// Stale grant; the note was deleted out from under it.
				continue
			}
			return nil, fmt.Errorf("resolve shared note: %w", err)
		}
		result = append(result, note)
	}

	return result, nil
}

func (s *noteService) ListCategories(ctx context.Context, userID domain.UserID) ([]*domain.Category, error) {
	return s.categories.ListByOwner(ctx, userID)
}

// authorizeRead applies the REST access rules: a valid, note-matching,
// unexpired token grants access to exactly the invited note; otherwise the
// caller must own the note or hold a share grant.
func (s *noteService) authorizeRead(ctx context.Context, noteID domain.NoteID, identity *domain.Identity, token string) error {
	if token != "" {
		invite, err := s.invites.GetByToken(ctx, token)
		if err != nil {
			if errors.Is(err, domain.ErrInviteNotFound) {
				return domain.ErrAccessDenied
			}
			return fmt.Errorf("%w: invite lookup: %v", domain.ErrAccessCheckFailed, err)
		}
		if invite.NoteID != noteID || invite.Expired(s.now()) {
			return domain.ErrAccessDenied
		}
		return nil
	}

	if identity == nil {
		return domain.ErrAccessDenied
	}

	shared, err := s.shares.Exists(ctx, noteID, identity.UserID)
	if err != nil {
		return fmt.Errorf("%w: share lookup: %v", domain.ErrAccessCheckFailed, err)
	}
	if shared {
		return nil
	}

	note, err := s.notes.GetByID(ctx, noteID)
	if err != nil {
		if errors.Is(err, domain.ErrNoteNotFound) {
			return domain.ErrAccessDenied
		}
		return fmt.Errorf("%w: note lookup: %v", domain.ErrAccessCheckFailed, err)
	}
	if !note.IsOwner(identity.UserID) {
		return domain.ErrAccessDenied
	}
	return nil
}

// suggestCategory asks the categorizer for a name and resolves it to an
// existing or new category. Any failure degrades to no suggestion.
func (s *noteService) suggestCategory(ctx context.Context, owner domain.UserID, content string) domain.CategoryID {
	if s.categorizer == nil || content == "" {
		return ""
	}

	name, err := s.categorizer.Categorize(ctx, content)
	if err != nil {
		s.logger.Debugw("categorizer unavailable", "error", err)
		return ""
	}
	if name == "" {
		return ""
	}

	existing, err := s.categories.GetByName(ctx, owner, name)
	if err == nil {
		return existing.ID
	}
	if !errors.Is(err, domain.ErrCategoryNotFound) {
		s.logger.Warnw("category lookup failed", "name", name, "error", err)
		return ""
	}

	category := &domain.Category{
		ID:        domain.CategoryID(utils.GenerateCategoryID()),
		Name:      name,
		OwnerID:   owner,
		CreatedAt: s.now(),
	}
	if err := s.categories.Create(ctx, category); err != nil {
		s.logger.Warnw("category create failed", "name", name, "error", err)
		return ""
	}
	return category.ID
}
