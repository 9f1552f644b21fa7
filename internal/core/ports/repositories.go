package ports

import (
	"context"

	"notemesh/internal/core/domain"
)

type NoteRepository interface {
	Create(ctx context.Context, note *domain.Note) error
	GetByID(ctx context.Context, id domain.NoteID) (*domain.Note, error)
	Update(ctx context.Context, note *domain.Note) error
	Delete(ctx context.Context, id domain.NoteID) error
	ListByOwner(ctx context.Context, owner domain.UserID) ([]*domain.Note, error)
	// ListAll returns every stored note. Used by snapshot and restore, not
	// by request paths.
	ListAll(ctx context.Context) ([]*domain.Note, error)
}

type CategoryRepository interface {
	Create(ctx context.Context, category *domain.Category) error
	GetByName(ctx context.Context, owner domain.UserID, name string) (*domain.Category, error)
	ListByOwner(ctx context.Context, owner domain.UserID) ([]*domain.Category, error)
}

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

type InviteRepository interface {
	Create(ctx context.Context, invite *domain.Invite) error
	GetByToken(ctx context.Context, token string) (*domain.Invite, error)
	DeleteByNote(ctx context.Context, noteID domain.NoteID) error
}

type ShareRepository interface {
	Create(ctx context.Context, grant *domain.ShareGrant) error
	Exists(ctx context.Context, noteID domain.NoteID, userID domain.UserID) (bool, error)
	ListByUser(ctx context.Context, userID domain.UserID) ([]*domain.ShareGrant, error)
	DeleteByNote(ctx context.Context, noteID domain.NoteID) error
}
