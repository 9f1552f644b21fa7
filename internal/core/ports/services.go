package ports

import (
	"context"

	"notemesh/internal/core/domain"
)

// AccessService decides whether a connection may join a note's live channel.
// A supplied invite token fully determines the outcome; the identity path is
// consulted only when no token is present.
type AccessService interface {
	Admit(ctx context.Context, noteID domain.NoteID, identity *domain.Identity, token string) (*domain.Admission, error)
}

type NoteService interface {
	CreateNote(ctx context.Context, owner domain.UserID, title, content string, userCategory domain.CategoryID) (*domain.Note, error)
	GetNote(ctx context.Context, noteID domain.NoteID, identity *domain.Identity, token string) (*domain.Note, error)
	UpdateNote(ctx context.Context, noteID domain.NoteID, identity *domain.Identity, token string, title, content string, userCategory domain.CategoryID) (*domain.Note, error)
	DeleteNote(ctx context.Context, noteID domain.NoteID, owner domain.UserID) error
	ListNotes(ctx context.Context, userID domain.UserID) ([]*domain.Note, error)
	ListCategories(ctx context.Context, userID domain.UserID) ([]*domain.Category, error)
}

type InviteService interface {
	InviteGuest(ctx context.Context, noteID domain.NoteID, owner domain.UserID, email string) (*domain.Invite, string, error)
	ShareNote(ctx context.Context, noteID domain.NoteID, owner domain.UserID, userID domain.UserID, email string) error
}

// Mailer sends outbound notification mail. Implementations must be safe for
// concurrent use.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Categorizer produces a category name for note content, or "" when it has
// no suggestion. Failures degrade to no suggestion and never block writes.
type Categorizer interface {
	Categorize(ctx context.Context, content string) (string, error)
}
