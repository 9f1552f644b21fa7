package services

import (
	"context"
	"testing"
	"time"

	"notemesh/internal/core/domain"
	"notemesh/internal/core/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type noteFixture struct {
	notes       *MockNoteRepository
	categories  *MockCategoryRepository
	shares      *MockShareRepository
	invites     *MockInviteRepository
	categorizer *MockCategorizer
	svc         ports.NoteService
}

func newNoteFixture(withCategorizer bool) *noteFixture {
	f := &noteFixture{
		notes:      new(MockNoteRepository),
		categories: new(MockCategoryRepository),
		shares:     new(MockShareRepository),
		invites:    new(MockInviteRepository),
	}
	var categorizer ports.Categorizer
	if withCategorizer {
		f.categorizer = new(MockCategorizer)
		categorizer = f.categorizer
	}
	f.svc = NewNoteService(f.notes, f.categories, f.shares, f.invites, categorizer, zap.NewNop().Sugar())
	return f
}

func TestNoteService_CreateNote(t *testing.T) {
	f := newNoteFixture(false)
	ctx := context.Background()

	f.notes.On("Create", ctx, mock.AnythingOfType("*domain.Note")).Return(nil)

	note, err := f.svc.CreateNote(ctx, "alice", "Groceries", "milk, eggs", "")

	require.NoError(t, err)
	assert.NotEmpty(t, note.ID)
	assert.Equal(t, "Groceries", note.Title)
	assert.Equal(t, domain.UserID("alice"), note.OwnerID)
	assert.False(t, note.CreatedAt.IsZero())
}

func TestNoteService_CreateNoteDefaultsTitle(t *testing.T) {
	f := newNoteFixture(false)
	ctx := context.Background()

	f.notes.On("Create", ctx, mock.AnythingOfType("*domain.Note")).Return(nil)

	note, err := f.svc.CreateNote(ctx, "alice", "", "content", "")

	require.NoError(t, err)
	assert.Equal(t, "Untitled", note.Title)
}

func TestNoteService_CreateNoteRequiresOwner(t *testing.T) {
	f := newNoteFixture(false)

	_, err := f.svc.CreateNote(context.Background(), "", "t", "c", "")

	assert.Error(t, err)
	f.notes.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestNoteService_CreateNoteSuggestsCategory(t *testing.T) {
	f := newNoteFixture(true)
	ctx := context.Background()

	f.categorizer.On("Categorize", ctx, "milk, eggs").Return("Shopping", nil)
	f.categories.On("GetByName", ctx, domain.UserID("alice"), "Shopping").Return(nil, domain.ErrCategoryNotFound)
	f.categories.On("Create", ctx, mock.AnythingOfType("*domain.Category")).Return(nil)
	f.notes.On("Create", ctx, mock.AnythingOfType("*domain.Note")).Return(nil)

	note, err := f.svc.CreateNote(ctx, "alice", "Groceries", "milk, eggs", "")

	require.NoError(t, err)
	assert.NotEmpty(t, note.AIGeneratedCategory)
	assert.Equal(t, note.AIGeneratedCategory, note.Category())
}

func TestNoteService_UserCategorySuppressesSuggestion(t *testing.T) {
	f := newNoteFixture(true)
	ctx := context.Background()

	f.notes.On("Create", ctx, mock.AnythingOfType("*domain.Note")).Return(nil)

	note, err := f.svc.CreateNote(ctx, "alice", "Groceries", "milk, eggs", "cat-7")

	require.NoError(t, err)
	assert.Equal(t, domain.CategoryID("cat-7"), note.Category())
	assert.Empty(t, note.AIGeneratedCategory)
	f.categorizer.AssertNotCalled(t, "Categorize", mock.Anything, mock.Anything)
}

func TestNoteService_CategorizerFailureDegradesToNoSuggestion(t *testing.T) {
	f := newNoteFixture(true)
	ctx := context.Background()

	f.categorizer.On("Categorize", ctx, "content").Return("", assert.AnError)
	f.notes.On("Create", ctx, mock.AnythingOfType("*domain.Note")).Return(nil)

	note, err := f.svc.CreateNote(ctx, "alice", "t", "content", "")

	require.NoError(t, err)
	assert.Empty(t, note.AIGeneratedCategory)
}

func TestNoteService_GetNoteWithToken(t *testing.T) {
	f := newNoteFixture(false)
	ctx := context.Background()
	stored := &domain.Note{ID: "n1", OwnerID: "alice", Title: "T"}

	f.invites.On("GetByToken", ctx, "tok-1").Return(&domain.Invite{
		Token:     "tok-1",
		NoteID:    "n1",
		ExpiresAt: time.Now().Add(time.Hour),
	}, nil)
	f.notes.On("GetByID", ctx, domain.NoteID("n1")).Return(stored, nil)

	note, err := f.svc.GetNote(ctx, "n1", nil, "tok-1")

	require.NoError(t, err)
	assert.Equal(t, stored, note)
}

func TestNoteService_GetNoteDeniedWithoutCredential(t *testing.T) {
	f := newNoteFixture(false)

	_, err := f.svc.GetNote(context.Background(), "n1", nil, "")

	assert.ErrorIs(t, err, domain.ErrAccessDenied)
	f.notes.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestNoteService_UpdateNoteAsSharedUser(t *testing.T) {
	f := newNoteFixture(false)
	ctx := context.Background()
	stored := &domain.Note{ID: "n1", OwnerID: "alice", Title: "Old", Content: "old"}

	f.shares.On("Exists", ctx, domain.NoteID("n1"), domain.UserID("bob")).Return(true, nil)
	f.notes.On("GetByID", ctx, domain.NoteID("n1")).Return(stored, nil)
	f.notes.On("Update", ctx, mock.AnythingOfType("*domain.Note")).Return(nil)

	note, err := f.svc.UpdateNote(ctx, "n1", &domain.Identity{UserID: "bob"}, "", "New", "new body", "")

	require.NoError(t, err)
	assert.Equal(t, "New", note.Title)
	assert.Equal(t, "new body", note.Content)
}

func TestNoteService_UpdateNoteKeepsTitleWhenOmitted(t *testing.T) {
	f := newNoteFixture(false)
	ctx := context.Background()
	stored := &domain.Note{ID: "n1", OwnerID: "alice", Title: "Keep me", Content: "old"}

	f.shares.On("Exists", ctx, domain.NoteID("n1"), domain.UserID("alice")).Return(false, nil)
	f.notes.On("GetByID", ctx, domain.NoteID("n1")).Return(stored, nil)
	f.notes.On("Update", ctx, mock.AnythingOfType("*domain.Note")).Return(nil)

	note, err := f.svc.UpdateNote(ctx, "n1", &domain.Identity{UserID: "alice"}, "", "", "new body", "")

	require.NoError(t, err)
	assert.Equal(t, "Keep me", note.Title)
}

func TestNoteService_DeleteNoteOwnerOnly(t *testing.T) {
	f := newNoteFixture(false)
	ctx := context.Background()
	stored := &domain.Note{ID: "n1", OwnerID: "alice"}

	f.notes.On("GetByID", ctx, domain.NoteID("n1")).Return(stored, nil)

	err := f.svc.DeleteNote(ctx, "n1", "bob")

	assert.ErrorIs(t, err, domain.ErrAccessDenied)
	f.notes.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestNoteService_DeleteNoteCascades(t *testing.T) {
	f := newNoteFixture(false)
	ctx := context.Background()
	stored := &domain.Note{ID: "n1", OwnerID: "alice"}

	f.notes.On("GetByID", ctx, domain.NoteID("n1")).Return(stored, nil)
	f.invites.On("DeleteByNote", ctx, domain.NoteID("n1")).Return(nil)
	f.shares.On("DeleteByNote", ctx, domain.NoteID("n1")).Return(nil)
	f.notes.On("Delete", ctx, domain.NoteID("n1")).Return(nil)

	err := f.svc.DeleteNote(ctx, "n1", "alice")

	require.NoError(t, err)
	f.invites.AssertExpectations(t)
	f.shares.AssertExpectations(t)
	f.notes.AssertExpectations(t)
}

func TestNoteService_ListNotesMergesOwnedAndShared(t *testing.T) {
	f := newNoteFixture(false)
	ctx := context.Background()

	owned := []*domain.Note{{ID: "n1", OwnerID: "bob"}}
	sharedNote := &domain.Note{ID: "n2", OwnerID: "alice"}

	f.notes.On("ListByOwner", ctx, domain.UserID("bob")).Return(owned, nil)
	f.shares.On("ListByUser", ctx, domain.UserID("bob")).Return([]*domain.ShareGrant{
		{NoteID: "n2", UserID: "bob"},
		{NoteID: "gone", UserID: "bob"},
	}, nil)
	f.notes.On("GetByID", ctx, domain.NoteID("n2")).Return(sharedNote, nil)
	f.notes.On("GetByID", ctx, domain.NoteID("gone")).Return(nil, domain.ErrNoteNotFound)

	notes, err := f.svc.ListNotes(ctx, "bob")

	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, domain.NoteID("n1"), notes[0].ID)
	assert.Equal(t, domain.NoteID("n2"), notes[1].ID)
}
