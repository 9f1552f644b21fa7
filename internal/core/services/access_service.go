package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"notemesh/internal/core/domain"
	"notemesh/internal/core/ports"
	"notemesh/pkg/cache"

	"go.uber.org/zap"
)

// accessService decides whether a connection may join a note's live channel.
//
// A supplied invite token fully determines the outcome: the identity path is
// never consulted when a token is present, so an authenticated owner who
// also presents an unrelated token is denied. This mirrors the access policy
// of the REST layer and lets an owner preview the guest experience by
// opening their own invite link.
type accessService struct {
	notes   ports.NoteRepository
	shares  ports.ShareRepository
	invites ports.InviteRepository

	// lookupCache holds owner and share results for a short window. Invite
	// lookups are never cached: the expiry boundary must be exact.
	lookupCache *cache.Cache

	now    func() time.Time
	logger *zap.SugaredLogger
}

func NewAccessService(
	notes ports.NoteRepository,
	shares ports.ShareRepository,
	invites ports.InviteRepository,
	lookupCache *cache.Cache,
	logger *zap.SugaredLogger,
) ports.AccessService {
	return &accessService{
		notes:       notes,
		shares:      shares,
		invites:     invites,
		lookupCache: lookupCache,
		now:         time.Now,
		logger:      logger,
	}
}

func (s *accessService) Admit(ctx context.Context, noteID domain.NoteID, identity *domain.Identity, token string) (*domain.Admission, error) {
	if token != "" {
		return s.admitByInvite(ctx, noteID, token)
	}
	if identity != nil {
		return s.admitByIdentity(ctx, noteID, identity)
	}
	return nil, domain.ErrAccessDenied
}

func (s *accessService) admitByInvite(ctx context.Context, noteID domain.NoteID, token string) (*domain.Admission, error) {
	invite, err := s.invites.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrInviteNotFound) {
			return nil, domain.ErrAccessDenied
		}
		return nil, fmt.Errorf("%w: invite lookup: %v", domain.ErrAccessCheckFailed, err)
	}

	// A token bound to a different note is a plain denial, not an error:
	// the response must not reveal whether the target note exists.
	if invite.NoteID != noteID {
		return nil, domain.ErrAccessDenied
	}
	if invite.Expired(s.now()) {
		return nil, domain.ErrAccessDenied
	}

	return &domain.Admission{NoteID: noteID, Kind: domain.CredentialInvite}, nil
}

func (s *accessService) admitByIdentity(ctx context.Context, noteID domain.NoteID, identity *domain.Identity) (*domain.Admission, error) {
	shared, err := s.shareExists(ctx, noteID, identity.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: share lookup: %v", domain.ErrAccessCheckFailed, err)
	}
	if shared {
		return &domain.Admission{NoteID: noteID, Kind: domain.CredentialShare, UserID: identity.UserID}, nil
	}

	owner, err := s.noteOwner(ctx, noteID)
	if err != nil {
		if errors.Is(err, domain.ErrNoteNotFound) {
			return nil, domain.ErrAccessDenied
		}
		return nil, fmt.Errorf("%w: note lookup: %v", domain.ErrAccessCheckFailed, err)
	}
	if owner == identity.UserID {
		return &domain.Admission{NoteID: noteID, Kind: domain.CredentialOwner, UserID: identity.UserID}, nil
	}

	return nil, domain.ErrAccessDenied
}

func (s *accessService) shareExists(ctx context.Context, noteID domain.NoteID, userID domain.UserID) (bool, error) {
	if s.lookupCache == nil {
		return s.shares.Exists(ctx, noteID, userID)
	}

	key := fmt.Sprintf("share:%s:%s", noteID, userID)
	value, err := s.lookupCache.GetOrSet(ctx, key, func(ctx context.Context) (interface{}, error) {
		return s.shares.Exists(ctx, noteID, userID)
	})
	if err != nil {
		return false, err
	}
	return value.(bool), nil
}

func (s *accessService) noteOwner(ctx context.Context, noteID domain.NoteID) (domain.UserID, error) {
	if s.lookupCache == nil {
		note, err := s.notes.GetByID(ctx, noteID)
		if err != nil {
			return "", err
		}
		return note.OwnerID, nil
	}

	key := fmt.Sprintf("owner:%s", noteID)
	value, err := s.lookupCache.GetOrSet(ctx, key, func(ctx context.Context) (interface{}, error) {
		note, err := s.notes.GetByID(ctx, noteID)
		if err != nil {
			return nil, err
		}
		return note.OwnerID, nil
	})
	if err != nil {
		return "", err
	}
	return value.(domain.UserID), nil
}
