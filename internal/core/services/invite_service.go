package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"notemesh/internal/core/domain"
	"notemesh/internal/core/ports"
	"notemesh/pkg/retry"
	"notemesh/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type inviteService struct {
	notes   ports.NoteRepository
	invites ports.InviteRepository
	shares  ports.ShareRepository
	users   ports.UserRepository

	mailer    ports.Mailer
	mailRetry retry.Config

	inviteTTL   time.Duration
	frontendURL string

	now    func() time.Time
	logger *zap.SugaredLogger
}

func NewInviteService(
	notes ports.NoteRepository,
	invites ports.InviteRepository,
	shares ports.ShareRepository,
	users ports.UserRepository,
	mailer ports.Mailer,
	inviteTTL time.Duration,
	frontendURL string,
	logger *zap.SugaredLogger,
) ports.InviteService {
	if inviteTTL <= 0 {
		inviteTTL = domain.DefaultInviteTTL
	}
	return &inviteService{
		notes:       notes,
		invites:     invites,
		shares:      shares,
		users:       users,
		mailer:      mailer,
		mailRetry:   retry.DefaultConfig(),
		inviteTTL:   inviteTTL,
		frontendURL: frontendURL,
		now:         time.Now,
		logger:      logger,
	}
}

// InviteGuest issues a time-limited guest token for a note and mails the
// invite link. The invited email is resolved to an account (created on the
// fly when unknown) which receives a durable share grant, so access outlives
// the token. Only the note owner may invite, and the owner cannot invite
// themselves. Returns the invite and the link sent to the guest.
func (s *inviteService) InviteGuest(ctx context.Context, noteID domain.NoteID, owner domain.UserID, email string) (*domain.Invite, string, error) {
	note, err := s.notes.GetByID(ctx, noteID)
	if err != nil {
		return nil, "", err
	}
	if !note.IsOwner(owner) {
		return nil, "", domain.ErrAccessDenied
	}

	guest, err := s.resolveUser(ctx, email)
	if err != nil {
		return nil, "", fmt.Errorf("resolve invited user: %w", err)
	}
	if note.IsOwner(guest.ID) {
		return nil, "", domain.ErrSelfShare
	}

	invite := &domain.Invite{
		Token:     uuid.New().String(),
		NoteID:    noteID,
		Email:     email,
		ExpiresAt: s.now().Add(s.inviteTTL),
		CreatedAt: s.now(),
	}
	if err := s.invites.Create(ctx, invite); err != nil {
		return nil, "", fmt.Errorf("create invite: %w", err)
	}

	if err := s.grantShare(ctx, noteID, guest.ID); err != nil {
		return nil, "", fmt.Errorf("grant invited user access: %w", err)
	}

	link := fmt.Sprintf("%s/note/%s/?token=%s", s.frontendURL, noteID, invite.Token)

	s.sendMail(ctx, email,
		"You've been invited to collaborate on a note!",
		fmt.Sprintf("You've been invited to collaborate on the note titled %q. Access it using this link:\n%s", note.Title, link),
	)

	return invite, link, nil
}

// ShareNote grants a user durable access to a note and mails a notification.
// Only the note owner may share, and a note cannot be shared with its owner.
func (s *inviteService) ShareNote(ctx context.Context, noteID domain.NoteID, owner domain.UserID, userID domain.UserID, email string) error {
	note, err := s.notes.GetByID(ctx, noteID)
	if err != nil {
		return err
	}
	if !note.IsOwner(owner) {
		return domain.ErrAccessDenied
	}
	if note.IsOwner(userID) {
		return domain.ErrSelfShare
	}

	exists, err := s.shares.Exists(ctx, noteID, userID)
	if err != nil {
		return fmt.Errorf("share lookup: %w", err)
	}
	if exists {
		return domain.ErrAlreadyShared
	}

	grant := &domain.ShareGrant{
		NoteID:    noteID,
		UserID:    userID,
		CreatedAt: s.now(),
	}
	if err := s.shares.Create(ctx, grant); err != nil {
		return fmt.Errorf("create share grant: %w", err)
	}

	link := fmt.Sprintf("%s/note/%s", s.frontendURL, noteID)
	s.sendMail(ctx, email,
		"A note has been shared with you!",
		fmt.Sprintf("A note titled %q has been shared with you. Access it here:\n%s", note.Title, link),
	)

	return nil
}

// resolveUser finds the account for an email, creating one when none exists
// yet. A lost create race falls back to the winner's record.
func (s *inviteService) resolveUser(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	user = &domain.User{
		ID:        domain.UserID(utils.GenerateUserID()),
		Username:  strings.SplitN(email, "@", 2)[0],
		Email:     email,
		CreatedAt: s.now(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if existing, getErr := s.users.GetByEmail(ctx, email); getErr == nil {
			return existing, nil
		}
		return nil, err
	}
	return user, nil
}

// grantShare records durable access, treating an existing grant as success.
func (s *inviteService) grantShare(ctx context.Context, noteID domain.NoteID, userID domain.UserID) error {
	grant := &domain.ShareGrant{
		NoteID:    noteID,
		UserID:    userID,
		CreatedAt: s.now(),
	}
	if err := s.shares.Create(ctx, grant); err != nil && !errors.Is(err, domain.ErrAlreadyShared) {
		return err
	}
	return nil
}

// sendMail delivers asynchronously with retry; mail failure never fails the
// invite or share itself.
func (s *inviteService) sendMail(ctx context.Context, to, subject, body string) {
	if s.mailer == nil || to == "" {
		return
	}

	go func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		err := retry.Retry(sendCtx, s.mailRetry, func() error {
			return s.mailer.Send(sendCtx, to, subject, body)
		})
		if err != nil {
			s.logger.Warnw("invite mail delivery failed", "to", to, "subject", subject, "error", err)
		}
	}()
}
