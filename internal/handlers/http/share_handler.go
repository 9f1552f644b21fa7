package http

import (
	stderrors "errors"
	"net/http"
	"strings"

	"notemesh/internal/core/domain"
	"notemesh/internal/core/ports"
	"notemesh/internal/core/services"
	"notemesh/internal/infrastructure/middleware"
	"notemesh/pkg/errors"
	"notemesh/pkg/validation"

	"github.com/gin-gonic/gin"
)

type ShareHandler struct {
	inviteService ports.InviteService
	authService   services.AuthService
}

func NewShareHandler(inviteService ports.InviteService, authService services.AuthService) *ShareHandler {
	return &ShareHandler{
		inviteService: inviteService,
		authService:   authService,
	}
}

func (h *ShareHandler) SetupRoutes(router *gin.Engine) {
	api := router.Group("/api/v1/notes")
	api.Use(middleware.AuthMiddleware(h.authService))
	{
		api.POST("/:id/invite", h.InviteGuest)
		api.POST("/:id/share", h.ShareNote)
	}
}

type InviteGuestRequest struct {
	Email string `json:"email" binding:"required,email,max=254"`
}

type ShareNoteRequest struct {
	UserID string `json:"user_id" binding:"required,max=64"`
	Email  string `json:"email" binding:"omitempty,email,max=254"`
}

// InviteGuest issues a guest invite for a note and mails the access link.
func (h *ShareHandler) InviteGuest(c *gin.Context) {
	noteID := domain.NoteID(c.Param("id"))
	if err := validation.ValidateNoteID(string(noteID)); err != nil {
		c.Error(errors.NewInvalidInputError(err.Error()))
		return
	}

	var req InviteGuestRequest
	if err := c.BindJSON(&req); err != nil {
		c.Error(errors.NewInvalidInputError("invalid request format"))
		return
	}
	email := strings.TrimSpace(strings.ToLower(req.Email))
	if err := validation.ValidateEmail(email); err != nil {
		c.Error(errors.NewInvalidInputError(err.Error()))
		return
	}

	invite, link, err := h.inviteService.InviteGuest(c.Request.Context(), noteID, currentUserID(c), email)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"token":      invite.Token,
		"link":       link,
		"expires_at": invite.ExpiresAt,
	})
}

// ShareNote grants another user durable access to a note.
func (h *ShareHandler) ShareNote(c *gin.Context) {
	noteID := domain.NoteID(c.Param("id"))
	if err := validation.ValidateNoteID(string(noteID)); err != nil {
		c.Error(errors.NewInvalidInputError(err.Error()))
		return
	}

	var req ShareNoteRequest
	if err := c.BindJSON(&req); err != nil {
		c.Error(errors.NewInvalidInputError("invalid request format"))
		return
	}

	err := h.inviteService.ShareNote(
		c.Request.Context(),
		noteID,
		currentUserID(c),
		domain.UserID(req.UserID),
		strings.TrimSpace(strings.ToLower(req.Email)),
	)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"status": "shared"})
}

func (h *ShareHandler) handleError(c *gin.Context, err error) {
	switch {
	case stderrors.Is(err, domain.ErrNoteNotFound):
		c.Error(errors.NewNotFoundError("note"))
	case stderrors.Is(err, domain.ErrAccessDenied):
		c.Error(errors.NewForbiddenError("only the owner can share a note"))
	case stderrors.Is(err, domain.ErrSelfShare):
		c.Error(errors.NewInvalidInputError("cannot share a note with its owner"))
	case stderrors.Is(err, domain.ErrAlreadyShared):
		c.Error(errors.NewConflictError("note already shared with this user"))
	default:
		c.Error(errors.Wrap(err, errors.ErrCodeInternal, "internal error", http.StatusInternalServerError))
	}
}
