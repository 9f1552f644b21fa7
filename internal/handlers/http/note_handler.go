package http

import (
	stderrors "errors"
	"net/http"
	"time"

	"notemesh/internal/core/domain"
	"notemesh/internal/core/ports"
	"notemesh/internal/core/services"
	"notemesh/internal/infrastructure/middleware"
	"notemesh/pkg/errors"
	"notemesh/pkg/validation"

	"github.com/gin-gonic/gin"
)

type NoteHandler struct {
	noteService ports.NoteService
	authService services.AuthService
}

func NewNoteHandler(noteService ports.NoteService, authService services.AuthService) *NoteHandler {
	return &NoteHandler{
		noteService: noteService,
		authService: authService,
	}
}

func (h *NoteHandler) SetupRoutes(router *gin.Engine) {
	authed := router.Group("/api/v1/notes")
	authed.Use(middleware.AuthMiddleware(h.authService))
	{
		authed.POST("", h.CreateNote)
		authed.GET("", h.ListNotes)
		authed.GET("/categories", h.ListCategories)
		authed.DELETE("/:id", h.DeleteNote)
	}

	// Reads and edits also admit invite guests, who carry a token instead
	// of a JWT.
	open := router.Group("/api/v1/notes")
	open.Use(middleware.OptionalAuthMiddleware(h.authService))
	{
		open.GET("/:id", h.GetNote)
		open.PUT("/:id", h.UpdateNote)
	}
}

type CreateNoteRequest struct {
	Title    string `json:"title" binding:"max=255"`
	Content  string `json:"content"`
	Category string `json:"category" binding:"max=50"`
}

type UpdateNoteRequest struct {
	Title    string `json:"title" binding:"max=255"`
	Content  string `json:"content"`
	Category string `json:"category" binding:"max=50"`
}

type NoteResponse struct {
	ID        domain.NoteID     `json:"id"`
	Title     string            `json:"title"`
	Content   string            `json:"content"`
	OwnerID   domain.UserID     `json:"owner_id"`
	Category  domain.CategoryID `json:"category,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

func noteResponse(note *domain.Note) NoteResponse {
	return NoteResponse{
		ID:        note.ID,
		Title:     note.Title,
		Content:   note.Content,
		OwnerID:   note.OwnerID,
		Category:  note.Category(),
		CreatedAt: note.CreatedAt,
		UpdatedAt: note.UpdatedAt,
	}
}

func (h *NoteHandler) CreateNote(c *gin.Context) {
	var req CreateNoteRequest
	if err := c.BindJSON(&req); err != nil {
		c.Error(errors.NewInvalidInputError("invalid request format"))
		return
	}
	if err := validation.ValidateNoteContent(req.Content); err != nil {
		c.Error(errors.NewInvalidInputError(err.Error()))
		return
	}

	note, err := h.noteService.CreateNote(
		c.Request.Context(),
		currentUserID(c),
		req.Title,
		req.Content,
		domain.CategoryID(req.Category),
	)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, noteResponse(note))
}

func (h *NoteHandler) GetNote(c *gin.Context) {
	noteID := domain.NoteID(c.Param("id"))
	if err := validation.ValidateNoteID(string(noteID)); err != nil {
		c.Error(errors.NewInvalidInputError(err.Error()))
		return
	}

	note, err := h.noteService.GetNote(c.Request.Context(), noteID, currentIdentity(c), c.Query("token"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, noteResponse(note))
}

func (h *NoteHandler) UpdateNote(c *gin.Context) {
	noteID := domain.NoteID(c.Param("id"))
	if err := validation.ValidateNoteID(string(noteID)); err != nil {
		c.Error(errors.NewInvalidInputError(err.Error()))
		return
	}

	var req UpdateNoteRequest
	if err := c.BindJSON(&req); err != nil {
		c.Error(errors.NewInvalidInputError("invalid request format"))
		return
	}
	if err := validation.ValidateNoteContent(req.Content); err != nil {
		c.Error(errors.NewInvalidInputError(err.Error()))
		return
	}

	note, err := h.noteService.UpdateNote(
		c.Request.Context(),
		noteID,
		currentIdentity(c),
		c.Query("token"),
		req.Title,
		req.Content,
		domain.CategoryID(req.Category),
	)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, noteResponse(note))
}

func (h *NoteHandler) DeleteNote(c *gin.Context) {
	noteID := domain.NoteID(c.Param("id"))
	if err := validation.ValidateNoteID(string(noteID)); err != nil {
		c.Error(errors.NewInvalidInputError(err.Error()))
		return
	}

	if err := h.noteService.DeleteNote(c.Request.Context(), noteID, currentUserID(c)); err != nil {
		h.handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *NoteHandler) ListNotes(c *gin.Context) {
	notes, err := h.noteService.ListNotes(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.handleError(c, err)
		return
	}

	out := make([]NoteResponse, 0, len(notes))
	for _, note := range notes {
		out = append(out, noteResponse(note))
	}
	c.JSON(http.StatusOK, gin.H{"notes": out})
}

func (h *NoteHandler) ListCategories(c *gin.Context) {
	categories, err := h.noteService.ListCategories(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

func (h *NoteHandler) handleError(c *gin.Context, err error) {
	switch {
	case stderrors.Is(err, domain.ErrNoteNotFound):
		c.Error(errors.NewNotFoundError("note"))
	case stderrors.Is(err, domain.ErrAccessDenied):
		c.Error(errors.NewForbiddenError("access denied"))
	default:
		c.Error(errors.Wrap(err, errors.ErrCodeInternal, "internal error", http.StatusInternalServerError))
	}
}

// currentUserID returns the authenticated user's ID. Routes behind
// AuthMiddleware always have one.
func currentUserID(c *gin.Context) domain.UserID {
	if v, ok := c.Get("user_id"); ok {
		if id, ok := v.(domain.UserID); ok {
			return id
		}
	}
	return ""
}

// currentIdentity returns the caller's identity, or nil for anonymous
// requests on optional-auth routes.
func currentIdentity(c *gin.Context) *domain.Identity {
	if v, ok := c.Get("identity"); ok {
		if identity, ok := v.(*domain.Identity); ok {
			return identity
		}
	}
	return nil
}
