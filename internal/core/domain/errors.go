package domain

import "errors"

var (
	ErrNoteNotFound     = errors.New("note not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrInviteNotFound   = errors.New("invite not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrAlreadyShared    = errors.New("note already shared with user")
	ErrSelfShare        = errors.New("user is the owner of the note")

	// ErrAccessDenied is a policy denial: no valid credential for the note.
	// It carries no detail about whether the note exists.
	ErrAccessDenied = errors.New("access denied")

	// ErrAccessCheckFailed means the credential store could not be consulted.
	// It is treated as a denial at the connection boundary but must stay
	// distinguishable from ErrAccessDenied in logs and metrics.
	ErrAccessCheckFailed = errors.New("access check failed")
)
