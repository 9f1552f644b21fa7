package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	// EmailRegex validates email format
	EmailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

	// NoteIDRegex validates note ID format
	NoteIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

	// ClientIDRegex validates the client-supplied editing identifier
	ClientIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

// ValidateEmail validates email address
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("email is required")
	}
	if len(email) > 254 {
		return fmt.Errorf("email is too long (max 254 characters)")
	}
	if !EmailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format")
	}
	return nil
}

// ValidateNoteID validates note ID
func ValidateNoteID(noteID string) error {
	if noteID == "" {
		return fmt.Errorf("note ID is required")
	}
	if len(noteID) > 100 {
		return fmt.Errorf("note ID is too long (max 100 characters)")
	}
	if !NoteIDRegex.MatchString(noteID) {
		return fmt.Errorf("invalid note ID format")
	}
	return nil
}

// ValidateClientID validates a client-supplied editing identifier.
func ValidateClientID(clientID string) error {
	if clientID == "" {
		return fmt.Errorf("client ID is required")
	}
	if len(clientID) > 100 {
		return fmt.Errorf("client ID is too long (max 100 characters)")
	}
	if !ClientIDRegex.MatchString(clientID) {
		return fmt.Errorf("invalid client ID format")
	}
	return nil
}

// ValidateNoteTitle validates a note title.
func ValidateNoteTitle(title string) error {
	if utf8.RuneCountInString(title) > 255 {
		return fmt.Errorf("title is too long (max 255 characters)")
	}
	return nil
}

// ValidateNoteContent bounds note content size.
func ValidateNoteContent(content string) error {
	if len(content) > 1<<20 {
		return fmt.Errorf("content is too large (max 1 MiB)")
	}
	return nil
}

// ValidateCategoryName validates a category name.
func ValidateCategoryName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("category name is required")
	}
	if utf8.RuneCountInString(name) > 100 {
		return fmt.Errorf("category name is too long (max 100 characters)")
	}
	return nil
}
