package domain

import "time"

type NoteID string
type CategoryID string

type Note struct {
	ID                  NoteID
	Title               string
	Content             string
	OwnerID             UserID
	AIGeneratedCategory CategoryID
	UserUpdatedCategory CategoryID
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Category returns the effective category: a user-picked category always
// overrides the AI-generated one.
func (n *Note) Category() CategoryID {
	if n.UserUpdatedCategory != "" {
		return n.UserUpdatedCategory
	}
	return n.AIGeneratedCategory
}

func (n *Note) IsOwner(userID UserID) bool {
	return n.OwnerID == userID
}

type Category struct {
	ID        CategoryID
	Name      string
	OwnerID   UserID
	CreatedAt time.Time
}
