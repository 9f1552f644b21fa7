package domain

import "time"

// DefaultInviteTTL is how long a guest invite stays valid after issue.
const DefaultInviteTTL = 7 * 24 * time.Hour

// Invite is a time-limited, note-scoped guest credential. It is not bound to
// a user identity: anyone presenting a non-expired token for the matching
// note joins as a guest.
type Invite struct {
	Token     string
	NoteID    NoteID
	Email     string
	ExpiresAt time.Time
	CreatedAt time.Time
}

func (i *Invite) Expired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}

// ShareGrant is a durable (note, user) access record, independent of invites.
// Existence implies that user may open the note and join its live channel.
type ShareGrant struct {
	NoteID    NoteID
	UserID    UserID
	CreatedAt time.Time
}
