package domain

import "time"

type UserID string

type User struct {
	ID        UserID
	Username  string
	Email     string
	CreatedAt time.Time
}

// Identity is the authenticated caller as resolved by the upstream auth
// layer. The gateway never verifies credentials itself; it only consumes
// the resolved user id.
type Identity struct {
	UserID   UserID
	Username string
}
