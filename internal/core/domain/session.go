package domain

// ClientID identifies one editing client inside a note's room. It is chosen
// by the client and relayed opaquely with every delta.
type ClientID string

// CredentialKind records which credential admitted a connection to a note's
// live channel. Admission is evaluated once, at connect time; a credential
// expiring mid-session does not force a disconnect.
type CredentialKind string

const (
	CredentialOwner  CredentialKind = "owner"
	CredentialShare  CredentialKind = "share"
	CredentialInvite CredentialKind = "invite"
)

// Admission is the positive outcome of an access check.
type Admission struct {
	NoteID NoteID
	Kind   CredentialKind
	UserID UserID // empty for invite guests
}
