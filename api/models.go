package api

import "time"

// Session keys. Their values round-trip through the sealed cookie; consumers
// treat decode failures as "not set".
const (
	// sessionKeyPending holds the LoginChallenge for an in-flight login.
	sessionKeyPending = "pending_login_challenge"
	// sessionKeyAuthenticatedUser holds the identifier of the user that
	// completed verification. Its presence is the authoritative signal
	// for "logged in".
	sessionKeyAuthenticatedUser = "authenticated_user"
)

// LoginChallenge is the pending login record. It exists only inside the
// confidentiality boundary of the session cookie; the challenge value is
// never disclosed elsewhere except in the approve-redirect URL handed to
// the approval service.
type LoginChallenge struct {
	User      string    `json:"user"`
	Challenge string    `json:"challenge"`
	IssuedAt  time.Time `json:"issued_at"`
}
