// Package queue defines message payloads exchanged over the message broker.
package queue

// PasswordResetQueue is the durable queue reset notifications travel on.
const PasswordResetQueue = "auth.password_reset"

// PasswordResetRequestedEvent is published when a user asks for a password
// reset.  It carries everything the mailer needs to compose the message
// without querying the primary database.
type PasswordResetRequestedEvent struct {
	Email       string `json:"email"`
	FirstName   string `json:"firstname"`
	Token       string `json:"token"`
	ResetURL    string `json:"reset_url"`
	ExpiresAt   string `json:"expires_at"`
	RequestedAt string `json:"requested_at"`
}
