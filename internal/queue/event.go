// Package queue defines message payloads exchanged over the message broker.
package queue

import "time"

// AuditQueueName is the durable queue carrying AuthEvent messages.
const AuditQueueName = "auth.events"

// Event types published by the auth and media handlers.
const (
    EventUserRegistered = "user.registered"
    EventUserLoggedIn   = "user.logged_in"
    EventUserLoggedOut  = "user.logged_out"
    EventPasswordChange = "user.password_changed"
    EventMediaUploaded  = "media.uploaded"
)

// AuthEvent is published after a security-relevant action succeeds.  It is
// enough for an audit consumer to write a log line without querying the
// identity store.
type AuthEvent struct {
    Type     string    `json:"type"`
    UserID   string    `json:"user_id"`
    Username string    `json:"username"`
    IP       string    `json:"ip,omitempty"`
    Detail   string    `json:"detail,omitempty"`
    At       time.Time `json:"at"`
}
