// Package queue carries account events over RabbitMQ: the payloads, a
// publisher used by the API and a reconnecting consumer.
package queue

import "time"

// UserRegisteredQueue is the durable queue registration events go to.
const UserRegisteredQueue = "user.registered"

// UserRegisteredEvent is published after a successful registration.  It
// carries everything needed to send the confirmation message without
// reading the database.
type UserRegisteredEvent struct {
	UserID       uint64    `json:"user_id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Token        string    `json:"token"`
	ConfirmURL   string    `json:"confirm_url"`
	RegisteredAt time.Time `json:"registered_at"`
}
