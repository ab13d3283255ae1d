package types

import (
	"time"
)

// Envelope type tags on the relay channel. The first group is accepted
// from clients; the second group is only ever produced by the relay.
const (
	MessageTypeAuth    = "auth"
	MessageTypeMessage = "message"
	MessageTypeTyping  = "typing"
	MessageTypeRead    = "read"

	MessageTypeAuthSuccess   = "auth_success"
	MessageTypeMessageStatus = "message_status"
	MessageTypeReadReceipt   = "read_receipt"
	MessageTypeSystem        = "system"
	MessageTypeError         = "error"
)

// Delivery status values carried on message envelopes.
const (
	StatusSent      = "sent"
	StatusDelivered = "delivered"
)

// Role determines routing direction and privileges.
type Role string

const (
	RoleUser       Role = "user"
	RolePharmacist Role = "pharmacist"
)

// Identity is produced by the authenticator and is immutable once
// attached to a connection.
type Identity struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Role     Role   `json:"role"`
}

// Account is a stored user record. PasswordHash is a bcrypt hash and
// never leaves the database layer.
type Account struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	Name         string `json:"name"`
	PasswordHash string `json:"-"`
	Role         Role   `json:"role"`
}

// Identity returns the wire identity for an account.
func (a *Account) Identity() *Identity {
	return &Identity{
		ID:       a.ID,
		Username: a.Username,
		Name:     a.Name,
		Role:     a.Role,
	}
}

// Inbound is the wire form of a client envelope. Type selects the
// variant; the remaining fields are populated per type and ignored
// otherwise.
type Inbound struct {
	Type      string `json:"type"`
	Token     string `json:"token,omitempty"`
	Message   string `json:"message,omitempty"`
	UserID    string `json:"userId,omitempty"`
	MessageID string `json:"messageId,omitempty"`
}

// ChatMessage is the outbound chat envelope. The relay generates the ID
// and timestamp server-side; clients never supply them.
type ChatMessage struct {
	Type      string    `json:"type"`
	ID        string    `json:"id"`
	From      *Identity `json:"from"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Status    string    `json:"status"`
}
