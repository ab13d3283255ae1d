package types

// AuthSuccess acknowledges a successful authentication.
type AuthSuccess struct {
	Type string    `json:"type"`
	User *Identity `json:"user"`
}

// NewAuthSuccess builds an auth_success envelope for an identity.
func NewAuthSuccess(user *Identity) *AuthSuccess {
	return &AuthSuccess{Type: MessageTypeAuthSuccess, User: user}
}

// MessageStatus confirms delivery of a previously sent message.
type MessageStatus struct {
	Type      string `json:"type"`
	MessageID string `json:"messageId"`
	Status    string `json:"status"`
}

// NewMessageStatus builds a message_status envelope.
func NewMessageStatus(messageID, status string) *MessageStatus {
	return &MessageStatus{Type: MessageTypeMessageStatus, MessageID: messageID, Status: status}
}

// TypingNotice is the best-effort typing indicator. UserID identifies
// the participant who is typing.
type TypingNotice struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
}

// NewTypingNotice builds a typing envelope.
func NewTypingNotice(userID string) *TypingNotice {
	return &TypingNotice{Type: MessageTypeTyping, UserID: userID}
}

// ReadReceipt is the best-effort read acknowledgment. The message ID is
// passed through from the sender unchanged.
type ReadReceipt struct {
	Type      string `json:"type"`
	MessageID string `json:"messageId"`
	UserID    string `json:"userId"`
}

// NewReadReceipt builds a read_receipt envelope.
func NewReadReceipt(messageID, userID string) *ReadReceipt {
	return &ReadReceipt{Type: MessageTypeReadReceipt, MessageID: messageID, UserID: userID}
}

// SystemNotice carries relay-generated notifications such as peer
// disconnection notices.
type SystemNotice struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// NewSystemNotice builds a system envelope.
func NewSystemNotice(message string) *SystemNotice {
	return &SystemNotice{Type: MessageTypeSystem, Message: message}
}

// ErrorNotice reports a per-connection failure. No error is fatal to the
// connection; the transport stays open after one is sent.
type ErrorNotice struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// NewErrorNotice builds an error envelope.
func NewErrorNotice(message string) *ErrorNotice {
	return &ErrorNotice{Type: MessageTypeError, Message: message}
}
