package interfaces

import "context"

// Completer produces a chat reply for a user message. It is a separate
// request/response boundary, not part of the relay.
type Completer interface {
	Complete(ctx context.Context, userID, message string) (string, error)
}
