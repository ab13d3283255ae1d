package interfaces

import (
	"pharmachat/pkg/types"
)

// Authenticator verifies an opaque credential and returns the identity
// it encodes. The relay treats every failure uniformly: the connection
// stays open, no session is created.
type Authenticator interface {
	Verify(token string) (*types.Identity, error)
}
