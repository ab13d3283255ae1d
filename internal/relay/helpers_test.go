package relay

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"pharmachat/pkg/types"
)

var errFakeClosed = errors.New("fake connection closed")

// fakeConn implements interfaces.Conn and records everything written to
// it, standing in for a websocket transport.
type fakeConn struct {
	id string

	mu         sync.Mutex
	writes     []interface{}
	pings      int
	closed     bool
	failWrites bool
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id}
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.failWrites {
		return errFakeClosed
	}
	c.writes = append(c.writes, v)
	return nil
}

func (c *fakeConn) Ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errFakeClosed
	}
	c.pings++
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) pingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pings
}

func (c *fakeConn) written() []interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]interface{}, len(c.writes))
	copy(out, c.writes)
	return out
}

func (c *fakeConn) writeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.writes)
}

// envelopeType extracts the wire type tag from a recorded write.
func envelopeType(v interface{}) string {
	switch e := v.(type) {
	case *types.AuthSuccess:
		return e.Type
	case *types.ChatMessage:
		return e.Type
	case *types.MessageStatus:
		return e.Type
	case *types.TypingNotice:
		return e.Type
	case *types.ReadReceipt:
		return e.Type
	case *types.SystemNotice:
		return e.Type
	case *types.ErrorNotice:
		return e.Type
	default:
		return ""
	}
}

// lastErrorMessage returns the message of the most recent error
// envelope written to the connection, or "".
func lastErrorMessage(c *fakeConn) string {
	writes := c.written()
	for i := len(writes) - 1; i >= 0; i-- {
		if e, ok := writes[i].(*types.ErrorNotice); ok {
			return e.Message
		}
	}
	return ""
}

// fakeAuthenticator maps tokens to identities.
type fakeAuthenticator struct {
	identities map[string]*types.Identity
}

var errFakeBadToken = errors.New("token not recognized")

func (a *fakeAuthenticator) Verify(token string) (*types.Identity, error) {
	if identity, ok := a.identities[token]; ok {
		return identity, nil
	}
	return nil, errFakeBadToken
}

func newTestService() *Service {
	return NewService(&fakeAuthenticator{identities: map[string]*types.Identity{
		"user-token-1":  {ID: "u1", Username: "alice", Name: "Alice", Role: types.RoleUser},
		"user-token-2":  {ID: "u2", Username: "bob", Name: "Bob", Role: types.RoleUser},
		"pharm-token-1": {ID: "p1", Username: "carol", Name: "Carol", Role: types.RolePharmacist},
		"pharm-token-2": {ID: "p2", Username: "dave", Name: "Dave", Role: types.RolePharmacist},
	}})
}

func inbound(t *testing.T, in *types.Inbound) []byte {
	t.Helper()
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("Failed to marshal inbound envelope: %v", err)
	}
	return data
}

// authenticate connects and authenticates a fake connection, asserting
// the handshake succeeds.
func authenticate(t *testing.T, s *Service, conn *fakeConn, token string) {
	t.Helper()
	s.Accept(conn)
	s.HandleInbound(conn, inbound(t, &types.Inbound{Type: types.MessageTypeAuth, Token: token}))

	writes := conn.written()
	if len(writes) == 0 {
		t.Fatalf("Expected auth response for token %s, got none", token)
	}
	if envelopeType(writes[len(writes)-1]) != types.MessageTypeAuthSuccess {
		t.Fatalf("Expected auth_success for token %s, got %v", token, writes[len(writes)-1])
	}
}

// assign establishes a pharmacist->user assignment by delivering one
// message, returning once both sides are linked.
func assign(t *testing.T, s *Service, pharmacist, user *fakeConn, userID string) {
	t.Helper()
	s.HandleInbound(pharmacist, inbound(t, &types.Inbound{
		Type:    types.MessageTypeMessage,
		Message: "hello",
		UserID:  userID,
	}))

	writes := user.written()
	if len(writes) == 0 {
		t.Fatal("Assignment message never reached the user")
	}
	if _, ok := writes[len(writes)-1].(*types.ChatMessage); !ok {
		t.Fatalf("Expected delivered chat message, got %T", writes[len(writes)-1])
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	ps, ok := s.registry.pharmacists[pharmacist.ID()]
	if !ok {
		t.Fatal("Pharmacist session missing after assignment")
	}
	if _, ok := ps.activeChats[userID]; !ok {
		t.Fatalf("Expected %s in activeChats after delivered message", userID)
	}
}
