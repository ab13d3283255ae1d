package relay

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"pharmachat/pkg/interfaces"
	"pharmachat/pkg/types"
)

// Service is the relay façade. It accepts inbound envelopes from the
// transport layer, dispatches them by type, and owns the single
// serialization point for all registry, queue and session mutation.
//
// Locking discipline: every read or write of the registry, the offline
// queue and the session relations happens under mu. Transport writes are
// fire-and-forget and happen outside the lock, on handles resolved
// inside it, so a slow client cannot stall routing for everyone else.
type Service struct {
	mu       sync.Mutex
	registry *registry
	queue    *offlineQueue
	auth     interfaces.Authenticator
}

// NewService creates a relay service using the given authenticator.
func NewService(auth interfaces.Authenticator) *Service {
	return &Service{
		registry: newRegistry(),
		queue:    newOfflineQueue(),
		auth:     auth,
	}
}

// outbound pairs a resolved transport handle with the envelope to write
// to it. Handlers collect these under the lock and send after unlocking.
type outbound struct {
	conn    interfaces.Conn
	payload interface{}
}

func (s *Service) send(writes []outbound) {
	for _, w := range writes {
		if err := w.conn.WriteJSON(w.payload); err != nil {
			log.Printf("Failed to write to connection %s: %v", w.conn.ID(), err)
		}
	}
}

// Accept starts tracking a newly established transport connection. The
// connection is unauthenticated until a successful auth envelope.
func (s *Service) Accept(conn interfaces.Conn) {
	s.mu.Lock()
	s.registry.add(conn)
	s.mu.Unlock()

	log.Printf("Connection accepted: id=%s", conn.ID())
}

// HandleInbound parses one raw client frame and dispatches by envelope
// type. Unparseable data and unknown tags are rejected with an error
// envelope; the connection stays open.
func (s *Service) HandleInbound(conn interfaces.Conn, data []byte) {
	var in types.Inbound
	if err := json.Unmarshal(data, &in); err != nil {
		s.sendError(conn, errInvalidFormat)
		return
	}

	switch in.Type {
	case types.MessageTypeAuth:
		s.handleAuth(conn, in.Token)
	case types.MessageTypeMessage:
		s.handleChatMessage(conn, &in)
	case types.MessageTypeTyping:
		s.handleTyping(conn, &in)
	case types.MessageTypeRead:
		s.handleReadReceipt(conn, &in)
	default:
		s.sendError(conn, errUnknownType)
	}
}

// handleAuth verifies the credential, attaches the identity, flushes any
// buffered messages for it and creates the role session. The buffered
// messages are delivered before the auth_success acknowledgment.
func (s *Service) handleAuth(conn interfaces.Conn, token string) {
	identity, err := s.auth.Verify(token)
	if err != nil {
		log.Printf("Authentication failed for connection %s: %v", conn.ID(), err)
		s.sendError(conn, errInvalidToken)
		return
	}

	var replaced interfaces.Conn

	s.mu.Lock()
	state, ok := s.registry.get(conn.ID())
	if !ok {
		state = s.registry.add(conn)
	}
	state.identity = identity
	state.authenticated = true

	// A second login with the same identity, either role, replaces the
	// previous connection: its session is dropped here and the transport
	// closed after the lock is released.
	if identity.Role == types.RolePharmacist {
		if old, ok := s.registry.pharmacistByIdentity(identity.ID); ok && old.state.conn.ID() != conn.ID() {
			replaced = old.state.conn
			s.registry.remove(replaced.ID())
		}
	} else {
		if old, ok := s.registry.userByIdentity(identity.ID); ok && old.state.conn.ID() != conn.ID() {
			replaced = old.state.conn
			s.registry.remove(replaced.ID())
		}
	}

	pending := s.queue.flushAndClear(identity.ID)

	if identity.Role == types.RolePharmacist {
		_, err = s.registry.registerPharmacist(state)
	} else {
		_, err = s.registry.registerUser(state)
	}
	s.mu.Unlock()

	if err != nil {
		// Unreachable in practice: the state was just authenticated.
		log.Printf("Session registration failed for %s: %v", identity.ID, err)
		s.sendError(conn, errInvalidToken)
		return
	}

	for _, msg := range pending {
		if werr := conn.WriteJSON(msg); werr != nil {
			log.Printf("Failed to replay buffered message %s to %s: %v", msg.ID, identity.ID, werr)
		}
	}
	if werr := conn.WriteJSON(types.NewAuthSuccess(identity)); werr != nil {
		log.Printf("Failed to send auth_success to %s: %v", identity.ID, werr)
	}

	if replaced != nil {
		_ = replaced.Close()
	}

	log.Printf("Authenticated connection %s: user=%s role=%s", conn.ID(), identity.ID, identity.Role)
}

// MarkAlive records a heartbeat acknowledgment for a connection. Called
// from the transport's pong handler, out of band with message handling.
func (s *Service) MarkAlive(conn interfaces.Conn) {
	s.mu.Lock()
	if state, ok := s.registry.get(conn.ID()); ok {
		state.alive = true
	}
	s.mu.Unlock()
}

// HandleDisconnect runs disconnection handling for a connection.
// Idempotent: transport close and heartbeat death may both fire for the
// same connection, and the second call is a no-op.
func (s *Service) HandleDisconnect(conn interfaces.Conn) {
	s.mu.Lock()
	notices := s.disconnectLocked(conn.ID())
	s.mu.Unlock()

	s.send(notices)
}

// disconnectLocked removes a connection and produces the system notices
// its peers should receive. Callers hold s.mu. Lookup misses (e.g. a
// stale assignment) degrade to no-ops rather than propagating failures.
func (s *Service) disconnectLocked(connID string) []outbound {
	state, ok := s.registry.get(connID)
	if !ok {
		return nil
	}

	var notices []outbound

	if ps, ok := s.registry.pharmacists[connID]; ok {
		for userID := range ps.activeChats {
			if us, ok := s.registry.userByIdentity(userID); ok {
				notices = append(notices, outbound{us.state.conn, types.NewSystemNotice(noticePharmacistGone)})
			}
		}
	} else if us, ok := s.registry.users[connID]; ok {
		if us.assignedPharmacist != "" {
			if ps, ok := s.registry.pharmacists[us.assignedPharmacist]; ok {
				delete(ps.activeChats, us.state.identity.ID)
				notice := fmt.Sprintf("User %s disconnected", us.state.identity.Name)
				notices = append(notices, outbound{ps.state.conn, types.NewSystemNotice(notice)})
			}
		}
	}

	s.registry.remove(connID)

	if state.identity != nil {
		log.Printf("Connection closed: id=%s user=%s", connID, state.identity.ID)
	} else {
		log.Printf("Connection closed: id=%s (unauthenticated)", connID)
	}
	return notices
}

// sweep performs one heartbeat pass: connections that did not
// acknowledge the previous probe are declared dead and removed through
// the normal disconnection path; the rest are marked pending and probed
// again. A connection that stays silent is therefore terminated after
// more than one and at most two intervals.
func (s *Service) sweep() {
	var (
		dead    []interfaces.Conn
		probe   []interfaces.Conn
		notices []outbound
	)

	s.mu.Lock()
	for connID, state := range s.registry.conns {
		if !state.alive {
			dead = append(dead, state.conn)
			notices = append(notices, s.disconnectLocked(connID)...)
			continue
		}
		state.alive = false
		probe = append(probe, state.conn)
	}
	s.mu.Unlock()

	s.send(notices)
	for _, conn := range dead {
		log.Printf("Heartbeat timeout, terminating connection %s", conn.ID())
		_ = conn.Close()
	}
	for _, conn := range probe {
		if err := conn.Ping(); err != nil {
			log.Printf("Failed to ping connection %s: %v", conn.ID(), err)
		}
	}
}

// Stats returns relay counters for monitoring endpoints.
func (s *Service) Stats() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := s.registry.stats()
	queued := 0
	for _, msgs := range s.queue.pending {
		queued += len(msgs)
	}
	stats["queued_messages"] = queued
	return stats
}

func (s *Service) sendError(conn interfaces.Conn, message string) {
	if err := conn.WriteJSON(types.NewErrorNotice(message)); err != nil {
		log.Printf("Failed to send error to connection %s: %v", conn.ID(), err)
	}
}
