package relay

import (
	"log"
	"time"

	"github.com/google/uuid"

	"pharmachat/pkg/interfaces"
	"pharmachat/pkg/types"
)

// Message routing by sender role.
//
// Pharmacist -> user: requires a target user ID. If the target is
// connected, deliver and confirm to the sender; otherwise buffer in the
// offline queue. Buffering is silent: the sender gets no status until a
// delivery actually happens.
//
// User -> pharmacist: requires a live assignment. Deliver only if the
// pharmacist is reachable; user messages are never buffered. This
// asymmetry is deliberate: the resume flow on authentication replays the
// user-bound queue only.

// handleChatMessage routes a message envelope. Every message is either
// delivered immediately or enqueued, exactly once, never both.
func (s *Service) handleChatMessage(conn interfaces.Conn, in *types.Inbound) {
	s.mu.Lock()
	state, ok := s.registry.get(conn.ID())
	if !ok || !state.authenticated {
		s.mu.Unlock()
		s.sendError(conn, errAuthRequired)
		return
	}

	msg := &types.ChatMessage{
		Type:      types.MessageTypeMessage,
		ID:        uuid.New().String(),
		From:      state.identity,
		Content:   in.Message,
		Timestamp: time.Now(),
		Status:    types.StatusSent,
	}
	isPharmacist := state.identity.Role == types.RolePharmacist
	s.mu.Unlock()

	if isPharmacist {
		s.routePharmacistMessage(conn, in, msg)
		return
	}
	s.routeUserMessage(conn, msg)
}

// routePharmacistMessage resolves the target under the lock and writes
// to the transport after releasing it.
func (s *Service) routePharmacistMessage(conn interfaces.Conn, in *types.Inbound, msg *types.ChatMessage) {
	s.mu.Lock()
	_, isPharmacist := s.registry.pharmacists[conn.ID()]
	if !isPharmacist || in.UserID == "" {
		s.mu.Unlock()
		s.sendError(conn, errInvalidRouting)
		return
	}

	target, ok := s.registry.userByIdentity(in.UserID)
	if !ok {
		// Recipient offline: buffer silently, flushed on their next
		// authentication.
		s.queue.enqueue(in.UserID, msg)
		s.mu.Unlock()
		return
	}

	targetConn := target.state.conn
	s.mu.Unlock()

	if err := targetConn.WriteJSON(msg); err != nil {
		// Registered but transport no longer open: treat as offline.
		s.mu.Lock()
		s.queue.enqueue(in.UserID, msg)
		s.mu.Unlock()
		log.Printf("Buffered message %s for offline user %s", msg.ID, in.UserID)
		return
	}

	// First delivered message establishes the assignment, the only
	// point where both sides are known live.
	s.mu.Lock()
	s.assignLocked(conn.ID(), in.UserID)
	s.mu.Unlock()

	if err := conn.WriteJSON(types.NewMessageStatus(msg.ID, types.StatusDelivered)); err != nil {
		log.Printf("Failed to confirm message %s to sender: %v", msg.ID, err)
	}
}

// routeUserMessage resolves the assigned pharmacist under the lock and
// writes to the transport after releasing it.
func (s *Service) routeUserMessage(conn interfaces.Conn, msg *types.ChatMessage) {
	s.mu.Lock()
	session, ok := s.registry.users[conn.ID()]
	if !ok {
		s.mu.Unlock()
		s.sendError(conn, errInvalidRouting)
		return
	}

	// A stale assignment (pharmacist no longer registered) counts as no
	// assignment.
	var pharmacist *pharmacistSession
	if session.assignedPharmacist != "" {
		pharmacist = s.registry.pharmacists[session.assignedPharmacist]
	}
	if pharmacist == nil {
		s.mu.Unlock()
		s.sendError(conn, errNoPharmacist)
		return
	}

	targetConn := pharmacist.state.conn
	s.mu.Unlock()

	if err := targetConn.WriteJSON(msg); err != nil {
		log.Printf("Dropped user message %s: pharmacist unreachable: %v", msg.ID, err)
		return
	}

	if err := conn.WriteJSON(types.NewMessageStatus(msg.ID, types.StatusDelivered)); err != nil {
		log.Printf("Failed to confirm message %s to sender: %v", msg.ID, err)
	}
}

// assignLocked links a user to the pharmacist handling them, keeping the
// relation symmetric. No-op if either side disconnected in the meantime.
func (s *Service) assignLocked(pharmacistConnID, userID string) {
	pharmacist, ok := s.registry.pharmacists[pharmacistConnID]
	if !ok {
		return
	}
	user, ok := s.registry.userByIdentity(userID)
	if !ok {
		return
	}
	user.assignedPharmacist = pharmacistConnID
	pharmacist.activeChats[userID] = struct{}{}
}

// handleTyping routes a best-effort typing indicator: resolved like a
// message for the sender's direction, never enqueued, silently dropped
// when the target is unreachable.
func (s *Service) handleTyping(conn interfaces.Conn, in *types.Inbound) {
	target, senderID, ok := s.resolveIndicatorTarget(conn, in.UserID)
	if !ok {
		return
	}
	// Best-effort: write failures are not reported to the sender.
	_ = target.WriteJSON(types.NewTypingNotice(senderID))
}

// handleReadReceipt routes a best-effort read receipt, passing the
// message ID through unchanged.
func (s *Service) handleReadReceipt(conn interfaces.Conn, in *types.Inbound) {
	if in.MessageID == "" {
		return
	}
	target, senderID, ok := s.resolveIndicatorTarget(conn, in.UserID)
	if !ok {
		return
	}
	_ = target.WriteJSON(types.NewReadReceipt(in.MessageID, senderID))
}

// resolveIndicatorTarget resolves the destination for typing and read
// envelopes: pharmacists address a specific user, users address their
// assigned pharmacist. Returns ok=false when the envelope should be
// dropped; unauthenticated senders additionally get an error envelope.
func (s *Service) resolveIndicatorTarget(conn interfaces.Conn, targetUserID string) (interfaces.Conn, string, bool) {
	s.mu.Lock()

	state, ok := s.registry.get(conn.ID())
	if !ok || !state.authenticated {
		s.mu.Unlock()
		s.sendError(conn, errAuthRequired)
		return nil, "", false
	}
	senderID := state.identity.ID

	if state.identity.Role == types.RolePharmacist {
		if targetUserID == "" {
			s.mu.Unlock()
			return nil, "", false
		}
		target, ok := s.registry.userByIdentity(targetUserID)
		s.mu.Unlock()
		if !ok {
			return nil, "", false
		}
		return target.state.conn, senderID, true
	}

	session, ok := s.registry.users[conn.ID()]
	if !ok || session.assignedPharmacist == "" {
		s.mu.Unlock()
		return nil, "", false
	}
	pharmacist, ok := s.registry.pharmacists[session.assignedPharmacist]
	s.mu.Unlock()
	if !ok {
		return nil, "", false
	}
	return pharmacist.state.conn, senderID, true
}
