package relay

import (
	"pharmachat/pkg/interfaces"
	"pharmachat/pkg/types"
)

// connState is the relay-side record for one accepted transport
// connection, from accept to close. The identity is attached once on
// successful authentication and never changes afterwards.
type connState struct {
	conn          interfaces.Conn
	identity      *types.Identity
	authenticated bool
	alive         bool
}

// userSession is the role state for an authenticated user connection.
// assignedPharmacist holds the connection ID of the pharmacist handling
// this user, or "" when unassigned. The assignment can go stale when the
// pharmacist disconnects; the router treats a stale assignment as "no
// pharmacist assigned", never as an error.
type userSession struct {
	state              *connState
	assignedPharmacist string
}

// pharmacistSession is the role state for an authenticated pharmacist
// connection. activeChats holds the identity IDs of the users currently
// assigned to this pharmacist.
type pharmacistSession struct {
	state       *connState
	activeChats map[string]struct{}
}

// registry owns the set of live connections and their role sessions.
// It is not safe for concurrent use: the relay service serializes every
// access under its own mutex, so the maps are never exposed to
// concurrent callers.
type registry struct {
	conns           map[string]*connState         // connection ID -> state, all accepted connections
	users           map[string]*userSession       // connection ID -> user session
	pharmacists     map[string]*pharmacistSession // connection ID -> pharmacist session
	userIndex       map[string]string             // user identity ID -> connection ID
	pharmacistIndex map[string]string             // pharmacist identity ID -> connection ID
}

func newRegistry() *registry {
	return &registry{
		conns:           make(map[string]*connState),
		users:           make(map[string]*userSession),
		pharmacists:     make(map[string]*pharmacistSession),
		userIndex:       make(map[string]string),
		pharmacistIndex: make(map[string]string),
	}
}

// add starts tracking a freshly accepted connection. Connections start
// unauthenticated and alive (they just produced traffic by connecting).
func (r *registry) add(conn interfaces.Conn) *connState {
	state := &connState{conn: conn, alive: true}
	r.conns[conn.ID()] = state
	return state
}

func (r *registry) get(connID string) (*connState, bool) {
	state, ok := r.conns[connID]
	return state, ok
}

// registerUser creates the user session for an authenticated connection
// and indexes it by identity for O(1) lookup during routing.
func (r *registry) registerUser(state *connState) (*userSession, error) {
	if !state.authenticated {
		return nil, ErrNotAuthenticated
	}
	r.dropSession(state.conn.ID())

	session := &userSession{state: state}
	r.users[state.conn.ID()] = session
	r.userIndex[state.identity.ID] = state.conn.ID()
	return session, nil
}

// registerPharmacist creates the pharmacist session for an authenticated
// connection and indexes it by identity, like registerUser.
func (r *registry) registerPharmacist(state *connState) (*pharmacistSession, error) {
	if !state.authenticated {
		return nil, ErrNotAuthenticated
	}
	r.dropSession(state.conn.ID())

	session := &pharmacistSession{state: state, activeChats: make(map[string]struct{})}
	r.pharmacists[state.conn.ID()] = session
	r.pharmacistIndex[state.identity.ID] = state.conn.ID()
	return session, nil
}

// userByIdentity resolves a user session from a user identity ID via the
// index, in time independent of the connection count.
func (r *registry) userByIdentity(userID string) (*userSession, bool) {
	connID, ok := r.userIndex[userID]
	if !ok {
		return nil, false
	}
	session, ok := r.users[connID]
	return session, ok
}

// pharmacistByIdentity resolves a pharmacist session from an identity ID
// via the index.
func (r *registry) pharmacistByIdentity(pharmacistID string) (*pharmacistSession, bool) {
	connID, ok := r.pharmacistIndex[pharmacistID]
	if !ok {
		return nil, false
	}
	session, ok := r.pharmacists[connID]
	return session, ok
}

// remove stops tracking a connection and drops its session state.
// Idempotent: removing an unknown connection is a no-op. Stale
// assignments pointing at a removed pharmacist are left in place; the
// router degrades them to "no pharmacist assigned".
func (r *registry) remove(connID string) {
	if _, ok := r.conns[connID]; !ok {
		return
	}
	r.dropSession(connID)
	delete(r.conns, connID)
}

// dropSession removes any role session for a connection, keeping the
// one-session-per-connection invariant when a connection re-registers.
func (r *registry) dropSession(connID string) {
	if session, ok := r.users[connID]; ok {
		if session.assignedPharmacist != "" {
			if ps, ok := r.pharmacists[session.assignedPharmacist]; ok {
				delete(ps.activeChats, session.state.identity.ID)
			}
		}
		if r.userIndex[session.state.identity.ID] == connID {
			delete(r.userIndex, session.state.identity.ID)
		}
		delete(r.users, connID)
	}
	if session, ok := r.pharmacists[connID]; ok {
		if r.pharmacistIndex[session.state.identity.ID] == connID {
			delete(r.pharmacistIndex, session.state.identity.ID)
		}
		delete(r.pharmacists, connID)
	}
}

// stats returns registry counters for monitoring.
func (r *registry) stats() map[string]int {
	return map[string]int{
		"connections": len(r.conns),
		"users":       len(r.users),
		"pharmacists": len(r.pharmacists),
	}
}
