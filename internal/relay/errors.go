package relay

import "errors"

var (
	ErrNotAuthenticated  = errors.New("connection must be authenticated before registration")
	ErrMonitorRunning    = errors.New("heartbeat monitor is already running")
	ErrMonitorNotRunning = errors.New("heartbeat monitor is not running")
)

// Client-facing error strings sent in error envelopes.
const (
	errInvalidFormat  = "Invalid message format"
	errInvalidToken   = "Invalid token"
	errAuthRequired   = "Authentication required"
	errInvalidRouting = "Invalid message routing"
	errNoPharmacist   = "No pharmacist assigned"
	errUnknownType    = "Unknown message type"
)

// System notice strings.
const (
	noticePharmacistGone = "Pharmacist disconnected. Please wait or try again later."
)
