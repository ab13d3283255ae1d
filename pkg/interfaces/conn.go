package interfaces

// Conn is the transport handle the relay routes over. Implementations
// must make WriteJSON safe for concurrent use (single-writer pattern)
// and Close idempotent, because transport close and heartbeat death can
// fire for the same connection concurrently.
type Conn interface {
	// ID returns the connection ID generated at accept time.
	ID() string

	// WriteJSON sends a JSON envelope to the client. It returns an
	// error once the connection is closed or the write buffer cannot
	// accept the message.
	WriteJSON(v interface{}) error

	// Ping sends a transport-level liveness probe. The acknowledgment
	// arrives out of band through the transport's pong handler.
	Ping() error

	// Close tears down the transport and releases resources.
	Close() error
}
