package relay

import (
	"pharmachat/pkg/types"
)

// offlineQueue buffers message envelopes for recipients that are not
// connected. Entries are keyed by recipient identity ID and flushed in
// full, in enqueue order, exactly once when the recipient authenticates.
// Only message envelopes are buffered; typing indicators and read
// receipts are best-effort and never queued.
//
// Like the registry, the queue is mutated only under the relay service
// mutex and is not safe for concurrent use on its own.
type offlineQueue struct {
	pending map[string][]*types.ChatMessage
}

func newOfflineQueue() *offlineQueue {
	return &offlineQueue{pending: make(map[string][]*types.ChatMessage)}
}

// enqueue appends a message to the recipient's buffer, creating the
// entry on first use. Insertion order is the arrival order at the
// router (FIFO).
func (q *offlineQueue) enqueue(recipientID string, msg *types.ChatMessage) {
	q.pending[recipientID] = append(q.pending[recipientID], msg)
}

// flushAndClear removes and returns the recipient's buffered messages in
// original enqueue order. Returns nil when nothing is pending, so a
// second flush for the same recipient delivers nothing.
func (q *offlineQueue) flushAndClear(recipientID string) []*types.ChatMessage {
	msgs := q.pending[recipientID]
	delete(q.pending, recipientID)
	return msgs
}

// depth returns the number of buffered messages for a recipient.
func (q *offlineQueue) depth(recipientID string) int {
	return len(q.pending[recipientID])
}
