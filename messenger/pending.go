package messenger

import (
	"sync"

	pc "github.com/wippyai/platform-channels"
)

// pendingTable maps correlation ids to reply callbacks. Ids increase
// monotonically and are never reused, so a late reply for a consumed or
// abandoned id always misses.
type pendingTable struct {
	entries map[pc.ReplyID]pc.BinaryReply
	next    pc.ReplyID
	mu      sync.Mutex
	closed  bool
}

func newPendingTable() *pendingTable {
	return &pendingTable{
		entries: make(map[pc.ReplyID]pc.BinaryReply, 16),
	}
}

// add stores callback and returns its id. It returns false once the table
// is closed.
func (t *pendingTable) add(callback pc.BinaryReply) (pc.ReplyID, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return pc.NoReply, false
	}
	t.next++
	t.entries[t.next] = callback
	return t.next, true
}

// take removes and returns the callback for id.
func (t *pendingTable) take(id pc.ReplyID) (pc.BinaryReply, bool) {
	if id == pc.NoReply {
		return nil, false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	cb, ok := t.entries[id]
	if ok {
		delete(t.entries, id)
	}
	return cb, ok
}

func (t *pendingTable) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// close discards every entry without invoking it and returns how many were
// abandoned.
func (t *pendingTable) close() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return 0
	}
	t.closed = true
	n := len(t.entries)
	t.entries = nil
	return n
}
