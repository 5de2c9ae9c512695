package session

import "time"

// QueueEntry is one connection waiting for an opponent.
type QueueEntry struct {
	ConnID   string
	Identity string
	QueuedAt time.Time
}

// MatchQueue pairs waiting connections in arrival order.
// It is owned by the engine goroutine and is not safe for concurrent use.
type MatchQueue struct {
	entries []QueueEntry
}

func NewMatchQueue() *MatchQueue { return &MatchQueue{} }

// Enqueue appends the entry unless its identity is already waiting.
func (q *MatchQueue) Enqueue(e QueueEntry) bool {
	if e.Identity == "" || e.ConnID == "" {
		return false
	}
	if q.Position(e.Identity) > 0 {
		return false
	}
	q.entries = append(q.entries, e)
	return true
}

// DequeuePair removes and returns the two oldest entries.
func (q *MatchQueue) DequeuePair() (QueueEntry, QueueEntry, bool) {
	if len(q.entries) < 2 {
		return QueueEntry{}, QueueEntry{}, false
	}
	a, b := q.entries[0], q.entries[1]
	q.entries = append(q.entries[:0], q.entries[2:]...)
	return a, b, true
}

// Remove drops the entry for identity if connID queued it.
func (q *MatchQueue) Remove(connID, identity string) bool {
	return q.removeWhere(func(e QueueEntry) bool { return e.Identity == identity && e.ConnID == connID })
}

// RemoveConn drops every entry held by connID.
func (q *MatchQueue) RemoveConn(connID string) bool {
	return q.removeWhere(func(e QueueEntry) bool { return e.ConnID == connID })
}

func (q *MatchQueue) removeWhere(match func(QueueEntry) bool) bool {
	kept := q.entries[:0]
	removed := false
	for _, e := range q.entries {
		if match(e) {
			removed = true
			continue
		}
		kept = append(kept, e)
	}
	q.entries = kept
	return removed
}

// Position is the 1-based place of identity, or 0 when absent.
func (q *MatchQueue) Position(identity string) int {
	for i, e := range q.entries {
		if e.Identity == identity {
			return i + 1
		}
	}
	return 0
}

func (q *MatchQueue) Len() int { return len(q.entries) }
