package session

import "testing"

func TestMatchQueue_PairsInArrivalOrder(t *testing.T) {
	q := NewMatchQueue()
	for _, id := range []string{"a", "b", "c"} {
		if !q.Enqueue(QueueEntry{ConnID: "c-" + id, Identity: id}) {
			t.Fatalf("enqueue %s rejected", id)
		}
	}
	a, b, ok := q.DequeuePair()
	if !ok || a.Identity != "a" || b.Identity != "b" {
		t.Fatalf("unexpected pair: %v %v %v", a, b, ok)
	}
	if _, _, ok := q.DequeuePair(); ok {
		t.Fatalf("pair from a single entry")
	}
	if q.Len() != 1 || q.Position("c") != 1 {
		t.Fatalf("leftover state: len=%d pos=%d", q.Len(), q.Position("c"))
	}
}

func TestMatchQueue_DeduplicatesIdentity(t *testing.T) {
	q := NewMatchQueue()
	q.Enqueue(QueueEntry{ConnID: "c1", Identity: "alice"})
	if q.Enqueue(QueueEntry{ConnID: "c2", Identity: "alice"}) {
		t.Fatalf("duplicate identity accepted")
	}
	if q.Enqueue(QueueEntry{ConnID: "c3"}) {
		t.Fatalf("empty identity accepted")
	}
	if q.Len() != 1 {
		t.Fatalf("len=%d", q.Len())
	}
}

func TestMatchQueue_Remove(t *testing.T) {
	q := NewMatchQueue()
	q.Enqueue(QueueEntry{ConnID: "c1", Identity: "alice"})
	q.Enqueue(QueueEntry{ConnID: "c2", Identity: "bob"})
	q.Enqueue(QueueEntry{ConnID: "c3", Identity: "carol"})

	if q.Remove("c1", "bob") {
		t.Fatalf("removed bob from another connection")
	}
	if !q.Remove("c2", "bob") || q.Remove("c2", "bob") {
		t.Fatalf("remove by identity")
	}
	if !q.RemoveConn("c1") {
		t.Fatalf("remove by conn")
	}
	if q.Len() != 1 || q.Position("carol") != 1 {
		t.Fatalf("unexpected queue: len=%d", q.Len())
	}
}
