package pipeline

import (
	"testing"
	"time"
)

func TestQueuePopsEarliestFirst(t *testing.T) {
	q := newPendingQueue()
	base := time.Now()

	q.push(pendingItem{startedAt: base.Add(2 * time.Second), segID: "c"})
	q.push(pendingItem{startedAt: base, segID: "a"})
	q.push(pendingItem{startedAt: base.Add(time.Second), segID: "b"})

	var got []string
	for range 3 {
		item, ok := q.pop(100 * time.Millisecond)
		if !ok {
			t.Fatal("pop returned nothing")
		}
		got = append(got, item.segID)
	}

	want := []string{"a", "b", "c"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("pop order = %v, want %v", got, want)
		}
	}
}

func TestQueuePopTimeout(t *testing.T) {
	q := newPendingQueue()

	start := time.Now()
	if _, ok := q.pop(30 * time.Millisecond); ok {
		t.Fatal("pop returned an item from an empty queue")
	}
	if elapsed := time.Since(start); elapsed < 25*time.Millisecond {
		t.Errorf("pop returned after %v, want it to block for the timeout", elapsed)
	}
}

func TestQueuePopWakesOnPush(t *testing.T) {
	q := newPendingQueue()

	go func() {
		time.Sleep(20 * time.Millisecond)
		q.push(pendingItem{startedAt: time.Now(), segID: "late"})
	}()

	item, ok := q.pop(time.Second)
	if !ok {
		t.Fatal("pop timed out waiting for push")
	}
	if item.segID != "late" {
		t.Errorf("segID = %q, want late", item.segID)
	}
}

func TestQueueDrain(t *testing.T) {
	q := newPendingQueue()
	base := time.Now()
	q.push(pendingItem{startedAt: base.Add(time.Second), segID: "b"})
	q.push(pendingItem{startedAt: base, segID: "a"})

	items := q.drain()
	if len(items) != 2 {
		t.Fatalf("drained %d items, want 2", len(items))
	}
	if items[0].segID != "a" || items[1].segID != "b" {
		t.Errorf("drain order = [%s %s], want [a b]", items[0].segID, items[1].segID)
	}
	if q.len() != 0 {
		t.Errorf("len after drain = %d, want 0", q.len())
	}
}
