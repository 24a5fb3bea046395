package traffic

import (
	"fmt"
	"testing"
	"time"
)

func TestConflictLogBounded(t *testing.T) {
	now := time.Unix(0, 0)
	l := NewConflictLog(time.Minute, 3)
	for i := 0; i < 5; i++ {
		l.Add(now, fmt.Sprintf("c%d", i))
	}
	got := l.Active(now)
	if len(got) != 3 {
		t.Fatalf("expected 3 entries got %d", len(got))
	}
	if got[0].Message != "c2" || got[2].Message != "c4" {
		t.Fatalf("unexpected order %v", got)
	}
}

func TestConflictLogEvictsOnAppend(t *testing.T) {
	now := time.Unix(0, 0)
	l := NewConflictLog(5*time.Second, 10)
	l.Add(now, "old")
	l.Add(now.Add(time.Second), "mid")
	l.Add(now.Add(6*time.Second), "new")
	if l.Len() != 2 {
		t.Fatalf("expected expired entry evicted, len=%d", l.Len())
	}
	if got := l.Active(now.Add(20 * time.Second)); len(got) != 0 {
		t.Fatalf("expected empty log got %v", got)
	}
	if l.Len() != 0 {
		t.Fatalf("expected len 0 got %d", l.Len())
	}
}

func TestConflictLogDefaultCapacity(t *testing.T) {
	l := NewConflictLog(time.Second, 0)
	if l.capacity != 256 {
		t.Fatalf("expected default capacity, got %d", l.capacity)
	}
}
