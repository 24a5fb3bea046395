package traffic

import "time"

// Conflict is a time-stamped contention or critical-condition notice.
type Conflict struct {
	Time    time.Time `json:"time"`
	Message string    `json:"message"`
}

// ConflictLog keeps the conflicts of the last window. Expired entries are
// evicted on every append and read and the log never grows past capacity;
// when full the oldest entry is dropped.
type ConflictLog struct {
	window   time.Duration
	capacity int
	entries  []Conflict
	start    int
	size     int
}

// NewConflictLog returns a log retaining entries younger than window.
func NewConflictLog(window time.Duration, capacity int) *ConflictLog {
	if capacity <= 0 {
		capacity = 256
	}
	return &ConflictLog{window: window, capacity: capacity, entries: make([]Conflict, capacity)}
}

// Add appends a conflict observed at now.
func (l *ConflictLog) Add(now time.Time, msg string) Conflict {
	l.evict(now)
	c := Conflict{Time: now, Message: msg}
	if l.size == l.capacity {
		l.start = (l.start + 1) % l.capacity
		l.size--
	}
	l.entries[(l.start+l.size)%l.capacity] = c
	l.size++
	return c
}

// Active returns the conflicts still inside the window, oldest first.
func (l *ConflictLog) Active(now time.Time) []Conflict {
	l.evict(now)
	out := make([]Conflict, l.size)
	for i := 0; i < l.size; i++ {
		out[i] = l.entries[(l.start+i)%l.capacity]
	}
	return out
}

// Len returns the number of retained entries.
func (l *ConflictLog) Len() int { return l.size }

func (l *ConflictLog) evict(now time.Time) {
	for l.size > 0 {
		head := l.entries[l.start]
		if now.Sub(head.Time) < l.window {
			return
		}
		l.entries[l.start] = Conflict{}
		l.start = (l.start + 1) % l.capacity
		l.size--
	}
}
