package tape

import "main/internal/model"

// DefaultCapacity bounds the tape at the 50 most recent trades.
const DefaultCapacity = 50

// Tape is a bounded log of executed trades. Pushes overwrite the oldest
// entry once the capacity is reached; Snapshot returns newest-first.
type Tape struct {
	buf   []model.Trade
	next  int
	count int
}

// New allocates a tape with the given capacity (DefaultCapacity if <= 0).
func New(capacity int) *Tape {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Tape{buf: make([]model.Trade, capacity)}
}

// Push records a trade, discarding the oldest when full.
func (t *Tape) Push(tr model.Trade) {
	t.buf[t.next] = tr
	t.next = (t.next + 1) % len(t.buf)
	if t.count < len(t.buf) {
		t.count++
	}
}

// Len returns the number of retained trades.
func (t *Tape) Len() int {
	return t.count
}

// Newest returns the most recent trade, if any.
func (t *Tape) Newest() (model.Trade, bool) {
	if t.count == 0 {
		return model.Trade{}, false
	}
	idx := (t.next - 1 + len(t.buf)) % len(t.buf)
	return t.buf[idx], true
}

// Snapshot copies the retained trades, newest first.
func (t *Tape) Snapshot() []model.Trade {
	out := make([]model.Trade, t.count)
	for i := 0; i < t.count; i++ {
		idx := (t.next - 1 - i + len(t.buf)*2) % len(t.buf)
		out[i] = t.buf[idx]
	}
	return out
}
