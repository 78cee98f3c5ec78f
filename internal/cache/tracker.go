package cache

import (
	"sync"
	"time"
)

// Default tunables for the in-flight tracker.
const (
	DefaultSettleWindow = 2 * time.Second
	DefaultMaxHold      = 30 * time.Second
)

type inflight struct {
	pending   int
	deletes   int // deletions marked and not released
	deleted   bool
	holdUntil time.Time // hard expiry while calls are pending
	settledAt time.Time // zero until the last pending call settles
}

// Tracker is the set of task ids owned by outstanding mutations. An id stays
// marked while any owning call is pending (at most MaxHold), and for the
// settle window after the last one finishes.
type Tracker struct {
	mu      sync.Mutex
	now     func() time.Time
	settle  time.Duration
	maxHold time.Duration
	entries map[string]*inflight
}

// TrackerOption customizes a Tracker.
type TrackerOption func(*Tracker)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) { t.now = now }
}

// WithSettleWindow sets how long ids stay marked after their call returns.
func WithSettleWindow(d time.Duration) TrackerOption {
	return func(t *Tracker) { t.settle = d }
}

// WithMaxHold bounds how long a pending call can keep an id marked.
func WithMaxHold(d time.Duration) TrackerOption {
	return func(t *Tracker) { t.maxHold = d }
}

func NewTracker(opts ...TrackerOption) *Tracker {
	t := &Tracker{
		now:     time.Now,
		settle:  DefaultSettleWindow,
		maxHold: DefaultMaxHold,
		entries: map[string]*inflight{},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Mark records a pending mutation on each id.
func (t *Tracker) Mark(ids ...string) {
	t.mark(false, ids)
}

// MarkDeleted records a pending deletion; refresh must not resurrect the ids.
func (t *Tracker) MarkDeleted(ids ...string) {
	t.mark(true, ids)
}

func (t *Tracker) mark(deleted bool, ids []string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	for _, id := range ids {
		e := t.liveLocked(id, now)
		if e == nil {
			e = &inflight{}
			t.entries[id] = e
		}
		e.pending++
		if deleted {
			e.deletes++
			e.deleted = true
		}
		e.holdUntil = now.Add(t.maxHold)
		e.settledAt = time.Time{}
	}
}

// Settle records that one owning call for each id has returned successfully.
// The id stays marked for the settle window once nothing else is pending.
func (t *Tracker) Settle(ids ...string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	for _, id := range ids {
		e, ok := t.entries[id]
		if !ok {
			continue
		}
		if e.pending > 0 {
			e.pending--
		}
		if e.pending == 0 {
			e.settledAt = now
		}
	}
}

// Release records that one owning call for each id failed. The entry is
// dropped once no other call on the id is pending, so the next refresh
// takes the store's row.
func (t *Tracker) Release(ids ...string) {
	t.release(false, ids)
}

// ReleaseDeleted is Release for ids marked with MarkDeleted. The failed
// deletion stops hiding the row unless another deletion is outstanding.
func (t *Tracker) ReleaseDeleted(ids ...string) {
	t.release(true, ids)
}

func (t *Tracker) release(deleted bool, ids []string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, id := range ids {
		e, ok := t.entries[id]
		if !ok {
			continue
		}
		if e.pending > 0 {
			e.pending--
		}
		if deleted && e.deletes > 0 {
			e.deletes--
			e.deleted = e.deletes > 0
		}
		if e.pending == 0 {
			delete(t.entries, id)
		}
	}
}

// IsMarked reports whether id is currently protected from refresh.
func (t *Tracker) IsMarked(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.liveLocked(id, t.now()) != nil
}

// IsDeleted reports whether id is protected as a pending deletion.
func (t *Tracker) IsDeleted(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	e := t.liveLocked(id, t.now())
	return e != nil && e.deleted
}

// Marked returns every live id, for diagnostics.
func (t *Tracker) Marked() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	var ids []string
	for id := range t.entries {
		if t.liveLocked(id, now) != nil {
			ids = append(ids, id)
		}
	}
	return ids
}

// liveLocked returns the entry for id, pruning it if expired.
func (t *Tracker) liveLocked(id string, now time.Time) *inflight {
	e, ok := t.entries[id]
	if !ok {
		return nil
	}
	expired := false
	if e.pending > 0 {
		expired = !now.Before(e.holdUntil)
	} else {
		expired = !now.Before(e.settledAt.Add(t.settle))
	}
	if expired {
		delete(t.entries, id)
		return nil
	}
	return e
}
