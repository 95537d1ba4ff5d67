package usecases

import (
	"sync"
	"time"
)

// fieldGuardTTL is how long an idle form's revision is remembered.
const fieldGuardTTL = time.Hour

type fieldState struct {
	rev     uint64
	pending int
	touched time.Time
}

// FieldGuard tracks manual edits of form location fields. A resolution that
// started before the latest edit of its field is stale. Forms with no
// resolution in flight are forgotten after they have been idle for the TTL.
type FieldGuard struct {
	mu        sync.Mutex
	forms     map[string]*fieldState
	ttl       time.Duration
	now       func() time.Time
	lastSweep time.Time
}

// NewFieldGuard creates an empty FieldGuard.
func NewFieldGuard() *FieldGuard {
	return newFieldGuard(fieldGuardTTL, time.Now)
}

func newFieldGuard(ttl time.Duration, now func() time.Time) *FieldGuard {
	return &FieldGuard{forms: make(map[string]*fieldState), ttl: ttl, now: now, lastSweep: now()}
}

// Begin marks a resolution for formID as in flight and returns the
// revision it started on.
func (g *FieldGuard) Begin(formID string) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	st := g.state(formID)
	st.pending++
	return st.rev
}

// End marks a resolution started by Begin as finished and reports whether
// rev is still the latest revision.
func (g *FieldGuard) End(formID string, rev uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	st := g.state(formID)
	if st.pending > 0 {
		st.pending--
	}
	return st.rev == rev
}

// Edit records a manual edit and returns the new revision.
func (g *FieldGuard) Edit(formID string) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	st := g.state(formID)
	st.rev++
	return st.rev
}

// state returns the entry for formID, creating it if needed. g.mu must be held.
func (g *FieldGuard) state(formID string) *fieldState {
	now := g.now()
	g.sweep(now)
	st, ok := g.forms[formID]
	if !ok {
		st = &fieldState{}
		g.forms[formID] = st
	}
	st.touched = now
	return st
}

// sweep drops idle entries at most once per TTL. g.mu must be held.
func (g *FieldGuard) sweep(now time.Time) {
	if now.Sub(g.lastSweep) < g.ttl {
		return
	}
	g.lastSweep = now
	for id, st := range g.forms {
		if st.pending == 0 && now.Sub(st.touched) >= g.ttl {
			delete(g.forms, id)
		}
	}
}

func (g *FieldGuard) size() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.forms)
}
