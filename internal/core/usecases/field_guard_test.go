package usecases

import (
	"fmt"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func TestFieldGuard_EditMakesInFlightStale(t *testing.T) {
	g := NewFieldGuard()

	rev := g.Begin("intake-1")
	g.Edit("intake-1")
	if g.End("intake-1", rev) {
		t.Error("expected the resolution to be stale after an edit")
	}

	rev = g.Begin("intake-1")
	if !g.End("intake-1", rev) {
		t.Error("expected a resolution started after the edit to be current")
	}
}

func TestFieldGuard_EvictsIdleForms(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	g := newFieldGuard(time.Hour, clock.now)

	for i := 0; i < 100; i++ {
		g.Edit(fmt.Sprintf("form-%d", i))
	}
	busy := g.Begin("busy")
	if g.size() != 101 {
		t.Fatalf("expected 101 entries, got %d", g.size())
	}

	clock.t = clock.t.Add(2 * time.Hour)
	g.Edit("fresh")

	if got := g.size(); got != 2 {
		t.Errorf("expected only busy and fresh to remain, got %d entries", got)
	}
	g.Edit("busy")
	if g.End("busy", busy) {
		t.Error("expected the in-flight resolution to survive eviction and see the edit")
	}
}

func TestFieldGuard_KeepsRecentForms(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	g := newFieldGuard(time.Hour, clock.now)

	g.Edit("old")
	clock.t = clock.t.Add(50 * time.Minute)
	g.Edit("recent")
	clock.t = clock.t.Add(20 * time.Minute)
	g.Edit("new")

	// "old" is 70m idle, "recent" only 20m.
	if got := g.size(); got != 2 {
		t.Errorf("expected 2 entries, got %d", got)
	}
	if rev := g.Edit("recent"); rev != 2 {
		t.Errorf("expected recent to keep its revision, got %d", rev)
	}
}
