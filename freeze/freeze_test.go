package freeze

import (
	"testing"
	"time"
)

func TestAllowedOutsideWindow(t *testing.T) {
	c := NewChecker()
	c.AddWindow(Window{BodyName: "congress", Start: day(10), End: day(12)})

	if !c.Allowed("congress", day(5)) {
		t.Fatal("expected allowed before window")
	}
	if !c.Allowed("congress", day(13)) {
		t.Fatal("expected allowed after window")
	}
}

func TestBlockedInsideWindow(t *testing.T) {
	c := NewChecker()
	c.AddWindow(Window{BodyName: "congress", Start: day(10), End: day(12)})

	if c.Allowed("congress", day(11)) {
		t.Fatal("expected blocked inside window")
	}
	if err := c.Check("congress", day(11)); err != ErrFrozen {
		t.Fatalf("expected ErrFrozen, got %v", err)
	}
}

func TestOverrideLiftsFreezeOnceFullyApproved(t *testing.T) {
	c := NewChecker()
	c.AddWindow(Window{BodyName: "congress", Start: day(10), End: day(12)})
	o := c.RequestOverride("congress", "emergency redraw", day(10), day(12))

	if c.Allowed("congress", day(11)) {
		t.Fatal("expected still blocked before any approvals")
	}

	_ = c.Approve(o, "reviewer1", "alice")
	_ = c.Approve(o, "reviewer2", "bob")
	if o.IsFullyApproved() {
		t.Fatal("expected not fully approved with 2 of 3 signoffs")
	}
	if c.Allowed("congress", day(11)) {
		t.Fatal("expected still blocked with partial approval")
	}

	_ = c.Approve(o, "admin", "carol")
	if !o.IsFullyApproved() {
		t.Fatal("expected fully approved with all 3 signoffs")
	}
	if !c.Allowed("congress", day(11)) {
		t.Fatal("expected allowed once override is fully approved")
	}
}

func day(n int) time.Time {
	return time.Date(2026, 1, n, 0, 0, 0, 0, time.UTC)
}
