// Package freeze guards plan mutations against a submission-deadline
// window. Adapted from the teacher's election-blackout/blackout.go: the
// same "blackout window + approved override" shape, repointed from
// polling-day voter-facing blackouts to a legislative body's map
// submission deadline, with the per-voter BlockedAction/AllowedAction
// enums (no counterpart here) dropped.
package freeze

import (
	"errors"
	"time"
)

// Errors returned by Checker.
var (
	ErrFrozen               = errors.New("freeze: plan mutation blocked, submission window closed")
	ErrOverrideNotApproved  = errors.New("freeze: override request not approved")
	ErrInsufficientApprovals = errors.New("freeze: insufficient approvals for override")
)

// RequiredApprovals mirrors the teacher's two-founder-plus-legal sign-off
// requirement, repointed to a plan-edit override: two reviewers plus one
// administrator.
const RequiredApprovals = 3

// Window is a submission-deadline freeze period for one legislative body.
type Window struct {
	BodyName string
	Start    time.Time
	End      time.Time
}

func (w Window) active(at time.Time) bool {
	return (at.After(w.Start) || at.Equal(w.Start)) && at.Before(w.End)
}

// Override lifts a freeze for one body once fully approved.
type Override struct {
	BodyName string
	Reason   string
	Start    time.Time
	End      time.Time

	Approval1By string
	Approval2By string
	AdminBy     string
}

func (o *Override) approvals() int {
	n := 0
	if o.Approval1By != "" {
		n++
	}
	if o.Approval2By != "" {
		n++
	}
	if o.AdminBy != "" {
		n++
	}
	return n
}

// IsFullyApproved reports whether the override has every required signoff.
func (o *Override) IsFullyApproved() bool {
	return o.approvals() >= RequiredApprovals
}

func (o *Override) active(at time.Time) bool {
	return o.IsFullyApproved() && (at.After(o.Start) || at.Equal(o.Start)) && at.Before(o.End)
}

// Checker holds freeze windows and overrides for a set of legislative
// bodies and answers whether a mutation may proceed.
type Checker struct {
	windows   map[string][]Window
	overrides map[string][]*Override
}

// NewChecker builds a Checker with no windows configured.
func NewChecker() *Checker {
	return &Checker{
		windows:   make(map[string][]Window),
		overrides: make(map[string][]*Override),
	}
}

// AddWindow registers a freeze window for a body.
func (c *Checker) AddWindow(w Window) {
	c.windows[w.BodyName] = append(c.windows[w.BodyName], w)
}

// RequestOverride creates a pending override request; it has no effect
// until approvals reach RequiredApprovals.
func (c *Checker) RequestOverride(bodyName, reason string, start, end time.Time) *Override {
	o := &Override{BodyName: bodyName, Reason: reason, Start: start, End: end}
	c.overrides[bodyName] = append(c.overrides[bodyName], o)
	return o
}

// Approve records one approval on an override request. approverType is
// one of "reviewer1", "reviewer2", "admin".
func (c *Checker) Approve(o *Override, approverType, approverName string) error {
	switch approverType {
	case "reviewer1":
		o.Approval1By = approverName
	case "reviewer2":
		o.Approval2By = approverName
	case "admin":
		o.AdminBy = approverName
	default:
		return errors.New("freeze: unknown approver type " + approverType)
	}
	return nil
}

// Allowed reports whether a plan mutation for bodyName may proceed at the
// given time: true unless a freeze window is active and no fully-approved
// override covers it.
func (c *Checker) Allowed(bodyName string, at time.Time) bool {
	frozen := false
	for _, w := range c.windows[bodyName] {
		if w.active(at) {
			frozen = true
			break
		}
	}
	if !frozen {
		return true
	}
	for _, o := range c.overrides[bodyName] {
		if o.active(at) {
			return true
		}
	}
	return false
}

// Check returns ErrFrozen if the mutation should be blocked.
func (c *Checker) Check(bodyName string, at time.Time) error {
	if c.Allowed(bodyName, at) {
		return nil
	}
	return ErrFrozen
}
