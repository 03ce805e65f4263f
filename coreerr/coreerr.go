// Package coreerr defines the engine's typed error kinds (spec §7) in the
// teacher's own sentinel-error idiom (data/loader.go, types/types.go):
// package-level sentinels wrapped with fmt.Errorf("%w: ...") at the call
// site, rather than a bespoke exception hierarchy.
package coreerr

import (
	"errors"
	"fmt"
)

// Kind classifies an engine error for callers that need to branch on it
// (e.g. to decide whether a retry makes sense).
type Kind int

const (
	// KindCapacityExceeded: paste or create exceeds max_districts or
	// multi-member caps.
	KindCapacityExceeded Kind = iota
	// KindLockedTarget: assignment directed at a locked district. Mutation
	// entry points return this as a plain false/error, not a panic.
	KindLockedTarget
	// KindVersionMismatch: base_version is not a valid stored version.
	KindVersionMismatch
	// KindGeometryError: the geometry kernel failed a set operation.
	KindGeometryError
	// KindStoreError: the persistent store failed.
	KindStoreError
	// KindInvariantViolation: e.g. combine across plans.
	KindInvariantViolation
)

func (k Kind) String() string {
	switch k {
	case KindCapacityExceeded:
		return "CapacityExceeded"
	case KindLockedTarget:
		return "LockedTarget"
	case KindVersionMismatch:
		return "VersionMismatch"
	case KindGeometryError:
		return "GeometryError"
	case KindStoreError:
		return "StoreError"
	case KindInvariantViolation:
		return "InvariantViolation"
	default:
		return "Unknown"
	}
}

// Sentinel errors for errors.Is comparisons.
var (
	ErrCapacityExceeded   = errors.New("capacity exceeded")
	ErrLockedTarget       = errors.New("target district is locked")
	ErrVersionMismatch    = errors.New("base_version is not a valid stored version")
	ErrGeometryError      = errors.New("geometry kernel operation failed")
	ErrStoreError         = errors.New("persistent store operation failed")
	ErrInvariantViolation = errors.New("invariant violation")
)

var kindSentinels = map[Kind]error{
	KindCapacityExceeded:   ErrCapacityExceeded,
	KindLockedTarget:       ErrLockedTarget,
	KindVersionMismatch:    ErrVersionMismatch,
	KindGeometryError:      ErrGeometryError,
	KindStoreError:         ErrStoreError,
	KindInvariantViolation: ErrInvariantViolation,
}

// Error is the engine's structured error type: a Kind plus a formatted
// message plus an optional wrapped cause, so callers get both
// errors.Is-style classification and a human-readable detail.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	if e.Cause != nil {
		return e.Cause
	}
	return kindSentinels[e.Kind]
}

// Is lets errors.Is match the sentinel of e's Kind even when e wraps a
// separate cause.
func (e *Error) Is(target error) bool {
	return target == kindSentinels[e.Kind]
}

// New builds an *Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error of the given kind wrapping cause.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Is reports whether err is (or wraps) an engine error of the given kind.
func Is(err error, kind Kind) bool {
	return errors.Is(err, kindSentinels[kind])
}
