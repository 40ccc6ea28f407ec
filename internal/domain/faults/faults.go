// Package faults defines the error taxonomy shared by every service. All
// five kinds are terminal for the triggering request; only ErrConflict on
// case assignment is eligible for a bounded local retry.
package faults

import "errors"

var (
	// ErrNotFound: unknown user, case, message or moderator.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState: operation against a case not in the required status.
	ErrInvalidState = errors.New("invalid state")

	// ErrPolicyViolation: decision disallowed by business rule.
	ErrPolicyViolation = errors.New("policy violation")

	// ErrForbidden: caller lacks the moderator or admin capability.
	ErrForbidden = errors.New("forbidden")

	// ErrConflict: assignment race lost to another moderator.
	ErrConflict = errors.New("conflict")
)
