package pipeline

import (
	"fmt"
	"strings"
)

// Role values mirror the user role enum in PostgreSQL.
type Role string

const (
	RoleCandidate     Role = "candidate"
	RoleRecruiter     Role = "recruiter"
	RoleHiringManager Role = "hiring_manager"
	RoleAdmin         Role = "admin"
)

// ParseRole converts a raw string to a Role, returning an error for
// unknown values.
func ParseRole(raw string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(raw)))
	switch r {
	case RoleCandidate, RoleRecruiter, RoleHiringManager, RoleAdmin:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", raw)
}

// canTransition reports whether a role may move applications between
// stages at all. Candidates create applications but never move them;
// admin bypasses the gate entirely.
func canTransition(r Role) bool {
	switch r {
	case RoleRecruiter, RoleHiringManager, RoleAdmin:
		return true
	}
	return false
}

// Decide is the single authority for stage transitions: it validates the
// requested stage, checks the edge against the stage graph, and applies
// the role gate. On success it returns the canonical form of the
// requested stage; otherwise one of ErrUnknownStage, ErrIllegalTransition
// or ErrForbidden. Pure — no I/O, safe for concurrent use.
func Decide(current Stage, requested string, role Role) (Stage, error) {
	next, err := ParseStage(requested)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrUnknownStage, requested)
	}

	// Guard against corrupted state: a stored stage outside the enum
	// should be impossible, but never let it through the edge check.
	if !IsValidStage(current) {
		return "", fmt.Errorf("%w: current stage %q", ErrUnknownStage, current)
	}

	if !IsTransitionAllowed(current, next) {
		return "", fmt.Errorf("%w: %s → %s (allowed: %v)",
			ErrIllegalTransition, current, next, AllowedNext(current))
	}

	if !canTransition(role) {
		return "", fmt.Errorf("%w: role %s may not change stages", ErrForbidden, role)
	}

	return next, nil
}
