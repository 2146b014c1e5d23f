// Package pipeline defines the hiring-pipeline state machine for job
// applications and the engine that drives it.
//
// Valid stage graph:
//
//	Applied ──► Screening ──► Interview ──► Offer ──► Hired
//	    │            │             │           │
//	    └────────────┴─────────────┴───────────┴──► Rejected
//
// Hired and Rejected are terminal stages.
package pipeline

import "strings"

// Stage values mirror the application stage enum in PostgreSQL.
// The canonical form is Title case; ParseStage normalizes input to it.
type Stage string

const (
	StageApplied   Stage = "Applied"
	StageScreening Stage = "Screening"
	StageInterview Stage = "Interview"
	StageOffer     Stage = "Offer"
	StageHired     Stage = "Hired"
	StageRejected  Stage = "Rejected"
)

// allStages lists every member of the enum, in pipeline order.
var allStages = []Stage{
	StageApplied, StageScreening, StageInterview,
	StageOffer, StageHired, StageRejected,
}

// stageTransitions lists every allowed (from → to) pair.
var stageTransitions = map[Stage][]Stage{
	StageApplied:   {StageScreening, StageRejected},
	StageScreening: {StageInterview, StageRejected},
	StageInterview: {StageOffer, StageRejected},
	StageOffer:     {StageHired, StageRejected},
	// Hired and Rejected are terminal — no outgoing transitions
}

// ParseStage converts a raw string to its canonical Stage. Input is
// matched case-insensitively after trimming surrounding whitespace, so
// " screening " parses to StageScreening. Unknown values return
// ErrUnknownStage.
func ParseStage(raw string) (Stage, error) {
	trimmed := strings.TrimSpace(raw)
	for _, s := range allStages {
		if strings.EqualFold(trimmed, string(s)) {
			return s, nil
		}
	}
	return "", ErrUnknownStage
}

// IsValidStage reports whether s is a member of the stage enum in its
// canonical form.
func IsValidStage(s Stage) bool {
	for _, v := range allStages {
		if s == v {
			return true
		}
	}
	return false
}

// IsTransitionAllowed returns true when moving from → to is permitted by
// the stage graph. Self-transitions are never in the graph.
func IsTransitionAllowed(from, to Stage) bool {
	allowed, ok := stageTransitions[from]
	if !ok {
		return false // terminal stage — no outgoing transitions
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// AllowedNext returns the outgoing edge set for a stage. Terminal stages
// return nil.
func AllowedNext(from Stage) []Stage {
	return stageTransitions[from]
}

// IsTerminal returns true when the stage has no outgoing transitions.
func IsTerminal(s Stage) bool {
	_, ok := stageTransitions[s]
	return !ok
}

// IsHired returns true when the stage is Hired (triggers the hired
// notification wording).
func IsHired(s Stage) bool { return s == StageHired }
