package pipeline

import "errors"

// Sentinel errors returned by the engine and the store. The transport
// layer maps these onto HTTP status codes; nothing else is exported to
// callers.
var (
	// ErrNotFound is returned when an application or job is missing.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned for a duplicate application or a lost
	// stage-update race.
	ErrConflict = errors.New("conflict")

	// ErrForbidden is returned when the caller's role may not perform
	// the requested action.
	ErrForbidden = errors.New("forbidden")

	// ErrIllegalTransition is returned when the requested stage is not
	// an outgoing edge of the current stage, including any request
	// against a terminal stage.
	ErrIllegalTransition = errors.New("illegal transition")

	// ErrUnknownStage is returned for a stage value outside the enum.
	ErrUnknownStage = errors.New("unknown stage")
)
