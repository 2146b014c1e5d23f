package pipeline

import "time"

// Application is one candidate's submission to one job. Exactly one
// application exists per (candidate, job) pair; the stage field is the
// state-machine instance and is mutated only through the Engine.
type Application struct {
	ID          string    `json:"id"`
	CandidateID string    `json:"candidateId"`
	JobID       string    `json:"jobId"`
	Stage       Stage     `json:"stage"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// HistoryEntry is one immutable audit record of a stage change.
// FromStage is nil for the creation event only.
type HistoryEntry struct {
	ID            string    `json:"id"`
	ApplicationID string    `json:"applicationId"`
	FromStage     *Stage    `json:"fromStage"`
	ToStage       Stage     `json:"toStage"`
	ActorID       string    `json:"actorId"`
	ChangedAt     time.Time `json:"changedAt"`
}

// Job status values. The engine only reads jobs; CRUD lives elsewhere.
const (
	JobStatusOpen   = "open"
	JobStatusClosed = "closed"
)

// Job carries the fields the engine reads when a candidate applies.
type Job struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Status    string `json:"status"`
	CompanyID string `json:"companyId"`
}

// User is the identity record behind an actor. The engine reads users
// only to resolve notification recipients.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FullName  string `json:"fullName"`
	Role      Role   `json:"role"`
	CompanyID string `json:"companyId"`
}

// TransitionResult is returned by ChangeStage so callers see both sides
// of the transition.
type TransitionResult struct {
	Application *Application `json:"application"`
	From        Stage        `json:"oldStage"`
	To          Stage        `json:"newStage"`
}
