package pipeline

import (
	"context"
	"time"
)

// Store is the persistence contract the Engine drives. The production
// implementation lives in internal/store/postgres; tests use an
// in-memory fake.
//
// Mutating methods are atomic: CreateApplication writes the application
// row and its creation history entry together, and TransitionStage
// performs the stage compare-and-swap plus the history append in one
// transaction, so concurrent readers never observe one without the
// other.
type Store interface {
	// GetApplication returns ErrNotFound when the id is unknown.
	GetApplication(ctx context.Context, id string) (*Application, error)

	// FindApplication looks up the unique application for a
	// (candidate, job) pair; ErrNotFound when none exists.
	FindApplication(ctx context.Context, candidateID, jobID string) (*Application, error)

	// CreateApplication inserts a new application at StageApplied and
	// appends the creation history entry (nil previous stage, actor =
	// candidate). Returns ErrConflict when the pair already applied.
	CreateApplication(ctx context.Context, candidateID, jobID string) (*Application, error)

	// TransitionStage updates the stage only if it still equals from,
	// appending the matching history entry in the same transaction.
	// A lost race (stage no longer equals from) returns ErrConflict;
	// a missing row returns ErrNotFound.
	TransitionStage(ctx context.Context, id string, from, to Stage, actorID string) (*Application, error)

	// ListHistory returns an application's audit trail ordered by
	// change time, oldest first.
	ListHistory(ctx context.Context, applicationID string) ([]HistoryEntry, error)

	// GetJob returns ErrNotFound when the id is unknown.
	GetJob(ctx context.Context, id string) (*Job, error)

	// GetUser returns ErrNotFound when the id is unknown.
	GetUser(ctx context.Context, id string) (*User, error)

	// ListCompanyRecruiters returns every recruiter belonging to a
	// company, for new-application notices.
	ListCompanyRecruiters(ctx context.Context, companyID string) ([]User, error)

	// ListByCandidate returns a candidate's applications, newest first.
	ListByCandidate(ctx context.Context, candidateID string) ([]Application, error)

	// ListByJob returns a job's applications, newest first, optionally
	// filtered to a single stage.
	ListByJob(ctx context.Context, jobID string, stage *Stage) ([]Application, error)

	// ListStale returns applications whose stage is non-terminal and
	// whose last update is older than the cutoff.
	ListStale(ctx context.Context, cutoff time.Time) ([]Application, error)
}

// Notifier is the fire-and-forget notification contract. Enqueue must
// never block the caller and must never surface a failure; delivery is
// the notification collaborator's concern.
type Notifier interface {
	Enqueue(recipient, subject, body string)

	// PublishStageChanged emits the stage-change event consumed by the
	// gateway's SSE forwarder. Best-effort.
	PublishStageChanged(applicationID, candidateID, from, to string)
}
