package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"hireflow/pipeline-service/internal/notify"
)

// maxCASAttempts bounds the reload-and-retry loop when a concurrent
// transition wins the compare-and-swap first.
const maxCASAttempts = 3

// Engine is the lifecycle coordinator: it owns every mutation of an
// application's stage. It is transport-agnostic — usable from any
// handler layer — and safe for concurrent use.
type Engine struct {
	store    Store
	notifier Notifier
}

// NewEngine returns a configured Engine.
func NewEngine(store Store, notifier Notifier) *Engine {
	return &Engine{store: store, notifier: notifier}
}

// ─── Mutations ───────────────────────────────────────────────────────────────

// Apply creates an application for a candidate on an open job. The new
// application starts at StageApplied with its creation history entry
// written atomically. Confirmation mail goes to the candidate and a
// notice to each recruiter of the job's company; both are enqueued
// fire-and-forget and never affect the result.
//
// Errors: ErrForbidden (role is not candidate), ErrNotFound (job),
// ErrConflict (job closed, or duplicate application).
func (e *Engine) Apply(ctx context.Context, candidateID, jobID string, role Role) (*Application, error) {
	if role != RoleCandidate {
		return nil, fmt.Errorf("%w: only candidates may apply", ErrForbidden)
	}

	job, err := e.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != JobStatusOpen {
		return nil, fmt.Errorf("%w: job %s is not open", ErrConflict, jobID)
	}

	// Early out on an existing application. The unique (candidate, job)
	// constraint inside CreateApplication is the real race-safe guard.
	if _, err := e.store.FindApplication(ctx, candidateID, jobID); err == nil {
		return nil, fmt.Errorf("%w: already applied to this job", ErrConflict)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("apply: %w", err)
	}

	app, err := e.store.CreateApplication(ctx, candidateID, jobID)
	if err != nil {
		return nil, err
	}

	e.notifyApplied(ctx, app, job)
	return app, nil
}

// ChangeStage moves an application to a new stage. The decision runs
// against freshly loaded state and commits through a compare-and-swap,
// so two racing calls cannot both apply from the same old stage: the
// loser reloads, re-decides, and after maxCASAttempts surfaces
// ErrConflict. The stage-change mail to the candidate is enqueued
// fire-and-forget after the commit.
//
// Errors: ErrNotFound, ErrUnknownStage, ErrIllegalTransition,
// ErrForbidden, ErrConflict.
func (e *Engine) ChangeStage(ctx context.Context, appID, requestedStage string, role Role, actorID string) (*TransitionResult, error) {
	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		app, err := e.store.GetApplication(ctx, appID)
		if err != nil {
			return nil, err
		}

		next, err := Decide(app.Stage, requestedStage, role)
		if err != nil {
			if attempt > 0 && (errors.Is(err, ErrIllegalTransition) || errors.Is(err, ErrUnknownStage)) {
				// The first decision was valid; a concurrent transition
				// invalidated its premise before our write landed.
				return nil, fmt.Errorf("%w: stage changed concurrently", ErrConflict)
			}
			return nil, err
		}

		updated, err := e.store.TransitionStage(ctx, appID, app.Stage, next, actorID)
		if errors.Is(err, ErrConflict) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("changeStage: %w", err)
		}

		e.notifyStageChanged(ctx, updated, app.Stage, next)
		return &TransitionResult{Application: updated, From: app.Stage, To: next}, nil
	}
	return nil, fmt.Errorf("%w: stage changed concurrently", ErrConflict)
}

// ─── Reads ───────────────────────────────────────────────────────────────────

// GetApplicationFor returns one application. Candidates may only read
// their own; every other role may read any.
func (e *Engine) GetApplicationFor(ctx context.Context, appID, actorID string, role Role) (*Application, error) {
	app, err := e.store.GetApplication(ctx, appID)
	if err != nil {
		return nil, err
	}
	if role == RoleCandidate && app.CandidateID != actorID {
		return nil, fmt.Errorf("%w: not your application", ErrForbidden)
	}
	return app, nil
}

// History returns the ordered audit trail of an application, oldest
// first, with the same visibility rule as GetApplicationFor.
func (e *Engine) History(ctx context.Context, appID, actorID string, role Role) ([]HistoryEntry, error) {
	if _, err := e.GetApplicationFor(ctx, appID, actorID, role); err != nil {
		return nil, err
	}
	return e.store.ListHistory(ctx, appID)
}

// MyApplications returns the caller's own applications, newest first.
// Candidate-only, matching the gateway route it backs.
func (e *Engine) MyApplications(ctx context.Context, actorID string, role Role) ([]Application, error) {
	if role != RoleCandidate {
		return nil, fmt.Errorf("%w: candidates only", ErrForbidden)
	}
	return e.store.ListByCandidate(ctx, actorID)
}

// JobApplications returns a job's applications for recruiting staff,
// optionally filtered to a single stage (normalized like any other
// stage input).
func (e *Engine) JobApplications(ctx context.Context, jobID, stageFilter string, role Role) ([]Application, error) {
	if !canTransition(role) {
		return nil, fmt.Errorf("%w: recruiting roles only", ErrForbidden)
	}

	var stage *Stage
	if stageFilter != "" {
		s, err := ParseStage(stageFilter)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrUnknownStage, stageFilter)
		}
		stage = &s
	}
	return e.store.ListByJob(ctx, jobID, stage)
}

// ─── Notification side effects ───────────────────────────────────────────────
//
// Recipient lookups happen on the request path but are non-fatal: the
// committed mutation is the source of truth, so a failed lookup is
// logged and the mail skipped.

func (e *Engine) notifyApplied(ctx context.Context, app *Application, job *Job) {
	candidate, err := e.store.GetUser(ctx, app.CandidateID)
	if err != nil {
		slog.Warn("applied-mail candidate lookup failed", "candidateId", app.CandidateID, "err", err)
	} else {
		subject, body := notify.StageChangeMail(job.Title, string(StageApplied))
		e.notifier.Enqueue(candidate.Email, subject, body)
	}

	recruiters, err := e.store.ListCompanyRecruiters(ctx, job.CompanyID)
	if err != nil {
		slog.Warn("applied-mail recruiter lookup failed", "companyId", job.CompanyID, "err", err)
		return
	}
	for _, r := range recruiters {
		subject, body := notify.NewApplicationMail(job.Title, candidateEmail(candidate))
		e.notifier.Enqueue(r.Email, subject, body)
	}
}

func (e *Engine) notifyStageChanged(ctx context.Context, app *Application, from, to Stage) {
	e.notifier.PublishStageChanged(app.ID, app.CandidateID, string(from), string(to))

	candidate, err := e.store.GetUser(ctx, app.CandidateID)
	if err != nil {
		slog.Warn("stage-mail candidate lookup failed", "candidateId", app.CandidateID, "err", err)
		return
	}

	jobTitle := app.JobID
	if job, err := e.store.GetJob(ctx, app.JobID); err == nil {
		jobTitle = job.Title
	}

	subject, body := notify.StageChangeMail(jobTitle, string(to))
	e.notifier.Enqueue(candidate.Email, subject, body)
}

func candidateEmail(u *User) string {
	if u == nil {
		return "unknown"
	}
	return u.Email
}
