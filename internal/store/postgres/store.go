// Package postgres implements pipeline.Store on PostgreSQL via pgx.
//
// Atomicity rules: CreateApplication and TransitionStage each run in a
// single transaction so the application row and its history entry are
// observed together or not at all. The stage update is a conditional
// write (WHERE stage = expected), so a lost race surfaces as
// pipeline.ErrConflict instead of silently overwriting.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"hireflow/pipeline-service/internal/pipeline"
)

const appColumns = `id, candidate_id, job_id, stage, created_at, updated_at`

// Store is the production pipeline.Store.
type Store struct {
	pool *pgxpool.Pool
}

// New returns a Store backed by the given pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// ─── Applications ────────────────────────────────────────────────────────────

// GetApplication fetches one application by id.
func (s *Store) GetApplication(ctx context.Context, id string) (*pipeline.Application, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+appColumns+` FROM applications WHERE id = $1`, id)
	return scanApplication(row)
}

// FindApplication fetches the unique application for a (candidate, job) pair.
func (s *Store) FindApplication(ctx context.Context, candidateID, jobID string) (*pipeline.Application, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+appColumns+` FROM applications WHERE candidate_id = $1 AND job_id = $2`,
		candidateID, jobID)
	return scanApplication(row)
}

// CreateApplication inserts an application at Applied plus its creation
// history entry in one transaction. The unique (candidate_id, job_id)
// constraint rejects duplicates via ON CONFLICT DO NOTHING.
func (s *Store) CreateApplication(ctx context.Context, candidateID, jobID string) (*pipeline.Application, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("createApplication begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var a pipeline.Application
	err = tx.QueryRow(ctx,
		`INSERT INTO applications (candidate_id, job_id, stage)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (candidate_id, job_id) DO NOTHING
		 RETURNING `+appColumns,
		candidateID, jobID, string(pipeline.StageApplied),
	).Scan(&a.ID, &a.CandidateID, &a.JobID, &a.Stage, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: already applied to this job", pipeline.ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("createApplication insert: %w", err)
	}

	// Creation event: previous stage is absent, actor is the candidate.
	_, err = tx.Exec(ctx,
		`INSERT INTO application_history (application_id, from_stage, to_stage, actor_id)
		 VALUES ($1, NULL, $2, $3)`,
		a.ID, string(pipeline.StageApplied), candidateID)
	if err != nil {
		return nil, fmt.Errorf("createApplication history: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("createApplication commit: %w", err)
	}
	return &a, nil
}

// TransitionStage performs the conditional stage update and appends the
// history entry in one transaction.
func (s *Store) TransitionStage(ctx context.Context, id string, from, to pipeline.Stage, actorID string) (*pipeline.Application, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("transitionStage begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var a pipeline.Application
	err = tx.QueryRow(ctx,
		`UPDATE applications
		 SET stage = $1, updated_at = NOW()
		 WHERE id = $2 AND stage = $3
		 RETURNING `+appColumns,
		string(to), id, string(from),
	).Scan(&a.ID, &a.CandidateID, &a.JobID, &a.Stage, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		// Missing row or a lost race — look once more to tell them apart.
		var exists bool
		if qerr := s.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM applications WHERE id = $1)`, id,
		).Scan(&exists); qerr == nil && !exists {
			return nil, fmt.Errorf("%w: application %s", pipeline.ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: stage changed concurrently", pipeline.ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("transitionStage update: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO application_history (application_id, from_stage, to_stage, actor_id)
		 VALUES ($1, $2, $3, $4)`,
		a.ID, string(from), string(to), actorID)
	if err != nil {
		return nil, fmt.Errorf("transitionStage history: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("transitionStage commit: %w", err)
	}
	return &a, nil
}

// ListHistory returns an application's audit trail, oldest first.
func (s *Store) ListHistory(ctx context.Context, applicationID string) ([]pipeline.HistoryEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, application_id, from_stage, to_stage, actor_id, changed_at
		 FROM application_history
		 WHERE application_id = $1
		 ORDER BY changed_at ASC, id ASC`,
		applicationID)
	if err != nil {
		return nil, fmt.Errorf("listHistory query: %w", err)
	}
	defer rows.Close()

	entries := make([]pipeline.HistoryEntry, 0)
	for rows.Next() {
		var e pipeline.HistoryEntry
		if err := rows.Scan(&e.ID, &e.ApplicationID, &e.FromStage, &e.ToStage, &e.ActorID, &e.ChangedAt); err != nil {
			return nil, fmt.Errorf("listHistory scan: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ─── Jobs & users ────────────────────────────────────────────────────────────

// GetJob fetches one job by id.
func (s *Store) GetJob(ctx context.Context, id string) (*pipeline.Job, error) {
	var j pipeline.Job
	err := s.pool.QueryRow(ctx,
		`SELECT id, title, status, company_id FROM jobs WHERE id = $1`, id,
	).Scan(&j.ID, &j.Title, &j.Status, &j.CompanyID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: job %s", pipeline.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("getJob: %w", err)
	}
	return &j, nil
}

// GetUser fetches one user by id.
func (s *Store) GetUser(ctx context.Context, id string) (*pipeline.User, error) {
	var u pipeline.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, full_name, role, COALESCE(company_id::text, '')
		 FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Email, &u.FullName, &u.Role, &u.CompanyID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: user %s", pipeline.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("getUser: %w", err)
	}
	return &u, nil
}

// ListCompanyRecruiters returns every recruiter of a company.
func (s *Store) ListCompanyRecruiters(ctx context.Context, companyID string) ([]pipeline.User, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, email, full_name, role, COALESCE(company_id::text, '')
		 FROM users
		 WHERE role = $1 AND company_id = $2`,
		string(pipeline.RoleRecruiter), companyID)
	if err != nil {
		return nil, fmt.Errorf("listCompanyRecruiters query: %w", err)
	}
	defer rows.Close()

	users := make([]pipeline.User, 0)
	for rows.Next() {
		var u pipeline.User
		if err := rows.Scan(&u.ID, &u.Email, &u.FullName, &u.Role, &u.CompanyID); err != nil {
			return nil, fmt.Errorf("listCompanyRecruiters scan: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// ─── Listings ────────────────────────────────────────────────────────────────

// ListByCandidate returns a candidate's applications, newest first.
func (s *Store) ListByCandidate(ctx context.Context, candidateID string) ([]pipeline.Application, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+appColumns+` FROM applications
		 WHERE candidate_id = $1
		 ORDER BY updated_at DESC`,
		candidateID)
	if err != nil {
		return nil, fmt.Errorf("listByCandidate query: %w", err)
	}
	return collectApplications(rows)
}

// ListByJob returns a job's applications, newest first, optionally
// filtered to one stage.
func (s *Store) ListByJob(ctx context.Context, jobID string, stage *pipeline.Stage) ([]pipeline.Application, error) {
	const base = `SELECT ` + appColumns + ` FROM applications WHERE job_id = $1`

	var (
		rows pgx.Rows
		err  error
	)
	if stage != nil {
		rows, err = s.pool.Query(ctx, base+` AND stage = $2 ORDER BY updated_at DESC`, jobID, string(*stage))
	} else {
		rows, err = s.pool.Query(ctx, base+` ORDER BY updated_at DESC`, jobID)
	}
	if err != nil {
		return nil, fmt.Errorf("listByJob query: %w", err)
	}
	return collectApplications(rows)
}

// ListStale returns non-terminal applications not updated since cutoff.
func (s *Store) ListStale(ctx context.Context, cutoff time.Time) ([]pipeline.Application, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+appColumns+` FROM applications
		 WHERE updated_at < $1 AND stage NOT IN ($2, $3)
		 ORDER BY updated_at ASC`,
		cutoff, string(pipeline.StageHired), string(pipeline.StageRejected))
	if err != nil {
		return nil, fmt.Errorf("listStale query: %w", err)
	}
	return collectApplications(rows)
}

// ─── Scan helpers ────────────────────────────────────────────────────────────

func scanApplication(row pgx.Row) (*pipeline.Application, error) {
	var a pipeline.Application
	err := row.Scan(&a.ID, &a.CandidateID, &a.JobID, &a.Stage, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: application", pipeline.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scan application: %w", err)
	}
	return &a, nil
}

func collectApplications(rows pgx.Rows) ([]pipeline.Application, error) {
	defer rows.Close()
	apps := make([]pipeline.Application, 0)
	for rows.Next() {
		var a pipeline.Application
		if err := rows.Scan(&a.ID, &a.CandidateID, &a.JobID, &a.Stage, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan application row: %w", err)
		}
		apps = append(apps, a)
	}
	return apps, rows.Err()
}
