// Package reminder wires up the cron job that periodically sweeps for
// applications sitting too long in a non-terminal stage and enqueues a
// follow-up notice to the hiring company's recruiters.
package reminder

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"hireflow/pipeline-service/internal/notify"
	"hireflow/pipeline-service/internal/pipeline"
)

// Sweeper wraps robfig/cron and manages the follow-up sweep loop.
type Sweeper struct {
	cron      *cron.Cron
	store     pipeline.Store
	notifier  pipeline.Notifier
	spec      string // cron spec, e.g. "@every 24h"
	staleDays int
}

// New creates a Sweeper that fires every intervalHours hours and flags
// applications idle for more than staleDays days.
func New(store pipeline.Store, notifier pipeline.Notifier, intervalHours, staleDays int) *Sweeper {
	return &Sweeper{
		cron:      cron.New(cron.WithLogger(cron.DefaultLogger)),
		store:     store,
		notifier:  notifier,
		spec:      fmt.Sprintf("@every %dh", intervalHours),
		staleDays: staleDays,
	}
}

// Start registers the job and starts the scheduler. Also runs one sweep
// immediately so a restart never delays overdue reminders by a full tick.
func (s *Sweeper) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.runSweep(ctx)
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron.Start()
	log.Printf("[reminder] Cron started — spec: %s, stale after %dd", s.spec, s.staleDays)

	go s.runSweep(ctx)

	return nil
}

// Stop gracefully shuts down the scheduler.
func (s *Sweeper) Stop() {
	s.cron.Stop()
	log.Println("[reminder] Cron stopped")
}

// runSweep loads stale applications and enqueues one follow-up mail per
// recruiter of each owning company. Everything here is best-effort.
func (s *Sweeper) runSweep(ctx context.Context) {
	log.Println("[reminder] Sweep started")

	cutoff := time.Now().UTC().AddDate(0, 0, -s.staleDays)
	stale, err := s.store.ListStale(ctx, cutoff)
	if err != nil {
		log.Printf("[reminder] ListStale error: %v", err)
		return
	}

	if len(stale) == 0 {
		log.Println("[reminder] No stale applications — nothing to do")
		return
	}

	log.Printf("[reminder] Found %d stale application(s)", len(stale))
	for _, app := range stale {
		job, err := s.store.GetJob(ctx, app.JobID)
		if err != nil {
			log.Printf("[reminder] GetJob error for application %s: %v — continuing", app.ID, err)
			continue
		}

		recruiters, err := s.store.ListCompanyRecruiters(ctx, job.CompanyID)
		if err != nil {
			log.Printf("[reminder] ListCompanyRecruiters error for company %s: %v — continuing", job.CompanyID, err)
			continue
		}

		daysIdle := int(time.Since(app.UpdatedAt).Hours() / 24)
		subject, body := notify.FollowUpMail(job.Title, string(app.Stage), daysIdle)
		for _, r := range recruiters {
			s.notifier.Enqueue(r.Email, subject, body)
		}
	}

	log.Println("[reminder] Sweep complete")
}
