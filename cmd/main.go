// hireflow-pipeline-service
//
// Application lifecycle engine for the hiring pipeline.
// Exposes a REST API used by the Gateway to implement:
//   - apply(jobId)                       — candidate creates an application
//   - changeStage(applicationId, stage)  — state machine transitions
//   - history query                      — per-application audit trail
//   - myApplications / jobApplications   — listings
//
// Every successful mutation appends an immutable history entry and
// enqueues notification mail onto Redis; a worker drains the queue.
// A cron sweep flags applications idle too long in a stage.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hireflow/pipeline-service/internal/config"
	"hireflow/pipeline-service/internal/db"
	"hireflow/pipeline-service/internal/notify"
	"hireflow/pipeline-service/internal/pipeline"
	"hireflow/pipeline-service/internal/reminder"
	pgstore "hireflow/pipeline-service/internal/store/postgres"
)

const version = "1.0.0"

func main() {
	// ── Config ──────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[pipeline-service] Config error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── PostgreSQL ───────────────────────────────────────────────────────────
	log.Println("[pipeline-service] Connecting to PostgreSQL…")
	pool, err := db.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("[pipeline-service] PostgreSQL: %v", err)
	}
	defer pool.Close()
	log.Println("[pipeline-service] PostgreSQL connected ✓")

	// ── Redis ────────────────────────────────────────────────────────────────
	log.Println("[pipeline-service] Connecting to Redis…")
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatalf("[pipeline-service] Redis: %v", err)
	}
	defer rdb.Close()
	log.Println("[pipeline-service] Redis connected ✓")

	// ── Core wiring ──────────────────────────────────────────────────────────
	store := pgstore.New(pool)
	queue := notify.NewQueue(rdb)
	engine := pipeline.NewEngine(store, queue)

	// Mail worker drains the notification queue for the lifetime of the
	// process.
	worker := notify.NewWorker(rdb, notify.LogSender{})
	go worker.Run(ctx)

	// Follow-up reminder sweep.
	sweeper := reminder.New(store, queue, cfg.ReminderIntervalHours, cfg.ReminderStaleDays)
	if err := sweeper.Start(ctx); err != nil {
		log.Fatalf("[pipeline-service] Reminder sweep: %v", err)
	}
	defer sweeper.Stop()

	// ── HTTP server ──────────────────────────────────────────────────────────
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)

	h := pipeline.NewHandler(engine)
	h.RegisterRoutes(mux)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("[pipeline-service] v%s listening on :%s", version, cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[pipeline-service] HTTP server error: %v", err)
		}
	}()

	// ── Graceful shutdown ────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[pipeline-service] Shutting down…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[pipeline-service] Shutdown error: %v", err)
	}
	log.Println("[pipeline-service] Stopped.")
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"service": "pipeline-service",
		"version": version,
	})
}
