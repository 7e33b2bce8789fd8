package jobrepo

import (
	"context"
	"time"

	"github.com/whiskypay/gateway/internal/domain"
	"github.com/whiskypay/gateway/internal/infrastructure/database"
)

type IJobRepository interface {
	// Enqueue inserts a job inside the caller's transaction. The unique
	// (session_id, kind) constraint makes the insert idempotent: retrying
	// the completion path never produces duplicate deliveries.
	Enqueue(ctx context.Context, ex database.Execer, job domain.NotificationJob) error

	// ClaimDue atomically moves due queued jobs of one kind to in_flight and
	// returns them. Concurrent dispatchers never claim the same job twice.
	ClaimDue(ctx context.Context, kind domain.JobKind, now time.Time, limit int) ([]domain.NotificationJob, error)

	MarkDone(ctx context.Context, id string, attempt int) error

	// Reschedule returns a failed job to the queue with its new attempt
	// count and backoff deadline.
	Reschedule(ctx context.Context, id string, attempt int, nextRunAt time.Time, lastError string) error

	MarkDead(ctx context.Context, id string, attempt int, lastError string) error

	// RequeueStale returns in_flight jobs untouched since before to the
	// queue. Covers workers that died between ClaimDue and the attempt
	// outcome.
	RequeueStale(ctx context.Context, before time.Time) (int64, error)

	ListDead(ctx context.Context, limit int) ([]domain.NotificationJob, error)

	// PruneDone removes done jobs older than the audit window.
	PruneDone(ctx context.Context, before time.Time) (int64, error)
}
