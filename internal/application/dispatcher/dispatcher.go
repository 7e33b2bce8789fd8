// Package dispatcher owns at-least-once delivery of notification jobs. Each
// kind gets its own bounded worker pool so a slow email transport cannot
// starve webhook delivery, and a failure inside one job never touches any
// other job.
package dispatcher

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog"

	"github.com/whiskypay/gateway/internal/domain"
	"github.com/whiskypay/gateway/internal/repositories/jobrepo"
	"github.com/whiskypay/gateway/pkg/config"
)

// Sink performs one delivery attempt for one job.
type Sink interface {
	Deliver(ctx context.Context, job domain.NotificationJob) error
}

type Dispatcher struct {
	jobRepo jobrepo.IJobRepository
	sinks   map[domain.JobKind]Sink
	pools   map[domain.JobKind]*ants.PoolWithFunc

	scheduler *gocron.Scheduler
	config    config.NotificationsConfig
	logger    zerolog.Logger
}

func New(
	jobRepo jobrepo.IJobRepository,
	webhookSink Sink,
	emailSink Sink,
	cfg config.NotificationsConfig,
	logger zerolog.Logger,
) (*Dispatcher, error) {
	d := &Dispatcher{
		jobRepo: jobRepo,
		sinks: map[domain.JobKind]Sink{
			domain.JobKindWebhook: webhookSink,
			domain.JobKindEmail:   emailSink,
		},
		pools:     make(map[domain.JobKind]*ants.PoolWithFunc),
		scheduler: gocron.NewScheduler(time.UTC),
		config:    cfg,
		logger:    logger,
	}

	poolSizes := map[domain.JobKind]int{
		domain.JobKindWebhook: cfg.WebhookWorkers,
		domain.JobKindEmail:   cfg.EmailWorkers,
	}
	for kind, size := range poolSizes {
		if size <= 0 {
			size = 1
		}
		pool, err := ants.NewPoolWithFunc(size, func(i interface{}) {
			d.Process(i.(domain.NotificationJob))
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create %s worker pool: %w", kind, err)
		}
		d.pools[kind] = pool
	}

	return d, nil
}

func (d *Dispatcher) Start() {
	// Jobs claimed by a worker that died never reached an outcome; recover
	// them before polling starts and keep sweeping while running.
	d.RecoverStale()

	d.scheduler.Every(d.config.PollInterval).SingletonMode().Do(func() {
		d.pollQueue(domain.JobKindWebhook)
	})
	d.scheduler.Every(d.config.PollInterval).SingletonMode().Do(func() {
		d.pollQueue(domain.JobKindEmail)
	})
	d.scheduler.Every(d.staleAfter()).SingletonMode().Do(d.RecoverStale)
	if d.config.DoneRetention > 0 {
		d.scheduler.Every(1).Hour().SingletonMode().Do(d.pruneDone)
	}
	d.scheduler.StartAsync()

	d.logger.Info().
		Int("webhook_workers", d.config.WebhookWorkers).
		Int("email_workers", d.config.EmailWorkers).
		Dur("poll_interval", d.config.PollInterval).
		Msg("Notification dispatcher started")
}

func (d *Dispatcher) Stop() {
	d.scheduler.Stop()
	for _, pool := range d.pools {
		pool.Release()
	}
	d.logger.Info().Msg("Notification dispatcher stopped")
}

func (d *Dispatcher) pollQueue(kind domain.JobKind) {
	ctx, cancel := context.WithTimeout(context.Background(), d.config.DeliveryTimeout)
	defer cancel()

	jobs, err := d.jobRepo.ClaimDue(ctx, kind, time.Now().UTC(), d.config.BatchSize)
	if err != nil {
		d.logger.Error().Err(err).Str("kind", string(kind)).Msg("Failed to claim due jobs")
		return
	}

	for _, job := range jobs {
		// Invoke blocks when all workers are busy; queued jobs simply wait.
		// That bounded pool is the system's only backpressure mechanism.
		if err := d.pools[kind].Invoke(job); err != nil {
			d.logger.Error().Err(err).Str("job_id", job.ID).Msg("Failed to hand job to worker pool")
			d.requeueClaimed(job, fmt.Sprintf("worker pool unavailable: %v", err))
		}
	}
}

// RecoverStale returns in_flight jobs older than the staleness window to the
// queue. Their attempt count is untouched, so a recovered job keeps its
// remaining retry budget.
func (d *Dispatcher) RecoverStale() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	requeued, err := d.jobRepo.RequeueStale(ctx, time.Now().UTC().Add(-d.staleAfter()))
	if err != nil {
		d.logger.Error().Err(err).Msg("Failed to recover stale jobs")
		return
	}
	if requeued > 0 {
		d.logger.Warn().Int64("requeued", requeued).Msg("Recovered stale in-flight jobs")
	}
}

// staleAfter must comfortably exceed one delivery attempt so a slow but live
// worker is never raced by the recovery sweep.
func (d *Dispatcher) staleAfter() time.Duration {
	if d.config.StaleAfter > 0 {
		return d.config.StaleAfter
	}
	return 5 * d.config.DeliveryTimeout
}

// Process runs one delivery attempt. Exported for direct use in tests; the
// worker pools are the production entry point.
func (d *Dispatcher) Process(job domain.NotificationJob) {
	attempt := job.Attempt + 1

	err := d.deliver(job)
	ctx, cancel := context.WithTimeout(context.Background(), d.config.DeliveryTimeout)
	defer cancel()

	if err == nil {
		if markErr := d.jobRepo.MarkDone(ctx, job.ID, attempt); markErr != nil {
			d.logger.Error().Err(markErr).Str("job_id", job.ID).Msg("Failed to mark job done")
		}
		return
	}

	d.logger.Warn().
		Str("job_id", job.ID).
		Str("session_id", job.SessionID).
		Str("kind", string(job.Kind)).
		Int("attempt", attempt).
		Err(err).
		Msg("Notification delivery failed")

	if attempt >= job.MaxAttempts {
		if markErr := d.jobRepo.MarkDead(ctx, job.ID, attempt, err.Error()); markErr != nil {
			d.logger.Error().Err(markErr).Str("job_id", job.ID).Msg("Failed to mark job dead")
			return
		}
		d.logger.Error().
			Str("job_id", job.ID).
			Str("session_id", job.SessionID).
			Str("kind", string(job.Kind)).
			Int("attempt", attempt).
			Msg("Notification job exhausted retries, marked dead")
		return
	}

	delay := nextDelay(d.config.BackoffBase, d.config.BackoffCap, attempt)
	if reschedErr := d.jobRepo.Reschedule(ctx, job.ID, attempt, time.Now().UTC().Add(delay), err.Error()); reschedErr != nil {
		d.logger.Error().Err(reschedErr).Str("job_id", job.ID).Msg("Failed to reschedule job")
	}
}

// deliver executes the sink call with a panic boundary: a panicking handler
// becomes an ordinary retryable failure.
func (d *Dispatcher) deliver(job domain.NotificationJob) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("delivery panicked: %v", r)
		}
	}()

	sink, ok := d.sinks[job.Kind]
	if !ok {
		return fmt.Errorf("no sink registered for kind %s", job.Kind)
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.config.DeliveryTimeout)
	defer cancel()
	return sink.Deliver(ctx, job)
}

func (d *Dispatcher) requeueClaimed(job domain.NotificationJob, reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), d.config.DeliveryTimeout)
	defer cancel()
	if err := d.jobRepo.Reschedule(ctx, job.ID, job.Attempt, time.Now().UTC(), reason); err != nil {
		d.logger.Error().Err(err).Str("job_id", job.ID).Msg("Failed to requeue claimed job")
	}
}

func (d *Dispatcher) pruneDone() {
	pruneCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pruned, err := d.jobRepo.PruneDone(pruneCtx, time.Now().UTC().Add(-d.config.DoneRetention))
	if err != nil {
		d.logger.Error().Err(err).Msg("Failed to prune done jobs")
		return
	}
	if pruned > 0 {
		d.logger.Info().Int64("pruned", pruned).Msg("Pruned done notification jobs")
	}
}
