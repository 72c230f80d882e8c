package delivery

import (
	"context"
	"time"

	"github.com/soyeahso/deskflow/internal/domain"
	"github.com/soyeahso/deskflow/internal/logging"
)

// TaskQueue is the durable store of deferred engagement tasks.
type TaskQueue interface {
	Due(ctx context.Context, now time.Time, limit int) ([]domain.EngagementTask, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string) error
}

// Publisher is the immediate delivery path a drained task is pushed
// through.
type Publisher interface {
	Publish(ctx context.Context, userID, message string, typ domain.EngagementType, metadata map[string]any) (string, error)
}

// DefaultWorkerInterval is how often the worker polls for due tasks.
const DefaultWorkerInterval = 30 * time.Second

// drainBatch bounds how many tasks one poll handles.
const drainBatch = 100

// Worker drains due engagement tasks from the queue and publishes them.
type Worker struct {
	queue    TaskQueue
	pub      Publisher
	interval time.Duration
	log      *logging.Logger
	now      func() time.Time
}

// NewWorker creates a worker. interval <= 0 selects the default.
func NewWorker(queue TaskQueue, pub Publisher, interval time.Duration, log *logging.Logger) *Worker {
	if interval <= 0 {
		interval = DefaultWorkerInterval
	}
	return &Worker{
		queue:    queue,
		pub:      pub,
		interval: interval,
		log:      log.Sub("delivery-worker"),
		now:      time.Now,
	}
}

// Run polls for due tasks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Msg("delivery worker started")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("delivery worker stopped")
			return
		case <-ticker.C:
			w.Drain(ctx)
		}
	}
}

// Drain delivers every currently-due task once and returns how many
// were sent.
func (w *Worker) Drain(ctx context.Context) int {
	due, err := w.queue.Due(ctx, w.now(), drainBatch)
	if err != nil {
		w.log.Error().Err(err).Msg("querying due tasks failed")
		return 0
	}

	sent := 0
	for _, task := range due {
		if _, err := w.pub.Publish(ctx, task.UserID, task.Message, task.Type, task.Metadata); err != nil {
			w.log.Error().Err(err).Str("taskId", task.ID).Msg("deferred delivery failed")
			if err := w.queue.MarkFailed(ctx, task.ID); err != nil {
				w.log.Error().Err(err).Str("taskId", task.ID).Msg("marking task failed")
			}
			continue
		}
		if err := w.queue.MarkSent(ctx, task.ID); err != nil {
			w.log.Error().Err(err).Str("taskId", task.ID).Msg("marking task sent")
			continue
		}
		sent++
	}

	if sent > 0 {
		w.log.Info().Int("sent", sent).Msg("deferred engagements delivered")
	}
	return sent
}
