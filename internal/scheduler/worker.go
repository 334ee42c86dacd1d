package scheduler

import (
	"context"
	"fmt"

	"studiodesk_backend/internal/notification/outbox"
	"studiodesk_backend/platform/config"
	"studiodesk_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OutboxDeliverer sends one claimed outbox record and records the outcome.
type OutboxDeliverer interface {
	Deliver(ctx context.Context, rec outbox.Record) error
}

type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	repo      *outbox.Repository
	deliverer OutboxDeliverer
	log       *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, pool *pgxpool.Pool, deliverer OutboxDeliverer, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL)
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:    server,
		mux:       mux,
		repo:      outbox.New(pool),
		deliverer: deliverer,
		log:       log,
	}

	mux.HandleFunc(TaskNotificationOutboxDue, w.handleNotificationOutboxDue)

	return w, nil
}

func (w *Worker) handleNotificationOutboxDue(ctx context.Context, task *asynq.Task) error {
	if w.deliverer == nil {
		return nil
	}

	payload, err := ParseNotificationOutboxDuePayload(task)
	if err != nil {
		return err
	}

	outboxID, err := uuid.Parse(payload.OutboxID)
	if err != nil {
		return err
	}

	rec, err := w.repo.GetByID(ctx, outboxID)
	if err != nil {
		return err
	}

	// Deliver handles its own retry bookkeeping. Records already settled by
	// another worker are skipped.
	switch rec.Status {
	case outbox.StatusSucceeded, outbox.StatusFailed:
		return nil
	}

	return w.deliverer.Deliver(ctx, rec)
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
