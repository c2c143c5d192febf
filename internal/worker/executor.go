// internal/worker/executor.go
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/fawad-mazhar/skyhub/internal/config"
	"github.com/fawad-mazhar/skyhub/internal/models"
	"github.com/fawad-mazhar/skyhub/internal/queue"
	"github.com/fawad-mazhar/skyhub/internal/storage/blob"
	"github.com/google/uuid"
)

// ResultStore is the slice of the blob store the executor writes through.
type ResultStore interface {
	PutJSON(key string, v any) error
}

// Executor drains the tasks queue and drives each message through the status
// state machine: PENDING at start, READY or ERROR at the end. Every write
// overwrites the whole record, so duplicate deliveries are safe.
type Executor struct {
	id         string
	config     *config.Config
	registry   *Registry
	store      ResultStore
	queue      *queue.RabbitMQ
	logger     *slog.Logger
	workerPool chan struct{}
	workers    sync.WaitGroup
	stopChan   chan struct{}
}

func NewExecutor(cfg *config.Config, registry *Registry, store ResultStore, q *queue.RabbitMQ, logger *slog.Logger) *Executor {
	return &Executor{
		id:         uuid.New().String(),
		config:     cfg,
		registry:   registry,
		store:      store,
		queue:      q,
		logger:     logger,
		workerPool: make(chan struct{}, cfg.Worker.MaxWorkers),
		stopChan:   make(chan struct{}),
	}
}

// Start begins the executor's main processing loop
func (e *Executor) Start(ctx context.Context) error {
	e.logger.Info("starting executor", "executor_id", e.id, "workers", e.config.Worker.MaxWorkers)

	deliveries, err := e.queue.ConsumeTasks(ctx)
	if err != nil {
		return fmt.Errorf("failed to start consuming tasks: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.stopChan:
			return nil
		case delivery, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("tasks channel closed")
			}

			msg, err := queue.DecodeDelivery(delivery)
			if err != nil {
				e.logger.Error("dropping malformed task message", "error", err)
				delivery.Nack(false, false) // don't requeue malformed messages
				continue
			}

			select {
			case e.workerPool <- struct{}{}:
				e.workers.Add(1)
				go func() {
					defer func() {
						<-e.workerPool
						e.workers.Done()
					}()

					if err := e.ProcessMessage(ctx, msg); err != nil {
						e.logger.Error("error processing task", "task_id", msg.TaskID, "error", err)
						delivery.Nack(false, true) // requeue on store failure
						return
					}

					delivery.Ack(false)
				}()
			default:
				// worker pool full, nack with requeue
				delivery.Nack(false, true)
			}
		}
	}
}

// ProcessMessage drives one queue message to a terminal status. Handler
// failures and unknown task names end as a terminal ERROR record and a nil
// return, so one bad task never aborts the rest of a delivery batch; only a
// store write failure propagates, to trigger a redelivery.
func (e *Executor) ProcessMessage(ctx context.Context, msg *models.QueueMessage) error {
	tic := time.Now()
	key := blob.ResultsKey(msg.TaskID)

	e.logger.Info("task started",
		"task_name", msg.TaskName,
		"task_id", msg.TaskID,
		"task_params", string(msg.TaskParams),
	)

	if err := e.store.PutJSON(key, models.ResultRecord{Status: models.TaskStatusPending}); err != nil {
		return fmt.Errorf("failed to write pending status: %w", err)
	}

	handler, err := e.registry.Get(msg.TaskName)
	if err != nil {
		// Unknown names are a configuration fault: fail loudly with a
		// terminal record rather than silently dropping the message.
		e.logger.Error("unknown task name",
			"task_name", msg.TaskName,
			"task_id", msg.TaskID,
			"error", err,
		)
		return e.store.PutJSON(key, models.ResultRecord{Status: models.TaskStatusError})
	}

	results, err := handler(ctx, msg.TaskID, msg.TaskParams)
	elapsed := elapsedSeconds(tic)
	if err != nil {
		e.logger.Error("task failed",
			"elapsed", elapsed,
			"task_name", msg.TaskName,
			"task_id", msg.TaskID,
			"task_params", string(msg.TaskParams),
			"error", err,
		)
		return e.store.PutJSON(key, models.ResultRecord{Status: models.TaskStatusError})
	}

	e.logger.Info("task successful",
		"elapsed", elapsed,
		"size_mb", math.Round(float64(len(results))/(1024*1024)*100)/100,
		"task_name", msg.TaskName,
		"task_id", msg.TaskID,
	)
	return e.store.PutJSON(key, models.ResultRecord{Status: models.TaskStatusReady, Results: results})
}

// Shutdown waits for in-flight tasks to finish, up to the given timeout.
func (e *Executor) Shutdown(timeout time.Duration) error {
	close(e.stopChan)

	done := make(chan struct{})
	go func() {
		e.workers.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("executor shutdown timed out after %v", timeout)
	}
}

func elapsedSeconds(since time.Time) string {
	return fmt.Sprintf("%.2fs", time.Since(since).Seconds())
}
