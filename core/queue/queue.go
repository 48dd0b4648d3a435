package queue

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"

	"groombook-api/core/logger"
)

// Task types. Retry durability for push tasks lives in the sync_retry_queue
// table, not in asynq, so both task kinds run with MaxRetry(0).
const (
	TypeSyncPush  = "sync:push"
	TypeRetryScan = "sync:retry:scan"
)

type SyncPushPayload struct {
	AppointmentID string `json:"appointment_id"`
	Force         bool   `json:"force"`
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func (c RedisConfig) asynqOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     c.Addr,
		Password: c.Password,
		DB:       c.DB,
	}
}

// Client enqueues background sync work.
type Client interface {
	EnqueueSyncPush(ctx context.Context, appointmentID string, force bool) error
	Close() error
}

type client struct {
	inner *asynq.Client
}

func NewClient(cfg RedisConfig) Client {
	return &client{inner: asynq.NewClient(cfg.asynqOpt())}
}

func (c *client) EnqueueSyncPush(ctx context.Context, appointmentID string, force bool) error {
	payload, err := json.Marshal(SyncPushPayload{AppointmentID: appointmentID, Force: force})
	if err != nil {
		return err
	}

	task := asynq.NewTask(TypeSyncPush, payload, asynq.MaxRetry(0))
	info, err := c.inner.EnqueueContext(ctx, task)
	if err != nil {
		logger.Error("Queue:EnqueueSyncPush:Error", "error", err, "appointment_id", appointmentID)
		return err
	}

	logger.Debug("Queue:EnqueueSyncPush", "task_id", info.ID, "appointment_id", appointmentID, "force", force)
	return nil
}

func (c *client) Close() error {
	return c.inner.Close()
}

// NewServer builds the asynq worker. Handlers are registered by the
// calendarsync module onto the returned mux.
func NewServer(cfg RedisConfig, concurrency int) (*asynq.Server, *asynq.ServeMux) {
	srv := asynq.NewServer(cfg.asynqOpt(), asynq.Config{
		Concurrency: concurrency,
	})
	return srv, asynq.NewServeMux()
}

// NewScheduler drives the periodic retry-queue scan. The scan itself claims
// rows durably, so overlapping ticks across instances are safe.
func NewScheduler(cfg RedisConfig) (*asynq.Scheduler, error) {
	scheduler := asynq.NewScheduler(cfg.asynqOpt(), nil)

	task := asynq.NewTask(TypeRetryScan, nil, asynq.MaxRetry(0))
	if _, err := scheduler.Register("@every 1m", task); err != nil {
		return nil, err
	}
	return scheduler, nil
}
