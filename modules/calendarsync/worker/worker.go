package worker

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"groombook-api/core/logger"
	"groombook-api/core/queue"
	"groombook-api/modules/calendarsync/service"
)

// Worker binds the background task types to the push engine. Failures are
// absorbed into the engine's own retry queue, so handlers always return nil
// and asynq never re-delivers.
type Worker struct {
	sync *service.SyncService
}

func NewWorker(sync *service.SyncService) *Worker {
	return &Worker{sync: sync}
}

func (w *Worker) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(queue.TypeSyncPush, w.handleSyncPush)
	mux.HandleFunc(queue.TypeRetryScan, w.handleRetryScan)
}

func (w *Worker) handleSyncPush(ctx context.Context, task *asynq.Task) error {
	var payload queue.SyncPushPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Error("Worker:SyncPush:Payload", "error", err)
		return nil
	}

	appointmentID, err := uuid.Parse(payload.AppointmentID)
	if err != nil {
		logger.Error("Worker:SyncPush:BadID", "appointment_id", payload.AppointmentID)
		return nil
	}

	outcome, err := w.sync.SyncAppointment(ctx, appointmentID, payload.Force)
	if err != nil {
		logger.Error("Worker:SyncPush:Error", "error", err, "appointment_id", payload.AppointmentID)
		return nil
	}

	logger.Debug("Worker:SyncPush",
		"appointment_id", payload.AppointmentID, "status", outcome.Status,
		"operation", outcome.Operation, "skip_reason", outcome.SkipReason)
	return nil
}

func (w *Worker) handleRetryScan(ctx context.Context, _ *asynq.Task) error {
	if err := w.sync.ProcessRetryQueue(ctx); err != nil {
		logger.Error("Worker:RetryScan:Error", "error", err)
	}
	return nil
}
