package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/harborline/freight-notifier/internal/booking"
	"github.com/harborline/freight-notifier/internal/dispatch"
	"github.com/harborline/freight-notifier/pkg/observability"
)

const idempotencyTTL = 24 * time.Hour

// Dispatcher is the delivery failover chain as the worker sees it.
type Dispatcher interface {
	Dispatch(ctx context.Context, req dispatch.Request) (usedTransport string, detail string, err error)
}

// Worker consumes delivery tasks from the broker and sends them through
// the failover chain. Redis guards against double-delivery when a task is
// redelivered after a broker reconnect.
type Worker struct {
	chain      Dispatcher
	identities *dispatch.Directory
	redis      *redis.Client
	logger     *observability.Logger
}

// NewWorker builds a worker. redisClient may be nil; idempotency checks
// are then skipped and redelivered tasks send twice.
func NewWorker(chain Dispatcher, identities *dispatch.Directory, redisClient *redis.Client, logger *observability.Logger) *Worker {
	return &Worker{chain: chain, identities: identities, redis: redisClient, logger: logger}
}

// ProcessTask handles one queued task. A returned error sends the task to
// the dead-letter queue; tasks that can never succeed (bad payload, no
// recipients) are logged and acknowledged instead, since redelivery cannot
// fix them.
func (w *Worker) ProcessTask(ctx context.Context, body []byte) error {
	var task Task
	if err := json.Unmarshal(body, &task); err != nil {
		return fmt.Errorf("failed to unmarshal delivery task: %w", err)
	}

	if w.alreadySent(ctx, task.ID) {
		w.logger.Info("task already delivered, skipping", "task", task.ID)
		return nil
	}

	req, ok := w.buildRequest(task)
	if !ok {
		return nil
	}

	used, _, err := w.chain.Dispatch(ctx, req)
	if err != nil {
		w.logger.Error("task delivery failed", "task", task.ID, "type", task.EventType, "error", err)
		return err
	}

	w.markSent(ctx, task.ID)
	w.logger.Info("task delivered", "task", task.ID, "type", task.EventType, "transport", used)
	return nil
}

func (w *Worker) buildRequest(task Task) (dispatch.Request, bool) {
	switch task.EventType {
	case EventSOBConfirmed:
		return w.buildMilestoneRequest(task)
	case EventRateConfirmed:
		return w.buildRateRequest(task)
	default:
		w.logger.Warn("unsupported task event type, dropping", "task", task.ID, "type", task.EventType)
		return dispatch.Request{}, false
	}
}

func (w *Worker) buildMilestoneRequest(task Task) (dispatch.Request, bool) {
	var data MilestoneEventData
	if err := json.Unmarshal(task.Payload, &data); err != nil {
		w.logger.Warn("dropping task with bad milestone payload", "task", task.ID, "error", err)
		return dispatch.Request{}, false
	}

	to := booking.SplitEmails(data.CustomerEmails)
	if len(to) == 0 {
		w.logger.Warn("dropping milestone task without customer recipients", "task", task.ID, "booking", data.BookingNo)
		return dispatch.Request{}, false
	}

	identity := w.identities.SelectByLocation(data.LocationTag)
	content, err := RenderMilestone(&data, identity)
	if err != nil {
		w.logger.Warn("dropping unrenderable milestone task", "task", task.ID, "error", err)
		return dispatch.Request{}, false
	}

	return dispatch.Request{
		Identity:  identity,
		To:        to,
		Cc:        booking.SplitEmails(data.SalesEmails),
		Subject:   content.Subject,
		PlainBody: content.Plain,
		HTMLBody:  content.HTML,
	}, true
}

func (w *Worker) buildRateRequest(task Task) (dispatch.Request, bool) {
	var data RateEventData
	if err := json.Unmarshal(task.Payload, &data); err != nil {
		w.logger.Warn("dropping task with bad rate payload", "task", task.ID, "error", err)
		return dispatch.Request{}, false
	}

	to := booking.SplitEmails(data.SalesEmails)
	if len(to) == 0 {
		w.logger.Warn("dropping rate task without sales recipients", "task", task.ID, "booking", data.BookingNo)
		return dispatch.Request{}, false
	}

	identity := w.identities.SelectByLocation(data.LocationTag)
	content, err := RenderSellingRate(&data, identity)
	if err != nil {
		w.logger.Warn("dropping unrenderable rate task", "task", task.ID, "error", err)
		return dispatch.Request{}, false
	}

	return dispatch.Request{
		Identity:  identity,
		To:        to,
		Subject:   content.Subject,
		PlainBody: content.Plain,
		HTMLBody:  content.HTML,
	}, true
}

func (w *Worker) alreadySent(ctx context.Context, taskID string) bool {
	if w.redis == nil {
		return false
	}
	exists, err := w.redis.Exists(ctx, sentKey(taskID)).Result()
	if err != nil {
		w.logger.Warn("idempotency check failed, proceeding", "task", taskID, "error", err)
		return false
	}
	return exists > 0
}

func (w *Worker) markSent(ctx context.Context, taskID string) {
	if w.redis == nil {
		return
	}
	if err := w.redis.Set(ctx, sentKey(taskID), "1", idempotencyTTL).Err(); err != nil {
		w.logger.Warn("failed to record delivery marker", "task", taskID, "error", err)
	}
}

func sentKey(taskID string) string {
	return "notify:sent:" + taskID
}
