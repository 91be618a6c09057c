package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tutorbid/tutorbid-api/pkg/jobs"
)

// Lifecycle event names emitted by the engine. Delivery mechanics live with
// the notification collaborator; the engine only publishes.
const (
	EventRequestSubmitted = "request.submitted"
	EventRequestAccepted  = "request.accepted"
	EventRequestRejected  = "request.rejected"
	EventRequestExpired   = "request.expired"
	EventRequestWithdrawn = "request.withdrawn"
	EventPaymentPaid      = "payment.paid"
	EventPaymentFailed    = "payment.failed"
	EventPaymentExpired   = "payment.expired"
	EventSlotBlocked      = "slot.blocked"
	EventSlotUnblocked    = "slot.unblocked"
)

// Event is a single lifecycle notification.
type Event struct {
	Name      string                 `json:"name"`
	RequestID string                 `json:"request_id,omitempty"`
	SlotID    string                 `json:"slot_id,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
	At        time.Time              `json:"at"`
}

// Notifier publishes lifecycle events to the notification collaborator.
type Notifier interface {
	Publish(event Event)
}

// Dispatcher fans events out through an in-process job queue so publishing
// never blocks an engine transition.
type Dispatcher struct {
	queue  *jobs.Queue
	logger *zap.Logger
}

// DispatcherConfig sizes the underlying queue.
type DispatcherConfig struct {
	Workers    int
	BufferSize int
}

// NewDispatcher builds a queue-backed dispatcher. Start must be called
// before events flow.
func NewDispatcher(cfg DispatcherConfig, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dispatcher{logger: logger}
	d.queue = jobs.NewQueue("notifications", d.deliver, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		Logger:     logger,
	})
	return d
}

// Start launches the dispatch workers.
func (d *Dispatcher) Start(ctx context.Context) {
	d.queue.Start(ctx)
}

// Stop drains the workers.
func (d *Dispatcher) Stop() {
	d.queue.Stop()
}

// Publish enqueues an event, dropping it with a warning when the queue is
// unavailable. Notification loss is acceptable; blocking a transition is not.
func (d *Dispatcher) Publish(event Event) {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	job := jobs.Job{ID: uuid.NewString(), Type: event.Name, Payload: event}
	if err := d.queue.Enqueue(job); err != nil {
		d.logger.Warn("dropping lifecycle event", zap.String("event", event.Name), zap.Error(err))
	}
}

func (d *Dispatcher) deliver(_ context.Context, job jobs.Job) error {
	event, ok := job.Payload.(Event)
	if !ok {
		return nil
	}
	d.logger.Info("lifecycle event",
		zap.String("event", event.Name),
		zap.String("request_id", event.RequestID),
		zap.String("slot_id", event.SlotID),
		zap.Time("at", event.At),
	)
	return nil
}

// NopNotifier discards events. Useful in tests.
type NopNotifier struct{}

// Publish implements Notifier.
func (NopNotifier) Publish(Event) {}
