package workflow

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jsodeh/sabi/internal/core/domain"
)

// =============================================================================
// Lifecycle Events
// =============================================================================

// EventType identifies what happened in a workflow's lifecycle.
type EventType string

const (
	EventWorkflowCreated   EventType = "workflow.created"
	EventWorkflowStarted   EventType = "workflow.started"
	EventStepStarted       EventType = "step.started"
	EventStepCompleted     EventType = "step.completed"
	EventStepFailed        EventType = "step.failed"
	EventWorkflowCompleted EventType = "workflow.completed"
	EventWorkflowFailed    EventType = "workflow.failed"
	EventWorkflowCancelled EventType = "workflow.cancelled"
)

// Event is an immutable snapshot of a workflow lifecycle transition.
// Workflow and Step are deep copies; subscribers may hold them freely.
type Event struct {
	Type       EventType                  `json:"type"`
	WorkflowID string                     `json:"workflow_id"`
	Workflow   *domain.DeploymentWorkflow `json:"workflow"`
	Step       *domain.DeploymentStep     `json:"step,omitempty"`
	Timestamp  time.Time                  `json:"timestamp"`
}

// Bus fans lifecycle events out to subscribers. Publishing never blocks:
// a subscriber whose buffer is full misses the event.
type Bus struct {
	mu     sync.RWMutex
	subs   []chan Event
	logger *slog.Logger
}

// NewBus creates an event bus.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{logger: logger.With("component", "event_bus")}
}

// Subscribe registers a new subscriber and returns its channel.
// bufSize bounds how far the subscriber may fall behind.
func (b *Bus) Subscribe(bufSize int) <-chan Event {
	if bufSize <= 0 {
		bufSize = 64
	}
	ch := make(chan Event, bufSize)
	b.mu.Lock()
	b.subs = append(b.subs, ch)
	b.mu.Unlock()
	return ch
}

// Publish delivers an event to every subscriber without blocking.
func (b *Bus) Publish(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- evt:
		default:
			b.logger.Warn("subscriber buffer full, dropping event",
				"type", evt.Type, "workflow_id", evt.WorkflowID)
		}
	}
}

// Close closes all subscriber channels. Publish must not be called after Close.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
}

// LogEvents consumes a subscription and writes each event to the logger.
// It returns when the channel is closed. Run it in its own goroutine.
func LogEvents(ch <-chan Event, logger *slog.Logger) {
	for evt := range ch {
		attrs := []any{"type", evt.Type, "workflow_id", evt.WorkflowID}
		if evt.Step != nil {
			attrs = append(attrs, "step", evt.Step.ID, "step_status", evt.Step.Status)
		}
		if evt.Workflow != nil {
			attrs = append(attrs, "status", evt.Workflow.Status)
		}
		logger.Info("workflow event", attrs...)
	}
}
