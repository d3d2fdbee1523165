// Package events carries job lifecycle events to in-process subscribers
package events

import (
	"context"
	"sync"
	"time"

	"github.com/domainbrowser/searchjobs/internal/logger"
	"github.com/domainbrowser/searchjobs/internal/types"
)

// EventType represents the type of job event
type EventType string

const (
	// EventJobSubmitted is emitted when a job directory has been created
	EventJobSubmitted EventType = "job_submitted"
	// EventJobRejected is emitted when a submission fails validation
	EventJobRejected EventType = "job_rejected"
	// EventJobLaunchFailed is emitted when the runner could not start a job
	EventJobLaunchFailed EventType = "job_launch_failed"
	// EventJobRemoved is emitted when the reaper deletes a job directory
	EventJobRemoved EventType = "job_removed"
	// EventChannelSize is the buffer size for the event channel
	EventChannelSize = 100
)

// Event represents a job event
type Event struct {
	Type    EventType     // The type of event
	JobID   string        // The job ID, empty for rejected submissions
	Kind    types.JobKind // The job kind
	Backend string        // The runner backend
	Error   string        // The failure, if any
	At      time.Time
}

// Handler is a function that handles an event
type Handler func(context.Context, Event) error

// Bus dispatches published events to the handlers subscribed to their type
type Bus struct {
	handlersMu sync.RWMutex
	handlers   map[EventType][]Handler
	eventChan  chan Event
	wg         sync.WaitGroup
}

// NewBus creates a bus with a buffered event channel
func NewBus(size int) *Bus {
	if size <= 0 {
		size = EventChannelSize
	}
	return &Bus{
		handlers:  make(map[EventType][]Handler),
		eventChan: make(chan Event, size),
	}
}

// Subscribe registers a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.handlersMu.Lock()
	defer b.handlersMu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
	logger.Debugf("Registered handler for event type: %s", eventType)
}

// Publish queues an event. It never blocks: when the buffer is full the
// event is dropped. A nil bus discards events.
func (b *Bus) Publish(event Event) {
	if b == nil {
		return
	}
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	select {
	case b.eventChan <- event:
		logger.Debugf("Published event: %s (Job: %s)", event.Type, event.JobID)
	default:
		logger.Warnf("Event buffer full, dropping %s for job %s", event.Type, event.JobID)
	}
}

// Start starts the event processing loop
func (b *Bus) Start(ctx context.Context) {
	b.wg.Add(1)
	go b.processEvents(ctx)
	logger.Debug("Started event processing loop")
}

// Wait blocks until the processing loop and running handlers have returned
func (b *Bus) Wait() {
	b.wg.Wait()
}

func (b *Bus) processEvents(ctx context.Context) {
	defer b.wg.Done()
	for {
		select {
		case <-ctx.Done():
			logger.Debug("Stopping event processing loop")
			return
		case event := <-b.eventChan:
			b.handlersMu.RLock()
			eventHandlers := b.handlers[event.Type]
			b.handlersMu.RUnlock()

			for _, handler := range eventHandlers {
				b.wg.Add(1)
				go func(h Handler, e Event) {
					defer b.wg.Done()
					if err := h(ctx, e); err != nil {
						logger.Errorf("Failed to handle event %s for job %s: %v", e.Type, e.JobID, err)
					}
				}(handler, event)
			}
		}
	}
}
