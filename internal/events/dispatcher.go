package events

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eachn05-lang/Ea-desk/internal/observability"
)

// Handler consumes one event. Errors are logged by the dispatcher and
// never reach the publisher.
type Handler func(context.Context, Event) error

// Dispatcher is the publish side of the event flow. Implementations are
// fire-and-forget: Publish returns once the event is handed off and its
// error never reflects delivery problems.
type Dispatcher interface {
	Publish(ctx context.Context, event Event) error
}

// Subscriber registers handlers by event type.
type Subscriber interface {
	Subscribe(eventType EventType, handler Handler)
}

// Each handler invocation gets its own deadline so one stuck transport
// cannot stall the consumer loop forever.
const handlerTimeout = time.Minute

// ChannelDispatcher hands events to subscribers through a buffered
// channel drained by a single goroutine. Publish never blocks the
// calling request: a full buffer drops the event with a logged warning.
type ChannelDispatcher struct {
	logger  *zap.Logger
	metrics *observability.Metrics
	buffer  chan Event
	done    chan struct{}

	mu       sync.RWMutex
	handlers map[EventType][]Handler

	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewChannelDispatcher builds a dispatcher with the given buffer size.
func NewChannelDispatcher(logger *zap.Logger, metrics *observability.Metrics, buffer int) *ChannelDispatcher {
	if buffer <= 0 {
		buffer = 256
	}
	return &ChannelDispatcher{
		logger:   logger,
		metrics:  metrics,
		buffer:   make(chan Event, buffer),
		done:     make(chan struct{}),
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe registers a handler for the given event type. Subscriptions
// must happen before Start.
func (d *ChannelDispatcher) Subscribe(eventType EventType, handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[eventType] = append(d.handlers[eventType], handler)
}

// Start launches the consumer goroutine.
func (d *ChannelDispatcher) Start() {
	d.wg.Add(1)
	go d.run()
}

// Publish enqueues the event without blocking. Events published after
// Close, or while the buffer is full, are dropped.
func (d *ChannelDispatcher) Publish(_ context.Context, event Event) error {
	select {
	case <-d.done:
		d.drop(event, "dispatcher closed")
		return nil
	default:
	}

	select {
	case d.buffer <- event:
		d.metrics.RecordEvent(string(event.Type), observability.OutcomePublished)
	default:
		d.drop(event, "event buffer full")
	}
	return nil
}

// Close stops intake and waits until buffered events are delivered.
func (d *ChannelDispatcher) Close() {
	d.closeOnce.Do(func() {
		close(d.done)
	})
	d.wg.Wait()
}

func (d *ChannelDispatcher) run() {
	defer d.wg.Done()
	for {
		select {
		case event := <-d.buffer:
			d.deliver(event)
		case <-d.done:
			for {
				select {
				case event := <-d.buffer:
					d.deliver(event)
				default:
					return
				}
			}
		}
	}
}

func (d *ChannelDispatcher) deliver(event Event) {
	d.mu.RLock()
	handlers := append([]Handler(nil), d.handlers[event.Type]...)
	d.mu.RUnlock()

	for _, handler := range handlers {
		ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
		if err := handler(ctx, event); err != nil {
			d.logger.Error("event handler failed",
				zap.String("event_id", event.ID),
				zap.String("event_type", string(event.Type)),
				zap.Error(err),
			)
		}
		cancel()
	}
}

func (d *ChannelDispatcher) drop(event Event, reason string) {
	d.metrics.RecordEvent(string(event.Type), observability.OutcomeDropped)
	d.logger.Warn("dropping event",
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.String("reason", reason),
	)
}
