// Package events publishes indexing, crawl and query events to Kafka without
// slowing the workers that produce them. Events are buffered in a channel and
// a single goroutine publishes them; when the buffer is full events are
// dropped. A nil *Collector accepts and discards everything.
package events

import (
	"context"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/Concurrent-Search-Engine/pkg/kafka"
)

// Publisher delivers one event. *kafka.Producer satisfies it.
type Publisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

type Collector struct {
	publisher Publisher
	runID     string
	eventCh   chan Event
	logger    *slog.Logger
	done      chan struct{}
}

func NewCollector(publisher Publisher, runID string, bufferSize int) *Collector {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	return &Collector{
		publisher: publisher,
		runID:     runID,
		eventCh:   make(chan Event, bufferSize),
		logger:    slog.Default().With("component", "event-collector", "run_id", runID),
		done:      make(chan struct{}),
	}
}

// RunID identifies the run the events belong to. It is empty for a nil
// collector.
func (c *Collector) RunID() string {
	if c == nil {
		return ""
	}
	return c.runID
}

func (c *Collector) Start(ctx context.Context) {
	if c == nil {
		return
	}
	go func() {
		defer close(c.done)
		for {
			select {
			case event, ok := <-c.eventCh:
				if !ok {
					return
				}
				c.publish(ctx, event)
			case <-ctx.Done():
				c.drainRemaining()
				return
			}
		}
	}()
	c.logger.Info("event collector started", "buffer_size", cap(c.eventCh))
}

func (c *Collector) Track(event Event) {
	if c == nil {
		return
	}
	select {
	case c.eventCh <- event:
	default:
		c.logger.Warn("event dropped (buffer full)", "key", event.EventKey())
	}
}

// Close stops accepting events and waits until the buffered ones have been
// published. Start must have been called and Track must not be called
// afterwards.
func (c *Collector) Close() {
	if c == nil {
		return
	}
	close(c.eventCh)
	<-c.done
}

func (c *Collector) publish(ctx context.Context, event Event) {
	if err := c.publisher.Publish(ctx, kafka.Event{
		Key:   event.EventKey(),
		Type:  string(event.Kind()),
		Value: event,
	}); err != nil {
		c.logger.Error("failed to publish event", "key", event.EventKey(), "error", err)
	}
}

func (c *Collector) drainRemaining() {
	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				return
			}
			c.publish(context.Background(), event)
		default:
			return
		}
	}
}
