package mykafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Skotchmaster/supermarket/pkg/logging"
)

var ErrClosed = errors.New("kafka: producer closed")

// publishTimeout caps how long Emit waits for room in a full queue.
const publishTimeout = 5 * time.Second

// Publisher hands events to the broker. Publishing never blocks the caller on
// the network.
type Publisher interface {
	Publish(ctx context.Context, topic string, ev Event) error
}

// MessageWriter is the part of *kafka.Writer the producer needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	w     MessageWriter
	name  string
	log   *slog.Logger
	inbox chan kafka.Message
	done  chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewProducer builds a producer writing to brokers. The topic is set per
// message, so one writer serves every topic.
func NewProducer(brokers []string, name string, buf int, log *slog.Logger) *Producer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
	}
	return NewProducerWithWriter(w, name, buf, log)
}

func NewProducerWithWriter(w MessageWriter, name string, buf int, log *slog.Logger) *Producer {
	if buf <= 0 {
		buf = 256
	}
	if log == nil {
		log = slog.Default()
	}
	return &Producer{
		w:     w,
		name:  name,
		log:   log.With("component", "kafka_producer"),
		inbox: make(chan kafka.Message, buf),
		done:  make(chan struct{}),
	}
}

// Start runs the delivery loop until Close is called.
func (p *Producer) Start() {
	go func() {
		defer close(p.done)
		for m := range p.inbox {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := p.w.WriteMessages(ctx, m); err != nil {
				p.log.Error("kafka delivery failed", "topic", m.Topic, "key", string(m.Key), "error", err)
			}
			cancel()
		}
		if err := p.w.Close(); err != nil {
			p.log.Warn("kafka writer close", "error", err)
		}
	}()
}

func (p *Producer) Publish(ctx context.Context, topic string, ev Event) error {
	if ev.Producer == "" {
		ev.Producer = p.name
	}
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("kafka: marshal envelope: %w", err)
	}
	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(ev.Key),
		Value: value,
		Time:  ev.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(ev.EventType)},
		},
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}

	select {
	case p.inbox <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting events, flushes what is queued and waits for the
// writer to shut down.
func (p *Producer) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.inbox)
	p.mu.Unlock()

	<-p.done
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, Event) error { return nil }

// Emit builds and publishes an event, logging instead of failing. Events are
// notifications and never decide the outcome of the operation that raised them.
// Publishing outlives a cancelled request but gives up at the request's
// deadline or after publishTimeout, whichever comes first.
func Emit(ctx context.Context, pub Publisher, topic, eventType, key string, payload any) {
	if pub == nil {
		return
	}
	log := logging.FromContext(ctx)
	ev, err := NewEvent(eventType, key, payload)
	if err != nil {
		log.ErrorContext(ctx, "build event", "type", eventType, "error", err)
		return
	}
	pctx, cancel := publishContext(ctx)
	defer cancel()
	if err := pub.Publish(pctx, topic, ev); err != nil {
		log.WarnContext(ctx, "publish event", "type", eventType, "topic", topic, "error", err)
	}
}

func publishContext(ctx context.Context) (context.Context, context.CancelFunc) {
	deadline := time.Now().Add(publishTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	return context.WithDeadline(context.WithoutCancel(ctx), deadline)
}

var (
	_ Publisher = (*Producer)(nil)
	_ Publisher = NopPublisher{}
)
