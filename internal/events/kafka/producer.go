package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/nadi/reservation-engine/internal/events"
)

var ErrClosed = errors.New("kafka producer closed")

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer buffers envelopes and writes them from a single goroutine so the
// request path never waits on the broker.
type Producer struct {
	w      messageWriter
	logger zerolog.Logger

	mu     sync.RWMutex
	closed bool
	inbox  chan kafka.Message
	done   chan struct{}
}

func NewProducer(brokers []string, topic string, buf int, logger zerolog.Logger) *Producer {
	return newProducer(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
	}, buf, logger)
}

func newProducer(w messageWriter, buf int, logger zerolog.Logger) *Producer {
	if buf <= 0 {
		buf = 256
	}
	return &Producer{
		w:      w,
		logger: logger.With().Str("component", "kafka_producer").Logger(),
		inbox:  make(chan kafka.Message, buf),
		done:   make(chan struct{}),
	}
}

// Start runs the write loop until Close drains the buffer.
func (p *Producer) Start() {
	go func() {
		defer close(p.done)
		for m := range p.inbox {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := p.w.WriteMessages(ctx, m); err != nil {
				p.logger.Error().Err(err).Str("key", string(m.Key)).Msg("write message")
			}
			cancel()
		}
		if err := p.w.Close(); err != nil {
			p.logger.Error().Err(err).Msg("close writer")
		}
	}()
}

func (p *Producer) Publish(ctx context.Context, evt events.Envelope) error {
	value, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(evt.Key),
		Value: value,
		Time:  evt.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(evt.EventType)},
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

// Close stops accepting events, flushes the buffer and waits for the loop.
func (p *Producer) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.inbox)
	}
	p.mu.Unlock()
	<-p.done
}
