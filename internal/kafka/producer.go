package kafka

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

var ErrProducerClosed = errors.New("producer closed")

// maxBatch bounds how many queued messages go out in one write.
const maxBatch = 100

type writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	w       writer
	topic   string
	inbox   chan kafka.Message
	closeCh chan struct{}
	logger  *zap.SugaredLogger

	mu     sync.RWMutex
	closed bool
}

func NewProducer(brokers []string, topic string, buf int, logger *zap.SugaredLogger) *Producer {
	return &Producer{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			BatchSize:    maxBatch,
			BatchTimeout: 10 * time.Millisecond,
		},
		topic:   topic,
		inbox:   make(chan kafka.Message, buf),
		closeCh: make(chan struct{}),
		logger:  logger,
	}
}

// Start runs the write loop. Whatever is queued when a write begins goes out
// in that write, in order; a failed write is logged and the loop moves on.
func (p *Producer) Start(ctx context.Context) {
	go func() {
		defer close(p.closeCh)
		for m := range p.inbox {
			batch := drain(m, p.inbox, maxBatch)
			if err := p.w.WriteMessages(ctx, batch...); err != nil {
				p.logger.Errorw("kafka write failed",
					"topic", p.topic, "messages", len(batch), "first_key", string(batch[0].Key), "error", err)
			}
		}
		if err := p.w.Close(); err != nil {
			p.logger.Warnw("kafka writer close", "topic", p.topic, "error", err)
		}
	}()
}

// drain returns first followed by up to limit-1 messages already waiting in
// inbox. It never blocks.
func drain(first kafka.Message, inbox <-chan kafka.Message, limit int) []kafka.Message {
	batch := []kafka.Message{first}
	for len(batch) < limit {
		select {
		case m, ok := <-inbox:
			if !ok {
				return batch
			}
			batch = append(batch, m)
		default:
			return batch
		}
	}
	return batch
}

// Publish queues a message. It blocks while the inbox is full until ctx is done.
func (p *Producer) Publish(ctx context.Context, key, value []byte, headers ...kafka.Header) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrProducerClosed
	}
	m := kafka.Message{
		Key:     key,
		Value:   value,
		Time:    time.Now(),
		Headers: headers,
	}
	select {
	case p.inbox <- m:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting messages; the loop flushes what is queued and exits.
func (p *Producer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.inbox)
}

// WaitClosed blocks until the write loop has drained.
func (p *Producer) WaitClosed() { <-p.closeCh }
