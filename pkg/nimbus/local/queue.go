package local

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nimbusframework/nimbus-go/pkg/nimbus"
)

// Queue buffers sent messages and delivers them in batches to the queue functions
type Queue struct {
	name       string
	deployment *Deployment

	mu         sync.Mutex
	pending    []*nimbus.QueueMessage
	sent       []*nimbus.QueueMessage
	delivering bool
}

func (q *Queue) Name() string {
	return q.name
}

// Send enqueues a message and returns its id. Delivery happens in the background.
func (q *Queue) Send(body string, attributes map[string]string) string {
	msg := &nimbus.QueueMessage{
		ID:         uuid.NewString(),
		Queue:      q.name,
		Body:       body,
		Attributes: attributes,
		SentAt:     time.Now().UTC(),
	}

	q.mu.Lock()
	q.pending = append(q.pending, msg)
	q.sent = append(q.sent, msg)
	start := !q.delivering
	q.delivering = true
	q.mu.Unlock()

	if start {
		q.deployment.dispatch(q.deliver)
	}
	return msg.ID
}

// Sent returns every message sent to the queue
func (q *Queue) Sent() []*nimbus.QueueMessage {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]*nimbus.QueueMessage(nil), q.sent...)
}

// deliver drains the pending buffer until it stays empty
func (q *Queue) deliver() {
	for {
		q.mu.Lock()
		messages := q.pending
		q.pending = nil
		if len(messages) == 0 {
			q.delivering = false
			q.mu.Unlock()
			return
		}
		q.mu.Unlock()

		consumers := q.deployment.triggered(nimbus.QueueKind, func(t nimbus.Trigger) bool {
			return t.(nimbus.QueueTrigger).Queue == q.name
		})
		if len(consumers) == 0 {
			q.deployment.logger.Warn("queue has no consumers", zap.String("queue", q.name), zap.Int("messages", len(messages)))
			continue
		}

		var wg sync.WaitGroup
		for _, consumer := range consumers {
			wg.Add(1)
			go func(consumer triggeredFunction) {
				defer wg.Done()
				q.consume(consumer, messages)
			}(consumer)
		}
		wg.Wait()
	}
}

// consume hands messages to one function in batches of at most its batch size
func (q *Queue) consume(consumer triggeredFunction, messages []*nimbus.QueueMessage) {
	size := consumer.trigger.(nimbus.QueueTrigger).BatchSize
	if size < 1 {
		size = 1
	}

	for start := 0; start < len(messages); start += size {
		batch := messages[start:min(start+size, len(messages))]
		q.deployment.logger.Debug("delivering batch",
			zap.String("queue", q.name),
			zap.String("function", consumer.fn.Name),
			zap.Int("size", len(batch)))

		for _, msg := range batch {
			q.deployment.run(consumer.fn.Name, func() error {
				return consumer.fn.Queue(context.Background(), msg)
			})
		}
	}
}
