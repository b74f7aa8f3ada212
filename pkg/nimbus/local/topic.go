package local

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nimbusframework/nimbus-go/pkg/nimbus"
)

// Subscription is an external endpoint subscribed to a topic
type Subscription struct {
	ID       string
	Protocol string
	Endpoint string
}

// Delivery records a notification handed to a subscription. Local topics do
// not contact external endpoints.
type Delivery struct {
	Subscription Subscription
	Message      *nimbus.NotificationMessage
}

// Topic fans published notifications out to notification functions and subscriptions
type Topic struct {
	name       string
	deployment *Deployment

	mu            sync.Mutex
	subscriptions map[string]Subscription
	deliveries    []Delivery
}

func (t *Topic) Name() string {
	return t.name
}

// Subscribe adds an endpoint and returns the subscription id
func (t *Topic) Subscribe(protocol, endpoint string) string {
	sub := Subscription{ID: uuid.NewString(), Protocol: protocol, Endpoint: endpoint}
	t.mu.Lock()
	t.subscriptions[sub.ID] = sub
	t.mu.Unlock()
	return sub.ID
}

// Unsubscribe removes a subscription, reporting whether it existed
func (t *Topic) Unsubscribe(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.subscriptions[id]; !ok {
		return false
	}
	delete(t.subscriptions, id)
	return true
}

// Subscriptions returns the current subscriptions ordered by endpoint
func (t *Topic) Subscriptions() []Subscription {
	t.mu.Lock()
	defer t.mu.Unlock()
	subs := make([]Subscription, 0, len(t.subscriptions))
	for _, sub := range t.subscriptions {
		subs = append(subs, sub)
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].Endpoint < subs[j].Endpoint })
	return subs
}

// Deliveries returns the notifications handed to subscriptions so far
func (t *Topic) Deliveries() []Delivery {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Delivery(nil), t.deliveries...)
}

// Publish sends a notification and returns its id. Functions run in the background.
func (t *Topic) Publish(subject, message string, attributes map[string]string) string {
	msg := &nimbus.NotificationMessage{
		ID:         uuid.NewString(),
		Topic:      t.name,
		Subject:    subject,
		Message:    message,
		Attributes: attributes,
		Timestamp:  time.Now().UTC(),
	}

	subscribers := t.deployment.triggered(nimbus.NotificationKind, func(tr nimbus.Trigger) bool {
		return tr.(nimbus.NotificationTrigger).Topic == t.name
	})
	for _, s := range subscribers {
		fn := s.fn
		t.deployment.dispatch(func() {
			t.deployment.run(fn.Name, func() error { return fn.Notification(context.Background(), msg) })
		})
	}

	for _, sub := range t.Subscriptions() {
		t.deployment.logger.Info("notification delivered",
			zap.String("topic", t.name),
			zap.String("protocol", sub.Protocol),
			zap.String("endpoint", sub.Endpoint))
		t.mu.Lock()
		t.deliveries = append(t.deliveries, Delivery{Subscription: sub, Message: msg})
		t.mu.Unlock()
	}
	return msg.ID
}
