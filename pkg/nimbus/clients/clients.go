// Package clients gives functions access to the resources they declared with
// uses_* markers. Under Lambda the clients call DynamoDB, SQS, SNS and Lambda;
// everywhere else they use the in-process local deployment.
package clients

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/nimbusframework/nimbus-go/pkg/nimbus/local"
)

var (
	// ErrNotFound is returned when no item is stored under a key
	ErrNotFound = errors.New("item not found")
	// ErrConditionFailed is returned when a conditional write's condition does not hold
	ErrConditionFailed = local.ErrConditionFailed
	// ErrNotConfigured is returned when the environment does not name a resource
	ErrNotConfigured = errors.New("resource not configured")
)

// QueueClient sends messages to a queue
type QueueClient interface {
	SendMessage(ctx context.Context, body string) (string, error)
	SendMessageAsJSON(ctx context.Context, v interface{}) (string, error)
}

// DocumentStoreClient stores documents of type T keyed by one of their attributes
type DocumentStoreClient[T any] interface {
	Put(ctx context.Context, item T) error
	PutIf(ctx context.Context, item T, condition Condition) error
	Get(ctx context.Context, key string) (T, error)
	GetAll(ctx context.Context) ([]T, error)
	Delete(ctx context.Context, item T) error
	DeleteKey(ctx context.Context, key string) error
}

// KeyValueStoreClient stores values of type V under keys of type K
type KeyValueStoreClient[K comparable, V any] interface {
	Put(ctx context.Context, key K, value V) error
	PutIf(ctx context.Context, key K, value V, condition Condition) error
	Get(ctx context.Context, key K) (V, error)
	GetAll(ctx context.Context) (map[K]V, error)
	Delete(ctx context.Context, key K) error
	// Increment adds amount to a numeric attribute, starting from zero when absent
	Increment(ctx context.Context, key K, attribute string, amount float64) error
}

// NotificationClient publishes to a topic and manages its subscriptions
type NotificationClient interface {
	CreateSubscription(ctx context.Context, protocol, endpoint string) (string, error)
	Notify(ctx context.Context, subject, message string) (string, error)
	NotifyJSON(ctx context.Context, subject string, v interface{}) (string, error)
	DeleteSubscription(ctx context.Context, id string) error
}

// BasicFunctionClient invokes a basic function
type BasicFunctionClient interface {
	// Invoke waits for the function and decodes its result into out, which may be nil
	Invoke(ctx context.Context, payload interface{}, out interface{}) error
	InvokeAsync(ctx context.Context, payload interface{}) error
}

func marshalPayload(v interface{}) (json.RawMessage, error) {
	if v == nil {
		return json.RawMessage("null"), nil
	}
	if raw, ok := v.(json.RawMessage); ok {
		return raw, nil
	}
	return json.Marshal(v)
}
