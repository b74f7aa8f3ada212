package nimbus

import (
	"context"
	"encoding/json"
	"fmt"
)

// QueueHandler processes one queue message
type QueueHandler func(ctx context.Context, msg *QueueMessage) error

// StoreHandler processes one document store change
type StoreHandler func(ctx context.Context, event *StoreEvent) error

// NotificationHandler processes one topic notification
type NotificationHandler func(ctx context.Context, msg *NotificationMessage) error

// BasicHandler handles a direct invocation or a scheduled run; payload is null for cron runs
type BasicHandler func(ctx context.Context, payload json.RawMessage) (interface{}, error)

// Function is a handler together with every trigger that invokes it. Exactly one
// handler field is set, matching Kind.
type Function struct {
	Name     string
	Kind     Kind
	Triggers []Trigger

	HTTP         HandlerFunc
	Queue        QueueHandler
	Store        StoreHandler
	Notification NotificationHandler
	Basic        BasicHandler
}

// HTTPFunction registers an HTTP handler under one or more method/path triggers
func HTTPFunction(name string, handler HandlerFunc, triggers ...HTTPTrigger) Function {
	fn := Function{Name: name, Kind: HTTPKind, HTTP: handler}
	for _, t := range triggers {
		fn.Triggers = append(fn.Triggers, t)
	}
	return fn
}

// QueueFunction registers a queue consumer
func QueueFunction(name string, handler QueueHandler, triggers ...QueueTrigger) Function {
	fn := Function{Name: name, Kind: QueueKind, Queue: handler}
	for _, t := range triggers {
		fn.Triggers = append(fn.Triggers, t)
	}
	return fn
}

// DocumentStoreFunction registers a handler for document store changes
func DocumentStoreFunction(name string, handler StoreHandler, triggers ...DocumentStoreTrigger) Function {
	fn := Function{Name: name, Kind: DocumentStoreKind, Store: handler}
	for _, t := range triggers {
		fn.Triggers = append(fn.Triggers, t)
	}
	return fn
}

// NotificationFunction registers a topic subscriber
func NotificationFunction(name string, handler NotificationHandler, triggers ...NotificationTrigger) Function {
	fn := Function{Name: name, Kind: NotificationKind, Notification: handler}
	for _, t := range triggers {
		fn.Triggers = append(fn.Triggers, t)
	}
	return fn
}

// BasicFunction registers a directly invokable function. Without triggers it is deployed to every stage.
func BasicFunction(name string, handler BasicHandler, triggers ...BasicTrigger) Function {
	fn := Function{Name: name, Kind: BasicKind, Basic: handler}
	if len(triggers) == 0 {
		triggers = []BasicTrigger{{}}
	}
	for _, t := range triggers {
		fn.Triggers = append(fn.Triggers, t)
	}
	return fn
}

// Validate checks the handler and every trigger
func (f Function) Validate() error {
	if f.Name == "" {
		return fmt.Errorf("function name is required")
	}
	if len(f.Triggers) == 0 {
		return fmt.Errorf("function %s has no triggers", f.Name)
	}
	if !f.hasHandler() {
		return fmt.Errorf("function %s has no %s handler", f.Name, f.Kind)
	}
	for i, t := range f.Triggers {
		if t.Kind() != f.Kind {
			return fmt.Errorf("function %s: trigger %d is %s, expected %s", f.Name, i, t.Kind(), f.Kind)
		}
		if err := ValidateTrigger(t); err != nil {
			return fmt.Errorf("function %s: trigger %d: %w", f.Name, i, err)
		}
	}
	return nil
}

func (f Function) hasHandler() bool {
	switch f.Kind {
	case HTTPKind:
		return f.HTTP != nil
	case QueueKind:
		return f.Queue != nil
	case DocumentStoreKind:
		return f.Store != nil
	case NotificationKind:
		return f.Notification != nil
	case BasicKind:
		return f.Basic != nil
	}
	return false
}

// TriggersFor returns the triggers deployed to a stage. An empty stage matches every trigger.
func (f Function) TriggersFor(stage string) []Trigger {
	var result []Trigger
	for _, t := range f.Triggers {
		if t.AppliesTo(stage) {
			result = append(result, t)
		}
	}
	return result
}

// Settings returns the largest timeout and memory among the triggers of a stage
func (f Function) Settings(stage string) (timeout, memory int) {
	for _, t := range f.TriggersFor(stage) {
		tt, tm := t.Settings()
		timeout = max(timeout, tt)
		memory = max(memory, tm)
	}
	if timeout == 0 {
		timeout, memory = DefaultTimeout, DefaultMemory
	}
	return timeout, memory
}
