// Package local runs registered functions in-process. Queues, document and
// key-value stores and notification topics live in memory and invoke the
// functions triggered by them asynchronously, the way the cloud event sources do.
package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/nimbusframework/nimbus-go/pkg/nimbus"
)

// DefaultStage is the stage local deployments run as unless told otherwise
const DefaultStage = "dev"

var (
	// ErrConditionFailed is returned when a conditional store write does not hold
	ErrConditionFailed = errors.New("condition failed")
	// ErrFunctionNotFound is returned when invoking a function that is not registered
	ErrFunctionNotFound = errors.New("function not found")
)

// Deployment holds the in-memory resources and registered functions of one local run
type Deployment struct {
	stage     string
	logger    *zap.Logger
	functions *nimbus.FunctionRegistry

	mu       sync.Mutex
	queues   map[string]*Queue
	tables   map[string]*Table
	kvTables map[string]*Table
	topics   map[string]*Topic
	failed   []error

	inflight sync.WaitGroup
}

// New creates an empty deployment for a stage
func New(stage string) *Deployment {
	if stage == "" {
		stage = DefaultStage
	}
	return &Deployment{
		stage:     stage,
		logger:    zap.L().Named("local"),
		functions: nimbus.NewFunctionRegistry(),
		queues:    make(map[string]*Queue),
		tables:    make(map[string]*Table),
		kvTables:  make(map[string]*Table),
		topics:    make(map[string]*Topic),
	}
}

var (
	defaultMu         sync.Mutex
	defaultDeployment *Deployment
)

// Default returns the process-wide deployment local clients talk to
func Default() *Deployment {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultDeployment == nil {
		defaultDeployment = New(DefaultStage)
	}
	return defaultDeployment
}

// SetDefault replaces the process-wide deployment and returns the previous one
func SetDefault(d *Deployment) *Deployment {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	previous := defaultDeployment
	defaultDeployment = d
	return previous
}

// WithLogger sets the logger deliveries and failures are reported to
func (d *Deployment) WithLogger(logger *zap.Logger) *Deployment {
	d.logger = logger.Named("local")
	return d
}

func (d *Deployment) Stage() string {
	return d.stage
}

// Register adds functions; their triggers take effect immediately
func (d *Deployment) Register(functions ...nimbus.Function) error {
	if err := d.functions.Register(functions...); err != nil {
		return err
	}
	for _, fn := range functions {
		d.logger.Debug("registered function",
			zap.String("function", fn.Name),
			zap.String("kind", string(fn.Kind)),
			zap.Int("triggers", len(fn.TriggersFor(d.stage))))
	}
	return nil
}

// Functions returns the registered functions
func (d *Deployment) Functions() []nimbus.Function {
	return d.functions.All()
}

// Queue returns the named queue, creating it on first use
func (d *Deployment) Queue(name string) *Queue {
	d.mu.Lock()
	defer d.mu.Unlock()
	q, ok := d.queues[name]
	if !ok {
		q = &Queue{name: name, deployment: d}
		d.queues[name] = q
	}
	return q
}

// Table returns the document store table of a data model, creating it keyed
// by key on first use. Its writes fire document store functions.
func (d *Deployment) Table(model, key string) *Table {
	return d.table(d.tables, model, key, true)
}

// KeyValueTable returns the key-value store table of a value type. It is kept
// apart from the document table of the same type and fires nothing.
func (d *Deployment) KeyValueTable(model, key string) *Table {
	return d.table(d.kvTables, model, key, false)
}

func (d *Deployment) table(tables map[string]*Table, model, key string, streams bool) *Table {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := tables[model]
	if !ok {
		t = &Table{model: model, key: key, streams: streams, deployment: d, items: make(map[string]Item)}
		tables[model] = t
	}
	return t
}

// Topic returns the named notification topic, creating it on first use
func (d *Deployment) Topic(name string) *Topic {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.topics[name]
	if !ok {
		t = &Topic{name: name, deployment: d, subscriptions: make(map[string]Subscription)}
		d.topics[name] = t
	}
	return t
}

// Invoke runs a basic function synchronously and returns its result
func (d *Deployment) Invoke(ctx context.Context, name string, payload json.RawMessage) (interface{}, error) {
	fn, ok := d.functions.Get(name)
	if !ok || fn.Kind != nimbus.BasicKind {
		return nil, fmt.Errorf("%w: %s is not a basic function", ErrFunctionNotFound, name)
	}
	if len(fn.TriggersFor(d.stage)) == 0 {
		return nil, fmt.Errorf("%w: %s is not deployed to stage %s", ErrFunctionNotFound, name, d.stage)
	}
	return fn.Basic(ctx, payload)
}

// InvokeAsync runs a basic function in the background, discarding its result
func (d *Deployment) InvokeAsync(name string, payload json.RawMessage) error {
	fn, ok := d.functions.Get(name)
	if !ok || fn.Kind != nimbus.BasicKind {
		return fmt.Errorf("%w: %s is not a basic function", ErrFunctionNotFound, name)
	}
	d.dispatch(func() {
		d.run(fn.Name, func() error {
			_, err := fn.Basic(context.Background(), payload)
			return err
		})
	})
	return nil
}

// Drain blocks until every asynchronous delivery, including ones started by
// handlers while draining, has finished
func (d *Deployment) Drain() {
	d.inflight.Wait()
}

// Failures returns the errors returned by asynchronously invoked handlers
func (d *Deployment) Failures() []error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]error(nil), d.failed...)
}

func (d *Deployment) dispatch(work func()) {
	d.inflight.Add(1)
	go func() {
		defer d.inflight.Done()
		defer func() {
			if r := recover(); r != nil {
				d.fail("dispatch", fmt.Errorf("handler panicked: %v", r))
			}
		}()
		work()
	}()
}

// run calls a handler on the current goroutine, recording a returned error or
// a panic as a failure of function
func (d *Deployment) run(function string, handler func() error) {
	defer func() {
		if r := recover(); r != nil {
			d.fail(function, fmt.Errorf("handler panicked: %v", r))
		}
	}()
	if err := handler(); err != nil {
		d.fail(function, err)
	}
}

func (d *Deployment) fail(function string, err error) {
	d.logger.Error("function failed", zap.String("function", function), zap.Error(err))
	d.mu.Lock()
	d.failed = append(d.failed, fmt.Errorf("%s: %w", function, err))
	d.mu.Unlock()
}

// triggered returns the functions of a kind with a trigger in this stage accepted by match
func (d *Deployment) triggered(kind nimbus.Kind, match func(nimbus.Trigger) bool) []triggeredFunction {
	var result []triggeredFunction
	for _, fn := range d.functions.ByKind(kind) {
		for _, t := range fn.TriggersFor(d.stage) {
			if match(t) {
				result = append(result, triggeredFunction{fn: fn, trigger: t})
			}
		}
	}
	return result
}

type triggeredFunction struct {
	fn      nimbus.Function
	trigger nimbus.Trigger
}
