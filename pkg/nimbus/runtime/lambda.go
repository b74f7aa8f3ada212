package runtime

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
	echoadapter "github.com/awslabs/aws-lambda-go-api-proxy/echo"
	"go.uber.org/zap"

	"github.com/nimbusframework/nimbus-go/pkg/nimbus"
	"github.com/nimbusframework/nimbus-go/pkg/nimbus/adapters"
)

// Invoker turns Lambda events into calls of one function's handler
type Invoker struct {
	fn      nimbus.Function
	stage   string
	logger  *zap.Logger
	metrics MetricsRecorder
	tracing bool

	proxy *echoadapter.EchoLambda
}

// NewInvoker prepares fn for the Lambda events of its kind. HTTP functions are
// mounted on an Echo engine behind the API Gateway proxy.
func NewInvoker(fn nimbus.Function, cfg *Config, logger *zap.Logger, metrics MetricsRecorder) (*Invoker, error) {
	if err := fn.Validate(); err != nil {
		return nil, err
	}
	if len(fn.TriggersFor(cfg.Stage)) == 0 {
		return nil, fmt.Errorf("function %s has no triggers in stage %s", fn.Name, cfg.Stage)
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}

	inv := &Invoker{
		fn:      fn,
		stage:   cfg.Stage,
		logger:  logger,
		metrics: metrics,
		tracing: cfg.EnableTracing,
	}
	if fn.Kind == nimbus.HTTPKind {
		server := adapters.NewDefaultEchoAdapter()
		adapters.Mount(server, cfg.Stage, fn)
		inv.proxy = echoadapter.New(server.GetEngine())
	}
	return inv, nil
}

// Handler returns the typed handler lambda.Start expects for the function's kind
func (i *Invoker) Handler() interface{} {
	switch i.fn.Kind {
	case nimbus.HTTPKind:
		return i.HandleHTTP
	case nimbus.QueueKind:
		return i.HandleQueue
	case nimbus.DocumentStoreKind:
		return i.HandleStore
	case nimbus.NotificationKind:
		return i.HandleNotification
	default:
		return i.HandleBasic
	}
}

// HandleHTTP serves one API Gateway proxy request
func (i *Invoker) HandleHTTP(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var resp events.APIGatewayProxyResponse
	err := i.invoke(ctx, func(ctx context.Context) error {
		var err error
		resp, err = i.proxy.ProxyWithContext(ctx, req)
		return err
	})
	return resp, err
}

// HandleQueue processes a batch of SQS messages and reports the failed ones
// so only those return to the queue
func (i *Invoker) HandleQueue(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	var resp events.SQSEventResponse
	_ = i.invoke(ctx, func(ctx context.Context) error {
		var failed int
		for _, record := range event.Records {
			if err := i.fn.Queue(ctx, queueMessage(record)); err != nil {
				failed++
				i.logger.Error("queue message failed",
					zap.String("message_id", record.MessageId),
					zap.Error(err))
				resp.BatchItemFailures = append(resp.BatchItemFailures, events.SQSBatchItemFailure{
					ItemIdentifier: record.MessageId,
				})
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d messages failed", failed, len(event.Records))
		}
		return nil
	})
	return resp, nil
}

// HandleStore processes a batch of DynamoDB stream records. Records whose change
// type or table no trigger names are skipped. The first failure stops the batch
// so the stream retries it.
func (i *Invoker) HandleStore(ctx context.Context, event events.DynamoDBEvent) error {
	return i.invoke(ctx, func(ctx context.Context) error {
		requestID := requestID(ctx)
		for _, record := range event.Records {
			change, err := storeEvent(record, requestID)
			if err != nil {
				return fmt.Errorf("record %s: %w", record.EventID, err)
			}
			if !i.wantsStoreEvent(change) {
				continue
			}
			if err := i.fn.Store(ctx, change); err != nil {
				return fmt.Errorf("record %s: %w", record.EventID, err)
			}
		}
		return nil
	})
}

func (i *Invoker) wantsStoreEvent(change *nimbus.StoreEvent) bool {
	for _, t := range i.fn.TriggersFor(i.stage) {
		trigger := t.(nimbus.DocumentStoreTrigger)
		if trigger.Method != change.EventName {
			continue
		}
		if table := os.Getenv(nimbus.TableNameEnv(trigger.DataModel)); table != "" && table != change.Table {
			continue
		}
		return true
	}
	return false
}

// HandleNotification processes the SNS records of one invocation
func (i *Invoker) HandleNotification(ctx context.Context, event events.SNSEvent) error {
	return i.invoke(ctx, func(ctx context.Context) error {
		for _, record := range event.Records {
			if err := i.fn.Notification(ctx, notificationMessage(record)); err != nil {
				return fmt.Errorf("notification %s: %w", record.SNS.MessageID, err)
			}
		}
		return nil
	})
}

// HandleBasic runs a direct invocation. Scheduled runs receive a null payload.
func (i *Invoker) HandleBasic(ctx context.Context, payload json.RawMessage) (interface{}, error) {
	if isScheduledEvent(payload) || len(payload) == 0 {
		payload = json.RawMessage("null")
	}
	var result interface{}
	err := i.invoke(ctx, func(ctx context.Context) error {
		var err error
		result, err = i.fn.Basic(ctx, payload)
		return err
	})
	return result, err
}

func (i *Invoker) invoke(ctx context.Context, run func(context.Context) error) error {
	start := time.Now()
	logger := i.logger.With(zap.String("request_id", requestID(ctx)))

	err := traced(ctx, i.tracing, i.fn.Name, run)
	duration := time.Since(start)
	i.metrics.RecordInvocation(ctx, i.fn.Name, duration, err)

	if err != nil {
		logger.Error("invocation failed", zap.Duration("duration", duration), zap.Error(err))
	} else {
		logger.Debug("invocation finished", zap.Duration("duration", duration))
	}
	return err
}

func requestID(ctx context.Context) string {
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		return lc.AwsRequestID
	}
	return ""
}

func isScheduledEvent(payload json.RawMessage) bool {
	if !bytes.Contains(payload, []byte("Scheduled Event")) {
		return false
	}
	var event events.CloudWatchEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return false
	}
	return event.Source == "aws.events" && event.DetailType == "Scheduled Event"
}
