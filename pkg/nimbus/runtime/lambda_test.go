package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nimbusframework/nimbus-go/pkg/nimbus"
)

type recordedInvocation struct {
	function string
	err      error
}

type fakeMetrics struct {
	mu          sync.Mutex
	invocations []recordedInvocation
}

func (m *fakeMetrics) RecordInvocation(_ context.Context, function string, _ time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invocations = append(m.invocations, recordedInvocation{function: function, err: err})
}

func testConfig() *Config {
	return &Config{OnLambda: true, Stage: "dev", Function: "test"}
}

func newTestInvoker(t *testing.T, fn nimbus.Function) (*Invoker, *fakeMetrics) {
	t.Helper()
	metrics := &fakeMetrics{}
	inv, err := NewInvoker(fn, testConfig(), zap.NewNop(), metrics)
	require.NoError(t, err)
	return inv, metrics
}

func TestInvoker_HTTP(t *testing.T) {
	fn := nimbus.HTTPFunction("users.get", func(ctx nimbus.RequestContext) error {
		return ctx.JSON(http.StatusOK, map[string]string{"id": ctx.Param("id")})
	}, nimbus.HTTPTrigger{Method: "GET", Path: "/users/{id}", AllowedCorsOrigin: "*"})

	inv, metrics := newTestInvoker(t, fn)
	resp, err := inv.HandleHTTP(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod: "GET",
		Path:       "/users/42",
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"id":"42"}`, resp.Body)
	assert.Equal(t, []string{"*"}, resp.MultiValueHeaders["Access-Control-Allow-Origin"])
	require.Len(t, metrics.invocations, 1)
	assert.Equal(t, "users.get", metrics.invocations[0].function)
}

func TestInvoker_QueueReportsFailedMessages(t *testing.T) {
	var received []*nimbus.QueueMessage
	fn := nimbus.QueueFunction("orders.consume", func(ctx context.Context, msg *nimbus.QueueMessage) error {
		received = append(received, msg)
		if msg.Body == "bad" {
			return errors.New("cannot process")
		}
		return nil
	}, nimbus.QueueTrigger{Queue: "orders", BatchSize: 10})

	inv, metrics := newTestInvoker(t, fn)
	resp, err := inv.HandleQueue(context.Background(), events.SQSEvent{Records: []events.SQSMessage{
		{
			MessageId:      "m1",
			Body:           "good",
			EventSourceARN: "arn:aws:sqs:eu-west-1:123456789012:shop-dev-orders",
			Attributes:     map[string]string{"SentTimestamp": "1700000000000"},
			MessageAttributes: map[string]events.SQSMessageAttribute{
				"type": {StringValue: stringPtr("created"), DataType: "String"},
			},
		},
		{MessageId: "m2", Body: "bad"},
	}})
	require.NoError(t, err)

	require.Len(t, received, 2)
	assert.Equal(t, "shop-dev-orders", received[0].Queue)
	assert.Equal(t, "created", received[0].Attributes["type"])
	assert.Equal(t, time.UnixMilli(1700000000000).UTC(), received[0].SentAt)
	assert.Equal(t, []events.SQSBatchItemFailure{{ItemIdentifier: "m2"}}, resp.BatchItemFailures)
	require.Len(t, metrics.invocations, 1)
	assert.Error(t, metrics.invocations[0].err)
}

func TestInvoker_StoreFiltersByMethodAndTable(t *testing.T) {
	t.Setenv(nimbus.TableNameEnv("User"), "UserTabledev")

	var received []*nimbus.StoreEvent
	fn := nimbus.DocumentStoreFunction("users.onInsert", func(ctx context.Context, event *nimbus.StoreEvent) error {
		received = append(received, event)
		return nil
	}, nimbus.DocumentStoreTrigger{DataModel: "User", Method: nimbus.StoreInsert})

	inv, _ := newTestInvoker(t, fn)
	ctx := lambdacontext.NewContext(context.Background(), &lambdacontext.LambdaContext{AwsRequestID: "req-1"})
	arn := "arn:aws:dynamodb:eu-west-1:123456789012:table/UserTabledev/stream/2024-01-01T00:00:00.000"

	err := inv.HandleStore(ctx, events.DynamoDBEvent{Records: []events.DynamoDBEventRecord{
		{
			EventID:        "e1",
			EventName:      "INSERT",
			EventSourceArn: arn,
			Change: events.DynamoDBStreamRecord{
				Keys:     map[string]events.DynamoDBAttributeValue{"id": events.NewStringAttribute("u1")},
				NewImage: map[string]events.DynamoDBAttributeValue{"id": events.NewStringAttribute("u1"), "age": events.NewNumberAttribute("30")},
			},
		},
		{EventID: "e2", EventName: "MODIFY", EventSourceArn: arn},
		{EventID: "e3", EventName: "INSERT", EventSourceArn: "arn:aws:dynamodb:eu-west-1:123456789012:table/Other/stream/x"},
	}})
	require.NoError(t, err)

	require.Len(t, received, 1)
	event := received[0]
	assert.Equal(t, "e1", event.EventID)
	assert.Equal(t, "req-1", event.RequestID)
	assert.Equal(t, "UserTabledev", event.Table)
	assert.Empty(t, event.OldImage)

	var user struct {
		ID  string `dynamodbav:"id"`
		Age int    `dynamodbav:"age"`
	}
	require.NoError(t, event.DecodeNew(&user))
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, 30, user.Age)
}

func TestInvoker_StoreFailureStopsBatch(t *testing.T) {
	calls := 0
	fn := nimbus.DocumentStoreFunction("users.onRemove", func(ctx context.Context, event *nimbus.StoreEvent) error {
		calls++
		return errors.New("boom")
	}, nimbus.DocumentStoreTrigger{DataModel: "User", Method: nimbus.StoreRemove})

	inv, _ := newTestInvoker(t, fn)
	err := inv.HandleStore(context.Background(), events.DynamoDBEvent{Records: []events.DynamoDBEventRecord{
		{EventID: "e1", EventName: "REMOVE"},
		{EventID: "e2", EventName: "REMOVE"},
	}})

	assert.ErrorContains(t, err, "record e1")
	assert.Equal(t, 1, calls)
}

func TestInvoker_Notification(t *testing.T) {
	var received *nimbus.NotificationMessage
	fn := nimbus.NotificationFunction("alerts.receive", func(ctx context.Context, msg *nimbus.NotificationMessage) error {
		received = msg
		return nil
	}, nimbus.NotificationTrigger{Topic: "alerts"})

	inv, _ := newTestInvoker(t, fn)
	err := inv.HandleNotification(context.Background(), events.SNSEvent{Records: []events.SNSEventRecord{{
		SNS: events.SNSEntity{
			MessageID: "n1",
			TopicArn:  "arn:aws:sns:eu-west-1:123456789012:alertsdev",
			Subject:   "disk",
			Message:   `{"level":"high"}`,
			MessageAttributes: map[string]interface{}{
				"severity": map[string]interface{}{"Type": "String", "Value": "2"},
			},
		},
	}}})
	require.NoError(t, err)

	require.NotNil(t, received)
	assert.Equal(t, "alertsdev", received.Topic)
	assert.Equal(t, "disk", received.Subject)
	assert.Equal(t, map[string]string{"severity": "2"}, received.Attributes)
}

func TestInvoker_Basic(t *testing.T) {
	var payloads []string
	fn := nimbus.BasicFunction("reports.generate", func(ctx context.Context, payload json.RawMessage) (interface{}, error) {
		payloads = append(payloads, string(payload))
		return map[string]int{"count": len(payloads)}, nil
	}, nimbus.BasicTrigger{Cron: "0 12 * * ? *"})

	inv, _ := newTestInvoker(t, fn)

	result, err := inv.HandleBasic(context.Background(), json.RawMessage(`{"month":"may"}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"count": 1}, result)

	scheduled := `{"version":"0","id":"x","detail-type":"Scheduled Event","source":"aws.events","detail":{}}`
	_, err = inv.HandleBasic(context.Background(), json.RawMessage(scheduled))
	require.NoError(t, err)

	assert.Equal(t, []string{`{"month":"may"}`, "null"}, payloads)
}

func TestNewInvoker_RequiresTriggerInStage(t *testing.T) {
	fn := nimbus.QueueFunction("orders.consume", func(ctx context.Context, msg *nimbus.QueueMessage) error {
		return nil
	}, nimbus.QueueTrigger{Queue: "orders", BatchSize: 1, Stages: []string{"prod"}})

	_, err := NewInvoker(fn, testConfig(), zap.NewNop(), nil)
	assert.ErrorContains(t, err, "no triggers in stage dev")
}

func TestLambdaHandler(t *testing.T) {
	basic := nimbus.BasicFunction("jobs.run", func(ctx context.Context, payload json.RawMessage) (interface{}, error) {
		return "ok", nil
	})

	cfg := testConfig()
	cfg.Function = "jobs.run"
	handler, err := LambdaHandler(context.Background(), cfg, zap.NewNop(), basic)
	require.NoError(t, err)
	_, ok := handler.(func(context.Context, json.RawMessage) (interface{}, error))
	assert.True(t, ok)

	cfg.Function = "jobs.missing"
	_, err = LambdaHandler(context.Background(), cfg, zap.NewNop(), basic)
	assert.ErrorIs(t, err, ErrFunctionNotRegistered)
}

func stringPtr(s string) *string {
	return &s
}
