package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nimbusframework/nimbus-go/pkg/nimbus"
	"github.com/nimbusframework/nimbus-go/pkg/nimbus/local"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "")
	t.Setenv(nimbus.EnvStage, "")
	t.Setenv(EnvPort, "9090")
	t.Setenv(EnvLocalServer, "Gin")
	t.Setenv(EnvEnableMetrics, "1")

	cfg := LoadConfig()
	assert.False(t, cfg.OnLambda)
	assert.Equal(t, local.DefaultStage, cfg.Stage)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "gin", cfg.Server)
	assert.True(t, cfg.EnableMetrics)
	assert.False(t, cfg.EnableTracing)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, ":9090", cfg.Addr())
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{Stage: "dev", Port: 8080, Server: "echo", ShutdownTimeout: time.Second}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid local", func(c *Config) {}, ""},
		{"lambda needs function", func(c *Config) { c.OnLambda = true }, nimbus.EnvFunction},
		{"lambda ignores port", func(c *Config) { c.OnLambda, c.Function, c.Port = true, "a.b", 0 }, ""},
		{"bad port", func(c *Config) { c.Port = 70000 }, EnvPort},
		{"unknown server", func(c *Config) { c.Server = "chi" }, EnvLocalServer},
		{"empty stage", func(c *Config) { c.Stage = "" }, nimbus.EnvStage},
		{"shutdown timeout", func(c *Config) { c.ShutdownTimeout = 0 }, EnvShutdownTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(&Config{Stage: "dev", LogLevel: "debug"})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zap.DebugLevel))

	logger, err = NewLogger(&Config{OnLambda: true, Stage: "prod", Function: "a.b", LogLevel: "nonsense"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zap.DebugLevel))
	assert.True(t, logger.Core().Enabled(zap.InfoLevel))
}

func TestAttributeValue(t *testing.T) {
	in := map[string]events.DynamoDBAttributeValue{
		"id":    events.NewStringAttribute("u1"),
		"age":   events.NewNumberAttribute("30"),
		"admin": events.NewBooleanAttribute(false),
		"none":  events.NewNullAttribute(),
		"tags":  events.NewStringSetAttribute([]string{"a", "b"}),
		"data":  events.NewBinaryAttribute([]byte{1, 2}),
		"address": events.NewMapAttribute(map[string]events.DynamoDBAttributeValue{
			"city": events.NewStringAttribute("Oslo"),
		}),
		"scores": events.NewListAttribute([]events.DynamoDBAttributeValue{
			events.NewNumberAttribute("1"),
			events.NewStringAttribute("x"),
		}),
	}

	out, err := attributeMap(in)
	require.NoError(t, err)

	assert.Equal(t, map[string]types.AttributeValue{
		"id":    &types.AttributeValueMemberS{Value: "u1"},
		"age":   &types.AttributeValueMemberN{Value: "30"},
		"admin": &types.AttributeValueMemberBOOL{Value: false},
		"none":  &types.AttributeValueMemberNULL{Value: true},
		"tags":  &types.AttributeValueMemberSS{Value: []string{"a", "b"}},
		"data":  &types.AttributeValueMemberB{Value: []byte{1, 2}},
		"address": &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{
			"city": &types.AttributeValueMemberS{Value: "Oslo"},
		}},
		"scores": &types.AttributeValueMemberL{Value: []types.AttributeValue{
			&types.AttributeValueMemberN{Value: "1"},
			&types.AttributeValueMemberS{Value: "x"},
		}},
	}, out)

	empty, err := attributeMap(nil)
	require.NoError(t, err)
	assert.Nil(t, empty)
}

func TestStreamTable(t *testing.T) {
	assert.Equal(t, "Users", streamTable("arn:aws:dynamodb:us-east-1:123:table/Users/stream/2015-06-27T00:48:05.899"))
	assert.Equal(t, "Users", streamTable("arn:aws:dynamodb:us-east-1:123:table/Users"))
	assert.Equal(t, "", streamTable(""))
	assert.Equal(t, "orders", arnResource("arn:aws:sqs:us-east-1:123:orders"))
}

type fakeCloudWatch struct {
	inputs []*cloudwatch.PutMetricDataInput
	err    error
}

func (f *fakeCloudWatch) PutMetricData(_ context.Context, in *cloudwatch.PutMetricDataInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	f.inputs = append(f.inputs, in)
	return &cloudwatch.PutMetricDataOutput{}, f.err
}

func TestCloudWatchMetrics(t *testing.T) {
	client := &fakeCloudWatch{}
	metrics := NewCloudWatchMetrics("Nimbus", "prod", client, zap.NewNop())

	metrics.RecordInvocation(context.Background(), "orders.consume", 150*time.Millisecond, errors.New("failed"))

	require.Len(t, client.inputs, 1)
	in := client.inputs[0]
	assert.Equal(t, "Nimbus", *in.Namespace)
	require.Len(t, in.MetricData, 2)

	duration := in.MetricData[0]
	assert.Equal(t, "InvocationDuration", *duration.MetricName)
	assert.Equal(t, 150.0, *duration.Value)

	dims := map[string]string{}
	for _, d := range duration.Dimensions {
		dims[*d.Name] = *d.Value
	}
	assert.Equal(t, map[string]string{"Function": "orders.consume", "Stage": "prod", "Status": "failure"}, dims)

	client.err = errors.New("throttled")
	assert.NotPanics(t, func() {
		metrics.RecordInvocation(context.Background(), "orders.consume", time.Millisecond, nil)
	})
}

func TestLocal(t *testing.T) {
	previous := local.Default()
	t.Cleanup(func() { local.SetDefault(previous) })

	consumed := make(chan string, 1)
	functions := []nimbus.Function{
		nimbus.HTTPFunction("health.check", func(ctx nimbus.RequestContext) error {
			return ctx.String(http.StatusOK, "ok")
		}, nimbus.HTTPTrigger{Method: "GET", Path: "/health"}),
		nimbus.QueueFunction("orders.consume", func(ctx context.Context, msg *nimbus.QueueMessage) error {
			consumed <- msg.Body
			return nil
		}, nimbus.QueueTrigger{Queue: "orders", BatchSize: 1}),
		nimbus.BasicFunction("jobs.run", func(ctx context.Context, payload json.RawMessage) (interface{}, error) {
			return nil, nil
		}),
	}

	cfg := &Config{Stage: "dev", Port: 0, Server: "echo", ShutdownTimeout: time.Second}
	l, err := NewLocal(cfg, zap.NewNop(), functions...)
	require.NoError(t, err)

	assert.Same(t, l.Deployment(), local.Default())
	assert.Len(t, l.Deployment().Functions(), 3)

	handler, ok := l.Server().(http.Handler)
	require.True(t, ok)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	l.Deployment().Queue("orders").Send("order-1", nil)
	select {
	case body := <-consumed:
		assert.Equal(t, "order-1", body)
	case <-time.After(time.Second):
		t.Fatal("queue message not consumed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("local deployment did not stop")
	}
}

func TestNewLocal_RejectsDuplicateNames(t *testing.T) {
	fn := nimbus.BasicFunction("jobs.run", func(ctx context.Context, payload json.RawMessage) (interface{}, error) {
		return nil, nil
	})
	cfg := &Config{Stage: "dev", Port: 8080, Server: "echo", ShutdownTimeout: time.Second}

	_, err := NewLocal(cfg, zap.NewNop(), fn, fn)
	assert.Error(t, err)
}
