package runtime

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"go.uber.org/zap"
)

// MetricsRecorder records one function invocation
type MetricsRecorder interface {
	RecordInvocation(ctx context.Context, function string, duration time.Duration, err error)
}

// CloudWatchAPI is the part of the CloudWatch client the recorder uses
type CloudWatchAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatchMetrics publishes invocation count and duration per function and stage
type CloudWatchMetrics struct {
	namespace string
	stage     string
	client    CloudWatchAPI
	logger    *zap.Logger
}

func NewCloudWatchMetrics(namespace, stage string, client CloudWatchAPI, logger *zap.Logger) *CloudWatchMetrics {
	return &CloudWatchMetrics{namespace: namespace, stage: stage, client: client, logger: logger}
}

// RecordInvocation never fails the invocation; publishing errors are logged
func (m *CloudWatchMetrics) RecordInvocation(ctx context.Context, function string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	dimensions := []types.Dimension{
		{Name: aws.String("Function"), Value: aws.String(function)},
		{Name: aws.String("Stage"), Value: aws.String(m.stage)},
		{Name: aws.String("Status"), Value: aws.String(status)},
	}
	now := time.Now()

	_, putErr := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(m.namespace),
		MetricData: []types.MetricDatum{
			{
				MetricName: aws.String("InvocationDuration"),
				Dimensions: dimensions,
				Value:      aws.Float64(float64(duration.Milliseconds())),
				Unit:       types.StandardUnitMilliseconds,
				Timestamp:  aws.Time(now),
			},
			{
				MetricName: aws.String("InvocationCount"),
				Dimensions: dimensions,
				Value:      aws.Float64(1),
				Unit:       types.StandardUnitCount,
				Timestamp:  aws.Time(now),
			},
		},
	})
	if putErr != nil {
		m.logger.Warn("failed to publish metrics", zap.String("function", function), zap.Error(putErr))
	}
}

type noopMetrics struct{}

func (noopMetrics) RecordInvocation(context.Context, string, time.Duration, error) {}
