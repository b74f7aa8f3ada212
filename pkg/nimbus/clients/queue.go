package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/nimbusframework/nimbus-go/pkg/nimbus"
	"github.com/nimbusframework/nimbus-go/pkg/nimbus/local"
)

// SQSAPI is the part of the SQS client QueueClient uses
type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

type sqsQueue struct {
	api   SQSAPI
	queue string
}

func (q *sqsQueue) SendMessage(ctx context.Context, body string) (string, error) {
	url := os.Getenv(nimbus.QueueURLEnv(q.queue))
	if url == "" {
		return "", fmt.Errorf("%w: %s is unset, is the function missing uses_queue %s?", ErrNotConfigured, nimbus.QueueURLEnv(q.queue), q.queue)
	}
	out, err := q.api.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(url),
		MessageBody: aws.String(body),
	})
	if err != nil {
		return "", fmt.Errorf("failed to send message to %s: %w", q.queue, err)
	}
	return aws.ToString(out.MessageId), nil
}

func (q *sqsQueue) SendMessageAsJSON(ctx context.Context, v interface{}) (string, error) {
	return sendJSON(ctx, q, v)
}

type localQueue struct {
	queue *local.Queue
}

func (q *localQueue) SendMessage(_ context.Context, body string) (string, error) {
	return q.queue.Send(body, nil), nil
}

func (q *localQueue) SendMessageAsJSON(ctx context.Context, v interface{}) (string, error) {
	return sendJSON(ctx, q, v)
}

func sendJSON(ctx context.Context, q QueueClient, v interface{}) (string, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode message: %w", err)
	}
	return q.SendMessage(ctx, string(body))
}
