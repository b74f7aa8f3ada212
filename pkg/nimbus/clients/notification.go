package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/nimbusframework/nimbus-go/pkg/nimbus"
	"github.com/nimbusframework/nimbus-go/pkg/nimbus/local"
)

// SNSAPI is the part of the SNS client NotificationClient uses
type SNSAPI interface {
	Subscribe(ctx context.Context, params *sns.SubscribeInput, optFns ...func(*sns.Options)) (*sns.SubscribeOutput, error)
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
	Unsubscribe(ctx context.Context, params *sns.UnsubscribeInput, optFns ...func(*sns.Options)) (*sns.UnsubscribeOutput, error)
}

type snsTopic struct {
	api   SNSAPI
	topic string
}

func (t *snsTopic) arn() (string, error) {
	arn := os.Getenv(nimbus.TopicARNEnv(t.topic))
	if arn == "" {
		return "", fmt.Errorf("%w: %s is unset, is the function missing uses_notification_topic %s?", ErrNotConfigured, nimbus.TopicARNEnv(t.topic), t.topic)
	}
	return arn, nil
}

// CreateSubscription returns the subscription ARN. Email subscriptions stay
// pending until confirmed.
func (t *snsTopic) CreateSubscription(ctx context.Context, protocol, endpoint string) (string, error) {
	arn, err := t.arn()
	if err != nil {
		return "", err
	}
	out, err := t.api.Subscribe(ctx, &sns.SubscribeInput{
		TopicArn:              aws.String(arn),
		Protocol:              aws.String(protocol),
		Endpoint:              aws.String(endpoint),
		ReturnSubscriptionArn: true,
	})
	if err != nil {
		return "", fmt.Errorf("failed to subscribe %s to %s: %w", endpoint, t.topic, err)
	}
	return aws.ToString(out.SubscriptionArn), nil
}

func (t *snsTopic) Notify(ctx context.Context, subject, message string) (string, error) {
	arn, err := t.arn()
	if err != nil {
		return "", err
	}
	input := &sns.PublishInput{TopicArn: aws.String(arn), Message: aws.String(message)}
	if subject != "" {
		input.Subject = aws.String(subject)
	}
	out, err := t.api.Publish(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to publish to %s: %w", t.topic, err)
	}
	return aws.ToString(out.MessageId), nil
}

func (t *snsTopic) NotifyJSON(ctx context.Context, subject string, v interface{}) (string, error) {
	return notifyJSON(ctx, t, subject, v)
}

func (t *snsTopic) DeleteSubscription(ctx context.Context, id string) error {
	if _, err := t.api.Unsubscribe(ctx, &sns.UnsubscribeInput{SubscriptionArn: aws.String(id)}); err != nil {
		return fmt.Errorf("failed to unsubscribe %s: %w", id, err)
	}
	return nil
}

type localTopic struct {
	topic *local.Topic
}

func (t *localTopic) CreateSubscription(_ context.Context, protocol, endpoint string) (string, error) {
	return t.topic.Subscribe(protocol, endpoint), nil
}

func (t *localTopic) Notify(_ context.Context, subject, message string) (string, error) {
	return t.topic.Publish(subject, message, nil), nil
}

func (t *localTopic) NotifyJSON(ctx context.Context, subject string, v interface{}) (string, error) {
	return notifyJSON(ctx, t, subject, v)
}

func (t *localTopic) DeleteSubscription(_ context.Context, id string) error {
	if !t.topic.Unsubscribe(id) {
		return fmt.Errorf("%w: subscription %s", ErrNotFound, id)
	}
	return nil
}

func notifyJSON(ctx context.Context, n NotificationClient, subject string, v interface{}) (string, error) {
	message, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode notification: %w", err)
	}
	return n.Notify(ctx, subject, string(message))
}
