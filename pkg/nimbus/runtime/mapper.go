package runtime

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/nimbusframework/nimbus-go/pkg/nimbus"
)

// queueMessage converts an SQS record. The queue name is the last segment of the source ARN.
func queueMessage(record events.SQSMessage) *nimbus.QueueMessage {
	attributes := make(map[string]string, len(record.MessageAttributes))
	for name, attr := range record.MessageAttributes {
		if attr.StringValue != nil {
			attributes[name] = *attr.StringValue
		}
	}

	msg := &nimbus.QueueMessage{
		ID:         record.MessageId,
		Queue:      arnResource(record.EventSourceARN),
		Body:       record.Body,
		Attributes: attributes,
	}
	if sent, err := strconv.ParseInt(record.Attributes["SentTimestamp"], 10, 64); err == nil {
		msg.SentAt = time.UnixMilli(sent).UTC()
	}
	return msg
}

// notificationMessage converts an SNS record. Attribute values arrive as {"Type": ..., "Value": ...}.
func notificationMessage(record events.SNSEventRecord) *nimbus.NotificationMessage {
	attributes := make(map[string]string, len(record.SNS.MessageAttributes))
	for name, raw := range record.SNS.MessageAttributes {
		attr, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		if value, ok := attr["Value"].(string); ok {
			attributes[name] = value
		}
	}

	return &nimbus.NotificationMessage{
		ID:         record.SNS.MessageID,
		Topic:      arnResource(record.SNS.TopicArn),
		Subject:    record.SNS.Subject,
		Message:    record.SNS.Message,
		Attributes: attributes,
		Timestamp:  record.SNS.Timestamp,
	}
}

// storeEvent converts a DynamoDB stream record into a store event of SDK attribute values
func storeEvent(record events.DynamoDBEventRecord, requestID string) (*nimbus.StoreEvent, error) {
	keys, err := attributeMap(record.Change.Keys)
	if err != nil {
		return nil, fmt.Errorf("keys: %w", err)
	}
	oldImage, err := attributeMap(record.Change.OldImage)
	if err != nil {
		return nil, fmt.Errorf("old image: %w", err)
	}
	newImage, err := attributeMap(record.Change.NewImage)
	if err != nil {
		return nil, fmt.Errorf("new image: %w", err)
	}

	return &nimbus.StoreEvent{
		EventID:   record.EventID,
		EventName: nimbus.StoreEventType(record.EventName),
		RequestID: requestID,
		Table:     streamTable(record.EventSourceArn),
		Keys:      keys,
		OldImage:  oldImage,
		NewImage:  newImage,
	}, nil
}

func attributeMap(in map[string]events.DynamoDBAttributeValue) (map[string]types.AttributeValue, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make(map[string]types.AttributeValue, len(in))
	for name, value := range in {
		converted, err := attributeValue(value)
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %w", name, err)
		}
		out[name] = converted
	}
	return out, nil
}

func attributeValue(value events.DynamoDBAttributeValue) (types.AttributeValue, error) {
	switch value.DataType() {
	case events.DataTypeString:
		return &types.AttributeValueMemberS{Value: value.String()}, nil
	case events.DataTypeNumber:
		return &types.AttributeValueMemberN{Value: value.Number()}, nil
	case events.DataTypeBinary:
		return &types.AttributeValueMemberB{Value: value.Binary()}, nil
	case events.DataTypeBoolean:
		return &types.AttributeValueMemberBOOL{Value: value.Boolean()}, nil
	case events.DataTypeNull:
		return &types.AttributeValueMemberNULL{Value: true}, nil
	case events.DataTypeStringSet:
		return &types.AttributeValueMemberSS{Value: value.StringSet()}, nil
	case events.DataTypeNumberSet:
		return &types.AttributeValueMemberNS{Value: value.NumberSet()}, nil
	case events.DataTypeBinarySet:
		return &types.AttributeValueMemberBS{Value: value.BinarySet()}, nil
	case events.DataTypeList:
		list := value.List()
		out := make([]types.AttributeValue, 0, len(list))
		for i, elem := range list {
			converted, err := attributeValue(elem)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			out = append(out, converted)
		}
		return &types.AttributeValueMemberL{Value: out}, nil
	case events.DataTypeMap:
		m, err := attributeMap(value.Map())
		if err != nil {
			return nil, err
		}
		if m == nil {
			m = map[string]types.AttributeValue{}
		}
		return &types.AttributeValueMemberM{Value: m}, nil
	}
	return nil, fmt.Errorf("unsupported attribute type %v", value.DataType())
}

// arnResource returns the part of an ARN after the last colon
func arnResource(arn string) string {
	if i := strings.LastIndexByte(arn, ':'); i >= 0 {
		return arn[i+1:]
	}
	return arn
}

// streamTable extracts the table name from arn:aws:dynamodb:<region>:<account>:table/<name>/stream/<label>.
// The stream label is a timestamp and may itself contain colons.
func streamTable(arn string) string {
	_, resource, ok := strings.Cut(arn, ":table/")
	if !ok {
		return arn
	}
	name, _, _ := strings.Cut(resource, "/")
	return name
}
