package nimbus

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// StoreEventType is the kind of change a document store trigger reacts to
type StoreEventType string

const (
	StoreInsert StoreEventType = "INSERT"
	StoreModify StoreEventType = "MODIFY"
	StoreRemove StoreEventType = "REMOVE"
)

// QueueMessage is one message delivered to a queue function
type QueueMessage struct {
	ID         string
	Queue      string
	Body       string
	Attributes map[string]string
	SentAt     time.Time
}

// Decode unmarshals a JSON message body into v
func (m *QueueMessage) Decode(v interface{}) error {
	if err := json.Unmarshal([]byte(m.Body), v); err != nil {
		return fmt.Errorf("failed to decode queue message %s: %w", m.ID, err)
	}
	return nil
}

// StoreEvent describes one change to a document store. Images are in DynamoDB
// attribute value form; OldImage is empty for inserts and NewImage for removals.
type StoreEvent struct {
	EventID   string
	EventName StoreEventType
	RequestID string
	Table     string
	Keys      map[string]types.AttributeValue
	OldImage  map[string]types.AttributeValue
	NewImage  map[string]types.AttributeValue
}

// DecodeOld unmarshals the document as it was before the change
func (e *StoreEvent) DecodeOld(v interface{}) error {
	if len(e.OldImage) == 0 {
		return fmt.Errorf("%s event %s has no old image", e.EventName, e.EventID)
	}
	return attributevalue.UnmarshalMap(e.OldImage, v)
}

// DecodeNew unmarshals the document as it is after the change
func (e *StoreEvent) DecodeNew(v interface{}) error {
	if len(e.NewImage) == 0 {
		return fmt.Errorf("%s event %s has no new image", e.EventName, e.EventID)
	}
	return attributevalue.UnmarshalMap(e.NewImage, v)
}

// NotificationMessage is one message published to a notification topic
type NotificationMessage struct {
	ID         string
	Topic      string
	Subject    string
	Message    string
	Attributes map[string]string
	Timestamp  time.Time
}

// Decode unmarshals a JSON notification into v
func (m *NotificationMessage) Decode(v interface{}) error {
	if err := json.Unmarshal([]byte(m.Message), v); err != nil {
		return fmt.Errorf("failed to decode notification %s: %w", m.ID, err)
	}
	return nil
}
