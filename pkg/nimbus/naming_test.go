package nimbus

import (
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFunctionName(t *testing.T) {
	assert.Equal(t, "shop-dev-userhandlers-getuser", FunctionName("Shop", "dev", "UserHandlers.GetUser"))
	assert.Equal(t, "shop-prod-nightly", FunctionName("shop", "prod", "Nightly"))
	assert.Equal(t, "my-shop-dev-h-f", FunctionName("my shop", "dev", "H.F"))

	long := FunctionName("project", "dev", strings.Repeat("Receiver", 10)+".Method")
	assert.LessOrEqual(t, len(long), MaxFunctionNameLength)
	assert.True(t, strings.HasPrefix(long, "project-dev-receiver"))
}

func TestEnvNames(t *testing.T) {
	assert.Equal(t, "NIMBUS_TABLE_NAME_ORDER", TableNameEnv("Order"))
	assert.Equal(t, "NIMBUS_QUEUE_URL_ID_ORDER_PLACED", QueueURLEnv("order-placed"))
	assert.Equal(t, "SNS_TOPIC_ARN_SIGNUPS", TopicARNEnv("Signups"))
	assert.Equal(t, "Orderdev", TableName("Order", "dev"))
}

type order struct {
	ID    string `dynamodbav:"id"`
	Total int    `dynamodbav:"total"`
}

func TestStoreEvent_Decode(t *testing.T) {
	event := &StoreEvent{
		EventID:   "1",
		EventName: StoreInsert,
		NewImage: map[string]types.AttributeValue{
			"id":    &types.AttributeValueMemberS{Value: "o-1"},
			"total": &types.AttributeValueMemberN{Value: "42"},
		},
	}

	var got order
	require.NoError(t, event.DecodeNew(&got))
	assert.Equal(t, order{ID: "o-1", Total: 42}, got)

	err := event.DecodeOld(&got)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no old image")
}

func TestQueueMessage_Decode(t *testing.T) {
	msg := &QueueMessage{ID: "m-1", Body: `{"id":"o-1","total":3}`}

	var got struct {
		ID    string `json:"id"`
		Total int    `json:"total"`
	}
	require.NoError(t, msg.Decode(&got))
	assert.Equal(t, 3, got.Total)

	bad := &QueueMessage{ID: "m-2", Body: "not json"}
	assert.Error(t, bad.Decode(&got))
}
