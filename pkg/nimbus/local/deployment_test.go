package local

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbusframework/nimbus-go/pkg/nimbus"
)

type recorder struct {
	mu     sync.Mutex
	values []string
}

func (r *recorder) add(v string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, v)
}

func (r *recorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.values...)
}

func TestQueue_DeliversToEveryConsumer(t *testing.T) {
	d := New("dev")
	var first, second recorder

	require.NoError(t, d.Register(
		nimbus.QueueFunction("Orders.Ship", func(ctx context.Context, msg *nimbus.QueueMessage) error {
			first.add(msg.Body)
			return nil
		}, nimbus.QueueTrigger{Queue: "orders", BatchSize: 2}),
		nimbus.QueueFunction("Orders.Audit", func(ctx context.Context, msg *nimbus.QueueMessage) error {
			second.add(msg.Body)
			return nil
		}, nimbus.QueueTrigger{Queue: "orders", BatchSize: 10}),
		nimbus.QueueFunction("Orders.ProdOnly", func(ctx context.Context, msg *nimbus.QueueMessage) error {
			t.Error("prod-only consumer must not run in dev")
			return nil
		}, nimbus.QueueTrigger{Queue: "orders", BatchSize: 1, Stages: []string{"prod"}}),
	))

	q := d.Queue("orders")
	for i := 0; i < 5; i++ {
		assert.NotEmpty(t, q.Send("order-"+strconv.Itoa(i), nil))
	}
	d.Drain()

	assert.ElementsMatch(t, []string{"order-0", "order-1", "order-2", "order-3", "order-4"}, first.all())
	assert.ElementsMatch(t, first.all(), second.all())
	assert.Len(t, q.Sent(), 5)
	assert.Empty(t, d.Failures())
}

func TestQueue_RecordsHandlerFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler func(msg *nimbus.QueueMessage) error
		failure string
	}{
		{
			name: "returned error",
			handler: func(msg *nimbus.QueueMessage) error {
				if msg.Body == "bad" {
					return errors.New("boom")
				}
				return nil
			},
			failure: "Jobs.Run: boom",
		},
		{
			name: "panic",
			handler: func(msg *nimbus.QueueMessage) error {
				if msg.Body == "bad" {
					panic("nil job")
				}
				return nil
			},
			failure: "Jobs.Run: handler panicked: nil job",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New("")
			var delivered recorder
			require.NoError(t, d.Register(nimbus.QueueFunction("Jobs.Run", func(ctx context.Context, msg *nimbus.QueueMessage) error {
				delivered.add(msg.Body)
				return tt.handler(msg)
			}, nimbus.QueueTrigger{Queue: "jobs", BatchSize: 10})))

			q := d.Queue("jobs")
			q.Send("first", map[string]string{"attempt": "1"})
			q.Send("bad", nil)
			q.Send("last", nil)
			d.Drain()

			assert.ElementsMatch(t, []string{"first", "bad", "last"}, delivered.all())
			failures := d.Failures()
			require.Len(t, failures, 1)
			assert.Equal(t, tt.failure, failures[0].Error())
		})
	}
}

func TestTable_FiresStoreTriggers(t *testing.T) {
	d := New("dev")
	var events recorder
	var lastNew, lastOld sync.Map

	handler := func(ctx context.Context, e *nimbus.StoreEvent) error {
		events.add(string(e.EventName))
		lastNew.Store(e.EventName, len(e.NewImage))
		lastOld.Store(e.EventName, len(e.OldImage))
		return nil
	}
	require.NoError(t, d.Register(nimbus.DocumentStoreFunction("Users.Changed", handler,
		nimbus.DocumentStoreTrigger{DataModel: "User", Method: nimbus.StoreInsert},
		nimbus.DocumentStoreTrigger{DataModel: "User", Method: nimbus.StoreModify},
		nimbus.DocumentStoreTrigger{DataModel: "User", Method: nimbus.StoreRemove},
	)))

	table := d.Table("User", "id")
	key := &types.AttributeValueMemberS{Value: "u1"}
	item := Item{"id": key, "name": &types.AttributeValueMemberS{Value: "Ada"}}

	require.NoError(t, table.Put(item, nil))
	d.Drain()
	require.NoError(t, table.Put(item, nil))
	d.Drain()
	require.NoError(t, table.Delete(key, nil))
	d.Drain()
	require.NoError(t, table.Delete(key, nil))
	d.Drain()

	assert.Equal(t, []string{"INSERT", "MODIFY", "REMOVE"}, events.all())
	oldOnInsert, _ := lastOld.Load(nimbus.StoreInsert)
	newOnRemove, _ := lastNew.Load(nimbus.StoreRemove)
	assert.Equal(t, 0, oldOnInsert)
	assert.Equal(t, 0, newOnRemove)
	assert.Equal(t, 0, table.Len())
}

func TestTable_KeyValueTableIsSeparate(t *testing.T) {
	d := New("dev")
	var events recorder
	require.NoError(t, d.Register(nimbus.DocumentStoreFunction("Users.Changed", func(ctx context.Context, e *nimbus.StoreEvent) error {
		events.add(string(e.EventName))
		return nil
	}, nimbus.DocumentStoreTrigger{DataModel: "User", Method: nimbus.StoreInsert})))

	values := d.KeyValueTable("User", "PrimaryKey")
	documents := d.Table("User", "id")
	assert.NotSame(t, values, documents)
	assert.Same(t, values, d.KeyValueTable("User", "PrimaryKey"))

	require.NoError(t, values.Put(Item{"PrimaryKey": &types.AttributeValueMemberS{Value: "u1"}}, nil))
	d.Drain()
	assert.Empty(t, events.all())
	assert.Equal(t, 1, values.Len())
	assert.Equal(t, 0, documents.Len())

	require.NoError(t, documents.Put(Item{"id": &types.AttributeValueMemberS{Value: "u1"}}, nil))
	d.Drain()
	assert.Equal(t, []string{"INSERT"}, events.all())
}

type fixedCondition bool

func (c fixedCondition) Evaluate(Item) (bool, error) { return bool(c), nil }

func TestTable_Conditions(t *testing.T) {
	d := New("dev")
	table := d.Table("Counter", "PrimaryKey")
	key := &types.AttributeValueMemberN{Value: "1"}

	err := table.Put(Item{"PrimaryKey": key}, fixedCondition(false))
	assert.ErrorIs(t, err, ErrConditionFailed)
	assert.Equal(t, 0, table.Len())

	require.NoError(t, table.Update(key, nil, func(current Item) (Item, error) {
		assert.Nil(t, current)
		return Item{"count": &types.AttributeValueMemberN{Value: "3"}}, nil
	}))

	got, ok, err := table.Get(key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, &types.AttributeValueMemberN{Value: "3"}, got["count"])
	assert.Equal(t, key, got["PrimaryKey"])

	assert.ErrorIs(t, table.Delete(key, fixedCondition(false)), ErrConditionFailed)
	assert.Len(t, table.Scan(), 1)

	assert.Error(t, table.Put(Item{"other": key}, nil))
}

func TestTopic_FansOut(t *testing.T) {
	d := New("dev")
	var received recorder
	require.NoError(t, d.Register(nimbus.NotificationFunction("Alerts.Page", func(ctx context.Context, msg *nimbus.NotificationMessage) error {
		received.add(msg.Subject + ":" + msg.Message)
		return nil
	}, nimbus.NotificationTrigger{Topic: "alerts"})))

	topic := d.Topic("alerts")
	subID := topic.Subscribe("email", "ops@example.com")
	topic.Publish("disk", "full", nil)
	d.Drain()

	assert.Equal(t, []string{"disk:full"}, received.all())
	deliveries := topic.Deliveries()
	require.Len(t, deliveries, 1)
	assert.Equal(t, "ops@example.com", deliveries[0].Subscription.Endpoint)

	assert.True(t, topic.Unsubscribe(subID))
	assert.False(t, topic.Unsubscribe(subID))
	topic.Publish("disk", "ok", nil)
	d.Drain()
	assert.Len(t, topic.Deliveries(), 1)
}

func TestDeployment_Invoke(t *testing.T) {
	d := New("dev")
	var async recorder
	require.NoError(t, d.Register(
		nimbus.BasicFunction("Math.Double", func(ctx context.Context, payload json.RawMessage) (interface{}, error) {
			var n int
			if err := json.Unmarshal(payload, &n); err != nil {
				return nil, err
			}
			return n * 2, nil
		}),
		nimbus.BasicFunction("Jobs.Nightly", func(ctx context.Context, payload json.RawMessage) (interface{}, error) {
			async.add(string(payload))
			return nil, nil
		}, nimbus.BasicTrigger{Cron: "0 12 * * ? *"}),
		nimbus.BasicFunction("Jobs.ProdOnly", func(ctx context.Context, payload json.RawMessage) (interface{}, error) {
			return nil, nil
		}, nimbus.BasicTrigger{Stages: []string{"prod"}}),
	))

	result, err := d.Invoke(context.Background(), "Math.Double", json.RawMessage("21"))
	require.NoError(t, err)
	assert.Equal(t, 42, result)

	require.NoError(t, d.InvokeAsync("Jobs.Nightly", json.RawMessage(`"now"`)))
	d.Drain()
	assert.Equal(t, []string{`"now"`}, async.all())

	_, err = d.Invoke(context.Background(), "Missing", nil)
	assert.ErrorIs(t, err, ErrFunctionNotFound)
	_, err = d.Invoke(context.Background(), "Jobs.ProdOnly", nil)
	assert.ErrorIs(t, err, ErrFunctionNotFound)
	assert.ErrorIs(t, d.InvokeAsync("Missing", nil), ErrFunctionNotFound)
}

func TestDefault(t *testing.T) {
	replacement := New("test")
	previous := SetDefault(replacement)
	t.Cleanup(func() { SetDefault(previous) })

	assert.Same(t, replacement, Default())
	assert.Equal(t, "test", Default().Stage())
}
