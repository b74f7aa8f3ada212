package local

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/nimbusframework/nimbus-go/pkg/nimbus"
)

// Item is a stored document in DynamoDB attribute value form
type Item = map[string]types.AttributeValue

// Condition decides whether a conditional write may proceed. The item is nil
// when nothing is stored under the key.
type Condition interface {
	Evaluate(item Item) (bool, error)
}

// Table is an in-memory store for one data model. Writes to a document store
// table fire the document store functions triggered by the model.
type Table struct {
	model      string
	key        string
	streams    bool
	deployment *Deployment

	mu    sync.RWMutex
	items map[string]Item
}

func (t *Table) Model() string { return t.model }

// Key returns the attribute holding item keys
func (t *Table) Key() string { return t.key }

// Put stores item if cond holds, replacing any item with the same key
func (t *Table) Put(item Item, cond Condition) error {
	keyValue, ok := item[t.key]
	if !ok {
		return fmt.Errorf("item for %s is missing key attribute %s", t.model, t.key)
	}
	id, err := keyString(keyValue)
	if err != nil {
		return err
	}

	t.mu.Lock()
	old, existed := t.items[id]
	if err := check(cond, old); err != nil {
		t.mu.Unlock()
		return err
	}
	t.items[id] = copyItem(item)
	t.mu.Unlock()

	event := nimbus.StoreInsert
	if existed {
		event = nimbus.StoreModify
	}
	t.fire(event, keyValue, old, item)
	return nil
}

// Get returns the item stored under key
func (t *Table) Get(key types.AttributeValue) (Item, bool, error) {
	id, err := keyString(key)
	if err != nil {
		return nil, false, err
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	item, ok := t.items[id]
	if !ok {
		return nil, false, nil
	}
	return copyItem(item), true, nil
}

// Scan returns every item ordered by key
func (t *Table) Scan() []Item {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ids := make([]string, 0, len(t.items))
	for id := range t.items {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	items := make([]Item, 0, len(ids))
	for _, id := range ids {
		items = append(items, copyItem(t.items[id]))
	}
	return items
}

// Delete removes the item under key if cond holds. Deleting a missing key is not an error.
func (t *Table) Delete(key types.AttributeValue, cond Condition) error {
	id, err := keyString(key)
	if err != nil {
		return err
	}

	t.mu.Lock()
	old, existed := t.items[id]
	if err := check(cond, old); err != nil {
		t.mu.Unlock()
		return err
	}
	delete(t.items, id)
	t.mu.Unlock()

	if existed {
		t.fire(nimbus.StoreRemove, key, old, nil)
	}
	return nil
}

// Update replaces the item under key with the result of fn, which receives nil
// for a missing key. Conditions are checked against the current item.
func (t *Table) Update(key types.AttributeValue, cond Condition, fn func(Item) (Item, error)) error {
	id, err := keyString(key)
	if err != nil {
		return err
	}

	t.mu.Lock()
	old, existed := t.items[id]
	if err := check(cond, old); err != nil {
		t.mu.Unlock()
		return err
	}
	updated, err := fn(copyItem(old))
	if err != nil {
		t.mu.Unlock()
		return err
	}
	if updated == nil {
		updated = Item{}
	}
	updated[t.key] = key
	t.items[id] = copyItem(updated)
	t.mu.Unlock()

	event := nimbus.StoreInsert
	if existed {
		event = nimbus.StoreModify
	}
	t.fire(event, key, old, updated)
	return nil
}

// Len returns the number of stored items
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.items)
}

func (t *Table) fire(name nimbus.StoreEventType, key types.AttributeValue, oldImage, newImage Item) {
	if !t.streams {
		return
	}
	listeners := t.deployment.triggered(nimbus.DocumentStoreKind, func(tr nimbus.Trigger) bool {
		st := tr.(nimbus.DocumentStoreTrigger)
		return st.DataModel == t.model && st.Method == name
	})

	for _, l := range listeners {
		event := &nimbus.StoreEvent{
			EventID:   uuid.NewString(),
			EventName: name,
			RequestID: uuid.NewString(),
			Table:     t.model,
			Keys:      Item{t.key: key},
			OldImage:  copyItem(oldImage),
			NewImage:  copyItem(newImage),
		}
		fn := l.fn
		t.deployment.dispatch(func() {
			t.deployment.run(fn.Name, func() error { return fn.Store(context.Background(), event) })
		})
	}
}

func check(cond Condition, current Item) error {
	if cond == nil {
		return nil
	}
	ok, err := cond.Evaluate(current)
	if err != nil {
		return err
	}
	if !ok {
		return ErrConditionFailed
	}
	return nil
}

func keyString(v types.AttributeValue) (string, error) {
	switch k := v.(type) {
	case *types.AttributeValueMemberS:
		return "S:" + k.Value, nil
	case *types.AttributeValueMemberN:
		return "N:" + k.Value, nil
	case *types.AttributeValueMemberB:
		return "B:" + string(k.Value), nil
	default:
		return "", fmt.Errorf("unsupported key attribute type %T", v)
	}
}

func copyItem(item Item) Item {
	if item == nil {
		return nil
	}
	out := make(Item, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}
