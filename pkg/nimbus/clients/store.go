package clients

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/nimbusframework/nimbus-go/pkg/nimbus/local"
)

// itemStore is the untyped table both store clients are built on
type itemStore interface {
	put(ctx context.Context, item local.Item, condition Condition) error
	get(ctx context.Context, key types.AttributeValue) (local.Item, error)
	scan(ctx context.Context) ([]local.Item, error)
	delete(ctx context.Context, key types.AttributeValue, condition Condition) error
	increment(ctx context.Context, key types.AttributeValue, attribute string, amount float64) error
}

type documentStore[T any] struct {
	store itemStore
	key   string
}

func (s *documentStore[T]) Put(ctx context.Context, item T) error {
	return s.PutIf(ctx, item, nil)
}

func (s *documentStore[T]) PutIf(ctx context.Context, item T, condition Condition) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}
	if _, ok := av[s.key]; !ok {
		return fmt.Errorf("document has no %s attribute", s.key)
	}
	return s.store.put(ctx, av, condition)
}

func (s *documentStore[T]) Get(ctx context.Context, key string) (T, error) {
	var doc T
	item, err := s.store.get(ctx, &types.AttributeValueMemberS{Value: key})
	if err != nil {
		return doc, err
	}
	if err := attributevalue.UnmarshalMap(item, &doc); err != nil {
		return doc, fmt.Errorf("failed to unmarshal document %s: %w", key, err)
	}
	return doc, nil
}

func (s *documentStore[T]) GetAll(ctx context.Context) ([]T, error) {
	items, err := s.store.scan(ctx)
	if err != nil {
		return nil, err
	}
	docs := make([]T, 0, len(items))
	if err := attributevalue.UnmarshalListOfMaps(items, &docs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal documents: %w", err)
	}
	return docs, nil
}

func (s *documentStore[T]) Delete(ctx context.Context, item T) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}
	key, ok := av[s.key]
	if !ok {
		return fmt.Errorf("document has no %s attribute", s.key)
	}
	return s.store.delete(ctx, key, nil)
}

func (s *documentStore[T]) DeleteKey(ctx context.Context, key string) error {
	return s.store.delete(ctx, &types.AttributeValueMemberS{Value: key}, nil)
}

// keyValueStore keeps each value's attributes next to the key attribute. Values
// must marshal to a map.
type keyValueStore[K comparable, V any] struct {
	store itemStore
	key   string
}

func (s *keyValueStore[K, V]) Put(ctx context.Context, key K, value V) error {
	return s.PutIf(ctx, key, value, nil)
}

func (s *keyValueStore[K, V]) PutIf(ctx context.Context, key K, value V, condition Condition) error {
	keyValue, err := s.marshalKey(key)
	if err != nil {
		return err
	}
	item, err := attributevalue.MarshalMap(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value for %v: %w", key, err)
	}
	item[s.key] = keyValue
	return s.store.put(ctx, item, condition)
}

func (s *keyValueStore[K, V]) Get(ctx context.Context, key K) (V, error) {
	var value V
	keyValue, err := s.marshalKey(key)
	if err != nil {
		return value, err
	}
	item, err := s.store.get(ctx, keyValue)
	if err != nil {
		return value, err
	}
	if err := attributevalue.UnmarshalMap(item, &value); err != nil {
		return value, fmt.Errorf("failed to unmarshal value for %v: %w", key, err)
	}
	return value, nil
}

func (s *keyValueStore[K, V]) GetAll(ctx context.Context) (map[K]V, error) {
	items, err := s.store.scan(ctx)
	if err != nil {
		return nil, err
	}
	result := make(map[K]V, len(items))
	for _, item := range items {
		var key K
		if err := attributevalue.Unmarshal(item[s.key], &key); err != nil {
			return nil, fmt.Errorf("failed to unmarshal key: %w", err)
		}
		var value V
		if err := attributevalue.UnmarshalMap(item, &value); err != nil {
			return nil, fmt.Errorf("failed to unmarshal value for %v: %w", key, err)
		}
		result[key] = value
	}
	return result, nil
}

func (s *keyValueStore[K, V]) Delete(ctx context.Context, key K) error {
	keyValue, err := s.marshalKey(key)
	if err != nil {
		return err
	}
	return s.store.delete(ctx, keyValue, nil)
}

func (s *keyValueStore[K, V]) Increment(ctx context.Context, key K, attribute string, amount float64) error {
	keyValue, err := s.marshalKey(key)
	if err != nil {
		return err
	}
	return s.store.increment(ctx, keyValue, attribute, amount)
}

func (s *keyValueStore[K, V]) marshalKey(key K) (types.AttributeValue, error) {
	av, err := attributevalue.Marshal(key)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal key %v: %w", key, err)
	}
	switch av.(type) {
	case *types.AttributeValueMemberS, *types.AttributeValueMemberN:
		return av, nil
	default:
		return nil, fmt.Errorf("key %v must be a string or a number", key)
	}
}

// localStore adapts a local table
type localStore struct {
	table *local.Table
}

func (s localStore) put(_ context.Context, item local.Item, condition Condition) error {
	return s.table.Put(item, localCondition(condition))
}

func (s localStore) get(_ context.Context, key types.AttributeValue) (local.Item, error) {
	item, ok, err := s.table.Get(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return item, nil
}

func (s localStore) scan(context.Context) ([]local.Item, error) {
	return s.table.Scan(), nil
}

func (s localStore) delete(_ context.Context, key types.AttributeValue, condition Condition) error {
	return s.table.Delete(key, localCondition(condition))
}

func (s localStore) increment(_ context.Context, key types.AttributeValue, attribute string, amount float64) error {
	return s.table.Update(key, nil, func(item local.Item) (local.Item, error) {
		if item == nil {
			item = local.Item{}
		}
		current := 0.0
		if v, ok := item[attribute]; ok {
			n, ok := v.(*types.AttributeValueMemberN)
			if !ok {
				return nil, fmt.Errorf("attribute %s is not a number", attribute)
			}
			parsed, err := strconv.ParseFloat(n.Value, 64)
			if err != nil {
				return nil, fmt.Errorf("attribute %s: %w", attribute, err)
			}
			current = parsed
		}
		item[attribute] = &types.AttributeValueMemberN{Value: strconv.FormatFloat(current+amount, 'f', -1, 64)}
		return item, nil
	})
}

func localCondition(condition Condition) local.Condition {
	if condition == nil {
		return nil
	}
	return condition
}
