package clients

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/nimbusframework/nimbus-go/pkg/nimbus"
	"github.com/nimbusframework/nimbus-go/pkg/nimbus/local"
)

// DynamoDBAPI is the part of the DynamoDB client the store clients use
type DynamoDBAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// dynamoStore reads the deployed table name of its model from the environment on every call
type dynamoStore struct {
	api   DynamoDBAPI
	model string
	key   string
}

func (s dynamoStore) tableName() (string, error) {
	name := os.Getenv(nimbus.TableNameEnv(s.model))
	if name == "" {
		return "", fmt.Errorf("%w: %s is unset, is the function missing uses_document_store or uses_key_value_store %s?",
			ErrNotConfigured, nimbus.TableNameEnv(s.model), s.model)
	}
	return name, nil
}

func (s dynamoStore) put(ctx context.Context, item local.Item, condition Condition) error {
	table, err := s.tableName()
	if err != nil {
		return err
	}
	input := &dynamodb.PutItemInput{TableName: aws.String(table), Item: item}
	if condition != nil {
		expr, err := expression.NewBuilder().WithCondition(condition.Build()).Build()
		if err != nil {
			return fmt.Errorf("failed to build condition: %w", err)
		}
		input.ConditionExpression = expr.Condition()
		input.ExpressionAttributeNames = expr.Names()
		input.ExpressionAttributeValues = expr.Values()
	}
	_, err = s.api.PutItem(ctx, input)
	return s.wrap("put", table, err)
}

func (s dynamoStore) get(ctx context.Context, key types.AttributeValue) (local.Item, error) {
	table, err := s.tableName()
	if err != nil {
		return nil, err
	}
	out, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(table),
		Key:            local.Item{s.key: key},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, s.wrap("get", table, err)
	}
	if len(out.Item) == 0 {
		return nil, ErrNotFound
	}
	return out.Item, nil
}

func (s dynamoStore) scan(ctx context.Context) ([]local.Item, error) {
	table, err := s.tableName()
	if err != nil {
		return nil, err
	}
	var items []local.Item
	paginator := dynamodb.NewScanPaginator(s.api, &dynamodb.ScanInput{TableName: aws.String(table)})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, s.wrap("scan", table, err)
		}
		items = append(items, page.Items...)
	}
	return items, nil
}

func (s dynamoStore) delete(ctx context.Context, key types.AttributeValue, condition Condition) error {
	table, err := s.tableName()
	if err != nil {
		return err
	}
	input := &dynamodb.DeleteItemInput{TableName: aws.String(table), Key: local.Item{s.key: key}}
	if condition != nil {
		expr, err := expression.NewBuilder().WithCondition(condition.Build()).Build()
		if err != nil {
			return fmt.Errorf("failed to build condition: %w", err)
		}
		input.ConditionExpression = expr.Condition()
		input.ExpressionAttributeNames = expr.Names()
		input.ExpressionAttributeValues = expr.Values()
	}
	_, err = s.api.DeleteItem(ctx, input)
	return s.wrap("delete", table, err)
}

func (s dynamoStore) increment(ctx context.Context, key types.AttributeValue, attribute string, amount float64) error {
	table, err := s.tableName()
	if err != nil {
		return err
	}
	name := expression.Name(attribute)
	update := expression.Set(name, expression.Plus(name.IfNotExists(expression.Value(0)), expression.Value(amount)))
	expr, err := expression.NewBuilder().WithUpdate(update).Build()
	if err != nil {
		return fmt.Errorf("failed to build update: %w", err)
	}
	_, err = s.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(table),
		Key:                       local.Item{s.key: key},
		UpdateExpression:          expr.Update(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	return s.wrap("increment", table, err)
}

func (s dynamoStore) wrap(op, table string, err error) error {
	if err == nil {
		return nil
	}
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return fmt.Errorf("%s %s: %w", op, table, ErrConditionFailed)
	}
	return fmt.Errorf("failed to %s item in %s: %w", op, table, err)
}
