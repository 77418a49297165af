package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoAPI is the subset of *dynamodb.Client methods used by Dynamo.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// kvItem is one row of the key-value table. Version guards optimistic updates.
type kvItem struct {
	Key       string    `dynamodbav:"pk"`
	Value     []byte    `dynamodbav:"value"`
	Version   int64     `dynamodbav:"version"`
	UpdatedAt time.Time `dynamodbav:"updated_at"`
}

// Dynamo is a Store backed by a single DynamoDB table keyed by "pk".
type Dynamo struct {
	client    DynamoAPI
	tableName string
}

// NewDynamo creates a DynamoDB-backed store.
func NewDynamo(client DynamoAPI, tableName string) *Dynamo {
	return &Dynamo{client: client, tableName: tableName}
}

func (d *Dynamo) keyAttr(key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"pk": &types.AttributeValueMemberS{Value: key},
	}
}

func (d *Dynamo) load(ctx context.Context, key string) (*kvItem, error) {
	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(d.tableName),
		Key:            d.keyAttr(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get item from DynamoDB: %w", err)
	}
	if out.Item == nil {
		return nil, nil
	}
	var item kvItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal item: %w", err)
	}
	return &item, nil
}

func (d *Dynamo) Get(ctx context.Context, key string) ([]byte, error) {
	item, err := d.load(ctx, key)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrNotFound
	}
	return item.Value, nil
}

// Set overwrites the value unconditionally and bumps the version so that
// in-flight optimistic updates observe the write.
func (d *Dynamo) Set(ctx context.Context, key string, value []byte) error {
	current, err := d.load(ctx, key)
	if err != nil {
		return err
	}
	var version int64
	if current != nil {
		version = current.Version
	}
	return d.put(ctx, kvItem{Key: key, Value: value, Version: version + 1, UpdatedAt: time.Now()}, unconditional, 0)
}

func (d *Dynamo) Delete(ctx context.Context, key string) error {
	_, err := d.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(d.tableName),
		Key:       d.keyAttr(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete item from DynamoDB: %w", err)
	}
	return nil
}

// Update retries on version conflicts up to maxUpdateAttempts times.
func (d *Dynamo) Update(ctx context.Context, key string, fn UpdateFunc) error {
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		current, err := d.load(ctx, key)
		if err != nil {
			return err
		}

		var value []byte
		var version int64
		if current != nil {
			value = current.Value
			version = current.Version
		}

		next, err := fn(value)
		if err != nil {
			return err
		}
		if next == nil {
			return nil
		}

		cond := versionMatches
		if current == nil {
			cond = mustBeAbsent
		}
		err = d.put(ctx, kvItem{Key: key, Value: next, Version: version + 1, UpdatedAt: time.Now()}, cond, version)
		if err == nil {
			return nil
		}
		var ccf *types.ConditionalCheckFailedException
		if !errors.As(err, &ccf) {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return ErrConflict
}

// putCondition selects the precondition applied to a write.
type putCondition int

const (
	unconditional putCondition = iota
	mustBeAbsent
	versionMatches
)

func (d *Dynamo) put(ctx context.Context, item kvItem, cond putCondition, expected int64) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}
	input := &dynamodb.PutItemInput{
		TableName: aws.String(d.tableName),
		Item:      av,
	}
	switch cond {
	case mustBeAbsent:
		input.ConditionExpression = aws.String("attribute_not_exists(pk)")
	case versionMatches:
		input.ConditionExpression = aws.String("#v = :v")
		input.ExpressionAttributeNames = map[string]string{"#v": "version"}
		input.ExpressionAttributeValues = map[string]types.AttributeValue{
			":v": &types.AttributeValueMemberN{Value: strconv.FormatInt(expected, 10)},
		}
	}
	if _, err := d.client.PutItem(ctx, input); err != nil {
		return fmt.Errorf("failed to put item to DynamoDB: %w", err)
	}
	return nil
}
