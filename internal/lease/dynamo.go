package lease

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

	"github.com/Venkatavamsikrishna/Youtube-Auto-Reply/internal/model"
)

// DynamoAPI is the subset of the DynamoDB client used for leases.
type DynamoAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// DynamoLeaser stores leases in a DynamoDB table keyed by lease_key, with
// expires_at usable as the table TTL attribute.
type DynamoLeaser struct {
	client    DynamoAPI
	tableName string
	now       func() time.Time
}

func NewDynamoLeaser(client DynamoAPI, tableName string) *DynamoLeaser {
	return &DynamoLeaser{client: client, tableName: tableName, now: time.Now}
}

func (d *DynamoLeaser) Acquire(ctx context.Context, key, owner string, ttl time.Duration) (*model.Lease, error) {
	now := d.now()
	l := model.Lease{Key: key, Owner: owner, ExpiresAt: expiry(now, ttl)}

	item, err := attributevalue.MarshalMap(l)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal lease: %w", err)
	}

	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(d.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(lease_key) OR expires_at < :now OR #o = :owner"),
		ExpressionAttributeNames: map[string]string{
			"#o": "owner",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now":   &types.AttributeValueMemberN{Value: strconv.FormatInt(now.Unix(), 10)},
			":owner": &types.AttributeValueMemberS{Value: owner},
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return nil, ErrHeld
		}
		return nil, fmt.Errorf("failed to acquire lease: %w", err)
	}
	return &l, nil
}

func (d *DynamoLeaser) Release(ctx context.Context, key, owner string) error {
	_, err := d.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(d.tableName),
		Key: map[string]types.AttributeValue{
			"lease_key": &types.AttributeValueMemberS{Value: key},
		},
		ConditionExpression:      aws.String("#o = :owner"),
		ExpressionAttributeNames: map[string]string{"#o": "owner"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":owner": &types.AttributeValueMemberS{Value: owner},
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return nil
		}
		return fmt.Errorf("failed to release lease: %w", err)
	}
	return nil
}
