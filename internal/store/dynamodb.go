package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"
)

// DynamoAPI is the subset of *dynamodb.Client used by DynamoStore.
type DynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// DynamoStore keeps records in a DynamoDB table whose partition key is the
// string attribute "timestamp". Connectivity problems surface on the first
// operation, not at construction.
type DynamoStore struct {
	client DynamoAPI
	table  string
	l      *zap.Logger
}

var _ Store = &DynamoStore{}

func NewDynamoStore(client DynamoAPI, table string, l *zap.Logger) *DynamoStore {
	if l == nil {
		l = zap.NewNop()
	}
	return &DynamoStore{client: client, table: table, l: l}
}

// NewDynamoClient builds a DynamoDB client. endpoint, when set, points it at
// DynamoDB Local or a VPC endpoint.
func NewDynamoClient(cfg aws.Config, endpoint string) *dynamodb.Client {
	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
}

func (s *DynamoStore) Put(ctx context.Context, rec Record) error {
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("dynamodb: marshal record: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	})
	if err != nil {
		s.logFailure("Error putting item", err, zap.String("timestamp", rec.Timestamp))
		return fmt.Errorf("dynamodb: put item: %w", err)
	}
	return nil
}

func (s *DynamoStore) Get(ctx context.Context, key string) (Record, bool, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"timestamp": &types.AttributeValueMemberS{Value: key},
		},
	})
	if err != nil {
		s.logFailure("Error getting item", err, zap.String("timestamp", key))
		return Record{}, false, fmt.Errorf("dynamodb: get item: %w", err)
	}
	if out.Item == nil {
		return Record{}, false, nil
	}

	var rec Record
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return Record{}, false, fmt.Errorf("dynamodb: unmarshal item: %w", err)
	}
	return rec, true, nil
}

func (s *DynamoStore) Scan(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		return []Record{}, nil
	}
	limit = clampLimit(limit)

	out, err := s.client.Scan(ctx, &dynamodb.ScanInput{
		TableName: aws.String(s.table),
		Limit:     aws.Int32(int32(limit)),
	})
	if err != nil {
		s.logFailure("Error scanning table", err, zap.Int("limit", limit))
		return nil, fmt.Errorf("dynamodb: scan: %w", err)
	}

	recs := make([]Record, 0, len(out.Items))
	if len(out.Items) == 0 {
		return recs, nil
	}
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &recs); err != nil {
		return nil, fmt.Errorf("dynamodb: unmarshal items: %w", err)
	}
	if len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}

func (s *DynamoStore) Ping(ctx context.Context) error {
	_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.table)})
	if err != nil {
		return fmt.Errorf("dynamodb: describe table %s: %w", s.table, err)
	}
	return nil
}

func (s *DynamoStore) Close() error { return nil }

func (s *DynamoStore) logFailure(msg string, err error, fields ...zap.Field) {
	fields = append(fields, zap.String("table", s.table), zap.Error(err))
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		fields = append(fields, zap.String("error_code", apiErr.ErrorCode()))
	}
	s.l.Error(msg, fields...)
}
