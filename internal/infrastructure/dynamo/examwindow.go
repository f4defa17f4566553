package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/exam-registration/internal/domain"
)

// ExamWindowRepo stores the singleton scheduling configuration under config_id "current".
type ExamWindowRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewExamWindowRepo(client *dynamodb.Client, tableName string) *ExamWindowRepo {
	return &ExamWindowRepo{client: client, tableName: tableName}
}

func (r *ExamWindowRepo) Get(ctx context.Context) (*domain.ExamWindowConfig, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey(fieldConfigID, domain.ExamWindowConfigID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("exam window not configured: %w", domain.ErrNotFound)
	}
	var cfg domain.ExamWindowConfig
	if err := attributevalue.UnmarshalMap(out.Item, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *ExamWindowRepo) Put(ctx context.Context, cfg *domain.ExamWindowConfig) error {
	cfg.ConfigID = domain.ExamWindowConfigID
	item, err := attributevalue.MarshalMap(cfg)
	if err != nil {
		return fmt.Errorf("marshal exam window: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}
