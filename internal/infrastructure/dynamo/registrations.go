package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/exam-registration/internal/domain"
)

// RegistrationRepo reads registrations. Writes only happen inside UnitOfWork.
type RegistrationRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewRegistrationRepo(client *dynamodb.Client, tableName string) *RegistrationRepo {
	return &RegistrationRepo{client: client, tableName: tableName}
}

func (r *RegistrationRepo) Get(ctx context.Context, id string) (*domain.Registration, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey(fieldRegistrationID, id),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("registration not found: %w", domain.ErrNotFound)
	}
	var reg domain.Registration
	if err := attributevalue.UnmarshalMap(out.Item, &reg); err != nil {
		return nil, err
	}
	return &reg, nil
}

func (r *RegistrationRepo) ListByAccount(ctx context.Context, accountID string) ([]domain.Registration, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("account_id-index"),
		KeyConditionExpression: aws.String("account_id = :aid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":aid": str(accountID),
		},
	})
	if err != nil {
		return nil, err
	}
	var regs []domain.Registration
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &regs); err != nil {
		return nil, err
	}
	return regs, nil
}
