package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/exam-registration/internal/domain"
)

// condUnverified holds for an existing account whose email is not yet verified.
const condUnverified = "attribute_exists(email) AND attribute_not_exists(email_verified_at)"

// AccountRepo provides typed DynamoDB operations for the accounts table.
// PK: email, so a conditional put doubles as the uniqueness check.
type AccountRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewAccountRepo(client *dynamodb.Client, tableName string) *AccountRepo {
	return &AccountRepo{client: client, tableName: tableName}
}

func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey(fieldEmail, domain.NormalizeEmail(email)),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("account not found: %w", domain.ErrNotFound)
	}
	var a domain.Account
	if err := attributevalue.UnmarshalMap(out.Item, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepo) Create(ctx context.Context, a *domain.Account) error {
	a.Email = domain.NormalizeEmail(a.Email)
	item, err := attributevalue.MarshalMap(a)
	if err != nil {
		return fmt.Errorf("marshal account: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(email)"),
	})
	if _, ok := conditionFailed(err); ok {
		return fmt.Errorf("account exists: %w", domain.ErrConflict)
	}
	return err
}

// Refresh overwrites an unverified account's credentials and bumps updated_at.
// It fills in the stored AccountID and CreatedAt on success.
func (r *AccountRepo) Refresh(ctx context.Context, a *domain.Account) error {
	ue, err := buildUpdateExpr(map[string]interface{}{
		fieldUsername:     a.Username,
		fieldPasswordHash: a.PasswordHash,
		fieldUpdatedAt:    a.UpdatedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return err
	}
	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                           aws.String(r.tableName),
		Key:                                 strKey(fieldEmail, domain.NormalizeEmail(a.Email)),
		UpdateExpression:                    aws.String(ue.Expr),
		ConditionExpression:                 aws.String(condUnverified),
		ExpressionAttributeNames:            ue.Names,
		ExpressionAttributeValues:           ue.Values,
		ReturnValues:                        types.ReturnValueAllNew,
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	if old, ok := conditionFailed(err); ok {
		if old == nil {
			return fmt.Errorf("account gone: %w", domain.ErrNotFound)
		}
		return fmt.Errorf("account already verified: %w", domain.ErrConflict)
	}
	if err != nil {
		return err
	}
	var stored domain.Account
	if err := attributevalue.UnmarshalMap(out.Attributes, &stored); err != nil {
		return err
	}
	a.AccountID = stored.AccountID
	a.CreatedAt = stored.CreatedAt
	return nil
}

// DeleteUnverified removes a shadow account; a verified account is left alone
// and reported as ErrConflict. Deleting a missing account is a no-op.
func (r *AccountRepo) DeleteUnverified(ctx context.Context, email string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey(fieldEmail, domain.NormalizeEmail(email)),
		ConditionExpression: aws.String("attribute_not_exists(email_verified_at)"),
	})
	if _, ok := conditionFailed(err); ok {
		return fmt.Errorf("account verified: %w", domain.ErrConflict)
	}
	return err
}
