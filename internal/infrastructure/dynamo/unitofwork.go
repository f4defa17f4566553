package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/exam-registration/internal/config"
	"github.com/exam-registration/internal/domain"
)

// Positions of the writes inside the commit transaction.
const (
	itemAccount = iota
	itemProfile
	itemRegistration
	itemSeat
)

// UnitOfWork commits a registration with one TransactWriteItems call: the
// account promotion, the profile, the registration and optionally the seat
// claim all land or none do.
type UnitOfWork struct {
	client *dynamodb.Client
	tables config.DynamoTables
}

func NewUnitOfWork(client *dynamodb.Client, tables config.DynamoTables) *UnitOfWork {
	return &UnitOfWork{client: client, tables: tables}
}

func (u *UnitOfWork) CommitRegistration(ctx context.Context, c domain.RegistrationCommit) error {
	items, err := commitItems(u.tables, c)
	if err != nil {
		return fmt.Errorf("build commit: %w: %w", domain.ErrFatal, err)
	}
	_, err = u.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	})
	if err == nil {
		return nil
	}
	var tce *types.TransactionCanceledException
	if errors.As(err, &tce) {
		return cancellationError(tce.CancellationReasons)
	}
	return fmt.Errorf("commit registration: %w: %w", domain.ErrFatal, err)
}

func commitItems(tables config.DynamoTables, c domain.RegistrationCommit) ([]types.TransactWriteItem, error) {
	if c.Account == nil || c.Account.EmailVerifiedAt == nil || c.Profile == nil || c.Registration == nil {
		return nil, errors.New("commit needs a verified account, a profile and a registration")
	}
	profile, err := attributevalue.MarshalMap(c.Profile)
	if err != nil {
		return nil, fmt.Errorf("marshal profile: %w", err)
	}
	reg, err := attributevalue.MarshalMap(c.Registration)
	if err != nil {
		return nil, fmt.Errorf("marshal registration: %w", err)
	}
	promote, err := buildUpdateExpr(map[string]interface{}{
		fieldUsername:        c.Account.Username,
		fieldPasswordHash:    c.Account.PasswordHash,
		fieldEmailVerifiedAt: c.Account.EmailVerifiedAt.UTC().Format(time.RFC3339Nano),
		fieldUpdatedAt:       c.Account.UpdatedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, err
	}

	items := []types.TransactWriteItem{
		itemAccount: {Update: &types.Update{
			TableName:                           aws.String(tables.Accounts),
			Key:                                 strKey(fieldEmail, domain.NormalizeEmail(c.Account.Email)),
			UpdateExpression:                    aws.String(promote.Expr),
			ConditionExpression:                 aws.String(condUnverified),
			ExpressionAttributeNames:            promote.Names,
			ExpressionAttributeValues:           promote.Values,
			ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
		}},
		itemProfile: {Put: &types.Put{
			TableName:           aws.String(tables.Profiles),
			Item:                profile,
			ConditionExpression: aws.String("attribute_not_exists(profile_id)"),
		}},
		itemRegistration: {Put: &types.Put{
			TableName:           aws.String(tables.Registrations),
			Item:                reg,
			ConditionExpression: aws.String("attribute_not_exists(registration_id)"),
		}},
	}
	if c.Seat != nil {
		items = append(items, types.TransactWriteItem{
			Update: seatUpdate(tables.SlotSessions, *c.Seat, c.Account.UpdatedAt),
		})
	}
	return items, nil
}

// cancellationError maps the per-item reasons of a cancelled commit onto the
// workflow taxonomy. Reasons are positional, matching commitItems.
func cancellationError(reasons []types.CancellationReason) error {
	for i, r := range reasons {
		code := aws.ToString(r.Code)
		switch {
		case code == "" || code == "None":
			continue
		case code == "TransactionConflict" || code == "ThrottlingError" || code == "ProvisionedThroughputExceeded":
			return fmt.Errorf("commit item %d: %s: %w", i, code, domain.ErrTransientConflict)
		case code != "ConditionalCheckFailed":
			return fmt.Errorf("commit item %d: %s: %w", i, code, domain.ErrFatal)
		}
		switch i {
		case itemAccount:
			if r.Item == nil {
				return fmt.Errorf("account gone before commit: %w", domain.ErrExpired)
			}
			return fmt.Errorf("account promoted concurrently: %w", domain.ErrAlreadyVerified)
		case itemSeat:
			return fmt.Errorf("seat claim lost: %w", domain.ErrTransientConflict)
		default:
			return fmt.Errorf("commit item %d already exists: %w", i, domain.ErrFatal)
		}
	}
	return fmt.Errorf("commit cancelled without reason: %w", domain.ErrFatal)
}
