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

// SlotRepo stores SlotSessions. PK: exam_date, SK: session.
type SlotRepo struct {
	client    *dynamodb.Client
	tableName string
	now       func() time.Time
}

func NewSlotRepo(client *dynamodb.Client, tableName string) *SlotRepo {
	return &SlotRepo{client: client, tableName: tableName, now: time.Now}
}

func (r *SlotRepo) Get(ctx context.Context, date string, session domain.SessionType) (*domain.SlotSession, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            compositeKey(fieldExamDate, date, fieldSession, string(session)),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("slot %s/%s not found: %w", date, session, domain.ErrNotFound)
	}
	var s domain.SlotSession
	if err := attributevalue.UnmarshalMap(out.Item, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SlotRepo) CreateIfAbsent(ctx context.Context, s *domain.SlotSession) error {
	item, err := attributevalue.MarshalMap(s)
	if err != nil {
		return fmt.Errorf("marshal slot: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(exam_date)"),
	})
	if _, ok := conditionFailed(err); ok {
		return fmt.Errorf("slot %s/%s exists: %w", s.ExamDate, s.Session, domain.ErrConflict)
	}
	return err
}

// ClaimSeat applies claim as a single conditional update.
func (r *SlotRepo) ClaimSeat(ctx context.Context, claim domain.SeatClaim) error {
	u := seatUpdate(r.tableName, claim, r.now())
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 u.TableName,
		Key:                       u.Key,
		UpdateExpression:          u.UpdateExpression,
		ConditionExpression:       u.ConditionExpression,
		ExpressionAttributeNames:  u.ExpressionAttributeNames,
		ExpressionAttributeValues: u.ExpressionAttributeValues,
	})
	if _, ok := conditionFailed(err); ok {
		return fmt.Errorf("claim %s: %w", claim, domain.ErrTransientConflict)
	}
	return err
}

// ListByDate returns the date's sessions, morning first.
func (r *SlotRepo) ListByDate(ctx context.Context, date string) ([]domain.SlotSession, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String("exam_date = :d"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":d": str(date),
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	var rows []domain.SlotSession
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &rows); err != nil {
		return nil, err
	}
	ordered := make([]domain.SlotSession, 0, len(rows))
	for _, session := range domain.SessionOrder {
		for _, row := range rows {
			if row.Session == session {
				ordered = append(ordered, row)
			}
		}
	}
	return ordered, nil
}

// seatUpdate is the compare-and-swap for one seat: the count must still equal
// the value the claim was read at and the session must still be open. session
// and status are reserved words, hence the name placeholders.
func seatUpdate(table string, claim domain.SeatClaim, now time.Time) *types.Update {
	return &types.Update{
		TableName:           aws.String(table),
		Key:                 compositeKey(fieldExamDate, claim.ExamDate, fieldSession, string(claim.Session)),
		UpdateExpression:    aws.String("SET #count = #count + :one, #status = :next, #updated = :now"),
		ConditionExpression: aws.String("#count = :expected AND #status = :open"),
		ExpressionAttributeNames: map[string]string{
			"#count":   fieldCurrentCount,
			"#status":  fieldStatus,
			"#updated": fieldUpdatedAt,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one":      num(1),
			":expected": num(int64(claim.ExpectedCount)),
			":open":     str(string(domain.SlotOpen)),
			":next":     str(string(claim.NextStatus())),
			":now":      str(now.UTC().Format(time.RFC3339Nano)),
		},
	}
}
