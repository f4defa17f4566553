package dynamo

import (
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exam-registration/internal/config"
	"github.com/exam-registration/internal/domain"
)

var testTables = config.DynamoTables{
	Accounts:      "accounts",
	Profiles:      "profiles",
	Registrations: "registrations",
	SlotSessions:  "slots",
}

func testCommit(seat *domain.SeatClaim) domain.RegistrationCommit {
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	return domain.RegistrationCommit{
		Account: &domain.Account{
			Email: "A@x.com", AccountID: "acc-1", Username: "juan",
			PasswordHash: "hash", EmailVerifiedAt: &now, UpdatedAt: now,
		},
		Profile:      &domain.ApplicantProfile{ProfileID: "prof-1", AccountID: "acc-1"},
		Registration: &domain.Registration{RegistrationID: "reg-1", AccountID: "acc-1", Status: domain.StatusAssigned},
		Seat:         seat,
	}
}

func reasons(codes ...string) []types.CancellationReason {
	out := make([]types.CancellationReason, len(codes))
	for i, c := range codes {
		out[i] = types.CancellationReason{Code: aws.String(c)}
	}
	return out
}

func TestCommitItems_WithoutSeat(t *testing.T) {
	items, err := commitItems(testTables, testCommit(nil))
	require.NoError(t, err)
	require.Len(t, items, 3)

	acc := items[itemAccount].Update
	require.NotNil(t, acc)
	assert.Equal(t, "accounts", aws.ToString(acc.TableName))
	assert.Equal(t, condUnverified, aws.ToString(acc.ConditionExpression))
	assert.Equal(t, &types.AttributeValueMemberS{Value: "a@x.com"}, acc.Key[fieldEmail])

	require.NotNil(t, items[itemProfile].Put)
	assert.Equal(t, "attribute_not_exists(profile_id)", aws.ToString(items[itemProfile].Put.ConditionExpression))
	require.NotNil(t, items[itemRegistration].Put)
	assert.Equal(t, "registrations", aws.ToString(items[itemRegistration].Put.TableName))
}

func TestCommitItems_SeatIsCompareAndSwap(t *testing.T) {
	seat := &domain.SeatClaim{ExamDate: "2025-06-04", Session: domain.SessionMorning, ExpectedCount: 19, MaxCapacity: 20}
	items, err := commitItems(testTables, testCommit(seat))
	require.NoError(t, err)
	require.Len(t, items, 4)

	u := items[itemSeat].Update
	require.NotNil(t, u)
	assert.Equal(t, "slots", aws.ToString(u.TableName))
	assert.Equal(t, "#count = :expected AND #status = :open", aws.ToString(u.ConditionExpression))
	assert.Equal(t, &types.AttributeValueMemberN{Value: "19"}, u.ExpressionAttributeValues[":expected"])
	assert.Equal(t, &types.AttributeValueMemberS{Value: "full"}, u.ExpressionAttributeValues[":next"])
	assert.Equal(t, &types.AttributeValueMemberS{Value: "morning"}, u.Key[fieldSession])
}

func TestCommitItems_RequiresVerifiedAccount(t *testing.T) {
	c := testCommit(nil)
	c.Account.EmailVerifiedAt = nil
	_, err := commitItems(testTables, c)
	assert.Error(t, err)
}

func TestCancellationError(t *testing.T) {
	verified := reasons("ConditionalCheckFailed", "None", "None")
	verified[itemAccount].Item = map[string]types.AttributeValue{fieldEmail: str("a@x.com")}

	cases := map[string]struct {
		reasons []types.CancellationReason
		want    error
	}{
		"account verified":  {reasons: verified, want: domain.ErrAlreadyVerified},
		"account gone":      {reasons: reasons("ConditionalCheckFailed", "None", "None"), want: domain.ErrExpired},
		"seat moved":        {reasons: reasons("None", "None", "None", "ConditionalCheckFailed"), want: domain.ErrTransientConflict},
		"concurrent tx":     {reasons: reasons("None", "None", "None", "TransactionConflict"), want: domain.ErrTransientConflict},
		"duplicate profile": {reasons: reasons("None", "ConditionalCheckFailed", "None"), want: domain.ErrFatal},
		"validation":        {reasons: reasons("ValidationError", "None", "None"), want: domain.ErrFatal},
		"no reason":         {reasons: nil, want: domain.ErrFatal},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			err := cancellationError(tc.reasons)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}
}

func TestLiveValue(t *testing.T) {
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	item := map[string]types.AttributeValue{
		fieldKey:             str("stage:a@x.com"),
		fieldValue:           &types.AttributeValueMemberB{Value: []byte("payload")},
		fieldExpiresAtMillis: num(now.Add(time.Minute).UnixMilli()),
	}

	v, err := liveValue(item, now)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), v)

	_, err = liveValue(item, now.Add(time.Minute))
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	_, err = liveValue(nil, now)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}
