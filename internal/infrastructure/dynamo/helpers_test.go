package dynamo

import (
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildUpdateExpr_SingleField(t *testing.T) {
	ue, err := buildUpdateExpr(map[string]interface{}{fieldUsername: "juan"})
	require.NoError(t, err)
	assert.Equal(t, "SET #f0 = :v0", ue.Expr)
	assert.Equal(t, map[string]string{"#f0": fieldUsername}, ue.Names)
	assert.Equal(t, str("juan"), ue.Values[":v0"])
}

func TestBuildUpdateExpr_SortedAndDeterministic(t *testing.T) {
	updates := map[string]interface{}{
		fieldUpdatedAt:    "2025-06-02T10:00:00Z",
		fieldPasswordHash: "hash",
		fieldUsername:     "juan",
	}
	ue1, err := buildUpdateExpr(updates)
	require.NoError(t, err)
	ue2, err := buildUpdateExpr(updates)
	require.NoError(t, err)

	assert.Equal(t, ue1.Expr, ue2.Expr)
	// password_hash < updated_at < username
	assert.Equal(t, fieldPasswordHash, ue1.Names["#f0"])
	assert.Equal(t, fieldUpdatedAt, ue1.Names["#f1"])
	assert.Equal(t, fieldUsername, ue1.Names["#f2"])
	assert.Equal(t, "SET #f0 = :v0, #f1 = :v1, #f2 = :v2", ue1.Expr)
}

func TestBuildUpdateExpr_ValuesMarshalled(t *testing.T) {
	ue, err := buildUpdateExpr(map[string]interface{}{"registration_open": true})
	require.NoError(t, err)
	boolVal, isBool := ue.Values[":v0"].(*types.AttributeValueMemberBOOL)
	require.True(t, isBool)
	assert.True(t, boolVal.Value)
}

func TestBuildUpdateExpr_EmptyMap_ReturnsError(t *testing.T) {
	_, err := buildUpdateExpr(map[string]interface{}{})
	assert.ErrorContains(t, err, "no fields to update")
}

func TestConditionFailed(t *testing.T) {
	old := map[string]types.AttributeValue{fieldEmail: str("a@x.com")}
	wrapped := fmt.Errorf("operation error: %w", &types.ConditionalCheckFailedException{Item: old})

	item, ok := conditionFailed(wrapped)
	assert.True(t, ok)
	assert.Equal(t, old, item)

	_, ok = conditionFailed(errors.New("throttled"))
	assert.False(t, ok)
	_, ok = conditionFailed(nil)
	assert.False(t, ok)
}
