package dynamo

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exam-registration/internal/domain"
)

// itemLimit is DynamoDB's maximum item size.
const itemLimit = 400 << 10

func itemSize(item map[string]types.AttributeValue) int {
	n := 0
	for name, v := range item {
		n += len(name)
		switch v := v.(type) {
		case *types.AttributeValueMemberS:
			n += len(v.Value)
		case *types.AttributeValueMemberN:
			n += len(v.Value)
		case *types.AttributeValueMemberB:
			n += len(v.Value)
		}
	}
	return n
}

func imageSizedStage(t *testing.T) []byte {
	t.Helper()
	st := domain.StagedRegistration{
		Payload: domain.ApplicantPayload{
			Email:            "a@x.com",
			ProfileImage:     bytes.Repeat([]byte{0xff, 0xd8, 0x01}, 2097152/3),
			ProfileImageType: "image/jpeg",
		},
	}
	raw, err := json.Marshal(st)
	require.NoError(t, err)
	require.Greater(t, len(raw), base64.StdEncoding.EncodedLen(2<<20)-8)
	return raw
}

func TestPartItems_ImageSizedValueFitsItemLimit(t *testing.T) {
	expires := time.Date(2025, 6, 2, 10, 20, 0, 0, time.UTC)
	value := imageSizedStage(t)

	items, err := partItems("stage:a@x.com", "v1", value, expires)
	require.NoError(t, err)
	require.Greater(t, len(items), 1)
	assert.LessOrEqual(t, len(items), 100)

	total := 0
	for i, item := range items {
		assert.Less(t, itemSize(item), itemLimit, "part %d", i)
		assert.Equal(t, str(partKey("stage:a@x.com", i)), item[fieldKey])
		assert.Equal(t, str("v1"), item[fieldVersion])
		total += itemSize(item)
	}
	assert.Less(t, total, 4_000_000)
	assert.Equal(t, num(int64(len(items))), items[0][fieldParts])
	assert.NotContains(t, items[1], fieldParts)

	got, err := joinParts(items, expires.Add(-time.Minute))
	require.NoError(t, err)
	assert.True(t, bytes.Equal(value, got))
}

func TestPartItems_SmallValueIsOneItem(t *testing.T) {
	expires := time.Date(2025, 6, 2, 10, 20, 0, 0, time.UTC)
	items, err := partItems("rate:abc", "v1", []byte(`{"count":1}`), expires)
	require.NoError(t, err)
	require.Len(t, items, 1)

	parts, err := partCount(items[0])
	require.NoError(t, err)
	assert.Equal(t, 1, parts)
	v, err := liveValue(items[0], expires.Add(-time.Second))
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"count":1}`), v)
}

func TestPartItems_RejectsValueBeyondTransactionSize(t *testing.T) {
	_, err := partItems("stage:a@x.com", "v1", make([]byte, maxValueSize+1), time.Now())
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestSplitParts(t *testing.T) {
	assert.Equal(t, [][]byte{{}}, splitParts([]byte{}, 4))
	assert.Equal(t, [][]byte{[]byte("abcd")}, splitParts([]byte("abcd"), 4))
	assert.Equal(t, [][]byte{[]byte("abcd"), []byte("ef")}, splitParts([]byte("abcdef"), 4))
}

func TestJoinParts_DetectsTornRead(t *testing.T) {
	expires := time.Date(2025, 6, 2, 10, 20, 0, 0, time.UTC)
	now := expires.Add(-time.Minute)
	value := bytes.Repeat([]byte("x"), 2*chunkSize+10)

	older, err := partItems("k", "v1", value, expires)
	require.NoError(t, err)
	newer, err := partItems("k", "v2", value, expires)
	require.NoError(t, err)

	mixed := []map[string]types.AttributeValue{newer[0], older[1], newer[2]}
	_, err = joinParts(mixed, now)
	assert.ErrorIs(t, err, errTornRead)

	_, err = joinParts(newer[:2], now)
	assert.ErrorIs(t, err, errTornRead)

	_, err = joinParts([]map[string]types.AttributeValue{newer[0], nil, newer[2]}, now)
	assert.ErrorIs(t, err, errTornRead)
}

func TestJoinParts_ExpiredIsNotFound(t *testing.T) {
	expires := time.Date(2025, 6, 2, 10, 20, 0, 0, time.UTC)
	items, err := partItems("k", "v1", bytes.Repeat([]byte("x"), chunkSize+1), expires)
	require.NoError(t, err)

	_, err = joinParts(items, expires)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	_, err = joinParts(nil, expires)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestPartCount_LegacyHeadHoldsWholeValue(t *testing.T) {
	n, err := partCount(map[string]types.AttributeValue{fieldKey: str("k")})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = partCount(map[string]types.AttributeValue{fieldParts: num(0)})
	assert.Error(t, err)
}

func TestCounterValue(t *testing.T) {
	n, err := counterValue(map[string]types.AttributeValue{fieldCount: num(4)})
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	_, err = counterValue(map[string]types.AttributeValue{})
	assert.Error(t, err)
}
