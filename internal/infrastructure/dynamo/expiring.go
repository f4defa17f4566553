package dynamo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/exam-registration/internal/domain"
	"github.com/exam-registration/internal/pkg/id"
)

const (
	// chunkSize keeps every part well under the 400 KB item limit once the key
	// and expiry attributes are added.
	chunkSize = 350 << 10
	// maxValueSize fits all parts inside one 4 MB transaction.
	maxValueSize = 10 * chunkSize
	// readAttempts bounds re-reads when a value is overwritten mid-read.
	readAttempts = 3
	// incrAttempts bounds the reset race on an expired counter.
	incrAttempts = 3
)

// ExpiringStore is a keyed TTL store on a table with DynamoDB TTL enabled on
// expires_at. The TTL sweeper runs lazily, so reads also compare expires_at_ms
// against the clock and hide anything already past it.
//
// Values larger than chunkSize are split across items <key>, <key>#1, ...
// written in one transaction. The head item records the part count and a
// version shared by all parts.
type ExpiringStore struct {
	client    *dynamodb.Client
	tableName string
	now       func() time.Time
}

func NewExpiringStore(client *dynamodb.Client, tableName string) *ExpiringStore {
	return &ExpiringStore{client: client, tableName: tableName, now: time.Now}
}

func (s *ExpiringStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("put %s: ttl must be positive: %w", key, domain.ErrBadRequest)
	}
	items, err := partItems(key, id.New(), value, s.now().Add(ttl))
	if err != nil {
		return err
	}
	if len(items) == 1 {
		_, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName: aws.String(s.tableName),
			Item:      items[0],
		})
		return err
	}
	writes := make([]types.TransactWriteItem, len(items))
	for i, item := range items {
		writes[i] = types.TransactWriteItem{Put: &types.Put{
			TableName: aws.String(s.tableName),
			Item:      item,
		}}
	}
	_, err = s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: writes})
	return err
}

func (s *ExpiringStore) Get(ctx context.Context, key string) ([]byte, error) {
	for attempt := 0; attempt < readAttempts; attempt++ {
		head, err := s.head(ctx, key)
		if err != nil {
			return nil, err
		}
		if _, err := liveValue(head, s.now()); err != nil {
			return nil, err
		}
		parts, err := partCount(head)
		if err != nil {
			return nil, err
		}
		if parts == 1 {
			return liveValue(head, s.now())
		}

		gets := make([]types.TransactGetItem, parts)
		for i := range gets {
			gets[i] = types.TransactGetItem{Get: &types.Get{
				TableName: aws.String(s.tableName),
				Key:       strKey(fieldKey, partKey(key, i)),
			}}
		}
		out, err := s.client.TransactGetItems(ctx, &dynamodb.TransactGetItemsInput{TransactItems: gets})
		if err != nil {
			return nil, err
		}
		items := make([]map[string]types.AttributeValue, len(out.Responses))
		for i, r := range out.Responses {
			items[i] = r.Item
		}
		v, err := joinParts(items, s.now())
		if errors.Is(err, errTornRead) {
			continue
		}
		return v, err
	}
	return nil, fmt.Errorf("get %s: value kept changing: %w", key, domain.ErrTransientConflict)
}

func (s *ExpiringStore) Delete(ctx context.Context, key string) error {
	head, err := s.head(ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	parts, err := partCount(head)
	if err != nil {
		return err
	}
	if parts == 1 {
		_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName: aws.String(s.tableName),
			Key:       strKey(fieldKey, key),
		})
		return err
	}
	deletes := make([]types.TransactWriteItem, parts)
	for i := range deletes {
		deletes[i] = types.TransactWriteItem{Delete: &types.Delete{
			TableName: aws.String(s.tableName),
			Key:       strKey(fieldKey, partKey(key, i)),
		}}
	}
	_, err = s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: deletes})
	return err
}

// Incr adds one to the counter at key. The expiry is fixed by the first
// increment; a counter already past it starts over at one.
func (s *ExpiringStore) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	if ttl <= 0 {
		return 0, fmt.Errorf("incr %s: ttl must be positive: %w", key, domain.ErrBadRequest)
	}
	for attempt := 0; attempt < incrAttempts; attempt++ {
		now := s.now()
		expires := now.Add(ttl)
		out, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
			TableName:           aws.String(s.tableName),
			Key:                 strKey(fieldKey, key),
			UpdateExpression:    aws.String("ADD #count :one SET #exp = if_not_exists(#exp, :exp), #expms = if_not_exists(#expms, :expms)"),
			ConditionExpression: aws.String("attribute_not_exists(#expms) OR #expms > :now"),
			ExpressionAttributeNames: map[string]string{
				"#count": fieldCount,
				"#exp":   fieldExpiresAt,
				"#expms": fieldExpiresAtMillis,
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":one":   num(1),
				":exp":   num(expires.Unix()),
				":expms": num(expires.UnixMilli()),
				":now":   num(now.UnixMilli()),
			},
			ReturnValues: types.ReturnValueUpdatedNew,
		})
		if err == nil {
			return counterValue(out.Attributes)
		}
		if _, failed := conditionFailed(err); !failed {
			return 0, err
		}

		// The counter outlived its window before the sweeper removed it.
		_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName: aws.String(s.tableName),
			Item: map[string]types.AttributeValue{
				fieldKey:             str(key),
				fieldCount:           num(1),
				fieldExpiresAt:       num(expires.Unix()),
				fieldExpiresAtMillis: num(expires.UnixMilli()),
			},
			ConditionExpression:       aws.String("#expms <= :now"),
			ExpressionAttributeNames:  map[string]string{"#expms": fieldExpiresAtMillis},
			ExpressionAttributeValues: map[string]types.AttributeValue{":now": num(now.UnixMilli())},
		})
		if err == nil {
			return 1, nil
		}
		if _, failed := conditionFailed(err); !failed {
			return 0, err
		}
	}
	return 0, fmt.Errorf("incr %s: %w", key, domain.ErrTransientConflict)
}

func (s *ExpiringStore) head(ctx context.Context, key string) (map[string]types.AttributeValue, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            strKey(fieldKey, key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, domain.ErrNotFound
	}
	return out.Item, nil
}

var errTornRead = errors.New("parts from different writes")

// partKey names part i of key. Part zero is the head and keeps the bare key.
func partKey(key string, i int) string {
	if i == 0 {
		return key
	}
	return key + "#" + strconv.Itoa(i)
}

// splitParts cuts value into pieces of at most size bytes. An empty value
// still yields one empty part.
func splitParts(value []byte, size int) [][]byte {
	if len(value) <= size {
		return [][]byte{value}
	}
	parts := make([][]byte, 0, (len(value)+size-1)/size)
	for len(value) > size {
		parts = append(parts, value[:size])
		value = value[size:]
	}
	return append(parts, value)
}

// partItems lays value out as the items Put writes.
func partItems(key, version string, value []byte, expires time.Time) ([]map[string]types.AttributeValue, error) {
	if len(value) > maxValueSize {
		return nil, fmt.Errorf("put %s: value of %d bytes exceeds %d: %w", key, len(value), maxValueSize, domain.ErrBadRequest)
	}
	parts := splitParts(value, chunkSize)
	items := make([]map[string]types.AttributeValue, len(parts))
	for i, p := range parts {
		item := map[string]types.AttributeValue{
			fieldKey:             str(partKey(key, i)),
			fieldValue:           &types.AttributeValueMemberB{Value: p},
			fieldVersion:         str(version),
			fieldExpiresAt:       num(expires.Unix()),
			fieldExpiresAtMillis: num(expires.UnixMilli()),
		}
		if i == 0 {
			item[fieldParts] = num(int64(len(parts)))
		}
		items[i] = item
	}
	return items, nil
}

// joinParts reassembles items read in part order. errTornRead means the head
// and the parts belong to different writes.
func joinParts(items []map[string]types.AttributeValue, now time.Time) ([]byte, error) {
	if len(items) == 0 || items[0] == nil {
		return nil, domain.ErrNotFound
	}
	parts, err := partCount(items[0])
	if err != nil {
		return nil, err
	}
	if parts != len(items) {
		return nil, errTornRead
	}
	version := attrString(items[0], fieldVersion)
	var out []byte
	for _, item := range items {
		if item == nil || attrString(item, fieldVersion) != version {
			return nil, errTornRead
		}
		v, err := liveValue(item, now)
		if err != nil {
			return nil, err
		}
		out = append(out, v...)
	}
	return out, nil
}

// partCount reads the head's part count. Items written before chunking have
// none and hold the whole value.
func partCount(head map[string]types.AttributeValue) (int, error) {
	n, ok := head[fieldParts].(*types.AttributeValueMemberN)
	if !ok {
		return 1, nil
	}
	parts, err := strconv.Atoi(n.Value)
	if err != nil || parts < 1 {
		return 0, fmt.Errorf("bad part count %q", n.Value)
	}
	return parts, nil
}

func counterValue(attrs map[string]types.AttributeValue) (int64, error) {
	n, ok := attrs[fieldCount].(*types.AttributeValueMemberN)
	if !ok {
		return 0, errors.New("counter item missing count")
	}
	return strconv.ParseInt(n.Value, 10, 64)
}

func attrString(item map[string]types.AttributeValue, name string) string {
	if v, ok := item[name].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

// liveValue extracts the stored bytes unless the item is absent or expired.
func liveValue(item map[string]types.AttributeValue, now time.Time) ([]byte, error) {
	if item == nil {
		return nil, domain.ErrNotFound
	}
	exp, ok := item[fieldExpiresAtMillis].(*types.AttributeValueMemberN)
	if !ok {
		return nil, errors.New("expiring item missing expires_at_ms")
	}
	ms, err := strconv.ParseInt(exp.Value, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse expires_at_ms: %w", err)
	}
	if now.UnixMilli() >= ms {
		return nil, domain.ErrNotFound
	}
	v, ok := item[fieldValue].(*types.AttributeValueMemberB)
	if !ok {
		return nil, errors.New("expiring item missing value")
	}
	return v.Value, nil
}
