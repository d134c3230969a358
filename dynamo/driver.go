// Package dynamo implements orm.Driver on Amazon DynamoDB.
//
// Every table is expected to have a string partition key named "id" and no
// sort key. Ids are UUID strings unless the caller supplies one.
package dynamo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/mickamy/hasone/orm"
)

// ErrDuplicateKey is returned by Insert when an item with the same id exists.
// It is orm.ErrDuplicateKey.
var ErrDuplicateKey = orm.ErrDuplicateKey

// Client is the subset of *dynamodb.Client used by Driver.
type Client interface {
	dynamodb.ScanAPIClient
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

var _ Client = (*dynamodb.Client)(nil)

// Driver stores rows as DynamoDB items.
type Driver struct {
	client Client
	prefix string
	newID  func() string
}

// Option configures a Driver.
type Option func(d *Driver)

// WithTablePrefix prepends prefix to every table name, e.g. "dev_".
func WithTablePrefix(prefix string) Option {
	return func(d *Driver) { d.prefix = prefix }
}

// WithIDGenerator replaces the UUID generator used for new items.
func WithIDGenerator(fn func() string) Option {
	return func(d *Driver) { d.newID = fn }
}

// New returns a Driver using client.
func New(client Client, opts ...Option) *Driver {
	d := &Driver{client: client, newID: uuid.NewString}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

var _ orm.Driver = (*Driver)(nil)

// Find scans table. Items come back in scan order; a positive limit stops
// the scan once that many matches are collected.
func (d *Driver) Find(ctx context.Context, table string, filter orm.Fields, limit int) ([]orm.Fields, error) {
	input := &dynamodb.ScanInput{TableName: aws.String(d.table(table))}
	expr, names, values, err := filterExpression(filter)
	if err != nil {
		return nil, fmt.Errorf("dynamo: scan %s: %w", table, err)
	}
	if expr != "" {
		input.FilterExpression = aws.String(expr)
		input.ExpressionAttributeNames = names
		if len(values) > 0 {
			input.ExpressionAttributeValues = values
		}
	}

	var rows []orm.Fields
	paginator := dynamodb.NewScanPaginator(d.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("dynamo: scan %s: %w", table, err)
		}
		for _, raw := range page.Items {
			row, err := unmarshalItem(raw)
			if err != nil {
				return nil, fmt.Errorf("dynamo: scan %s: %w", table, err)
			}
			rows = append(rows, row)
			if limit > 0 && len(rows) == limit {
				return rows, nil
			}
		}
	}
	return rows, nil
}

// Insert puts a new item. It fails with ErrDuplicateKey if the id is taken.
func (d *Driver) Insert(ctx context.Context, table string, fields orm.Fields) (any, error) {
	row := fields.Clone()
	id := row[orm.PrimaryKey]
	if id == nil {
		id = d.newID()
		row[orm.PrimaryKey] = id
	}
	item, err := attributevalue.MarshalMap(map[string]any(row))
	if err != nil {
		return nil, fmt.Errorf("dynamo: marshal %s: %w", table, err)
	}

	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(d.table(table)),
		Item:                     item,
		ConditionExpression:      aws.String("attribute_not_exists(#id)"),
		ExpressionAttributeNames: map[string]string{"#id": orm.PrimaryKey},
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return nil, fmt.Errorf("%w: %s %v", ErrDuplicateKey, table, id)
		}
		return nil, fmt.Errorf("dynamo: put %s: %w", table, err)
	}
	return id, nil
}

// Update sets the given attributes on an existing item. It fails with
// orm.ErrNotFound if the item does not exist.
func (d *Driver) Update(ctx context.Context, table string, id any, fields orm.Fields) error {
	key, err := keyOf(id)
	if err != nil {
		return fmt.Errorf("dynamo: update %s: %w", table, err)
	}

	names := map[string]string{"#id": orm.PrimaryKey}
	values := make(map[string]types.AttributeValue)
	var sets []string
	for i, col := range fields.Without(orm.PrimaryKey).Columns() {
		nameKey := fmt.Sprintf("#attr%d", i)
		valueKey := fmt.Sprintf(":val%d", i)
		v, err := attributevalue.Marshal(fields[col])
		if err != nil {
			return fmt.Errorf("dynamo: marshal %s.%s: %w", table, col, err)
		}
		names[nameKey] = col
		values[valueKey] = v
		sets = append(sets, nameKey+" = "+valueKey)
	}

	input := &dynamodb.UpdateItemInput{
		TableName:                aws.String(d.table(table)),
		Key:                      key,
		ConditionExpression:      aws.String("attribute_exists(#id)"),
		ExpressionAttributeNames: names,
	}
	if len(sets) > 0 {
		input.UpdateExpression = aws.String("SET " + strings.Join(sets, ", "))
		input.ExpressionAttributeValues = values
	}

	_, err = d.client.UpdateItem(ctx, input)
	return mapNotFound(err, "update", table, id)
}

// Delete removes an item. It fails with orm.ErrNotFound if the item does
// not exist.
func (d *Driver) Delete(ctx context.Context, table string, id any) error {
	key, err := keyOf(id)
	if err != nil {
		return fmt.Errorf("dynamo: delete %s: %w", table, err)
	}
	_, err = d.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                aws.String(d.table(table)),
		Key:                      key,
		ConditionExpression:      aws.String("attribute_exists(#id)"),
		ExpressionAttributeNames: map[string]string{"#id": orm.PrimaryKey},
	})
	return mapNotFound(err, "delete", table, id)
}

func (d *Driver) table(name string) string { return d.prefix + name }

func keyOf(id any) (map[string]types.AttributeValue, error) {
	if id == nil {
		return nil, orm.ErrNoPrimaryKey
	}
	v, err := attributevalue.Marshal(id)
	if err != nil {
		return nil, err //nolint:wrapcheck // wrapped by caller
	}
	return map[string]types.AttributeValue{orm.PrimaryKey: v}, nil
}

func mapNotFound(err error, op, table string, id any) error {
	if err == nil {
		return nil
	}
	var condErr *types.ConditionalCheckFailedException
	if errors.As(err, &condErr) {
		return fmt.Errorf("%w: %s %v", orm.ErrNotFound, table, id)
	}
	return fmt.Errorf("dynamo: %s %s: %w", op, table, err)
}

// filterExpression renders filter as a FilterExpression. Columns are
// compared for equality in sorted order; a nil value matches a missing or
// NULL attribute.
func filterExpression(filter orm.Fields) (string, map[string]string, map[string]types.AttributeValue, error) {
	if len(filter) == 0 {
		return "", nil, nil, nil
	}
	names := make(map[string]string, len(filter))
	values := make(map[string]types.AttributeValue, len(filter))
	conds := make([]string, 0, len(filter))
	for i, col := range filter.Columns() {
		nameKey := fmt.Sprintf("#attr%d", i)
		names[nameKey] = col
		if filter[col] == nil {
			conds = append(conds, fmt.Sprintf("(attribute_not_exists(%s) OR attribute_type(%s, :null))", nameKey, nameKey))
			values[":null"] = &types.AttributeValueMemberS{Value: "NULL"}
			continue
		}
		valueKey := fmt.Sprintf(":val%d", i)
		v, err := attributevalue.Marshal(filter[col])
		if err != nil {
			return "", nil, nil, fmt.Errorf("marshal %s: %w", col, err)
		}
		values[valueKey] = v
		conds = append(conds, nameKey+" = "+valueKey)
	}
	return strings.Join(conds, " AND "), names, values, nil
}

func unmarshalItem(item map[string]types.AttributeValue) (orm.Fields, error) {
	var row map[string]any
	if err := attributevalue.UnmarshalMap(item, &row); err != nil {
		return nil, err //nolint:wrapcheck // wrapped by caller
	}
	for k, v := range row {
		row[k] = normalize(v)
	}
	return row, nil
}

// normalize turns integral numbers into int64. DynamoDB numbers decode as
// float64 otherwise.
func normalize(v any) any {
	switch t := v.(type) {
	case float64:
		if t == math.Trunc(t) && t >= math.MinInt64 && t < math.MaxInt64 {
			return int64(t)
		}
		return t
	case []any:
		for i := range t {
			t[i] = normalize(t[i])
		}
		return t
	case map[string]any:
		for k := range t {
			t[k] = normalize(t[k])
		}
		return t
	default:
		return v
	}
}
