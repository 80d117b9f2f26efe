// Package dynamodb stores tables as DynamoDB items. Each logical table maps
// to a DynamoDB table keyed by a single string attribute "pk" built from the
// dedupe columns, so rewriting the same row is an idempotent put.
package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"sportsref/internal/storage"
	"sportsref/internal/tabular"
)

// KeyAttribute is the partition key of every table this backend creates.
const KeyAttribute = "pk"

const (
	maxBatch    = 25
	maxAttempts = 6
)

// API is the subset of the DynamoDB client the repository calls.
type API interface {
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

// Repo implements storage.Repository on DynamoDB.
type Repo struct {
	ddb   API
	sleep func(time.Duration)

	// TableWait bounds how long EnsureTables waits for a new table.
	TableWait time.Duration
}

func init() {
	storage.Register("dynamodb", New)
}

// New loads the default AWS config. A non-empty cfg.DSN overrides the region.
func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	var opts []func(*config.LoadOptions) error
	if r := strings.TrimSpace(cfg.DSN); r != "" {
		opts = append(opts, config.WithRegion(r))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("dynamodb: load aws config: %w", err)
	}
	return NewWithClient(dynamodb.NewFromConfig(awsCfg)), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(api API) *Repo {
	return &Repo{ddb: api, sleep: time.Sleep, TableWait: 2 * time.Minute}
}

func (r *Repo) Close() {}

// EnsureTables creates missing tables with on-demand billing and waits for
// them to become active.
func (r *Repo) EnsureTables(ctx context.Context, tables []storage.TableSpec) error {
	for _, t := range tables {
		name := aws.String(t.Name)
		_, err := r.ddb.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: name})
		if err == nil {
			continue
		}
		var nf *types.ResourceNotFoundException
		if !errors.As(err, &nf) {
			return fmt.Errorf("dynamodb: describe %s: %w", t.Name, err)
		}
		_, err = r.ddb.CreateTable(ctx, &dynamodb.CreateTableInput{
			TableName:   name,
			BillingMode: types.BillingModePayPerRequest,
			AttributeDefinitions: []types.AttributeDefinition{
				{AttributeName: aws.String(KeyAttribute), AttributeType: types.ScalarAttributeTypeS},
			},
			KeySchema: []types.KeySchemaElement{
				{AttributeName: aws.String(KeyAttribute), KeyType: types.KeyTypeHash},
			},
		})
		if err != nil {
			return fmt.Errorf("dynamodb: create %s: %w", t.Name, err)
		}
		w := dynamodb.NewTableExistsWaiter(r.ddb)
		if err := w.Wait(ctx, &dynamodb.DescribeTableInput{TableName: name}, r.TableWait); err != nil {
			return fmt.Errorf("dynamodb: wait for %s: %w", t.Name, err)
		}
	}
	return nil
}

// InsertRows puts rows in batches of 25, retrying unprocessed items. Rows
// sharing a key inside the input keep the first occurrence; a key already
// stored is overwritten with identical content.
func (r *Repo) InsertRows(ctx context.Context, table string, columns []string, rows [][]any, dedupeColumns []string) (int64, error) {
	rows, err := storage.DedupeRows(rows, columns, dedupeColumns)
	if err != nil {
		return 0, fmt.Errorf("dynamodb: %w", err)
	}
	keyIdx, err := storage.Indices(columns, dedupeColumns)
	if err != nil {
		return 0, fmt.Errorf("dynamodb: %w", err)
	}
	hash := tabular.Hash{Fields: columns}

	var total int64
	for i := 0; i < len(rows); i += maxBatch {
		end := min(i+maxBatch, len(rows))
		reqs := make([]types.WriteRequest, 0, end-i)
		for _, row := range rows[i:end] {
			item := Item(columns, row)
			item[KeyAttribute] = &types.AttributeValueMemberS{Value: rowKey(columns, row, keyIdx, hash)}
			reqs = append(reqs, types.WriteRequest{PutRequest: &types.PutRequest{Item: item}})
		}
		if err := r.batchWriteWithRetry(ctx, table, reqs); err != nil {
			return total, fmt.Errorf("dynamodb: batch write %s: %w", table, err)
		}
		total += int64(len(reqs))
	}
	return total, nil
}

func rowKey(columns []string, row []any, keyIdx []int, hash tabular.Hash) string {
	if len(keyIdx) == 0 {
		values := make(map[string]any, len(columns))
		for i, c := range columns {
			values[c] = row[i]
		}
		return hash.Sum(values)
	}
	return storage.JoinKey(row, keyIdx, "#")
}

func (r *Repo) batchWriteWithRetry(ctx context.Context, table string, reqs []types.WriteRequest) error {
	input := &dynamodb.BatchWriteItemInput{
		RequestItems: map[string][]types.WriteRequest{table: reqs},
	}
	backoff := 120 * time.Millisecond

	for attempt := 0; attempt < maxAttempts; attempt++ {
		out, err := r.ddb.BatchWriteItem(ctx, input)
		if err != nil {
			return err
		}
		if len(out.UnprocessedItems) == 0 {
			return nil
		}
		input.RequestItems = out.UnprocessedItems
		if err := ctx.Err(); err != nil {
			return err
		}
		r.sleep(backoff)
		if backoff < 2*time.Second {
			backoff += 120 * time.Millisecond
		}
	}
	return fmt.Errorf("unprocessed items remained after retries for table %s", table)
}

// Item converts a row to DynamoDB attributes. Nil values are omitted.
func Item(columns []string, row []any) map[string]types.AttributeValue {
	item := make(map[string]types.AttributeValue, len(columns)+1)
	for i, c := range columns {
		if av := attributeValue(row[i]); av != nil {
			item[c] = av
		}
	}
	return item
}

func attributeValue(v any) types.AttributeValue {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		return &types.AttributeValueMemberS{Value: t}
	case bool:
		return &types.AttributeValueMemberBOOL{Value: t}
	case int:
		return &types.AttributeValueMemberN{Value: strconv.Itoa(t)}
	case int64:
		return &types.AttributeValueMemberN{Value: strconv.FormatInt(t, 10)}
	case float64:
		return &types.AttributeValueMemberN{Value: strconv.FormatFloat(t, 'f', -1, 64)}
	default:
		return &types.AttributeValueMemberS{Value: fmt.Sprint(t)}
	}
}
