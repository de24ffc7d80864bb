package dynamodb

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/dreschagin/infra-optimizer/internal/domain/entity"
	"github.com/dreschagin/infra-optimizer/internal/domain/repository"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100

	cyclePartition = "CYCLES"

	attrPK         = "PK"
	attrSK         = "SK"
	attrCycleID    = "cycle_id"
	attrStatus     = "status"
	attrStartedAt  = "started_at"
	attrFinishedAt = "finished_at"
	attrDocument   = "document"
	attrExpiresAt  = "expires_at"
)

// API is the subset of the DynamoDB client used by CycleRepository.
type API interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

type Config struct {
	TableName   string
	Endpoint    string
	StrongReads bool
	Retention   time.Duration // 0 disables TTL attribute
}

// CycleRepository stores cycle history in a single DynamoDB partition
// ordered by start time. Implements repository.CycleRepository.
type CycleRepository struct {
	client      API
	tableName   string
	strongReads bool
	retention   time.Duration
}

func NewCycleRepositoryFromConfig(awsCfg aws.Config, cfg Config) (*CycleRepository, error) {
	client := dynamodb.NewFromConfig(awsCfg, func(options *dynamodb.Options) {
		if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
			options.BaseEndpoint = &endpoint
		}
	})
	return NewCycleRepository(client, cfg)
}

func NewCycleRepository(client API, cfg Config) (*CycleRepository, error) {
	if strings.TrimSpace(cfg.TableName) == "" {
		return nil, fmt.Errorf("dynamodb table name is required")
	}

	return &CycleRepository{
		client:      client,
		tableName:   strings.TrimSpace(cfg.TableName),
		strongReads: cfg.StrongReads,
		retention:   cfg.Retention,
	}, nil
}

func (r *CycleRepository) Save(ctx context.Context, result *entity.CycleResult) error {
	item, err := r.toItem(result)
	if err != nil {
		return err
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &r.tableName,
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("dynamodb put item failed: %w", err)
	}

	return nil
}

func (r *CycleRepository) FindLatest(ctx context.Context) (*entity.CycleResult, error) {
	results, err := r.List(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, repository.ErrCycleNotFound
	}
	return results[0], nil
}

func (r *CycleRepository) List(ctx context.Context, limit int) ([]*entity.CycleResult, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	keyCondition := "#pk = :pk"
	input := &dynamodb.QueryInput{
		TableName:                &r.tableName,
		KeyConditionExpression:   &keyCondition,
		ScanIndexForward:         aws.Bool(false),
		ConsistentRead:           aws.Bool(r.strongReads),
		ExpressionAttributeNames: map[string]string{"#pk": attrPK},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: cyclePartition},
		},
	}

	results := make([]*entity.CycleResult, 0, limit)
	for len(results) < limit {
		input.Limit = aws.Int32(int32(limit - len(results)))

		output, err := r.client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("dynamodb query failed: %w", err)
		}

		for _, raw := range output.Items {
			result, err := fromItem(raw)
			if err != nil {
				return nil, err
			}
			results = append(results, result)
		}

		if len(output.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = output.LastEvaluatedKey
	}

	return results, nil
}

func (r *CycleRepository) toItem(result *entity.CycleResult) (map[string]types.AttributeValue, error) {
	if result == nil || strings.TrimSpace(result.ID) == "" {
		return nil, fmt.Errorf("cycle id is required")
	}

	document, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cycle %s: %w", result.ID, err)
	}

	startedMS := result.StartedAt.UTC().UnixMilli()
	item := map[string]types.AttributeValue{
		attrPK:         &types.AttributeValueMemberS{Value: cyclePartition},
		attrSK:         &types.AttributeValueMemberS{Value: buildSK(startedMS, result.ID)},
		attrCycleID:    &types.AttributeValueMemberS{Value: result.ID},
		attrStatus:     &types.AttributeValueMemberS{Value: result.Status.String()},
		attrStartedAt:  &types.AttributeValueMemberN{Value: strconv.FormatInt(startedMS, 10)},
		attrFinishedAt: &types.AttributeValueMemberN{Value: strconv.FormatInt(result.FinishedAt.UTC().UnixMilli(), 10)},
		attrDocument:   &types.AttributeValueMemberS{Value: string(document)},
	}

	if r.retention > 0 {
		expiresAt := result.StartedAt.Add(r.retention).UTC().Unix()
		item[attrExpiresAt] = &types.AttributeValueMemberN{Value: strconv.FormatInt(expiresAt, 10)}
	}

	return item, nil
}

func fromItem(item map[string]types.AttributeValue) (*entity.CycleResult, error) {
	id, err := attrString(item, attrCycleID)
	if err != nil {
		return nil, err
	}
	document, err := attrString(item, attrDocument)
	if err != nil {
		return nil, err
	}

	var result entity.CycleResult
	if err := json.Unmarshal([]byte(document), &result); err != nil {
		return nil, fmt.Errorf("failed to decode cycle %s: %w", id, err)
	}
	return &result, nil
}

func buildSK(startedMS int64, id string) string {
	return fmt.Sprintf("TS#%013d#ID#%s", startedMS, id)
}

func attrString(item map[string]types.AttributeValue, name string) (string, error) {
	raw, ok := item[name]
	if !ok {
		return "", fmt.Errorf("missing attribute %s", name)
	}
	value, ok := raw.(*types.AttributeValueMemberS)
	if !ok || strings.TrimSpace(value.Value) == "" {
		return "", fmt.Errorf("invalid attribute %s", name)
	}
	return value.Value, nil
}
