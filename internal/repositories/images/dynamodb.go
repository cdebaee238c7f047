package images

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/dmitrijs2005/imagevault/internal/common"
	"github.com/dmitrijs2005/imagevault/internal/domain/lifecycle"
	"github.com/dmitrijs2005/imagevault/internal/models"
)

const (
	// ImageIDIndex is the GSI keyed on imageId with createdAt as range key.
	ImageIDIndex = "imageId-index"

	imageIDGuardPrefix = "IMAGEID#"
	sortKeyBegins      = "CREATED#"
)

// DynamoAPI is the subset of *dynamodb.Client used by DynamoRepository.
type DynamoAPI interface {
	TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// DynamoRepository stores records in a single table keyed by PK/SK.
//
// Uniqueness of imageId is enforced with a guard item PK=SK=IMAGEID#<id>
// written in the same transaction as the record. The guard has no imageId
// attribute so it never appears in the GSI.
type DynamoRepository struct {
	table string
	db    DynamoAPI
}

var newDynamoClientFromConfig = func(cfg aws.Config, optFns ...func(*dynamodb.Options)) *dynamodb.Client {
	return dynamodb.NewFromConfig(cfg, optFns...)
}

// NewDynamoRepositoryFromConfig builds the client from cfg. endpoint may be
// empty, or point at DynamoDB Local.
func NewDynamoRepositoryFromConfig(cfg aws.Config, table, endpoint string) *DynamoRepository {
	client := newDynamoClientFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	return NewDynamoRepository(table, client)
}

func NewDynamoRepository(table string, db DynamoAPI) *DynamoRepository {
	return &DynamoRepository{table: table, db: db}
}

func guardKey(imageID string) map[string]types.AttributeValue {
	k := imageIDGuardPrefix + imageID
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: k},
		"SK": &types.AttributeValueMemberS{Value: k},
	}
}

func recordKey(rec *models.ImageRecord) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: rec.OwnerKey},
		"SK": &types.AttributeValueMemberS{Value: rec.SortKey},
	}
}

func (r *DynamoRepository) Create(ctx context.Context, rec *models.ImageRecord) error {
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	guard := guardKey(rec.ImageID)
	guard["ownerKey"] = &types.AttributeValueMemberS{Value: rec.OwnerKey}
	guard["sortKey"] = &types.AttributeValueMemberS{Value: rec.SortKey}

	_, err = r.db.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{
				TableName:           aws.String(r.table),
				Item:                guard,
				ConditionExpression: aws.String("attribute_not_exists(PK)"),
			}},
			{Put: &types.Put{
				TableName:           aws.String(r.table),
				Item:                item,
				ConditionExpression: aws.String("attribute_not_exists(PK)"),
			}},
		},
	})
	if err != nil {
		if isConditionalCancel(err) {
			return conflict("dynamodb.TransactWriteItems", rec.ImageID, err)
		}
		return common.Dependency("dynamodb.TransactWriteItems", err)
	}
	return nil
}

// GetByImageID reads through the GSI, which is eventually consistent: a
// record created a moment ago may not be visible yet.
func (r *DynamoRepository) GetByImageID(ctx context.Context, imageID string) (*models.ImageRecord, error) {
	out, err := r.db.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.table),
		IndexName:              aws.String(ImageIDIndex),
		KeyConditionExpression: aws.String("imageId = :id"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":id": &types.AttributeValueMemberS{Value: imageID},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return nil, common.Dependency("dynamodb.Query", err)
	}
	if len(out.Items) == 0 {
		return nil, notFound("dynamodb.Query", imageID)
	}

	var rec models.ImageRecord
	if err := attributevalue.UnmarshalMap(out.Items[0], &rec); err != nil {
		return nil, common.Dependency("dynamodb.Query", fmt.Errorf("unmarshal record: %w", err))
	}
	return &rec, nil
}

func (r *DynamoRepository) ListByOwner(ctx context.Context, owner string, limit int, cursor string) (*Page, error) {
	pk := models.OwnerKey(owner)
	in := &dynamodb.QueryInput{
		TableName:              aws.String(r.table),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :sk)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: pk},
			":sk": &types.AttributeValueMemberS{Value: sortKeyBegins},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(int32(limit)),
	}
	if cursor != "" {
		in.ExclusiveStartKey = map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: pk},
			"SK": &types.AttributeValueMemberS{Value: cursor},
		}
	}

	out, err := r.db.Query(ctx, in)
	if err != nil {
		return nil, common.Dependency("dynamodb.Query", err)
	}

	items := make([]*models.ImageRecord, 0, len(out.Items))
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
		return nil, common.Dependency("dynamodb.Query", fmt.Errorf("unmarshal records: %w", err))
	}

	page := &Page{Items: items}
	if sk, ok := out.LastEvaluatedKey["SK"].(*types.AttributeValueMemberS); ok {
		page.NextCursor = sk.Value
	}
	return page, nil
}

func (r *DynamoRepository) Transition(ctx context.Context, rec *models.ImageRecord, t models.Transition) error {
	if err := checkTransition(t); err != nil {
		return err
	}

	now, err := attributevalue.Marshal(t.At.UTC())
	if err != nil {
		return fmt.Errorf("marshal time: %w", err)
	}

	names := map[string]string{
		"#status":    "status",
		"#updatedAt": "updatedAt",
		"#size":      "size",
		"#thumb":     "thumbnailKey",
		"#reason":    "failureReason",
	}
	values := map[string]types.AttributeValue{
		":pending": &types.AttributeValueMemberS{Value: string(lifecycle.StatusPending)},
		":to":      &types.AttributeValueMemberS{Value: string(t.To)},
		":now":     now,
	}

	set := "SET #status = :to, #updatedAt = :now"
	var remove []string

	switch t.To {
	case lifecycle.StatusAvailable:
		if t.Size != nil {
			set += ", #size = :size"
			values[":size"] = &types.AttributeValueMemberN{Value: fmt.Sprint(*t.Size)}
		} else {
			remove = append(remove, "#size")
		}
		if t.ThumbnailKey != nil {
			set += ", #thumb = :thumb"
			values[":thumb"] = &types.AttributeValueMemberS{Value: *t.ThumbnailKey}
		} else {
			remove = append(remove, "#thumb")
		}
		remove = append(remove, "#reason")
	case lifecycle.StatusFailed:
		set += ", #reason = :reason"
		values[":reason"] = &types.AttributeValueMemberS{Value: t.FailureReason}
		remove = append(remove, "#size", "#thumb")
	}

	expr := set
	if len(remove) > 0 {
		expr += " REMOVE " + strings.Join(remove, ", ")
	}

	_, err = r.db.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                           aws.String(r.table),
		Key:                                 recordKey(rec),
		UpdateExpression:                    aws.String(expr),
		ConditionExpression:                 aws.String("attribute_exists(PK) AND #status = :pending"),
		ExpressionAttributeNames:            names,
		ExpressionAttributeValues:           values,
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return conditionFailed("dynamodb.UpdateItem", rec.ImageID, currentStatus(ccf.Item), err)
		}
		return common.Dependency("dynamodb.UpdateItem", err)
	}
	return nil
}

func (r *DynamoRepository) Delete(ctx context.Context, rec *models.ImageRecord) error {
	_, err := r.db.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Delete: &types.Delete{TableName: aws.String(r.table), Key: recordKey(rec)}},
			{Delete: &types.Delete{TableName: aws.String(r.table), Key: guardKey(rec.ImageID)}},
		},
	})
	if err != nil {
		return common.Dependency("dynamodb.TransactWriteItems", err)
	}
	return nil
}

func currentStatus(item map[string]types.AttributeValue) lifecycle.Status {
	if s, ok := item["status"].(*types.AttributeValueMemberS); ok {
		return lifecycle.Status(s.Value)
	}
	return ""
}

// isConditionalCancel reports whether a transaction was cancelled by a
// failed condition check (as opposed to throttling or conflicts).
func isConditionalCancel(err error) bool {
	var tce *types.TransactionCanceledException
	if !errors.As(err, &tce) {
		var ccf *types.ConditionalCheckFailedException
		return errors.As(err, &ccf)
	}
	for _, reason := range tce.CancellationReasons {
		if aws.ToString(reason.Code) == "ConditionalCheckFailed" {
			return true
		}
	}
	return false
}

var _ Repository = (*DynamoRepository)(nil)
