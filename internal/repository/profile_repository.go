package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/kjlinux/pourier-back/internal/domain"
)

type ProfileRepository struct {
	client    *dynamodb.Client
	tableName string
}

func NewProfileRepository(client *dynamodb.Client, tableName string) *ProfileRepository {
	return &ProfileRepository{
		client:    client,
		tableName: tableName,
	}
}

func (r *ProfileRepository) GetProfile(ctx context.Context, userID string) (*domain.PhotographerProfile, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: fmt.Sprintf("PROFILE#%s", userID)},
			"SK": &types.AttributeValueMemberS{Value: "METADATA"},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Item) == 0 {
		return nil, domain.ErrProfileNotFound
	}

	var profile domain.PhotographerProfile
	if err := attributevalue.UnmarshalMap(out.Item, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *ProfileRepository) UpdateProfile(ctx context.Context, profile *domain.PhotographerProfile, expectedVersion int64) error {
	profile.Version = expectedVersion + 1

	av, err := attributevalue.MarshalMap(profile)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}
	av["PK"] = &types.AttributeValueMemberS{Value: fmt.Sprintf("PROFILE#%s", profile.UserID)}
	av["SK"] = &types.AttributeValueMemberS{Value: "METADATA"}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                av,
		ConditionExpression: aws.String("version = :v"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":v": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", expectedVersion)},
		},
	})
	if err != nil {
		profile.Version = expectedVersion
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return domain.ErrVersionConflict
		}
		return fmt.Errorf("failed to update profile: %w", err)
	}

	return nil
}
