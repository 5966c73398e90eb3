// Package catalog resolves photo ids to pricing truth. The catalog is
// owned by another service; this is a read-only adapter.
package catalog

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/kjlinux/pourier-back/internal/domain"
	"github.com/kjlinux/pourier-back/internal/pricing"
)

// PhotoStore resolves the catalog snapshot used by the pricing
// validator. Ids missing from the snapshot are reported as unknown
// photos downstream, not as errors here.
type PhotoStore interface {
	GetPhotos(ctx context.Context, photoIDs []string) (pricing.Snapshot, error)
}

type DynamoPhotoStore struct {
	client    *dynamodb.Client
	tableName string
}

func NewDynamoPhotoStore(client *dynamodb.Client, tableName string) *DynamoPhotoStore {
	return &DynamoPhotoStore{
		client:    client,
		tableName: tableName,
	}
}

func (s *DynamoPhotoStore) GetPhotos(ctx context.Context, photoIDs []string) (pricing.Snapshot, error) {
	snap := make(pricing.Snapshot, len(photoIDs))
	for _, id := range photoIDs {
		if _, done := snap[id]; done {
			continue
		}
		out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
			TableName: aws.String(s.tableName),
			Key: map[string]types.AttributeValue{
				"PK": &types.AttributeValueMemberS{Value: fmt.Sprintf("PHOTO#%s", id)},
				"SK": &types.AttributeValueMemberS{Value: "METADATA"},
			},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to read photo %s: %w", id, err)
		}
		if len(out.Item) == 0 {
			continue
		}
		var photo domain.Photo
		if err := attributevalue.UnmarshalMap(out.Item, &photo); err != nil {
			return nil, fmt.Errorf("failed to unmarshal photo %s: %w", id, err)
		}
		snap[photo.PhotoID] = photo
	}
	return snap, nil
}

// MemoryPhotoStore serves a fixed snapshot. Used by tests.
type MemoryPhotoStore struct {
	photos pricing.Snapshot
}

func NewMemoryPhotoStore(photos ...domain.Photo) *MemoryPhotoStore {
	snap := make(pricing.Snapshot, len(photos))
	for _, p := range photos {
		snap[p.PhotoID] = p
	}
	return &MemoryPhotoStore{photos: snap}
}

func (s *MemoryPhotoStore) GetPhotos(ctx context.Context, photoIDs []string) (pricing.Snapshot, error) {
	snap := make(pricing.Snapshot, len(photoIDs))
	for _, id := range photoIDs {
		if p, ok := s.photos[id]; ok {
			snap[id] = p
		}
	}
	return snap, nil
}
