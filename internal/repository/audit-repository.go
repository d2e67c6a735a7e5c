package repository

import (
	"collab_service/internal/models"
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// AuditRepository is append-only. There is no update or delete path;
// the history of a grant outlives the grant itself.
type AuditRepository struct {
	collection *mongo.Collection
}

func NewAuditRepository(db *mongo.Database) *AuditRepository {
	return &AuditRepository{
		collection: db.Collection("AuditLog"),
	}
}

func (r *AuditRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "resourceId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "actorId", Value: 1}, {Key: "createdAt", Value: -1}}},
	}
	_, err := r.collection.Indexes().CreateMany(ctx, indexes)
	return err
}

func (r *AuditRepository) Insert(ctx context.Context, entry *models.AuditLogEntry) error {
	if entry.ID.IsZero() {
		entry.ID = bson.NewObjectID()
	}
	if entry.CreatedAt == 0 {
		entry.CreatedAt = time.Now().Unix()
	}

	_, err := r.collection.InsertOne(ctx, entry)
	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}
	return nil
}

func (r *AuditRepository) FindByResource(ctx context.Context, resourceID bson.ObjectID, page, limit int) ([]*models.AuditLogEntry, error) {
	filter := bson.M{"resourceId": resourceID}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if page > 0 && limit > 0 {
		opts.SetSkip(int64((page - 1) * limit))
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []*models.AuditLogEntry
	if err = cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
