package repository

import (
	"collab_service/internal/models"
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type GrantRepository struct {
	collection *mongo.Collection
}

func NewGrantRepository(db *mongo.Database) *GrantRepository {
	return &GrantRepository{
		collection: db.Collection("Grants"),
	}
}

func (r *GrantRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "actorId", Value: 1}, {Key: "resourceId", Value: 1}, {Key: "isActive", Value: 1}}},
		{Keys: bson.D{{Key: "resourceId", Value: 1}, {Key: "isActive", Value: 1}, {Key: "grantedAt", Value: -1}}},
		{Keys: bson.D{{Key: "resourceId", Value: 1}, {Key: "role", Value: 1}, {Key: "isActive", Value: 1}}},
		{Keys: bson.D{{Key: "isActive", Value: 1}, {Key: "expiresAt", Value: 1}}},
	}
	_, err := r.collection.Indexes().CreateMany(ctx, indexes)
	return err
}

// effectiveFilter matches active grants that have not passed their
// expiration at the given instant.
func effectiveFilter(now time.Time) bson.M {
	return bson.M{
		"isActive": true,
		"$or": []bson.M{
			{"expiresAt": bson.M{"$exists": false}},
			{"expiresAt": 0},
			{"expiresAt": bson.M{"$gte": now.Unix()}},
		},
	}
}

// Create inserts a new grant. It rejects with ErrDuplicateGrant when an
// active, non-expired grant already exists for the same actor and
// resource; singleton-role supersession is the caller's job and goes
// through DeactivateByResourceAndRole first.
func (r *GrantRepository) Create(ctx context.Context, grant *models.Grant) (*models.Grant, error) {
	filter := effectiveFilter(time.Now())
	filter["actorId"] = grant.ActorID
	filter["resourceId"] = grant.ResourceID

	var existing models.Grant
	err := r.collection.FindOne(ctx, filter).Decode(&existing)
	if err == nil {
		return nil, fmt.Errorf("%w: actor %s on %s %s", models.ErrDuplicateGrant,
			grant.ActorID.Hex(), grant.ResourceType, grant.ResourceID.Hex())
	} else if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("error checking existing grant: %w", err)
	}

	if grant.ID.IsZero() {
		grant.ID = bson.NewObjectID()
	}

	currentTime := time.Now().Unix()
	if grant.GrantedAt == 0 {
		grant.GrantedAt = currentTime
	}
	grant.CreatedAt = currentTime
	grant.UpdatedAt = currentTime
	grant.IsActive = true

	_, err = r.collection.InsertOne(ctx, grant)
	if err != nil {
		return nil, fmt.Errorf("failed to insert grant: %w", err)
	}

	return grant, nil
}

func (r *GrantRepository) FindByID(ctx context.Context, id bson.ObjectID) (*models.Grant, error) {
	var grant models.Grant
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&grant)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", models.ErrGrantNotFound, id.Hex())
		}
		return nil, err
	}
	return &grant, nil
}

// FindEffectiveByActorAndResource returns the single active,
// non-expired grant for the actor on the resource, or nil when there is
// none. A nil grant is not an error: a brief zero-grant window exists
// during supersession and simply means "no tier role".
func (r *GrantRepository) FindEffectiveByActorAndResource(ctx context.Context, actorID, resourceID bson.ObjectID, now time.Time) (*models.Grant, error) {
	filter := effectiveFilter(now)
	filter["actorId"] = actorID
	filter["resourceId"] = resourceID

	opts := options.FindOne().SetSort(bson.D{{Key: "grantedAt", Value: -1}})

	var grant models.Grant
	err := r.collection.FindOne(ctx, filter, opts).Decode(&grant)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("error finding grant for actor %s: %w", actorID.Hex(), err)
	}
	return &grant, nil
}

// FindByResource returns all active grants on a resource, newest first,
// regardless of expiration state. Callers decide expired/expiring-soon
// against the current time.
func (r *GrantRepository) FindByResource(ctx context.Context, resourceID bson.ObjectID) ([]*models.Grant, error) {
	filter := bson.M{"resourceId": resourceID, "isActive": true}
	opts := options.Find().SetSort(bson.D{{Key: "grantedAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var grants []*models.Grant
	if err = cursor.All(ctx, &grants); err != nil {
		return nil, err
	}
	return grants, nil
}

func (r *GrantRepository) FindByActor(ctx context.Context, actorID bson.ObjectID) ([]*models.Grant, error) {
	filter := bson.M{"actorId": actorID, "isActive": true}
	opts := options.Find().SetSort(bson.D{{Key: "grantedAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var grants []*models.Grant
	if err = cursor.All(ctx, &grants); err != nil {
		return nil, err
	}
	return grants, nil
}

// Update mutates role and/or expiration of an active grant in place.
// GrantedBy and GrantedAt never change. Unknown or inactive ids return
// ErrGrantNotFound.
func (r *GrantRepository) Update(ctx context.Context, id bson.ObjectID, role *string, expiresAt *int64) error {
	set := bson.M{"updatedAt": time.Now().Unix()}
	if role != nil {
		set["role"] = *role
	}
	if expiresAt != nil {
		set["expiresAt"] = *expiresAt
	}

	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "isActive": true},
		bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update grant: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", models.ErrGrantNotFound, id.Hex())
	}
	return nil
}

// Deactivate soft-deletes a grant. Deactivating an already-inactive
// grant matches the document and is a no-op, which keeps revoke
// idempotent.
func (r *GrantRepository) Deactivate(ctx context.Context, id bson.ObjectID) error {
	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"isActive": false, "updatedAt": time.Now().Unix()}})
	if err != nil {
		return fmt.Errorf("failed to deactivate grant: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", models.ErrGrantNotFound, id.Hex())
	}
	return nil
}

// DeactivateByResourceAndRole revokes every active grant of the given
// role on a resource and returns the grants as they were before the
// flip. Used for assignee supersession, where the revoke must be issued
// before the replacement grant is created.
func (r *GrantRepository) DeactivateByResourceAndRole(ctx context.Context, resourceID bson.ObjectID, role string) ([]*models.Grant, error) {
	filter := bson.M{"resourceId": resourceID, "role": role, "isActive": true}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var superseded []*models.Grant
	if err = cursor.All(ctx, &superseded); err != nil {
		return nil, err
	}
	if len(superseded) == 0 {
		return nil, nil
	}

	update := bson.M{"$set": bson.M{"isActive": false, "updatedAt": time.Now().Unix()}}
	if _, err := r.collection.UpdateMany(ctx, filter, update); err != nil {
		return nil, fmt.Errorf("failed to supersede grants: %w", err)
	}
	return superseded, nil
}

// DeactivateExpired flips logically expired grants inactive. Expiry is
// already a computed state everywhere, so this sweep only keeps the
// stored flag from drifting forever.
func (r *GrantRepository) DeactivateExpired(ctx context.Context) (int64, error) {
	filter := bson.M{
		"isActive":  true,
		"expiresAt": bson.M{"$gt": 0, "$lt": time.Now().Unix()},
	}
	update := bson.M{"$set": bson.M{"isActive": false, "updatedAt": time.Now().Unix()}}

	result, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("error deactivating expired grants: %w", err)
	}
	return result.ModifiedCount, nil
}
