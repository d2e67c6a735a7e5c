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

type ProjectRepository struct {
	collection *mongo.Collection
}

func NewProjectRepository(db *mongo.Database) *ProjectRepository {
	return &ProjectRepository{
		collection: db.Collection("Projects"),
	}
}

func (r *ProjectRepository) Create(ctx context.Context, project *models.Project) (*models.Project, error) {
	if project.ID.IsZero() {
		project.ID = bson.NewObjectID()
	}
	currentTime := time.Now().Unix()
	project.CreatedAt = currentTime
	project.UpdatedAt = currentTime

	if _, err := r.collection.InsertOne(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to insert project: %w", err)
	}
	return project, nil
}

func (r *ProjectRepository) FindByID(ctx context.Context, id bson.ObjectID) (*models.Project, error) {
	var project models.Project
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&project)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("project %s not found", id.Hex())
		}
		return nil, err
	}
	return &project, nil
}

func (r *ProjectRepository) FindByTeam(ctx context.Context, teamID bson.ObjectID) ([]*models.Project, error) {
	filter := bson.M{"teamId": teamID, "isArchived": false}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var projects []*models.Project
	if err = cursor.All(ctx, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

func (r *ProjectRepository) Update(ctx context.Context, id bson.ObjectID, name, description string) error {
	set := bson.M{"updatedAt": time.Now().Unix()}
	if name != "" {
		set["name"] = name
	}
	if description != "" {
		set["description"] = description
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("project %s not found", id.Hex())
	}
	return nil
}

func (r *ProjectRepository) Archive(ctx context.Context, id bson.ObjectID) error {
	update := bson.M{"$set": bson.M{"isArchived": true, "updatedAt": time.Now().Unix()}}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to archive project: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("project %s not found", id.Hex())
	}
	return nil
}
