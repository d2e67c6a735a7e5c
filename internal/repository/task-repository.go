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

type TaskRepository struct {
	tasks    *mongo.Collection
	comments *mongo.Collection
}

func NewTaskRepository(db *mongo.Database) *TaskRepository {
	return &TaskRepository{
		tasks:    db.Collection("Tasks"),
		comments: db.Collection("TaskComments"),
	}
}

func (r *TaskRepository) Create(ctx context.Context, task *models.Task) (*models.Task, error) {
	if task.ID.IsZero() {
		task.ID = bson.NewObjectID()
	}
	currentTime := time.Now().Unix()
	task.CreatedAt = currentTime
	task.UpdatedAt = currentTime
	if task.Status == "" {
		task.Status = models.TaskStatusOpen
	}

	if _, err := r.tasks.InsertOne(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to insert task: %w", err)
	}
	return task, nil
}

func (r *TaskRepository) FindByID(ctx context.Context, id bson.ObjectID) (*models.Task, error) {
	var task models.Task
	err := r.tasks.FindOne(ctx, bson.M{"_id": id}).Decode(&task)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("task %s not found", id.Hex())
		}
		return nil, err
	}
	return &task, nil
}

func (r *TaskRepository) FindByProject(ctx context.Context, projectID bson.ObjectID) ([]*models.Task, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.tasks.Find(ctx, bson.M{"projectId": projectID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var tasks []*models.Task
	if err = cursor.All(ctx, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *TaskRepository) Update(ctx context.Context, id bson.ObjectID, title, description string, status models.TaskStatus) error {
	set := bson.M{"updatedAt": time.Now().Unix()}
	if title != "" {
		set["title"] = title
	}
	if description != "" {
		set["description"] = description
	}
	if status != "" {
		set["status"] = status
	}

	result, err := r.tasks.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("task %s not found", id.Hex())
	}
	return nil
}

func (r *TaskRepository) Complete(ctx context.Context, id, completedBy bson.ObjectID) error {
	update := bson.M{"$set": bson.M{
		"status":      models.TaskStatusCompleted,
		"completedBy": completedBy,
		"completedAt": time.Now().Unix(),
		"updatedAt":   time.Now().Unix(),
	}}

	result, err := r.tasks.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to complete task: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("task %s not found", id.Hex())
	}
	return nil
}

func (r *TaskRepository) AddComment(ctx context.Context, comment *models.TaskComment) (*models.TaskComment, error) {
	if comment.ID.IsZero() {
		comment.ID = bson.NewObjectID()
	}
	if comment.CreatedAt == 0 {
		comment.CreatedAt = time.Now().Unix()
	}

	if _, err := r.comments.InsertOne(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to insert comment: %w", err)
	}
	return comment, nil
}

func (r *TaskRepository) ListComments(ctx context.Context, taskID bson.ObjectID) ([]*models.TaskComment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})

	cursor, err := r.comments.Find(ctx, bson.M{"taskId": taskID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var comments []*models.TaskComment
	if err = cursor.All(ctx, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}
