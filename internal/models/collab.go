package models

import "go.mongodb.org/mongo-driver/v2/bson"

type Team struct {
	ID          bson.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string        `bson:"name" json:"name"`
	Description string        `bson:"description,omitempty" json:"description"`
	OwnerID     bson.ObjectID `bson:"ownerId" json:"ownerId"`
	CreatedAt   int64         `bson:"createdAt" json:"createdAt"`
	UpdatedAt   int64         `bson:"updatedAt" json:"updatedAt"`
}

// TeamMember binds an actor to a team with a team role. This is the
// resolver's step-one lookup: a team role that default-grants an action
// short-circuits every tier check below it.
type TeamMember struct {
	ID       bson.ObjectID `bson:"_id,omitempty" json:"id"`
	TeamID   bson.ObjectID `bson:"teamId" json:"teamId"`
	ActorID  bson.ObjectID `bson:"actorId" json:"actorId"`
	Role     TeamRole      `bson:"role" json:"role"`
	AddedBy  bson.ObjectID `bson:"addedBy" json:"addedBy"`
	AddedAt  int64         `bson:"addedAt" json:"addedAt"`
	IsActive bool          `bson:"isActive" json:"isActive"`
}

type Project struct {
	ID          bson.ObjectID `bson:"_id,omitempty" json:"id"`
	TeamID      bson.ObjectID `bson:"teamId" json:"teamId"`
	Name        string        `bson:"name" json:"name"`
	Description string        `bson:"description,omitempty" json:"description"`
	CreatedBy   bson.ObjectID `bson:"createdBy" json:"createdBy"`
	IsArchived  bool          `bson:"isArchived" json:"isArchived"`
	CreatedAt   int64         `bson:"createdAt" json:"createdAt"`
	UpdatedAt   int64         `bson:"updatedAt" json:"updatedAt"`
}

type TaskStatus string

const (
	TaskStatusOpen       TaskStatus = "open"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
)

type Task struct {
	ID          bson.ObjectID `bson:"_id,omitempty" json:"id"`
	ProjectID   bson.ObjectID `bson:"projectId" json:"projectId"`
	Title       string        `bson:"title" json:"title"`
	Description string        `bson:"description,omitempty" json:"description"`
	Status      TaskStatus    `bson:"status" json:"status"`
	CreatedBy   bson.ObjectID `bson:"createdBy" json:"createdBy"`
	CompletedBy bson.ObjectID `bson:"completedBy,omitempty" json:"completedBy,omitempty"`
	CompletedAt int64         `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
	CreatedAt   int64         `bson:"createdAt" json:"createdAt"`
	UpdatedAt   int64         `bson:"updatedAt" json:"updatedAt"`
}

type TaskComment struct {
	ID        bson.ObjectID `bson:"_id,omitempty" json:"id"`
	TaskID    bson.ObjectID `bson:"taskId" json:"taskId"`
	AuthorID  bson.ObjectID `bson:"authorId" json:"authorId"`
	Body      string        `bson:"body" json:"body"`
	CreatedAt int64         `bson:"createdAt" json:"createdAt"`
}
