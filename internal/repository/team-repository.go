package repository

import (
	"collab_service/internal/models"
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

type TeamRepository struct {
	teams   *mongo.Collection
	members *mongo.Collection
}

func NewTeamRepository(db *mongo.Database) *TeamRepository {
	return &TeamRepository{
		teams:   db.Collection("Teams"),
		members: db.Collection("TeamMembers"),
	}
}

func (r *TeamRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "teamId", Value: 1}, {Key: "actorId", Value: 1}, {Key: "isActive", Value: 1}}},
		{Keys: bson.D{{Key: "actorId", Value: 1}, {Key: "isActive", Value: 1}}},
	}
	_, err := r.members.Indexes().CreateMany(ctx, indexes)
	return err
}

func (r *TeamRepository) Create(ctx context.Context, team *models.Team) (*models.Team, error) {
	if team.ID.IsZero() {
		team.ID = bson.NewObjectID()
	}
	currentTime := time.Now().Unix()
	team.CreatedAt = currentTime
	team.UpdatedAt = currentTime

	if _, err := r.teams.InsertOne(ctx, team); err != nil {
		return nil, fmt.Errorf("failed to insert team: %w", err)
	}
	return team, nil
}

func (r *TeamRepository) FindByID(ctx context.Context, id bson.ObjectID) (*models.Team, error) {
	var team models.Team
	err := r.teams.FindOne(ctx, bson.M{"_id": id}).Decode(&team)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("team %s not found", id.Hex())
		}
		return nil, err
	}
	return &team, nil
}

// FindMemberRole is the resolver's team-role lookup. A missing
// membership is (nil, nil), not an error.
func (r *TeamRepository) FindMemberRole(ctx context.Context, actorID, teamID bson.ObjectID) (*models.TeamMember, error) {
	filter := bson.M{"teamId": teamID, "actorId": actorID, "isActive": true}

	var member models.TeamMember
	err := r.members.FindOne(ctx, filter).Decode(&member)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("error finding team membership: %w", err)
	}
	return &member, nil
}

func (r *TeamRepository) AddMember(ctx context.Context, member *models.TeamMember) (*models.TeamMember, error) {
	filter := bson.M{"teamId": member.TeamID, "actorId": member.ActorID, "isActive": true}

	var existing models.TeamMember
	err := r.members.FindOne(ctx, filter).Decode(&existing)
	if err == nil {
		return nil, fmt.Errorf("%w: actor %s is already a member of team %s",
			models.ErrDuplicateGrant, member.ActorID.Hex(), member.TeamID.Hex())
	} else if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("error checking existing membership: %w", err)
	}

	if member.ID.IsZero() {
		member.ID = bson.NewObjectID()
	}
	if member.AddedAt == 0 {
		member.AddedAt = time.Now().Unix()
	}
	member.IsActive = true

	if _, err := r.members.InsertOne(ctx, member); err != nil {
		return nil, fmt.Errorf("failed to insert team member: %w", err)
	}
	return member, nil
}

func (r *TeamRepository) UpdateMemberRole(ctx context.Context, teamID, actorID bson.ObjectID, role models.TeamRole) error {
	filter := bson.M{"teamId": teamID, "actorId": actorID, "isActive": true}
	update := bson.M{"$set": bson.M{"role": role}}

	result, err := r.members.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update member role: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("actor %s is not a member of team %s", actorID.Hex(), teamID.Hex())
	}
	return nil
}

func (r *TeamRepository) RemoveMember(ctx context.Context, teamID, actorID bson.ObjectID) error {
	filter := bson.M{"teamId": teamID, "actorId": actorID, "isActive": true}
	update := bson.M{"$set": bson.M{"isActive": false}}

	_, err := r.members.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to remove team member: %w", err)
	}
	return nil
}

func (r *TeamRepository) ListMembers(ctx context.Context, teamID bson.ObjectID) ([]*models.TeamMember, error) {
	cursor, err := r.members.Find(ctx, bson.M{"teamId": teamID, "isActive": true})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var members []*models.TeamMember
	if err = cursor.All(ctx, &members); err != nil {
		return nil, err
	}
	return members, nil
}
