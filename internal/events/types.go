package events

import (
	"collab_service/internal/models"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"
)

type EventType string

const (
	// GrantCreated is published after a new grant is persisted.
	GrantCreated EventType = "grant.created"
	// GrantUpdated is published after a grant's role or expiration
	// changes in place.
	GrantUpdated EventType = "grant.updated"
	// GrantRevoked is published after a grant is deactivated, including
	// supersession revokes.
	GrantRevoked EventType = "grant.revoked"
)

type BaseEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp int64     `json:"timestamp"`
	Version   string    `json:"version"`
}

// GrantEvent carries enough for a consumer to invalidate the affected
// actor's cached decisions without re-reading the grant.
type GrantEvent struct {
	BaseEvent
	GrantID      string              `json:"grant_id"`
	ActorID      string              `json:"actor_id"`
	ResourceType models.ResourceType `json:"resource_type"`
	ResourceID   string              `json:"resource_id"`
	Role         string              `json:"role"`
	GrantedBy    string              `json:"granted_by"`
}

func NewGrantEvent(eventType EventType, grant *models.Grant) *GrantEvent {
	return &GrantEvent{
		BaseEvent: BaseEvent{
			ID:        generateEventID(),
			Type:      eventType,
			Timestamp: time.Now().Unix(),
			Version:   "1.0",
		},
		GrantID:      grant.ID.Hex(),
		ActorID:      grant.ActorID.Hex(),
		ResourceType: grant.ResourceType,
		ResourceID:   grant.ResourceID.Hex(),
		Role:         grant.Role,
		GrantedBy:    grant.GrantedBy.Hex(),
	}
}

func (e *GrantEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

const eventIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// generateEventID generates a unique ID for an event
func generateEventID() string {
	suffix := make([]byte, 6)
	for i := range suffix {
		suffix[i] = eventIDAlphabet[rand.Intn(len(eventIDAlphabet))]
	}
	return fmt.Sprintf("%s-%s", time.Now().Format("20060102150405"), suffix)
}
