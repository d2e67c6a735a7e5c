package events

import (
	"collab_service/internal/models"
	"context"
	"log"
)

type Publisher interface {
	PublishGrantCreated(ctx context.Context, grant *models.Grant) error
	PublishGrantUpdated(ctx context.Context, grant *models.Grant) error
	PublishGrantRevoked(ctx context.Context, grant *models.Grant) error

	// Close closes the publisher and releases resources
	Close() error
}

type EventPublisher struct {
	rabbitMQ *RabbitMQClient
	enabled  bool
}

func NewEventPublisher(rabbitURI string) (*EventPublisher, error) {
	if rabbitURI == "" {
		log.Println("Warning: RabbitMQ URI is empty, event publishing is disabled")
		return &EventPublisher{
			rabbitMQ: nil,
			enabled:  false,
		}, nil
	}

	client, err := NewRabbitMQClient(rabbitURI)
	if err != nil {
		return nil, err
	}

	err = client.setupExchanges()
	if err != nil {
		client.Close()
		return nil, err
	}

	return &EventPublisher{
		rabbitMQ: client,
		enabled:  true,
	}, nil
}

func (p *EventPublisher) PublishGrantCreated(ctx context.Context, grant *models.Grant) error {
	return p.publish(GrantCreated, grant)
}

func (p *EventPublisher) PublishGrantUpdated(ctx context.Context, grant *models.Grant) error {
	return p.publish(GrantUpdated, grant)
}

func (p *EventPublisher) PublishGrantRevoked(ctx context.Context, grant *models.Grant) error {
	return p.publish(GrantRevoked, grant)
}

func (p *EventPublisher) publish(eventType EventType, grant *models.Grant) error {
	if !p.enabled {
		log.Printf("Event publishing is disabled, skipping %s", eventType)
		return nil
	}

	event := NewGrantEvent(eventType, grant)

	eventData, err := event.ToJSON()
	if err != nil {
		return err
	}

	err = p.rabbitMQ.PublishEvent(grantExchange, string(eventType), eventData)
	if err != nil {
		return err
	}

	log.Printf("Published %s event for grant %s (actor %s)", eventType, event.GrantID, event.ActorID)
	return nil
}

// Close releases resources
func (p *EventPublisher) Close() error {
	if !p.enabled || p.rabbitMQ == nil {
		return nil
	}

	return p.rabbitMQ.Close()
}
