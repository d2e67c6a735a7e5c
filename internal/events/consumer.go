package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// Consumer defines the interface for event consumption
type Consumer interface {
	Start() error
	Close() error
}

// DecisionInvalidator is the resolver-cache hook the consumer drives.
// InvalidateAll is the fail-closed path for events that could not be
// attributed to an actor.
type DecisionInvalidator interface {
	InvalidateActor(ctx context.Context, actorID string) error
	InvalidateAll(ctx context.Context) error
}

// EventConsumer propagates grant mutations to the permission resolver:
// every grant event drops the affected actor's cached decisions so the
// next check re-reads the store. Events it cannot read or apply flush
// the whole cache instead of being skipped.
type EventConsumer struct {
	conn      *amqp091.Connection
	channel   *amqp091.Channel
	queueName string
	cache     DecisionInvalidator
	shutdown  chan struct{}
	wg        sync.WaitGroup
	enabled   bool
}

// NewEventConsumer creates a new event consumer
func NewEventConsumer(rabbitURI, queueName string, cache DecisionInvalidator) (*EventConsumer, error) {
	if rabbitURI == "" {
		log.Println("Warning: RabbitMQ URI is empty, event consumption is disabled")
		return &EventConsumer{
			queueName: queueName,
			cache:     cache,
			shutdown:  make(chan struct{}),
			enabled:   false,
		}, nil
	}

	conn, err := amqp091.Dial(rabbitURI)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	// Set QoS/prefetch
	err = channel.Qos(
		10,    // prefetch count
		0,     // prefetch size
		false, // global
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	return &EventConsumer{
		conn:      conn,
		channel:   channel,
		queueName: queueName,
		cache:     cache,
		shutdown:  make(chan struct{}),
		enabled:   true,
	}, nil
}

// Start starts consuming events
func (c *EventConsumer) Start() error {
	if !c.enabled {
		log.Println("Event consumption is disabled, not starting consumer")
		return nil
	}

	err := c.channel.ExchangeDeclare(
		grantExchange, // name
		"topic",       // type
		true,          // durable
		false,         // auto-deleted
		false,         // internal
		false,         // no-wait
		nil,           // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", grantExchange, err)
	}

	_, err = c.channel.QueueDeclare(
		c.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}
	log.Printf("Declared queue: %s", c.queueName)

	// Every grant mutation matters to the resolver cache, so bind the
	// whole grant.* space rather than enumerating event types.
	err = c.channel.QueueBind(
		c.queueName,   // queue name
		"grant.*",     // routing key
		grantExchange, // exchange
		false,         // no-wait
		nil,           // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to bind queue to exchange %s: %w", grantExchange, err)
	}

	msgs, err := c.channel.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("failed to register a consumer: %w", err)
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.consume(msgs)
	}()

	log.Println("Grant event consumer started")
	return nil
}

// consume handles incoming messages
func (c *EventConsumer) consume(msgs <-chan amqp091.Delivery) {
	for {
		select {
		case <-c.shutdown:
			log.Println("Stopping event consumer")
			return
		case msg, ok := <-msgs:
			if !ok {
				log.Println("Message channel closed, flushing decision cache")
				// Events may have been missed while the channel was
				// down; stale decisions must not survive the gap.
				c.invalidateAll()
				time.Sleep(5 * time.Second)
				return
			}

			err := c.processMessage(msg)
			if err != nil {
				log.Printf("FAILED to process message - Exchange: %s, RoutingKey: %s, Error: %v",
					msg.Exchange, msg.RoutingKey, err)
				log.Printf("Failed message body: %s", string(msg.Body))

				// Fail closed: we could not attribute the mutation, so
				// no cached decision can be trusted.
				c.invalidateAll()
			}

			if ackErr := msg.Ack(false); ackErr != nil {
				log.Printf("Failed to ack message: %v", ackErr)
			}
		}
	}
}

func (c *EventConsumer) processMessage(msg amqp091.Delivery) error {
	if !strings.HasPrefix(msg.RoutingKey, "grant.") {
		log.Printf("Ignoring unexpected routing key: %s", msg.RoutingKey)
		return nil
	}

	var event GrantEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		return fmt.Errorf("failed to unmarshal grant event: %w", err)
	}
	if event.ActorID == "" {
		return fmt.Errorf("grant event %s has no actor id", event.ID)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.cache.InvalidateActor(ctx, event.ActorID); err != nil {
		return fmt.Errorf("failed to invalidate decisions for actor %s: %w", event.ActorID, err)
	}

	log.Printf("Invalidated cached decisions for actor %s after %s", event.ActorID, event.Type)
	return nil
}

func (c *EventConsumer) invalidateAll() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := c.cache.InvalidateAll(ctx); err != nil {
		log.Printf("Failed to flush decision cache: %v", err)
	}
}

// Close stops the consumer and releases resources
func (c *EventConsumer) Close() error {
	close(c.shutdown)
	c.wg.Wait()

	var err error
	if c.channel != nil {
		err = c.channel.Close()
	}
	if c.conn != nil {
		err = c.conn.Close()
	}
	return err
}
