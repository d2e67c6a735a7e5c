package events

import (
	"context"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const grantExchange = "collab-events"

type RabbitMQClient struct {
	conn          *amqp.Connection
	channel       *amqp.Channel
	connectionURI string
	isConnected   bool
}

func NewRabbitMQClient(connectionURI string) (*RabbitMQClient, error) {
	client := &RabbitMQClient{
		connectionURI: connectionURI,
		isConnected:   false,
	}

	if err := client.connect(); err != nil {
		return nil, err
	}

	return client, nil
}

func (c *RabbitMQClient) connect() error {
	var err error

	c.conn, err = amqp.Dial(c.connectionURI)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	c.channel, err = c.conn.Channel()
	if err != nil {
		c.conn.Close()
		return fmt.Errorf("failed to open a channel: %w", err)
	}

	c.isConnected = true

	// Set up connection monitoring and auto-reconnect
	go c.monitorConnection()

	return nil
}

func (c *RabbitMQClient) monitorConnection() {
	connCloseChan := make(chan *amqp.Error)
	c.conn.NotifyClose(connCloseChan)

	chanCloseChan := make(chan *amqp.Error)
	c.channel.NotifyClose(chanCloseChan)

	for {
		select {
		case err := <-connCloseChan:
			c.isConnected = false
			log.Printf("RabbitMQ connection closed: %v, attempting to reconnect...", err)
			c.reconnect()
			return
		case err := <-chanCloseChan:
			if c.isConnected {
				log.Printf("RabbitMQ channel closed: %v, reopening...", err)
				c.reopenChannel()
			}
		}
	}
}

func (c *RabbitMQClient) reconnect() {
	backoff := 1 * time.Second
	maxBackoff := 30 * time.Second

	for {
		time.Sleep(backoff)

		err := c.connect()
		if err == nil {
			log.Println("Successfully reconnected to RabbitMQ")

			if err := c.setupExchanges(); err != nil {
				log.Printf("Failed to setup exchanges after reconnection: %v", err)
				continue
			}

			return
		}

		log.Printf("Failed to reconnect to RabbitMQ: %v", err)

		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

func (c *RabbitMQClient) reopenChannel() {
	if c.channel != nil {
		c.channel.Close()
	}

	var err error
	c.channel, err = c.conn.Channel()
	if err != nil {
		log.Printf("Failed to reopen channel: %v", err)
		c.isConnected = false
		c.reconnect()
		return
	}

	if err := c.setupExchanges(); err != nil {
		log.Printf("Failed to setup exchanges after reopening channel: %v", err)
		c.isConnected = false
		c.reconnect()
		return
	}

	log.Println("Successfully reopened RabbitMQ channel")
}

// setupExchanges declares the grant events exchange.
func (c *RabbitMQClient) setupExchanges() error {
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
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	return nil
}

func (c *RabbitMQClient) PublishEvent(exchange, routingKey string, body []byte) error {
	if !c.isConnected {
		return fmt.Errorf("cannot publish: not connected to RabbitMQ")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := c.channel.PublishWithContext(
		ctx,
		exchange,   // exchange
		routingKey, // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	return nil
}

// Close closes the connection and channel
func (c *RabbitMQClient) Close() error {
	var err error

	if c.channel != nil {
		err = c.channel.Close()
	}

	if c.conn != nil {
		err = c.conn.Close()
	}

	c.isConnected = false
	return err
}
