package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/kosmed/glucose-monitoring-service/internal/alerts"
)

// AlertPublisher records alert events on a RabbitMQ topic exchange. Alerts
// are observational: they are published for downstream consumers but never
// dispatched as notifications by this service.
type AlertPublisher struct {
	conn          *Connection
	channel       *amqp.Channel
	exchange      string
	routingPrefix string
	logger        *zap.Logger
}

// NewAlertPublisher creates a publisher bound to the alert exchange.
func NewAlertPublisher(conn *Connection, exchange, routingPrefix string, logger *zap.Logger) (*AlertPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	// Declare exchange
	err = ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &AlertPublisher{
		conn:          conn,
		channel:       ch,
		exchange:      exchange,
		routingPrefix: routingPrefix,
		logger:        logger,
	}, nil
}

// RecordAlert publishes one alert event. The routing key is the configured
// prefix plus the lower-cased alert type, e.g. glucose.alert.low_glucose.
func (p *AlertPublisher) RecordAlert(ctx context.Context, alert alerts.Alert) error {
	body, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}

	routingKey := p.routingPrefix + "." + strings.ToLower(string(alert.Type))

	err = p.channel.PublishWithContext(
		ctx,
		p.exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish alert: %w", err)
	}

	p.logger.Debug("published alert event",
		zap.String("routing_key", routingKey),
		zap.String("user_id", alert.UserID),
		zap.String("alert_type", string(alert.Type)),
	)

	return nil
}

// Close closes the publisher channel
func (p *AlertPublisher) Close() error {
	if p.channel != nil {
		return p.channel.Close()
	}
	return nil
}
