/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"loyalty-points-go/internal/models"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const publishTimeout = 5 * time.Second

type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPSink publishes rendered notifications as JSON to a topic exchange.
// The routing key is "<routing key>.<kind>".
type AMQPSink struct {
	exchange   string
	routingKey string

	conn    *amqp.Connection
	channel publisher
	mu      sync.Mutex
}

func NewAMQPSink(cfg models.NotifyConfig) (*AMQPSink, error) {
	if cfg.AMQPURL == "" {
		return nil, fmt.Errorf("amqp url cannot be empty")
	}

	conn, err := amqp.Dial(cfg.AMQPURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		cfg.Exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	zap.L().Info("Connected to RabbitMQ",
		zap.String("exchange", cfg.Exchange),
		zap.String("routing_key", cfg.RoutingKey))

	sink := newAMQPSink(ch, cfg.Exchange, cfg.RoutingKey)
	sink.conn = conn
	return sink, nil
}

func newAMQPSink(ch publisher, exchange, routingKey string) *AMQPSink {
	if routingKey == "" {
		routingKey = "points"
	}
	return &AMQPSink{
		exchange:   exchange,
		routingKey: routingKey,
		channel:    ch,
	}
}

func (s *AMQPSink) Notify(ctx context.Context, userId string, kind Kind, payload Payload) error {
	msg, err := Render(userId, kind, payload, time.Now())
	if err != nil {
		return err
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.channel == nil {
		return fmt.Errorf("amqp sink is closed")
	}

	err = s.channel.PublishWithContext(ctx, s.exchange, s.routingKey+"."+msg.Kind, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.New().String(),
		Timestamp:    msg.CreatedAt,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}

	zap.L().Debug("Notification published",
		zap.String("user_id", userId),
		zap.String("kind", msg.Kind))
	return nil
}

func (s *AMQPSink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ch, ok := s.channel.(*amqp.Channel); ok {
		if err := ch.Close(); err != nil {
			zap.L().Warn("Failed to close amqp channel", zap.Error(err))
		}
	}
	s.channel = nil

	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			zap.L().Warn("Failed to close amqp connection", zap.Error(err))
		}
		s.conn = nil
	}
	zap.L().Info("AMQP sink closed")
}
