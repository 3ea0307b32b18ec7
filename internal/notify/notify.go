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
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Kind is the closed set of user notifications the ledger emits.
type Kind int

const (
	KindPointsPending Kind = iota
	KindPointsEarned
	KindPointsDeducted
	KindPointsRedeemed
	KindRedemptionCancelled
	KindPointsExpired
	KindExpiryWarning
	KindAdminAdjustment

	kindCount
)

// Payload carries the values a template may render. Unused fields stay zero.
type Payload struct {
	Points       int64           `json:"points"`
	Balance      int64           `json:"balance"`
	OrderId      string          `json:"order_id,omitempty"`
	RedemptionId string          `json:"redemption_id,omitempty"`
	Discount     decimal.Decimal `json:"discount"`
	Currency     string          `json:"currency,omitempty"`
	ExpiresAt    *time.Time      `json:"expires_at,omitempty"`
	Reason       string          `json:"reason,omitempty"`
}

// Message is a rendered notification.
type Message struct {
	UserId    string    `json:"user_id"`
	Kind      string    `json:"kind"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	Payload   Payload   `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
}

type template struct {
	name   string
	render func(p Payload) (subject, body string)
}

var templates = [kindCount]template{
	KindPointsPending: {"points_pending", func(p Payload) (string, string) {
		return "Points on the way",
			fmt.Sprintf("You will earn %d points once order %s is completed.", p.Points, p.OrderId)
	}},
	KindPointsEarned: {"points_earned", func(p Payload) (string, string) {
		return "You earned points",
			fmt.Sprintf("%d points from order %s are now available.", p.Points, p.OrderId)
	}},
	KindPointsDeducted: {"points_deducted", func(p Payload) (string, string) {
		return "Points adjusted for your refund",
			fmt.Sprintf("%d points were deducted after a refund on order %s.", p.Points, p.OrderId)
	}},
	KindPointsRedeemed: {"points_redeemed", func(p Payload) (string, string) {
		return "Points redeemed",
			fmt.Sprintf("You redeemed %d points for a %s %s discount. Remaining balance: %d.",
				p.Points, p.Discount.StringFixed(2), p.Currency, p.Balance)
	}},
	KindRedemptionCancelled: {"redemption_cancelled", func(p Payload) (string, string) {
		return "Redemption cancelled",
			fmt.Sprintf("%d points from redemption %s were returned. New balance: %d.", p.Points, p.RedemptionId, p.Balance)
	}},
	KindPointsExpired: {"points_expired", func(p Payload) (string, string) {
		return "Points expired",
			fmt.Sprintf("%d points have expired.", p.Points)
	}},
	KindExpiryWarning: {"expiry_warning", func(p Payload) (string, string) {
		when := "soon"
		if p.ExpiresAt != nil {
			when = "on " + p.ExpiresAt.Format("2006-01-02")
		}
		return "Points expiring soon",
			fmt.Sprintf("%d of your points will expire %s.", p.Points, when)
	}},
	KindAdminAdjustment: {"admin_adjustment", func(p Payload) (string, string) {
		return "Your points balance was adjusted",
			fmt.Sprintf("Your balance changed by %d points (%s). New balance: %d.", p.Points, p.Reason, p.Balance)
	}},
}

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool {
	return k >= 0 && k < kindCount
}

func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return templates[k].name
}

// Render builds the message for kind.
func Render(userId string, kind Kind, payload Payload, at time.Time) (Message, error) {
	if !kind.Valid() {
		return Message{}, fmt.Errorf("unknown notification kind %d", int(kind))
	}
	subject, body := templates[kind].render(payload)
	return Message{
		UserId:    userId,
		Kind:      kind.String(),
		Subject:   subject,
		Body:      body,
		Payload:   payload,
		CreatedAt: at.UTC(),
	}, nil
}

// Sink delivers notifications. Callers treat delivery as fire-and-forget.
type Sink interface {
	Notify(ctx context.Context, userId string, kind Kind, payload Payload) error
}

// LogSink writes rendered notifications to the global logger.
type LogSink struct{}

func NewLogSink() *LogSink {
	return &LogSink{}
}

func (s *LogSink) Notify(_ context.Context, userId string, kind Kind, payload Payload) error {
	msg, err := Render(userId, kind, payload, time.Now())
	if err != nil {
		return err
	}
	zap.L().Info("Notification",
		zap.String("user_id", msg.UserId),
		zap.String("kind", msg.Kind),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Body))
	return nil
}

// Discard drops every notification.
type Discard struct{}

func (Discard) Notify(context.Context, string, Kind, Payload) error {
	return nil
}

// MultiSink fans a notification out to every sink and returns the first error.
type MultiSink []Sink

func (m MultiSink) Notify(ctx context.Context, userId string, kind Kind, payload Payload) error {
	var first error
	for _, s := range m {
		if err := s.Notify(ctx, userId, kind, payload); err != nil {
			zap.L().Warn("Notification sink failed",
				zap.String("user_id", userId),
				zap.String("kind", kind.String()),
				zap.Error(err))
			if first == nil {
				first = err
			}
		}
	}
	return first
}
