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

package points

import (
	"context"
	"sync"
	"time"

	"loyalty-points-go/internal/models"

	"go.uber.org/zap"
)

type EventType string

const (
	EventPointsAwarded       EventType = "points_awarded"
	EventPointsEarned        EventType = "points_earned"
	EventPointsRefunded      EventType = "points_refunded"
	EventPointsRedeemed      EventType = "points_redeemed"
	EventRedemptionCancelled EventType = "redemption_cancelled"
	EventPointsExpired       EventType = "points_expired"
	EventExpiryWarned        EventType = "expiry_warned"
	EventAdminAdjustment     EventType = "admin_adjustment"
)

// Event describes one committed ledger change.
type Event struct {
	Type       EventType
	UserId     string
	OrderId    string
	LedgerId   int64
	ActionType models.ActionType
	Points     int64
	At         time.Time
}

// Observer is called after the transaction that produced the event commits.
type Observer func(ctx context.Context, e Event)

// Hooks is the observer registry shared by the engines.
type Hooks struct {
	mu        sync.RWMutex
	observers []Observer
}

func NewHooks() *Hooks {
	return &Hooks{}
}

func (h *Hooks) Subscribe(o Observer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.observers = append(h.observers, o)
}

// Emit calls every observer in subscription order. A panicking observer is
// logged and does not stop the others.
func (h *Hooks) Emit(ctx context.Context, e Event) {
	h.mu.RLock()
	observers := make([]Observer, len(h.observers))
	copy(observers, h.observers)
	h.mu.RUnlock()

	for _, o := range observers {
		h.call(ctx, o, e)
	}
}

func (h *Hooks) call(ctx context.Context, o Observer, e Event) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("Observer panicked",
				zap.String("event", string(e.Type)),
				zap.String("user_id", e.UserId),
				zap.Any("panic", r))
		}
	}()
	o(ctx, e)
}
