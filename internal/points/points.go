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

// Package points holds the ledger engines: balances, order lifecycle,
// redemptions, expiry and administrative adjustments. Every engine writes
// through store.LedgerStore and runs its check-then-append flows inside
// RunInTx.
package points

import (
	"context"
	"time"

	"loyalty-points-go/internal/models"
	"loyalty-points-go/internal/notify"
	"loyalty-points-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OrderSource resolves platform orders by id.
type OrderSource interface {
	GetOrder(ctx context.Context, orderId string) (*models.Order, error)
}

// ProductPointsSource returns the per-unit points configured for a product.
// configured is false when the product has no rule of its own.
type ProductPointsSource interface {
	ProductPoints(ctx context.Context, productId string, unitPrice decimal.Decimal) (points int64, configured bool, err error)
}

// SettingsSource returns the current program settings. Engines read it once
// per operation and never cache it.
type SettingsSource interface {
	GetSettings(ctx context.Context) (models.Settings, error)
}

// Deps wires the engines to their collaborators. Store is required; Orders
// and Settings default to Store, Products defaults to Store when it
// implements ProductPointsSource.
type Deps struct {
	Store    store.LedgerStore
	Orders   OrderSource
	Products ProductPointsSource
	Settings SettingsSource
	Notifier notify.Sink
	Hooks    *Hooks
	Now      func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Orders == nil {
		d.Orders = d.Store
	}
	if d.Settings == nil {
		d.Settings = d.Store
	}
	if d.Products == nil {
		if p, ok := d.Store.(ProductPointsSource); ok {
			d.Products = p
		}
	}
	if d.Notifier == nil {
		d.Notifier = notify.Discard{}
	}
	if d.Hooks == nil {
		d.Hooks = NewHooks()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

func (d Deps) now() time.Time {
	return d.Now().UTC()
}

// notify delivers a notification and logs any failure.
func (d Deps) notify(ctx context.Context, userId string, kind notify.Kind, payload notify.Payload) {
	if err := d.Notifier.Notify(ctx, userId, kind, payload); err != nil {
		zap.L().Warn("Failed to deliver notification",
			zap.String("user_id", userId),
			zap.String("kind", kind.String()),
			zap.Error(err))
	}
}
