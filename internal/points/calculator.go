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

	"loyalty-points-go/internal/models"
	"loyalty-points-go/internal/store"
)

// Calculator derives balances from ledger rows. It holds no state, so the
// same ledger always yields the same numbers.
type Calculator struct {
	q store.LedgerQueries
}

func NewCalculator(q store.LedgerQueries) *Calculator {
	return &Calculator{q: q}
}

// Available is the sum of earned entries.
func (c *Calculator) Available(ctx context.Context, userId string) (int64, error) {
	return c.q.SumPoints(ctx, userId, store.AggregateAvailable)
}

// Pending is the sum of pending entries. It is never part of Available.
func (c *Calculator) Pending(ctx context.Context, userId string) (int64, error) {
	return c.q.SumPoints(ctx, userId, store.AggregatePending)
}

func (c *Calculator) EarnedToDate(ctx context.Context, userId string) (int64, error) {
	return c.q.SumPoints(ctx, userId, store.AggregateEarnedToDate)
}

func (c *Calculator) Expired(ctx context.Context, userId string) (int64, error) {
	return c.q.SumPoints(ctx, userId, store.AggregateExpired)
}

// Redeemed is the net of redemption debits and their reversals.
func (c *Calculator) Redeemed(ctx context.Context, userId string) (int64, error) {
	return c.q.SumPoints(ctx, userId, store.AggregateRedeemed)
}

func (c *Calculator) Summary(ctx context.Context, userId string) (*models.BalanceSummary, error) {
	summary := &models.BalanceSummary{UserId: userId}
	fields := []struct {
		agg store.Aggregate
		dst *int64
	}{
		{store.AggregateAvailable, &summary.Available},
		{store.AggregatePending, &summary.Pending},
		{store.AggregateEarnedToDate, &summary.EarnedToDate},
		{store.AggregateExpired, &summary.ExpiredTotal},
		{store.AggregateRedeemed, &summary.RedeemedTotal},
	}
	for _, f := range fields {
		v, err := c.q.SumPoints(ctx, userId, f.agg)
		if err != nil {
			return nil, err
		}
		*f.dst = v
	}
	return summary, nil
}
