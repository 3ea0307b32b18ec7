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

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"loyalty-points-go/internal/models"
	"loyalty-points-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func scanRedemption(row rowScanner) (*models.Redemption, error) {
	var r models.Redemption
	var orderId sql.NullString
	var status string
	err := row.Scan(&r.Id, &r.LedgerId, &r.ReversalLedgerId, &r.UserId, &orderId, &r.Points,
		&r.DiscountValue, &r.ConversionRate, &r.Currency, &status, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	r.OrderId = orderId.String
	r.Status = models.RedemptionStatus(status)
	return &r, nil
}

func (q *queries) InsertRedemption(ctx context.Context, r *models.Redemption) error {
	if r.Id == "" || r.LedgerId == 0 || r.Points <= 0 {
		return fmt.Errorf("%w: redemption requires id, ledger id and positive points", store.ErrValidation)
	}

	now := q.now()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now

	_, err := q.db.ExecContext(ctx, queryInsertRedemption,
		r.Id, r.LedgerId, r.ReversalLedgerId, r.UserId, nullString(r.OrderId), r.Points,
		r.DiscountValue.String(), r.ConversionRate.String(), r.Currency, string(r.Status),
		r.CreatedAt, r.UpdatedAt)
	if err != nil {
		zap.L().Error("Failed to insert redemption",
			zap.String("redemption_id", r.Id),
			zap.String("user_id", r.UserId),
			zap.Error(err))
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: redemption %s", store.ErrDuplicate, r.Id)
		}
		return fmt.Errorf("%w: unable to insert redemption: %v", store.ErrSystem, err)
	}

	zap.L().Info("Redemption recorded",
		zap.String("redemption_id", r.Id),
		zap.String("user_id", r.UserId),
		zap.Int64("points", r.Points),
		zap.String("discount", r.DiscountValue.StringFixed(2)),
		zap.String("currency", r.Currency))
	return nil
}

func (q *queries) GetRedemption(ctx context.Context, id string) (*models.Redemption, error) {
	r, err := scanRedemption(q.db.QueryRowContext(ctx, queryGetRedemption, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: redemption %s", store.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: unable to query redemption: %v", store.ErrSystem, err)
	}
	return r, nil
}

func (q *queries) UpdateRedemptionStatus(ctx context.Context, id string, status models.RedemptionStatus, reversalLedgerId int64) error {
	result, err := q.db.ExecContext(ctx, queryUpdateRedemptionStatus, string(status), reversalLedgerId, q.now(), id)
	if err != nil {
		return fmt.Errorf("%w: unable to update redemption: %v", store.ErrSystem, err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: redemption %s", store.ErrNotFound, id)
	}

	zap.L().Info("Redemption status changed",
		zap.String("redemption_id", id),
		zap.String("status", string(status)),
		zap.Int64("reversal_ledger_id", reversalLedgerId))
	return nil
}

// SumOrderDiscount adds up the live discounts already applied to an order.
// Amounts are summed as decimals rather than in SQL to avoid float rounding.
func (q *queries) SumOrderDiscount(ctx context.Context, orderId string) (decimal.Decimal, error) {
	rows, err := q.db.QueryContext(ctx, queryGetOrderDiscounts, orderId)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: unable to query order discounts: %v", store.ErrSystem, err)
	}
	defer closeRows(rows)

	total := decimal.Zero
	for rows.Next() {
		var value decimal.Decimal
		if err := rows.Scan(&value); err != nil {
			return decimal.Zero, fmt.Errorf("%w: unable to scan discount: %v", store.ErrSystem, err)
		}
		total = total.Add(value)
	}
	if err := rows.Err(); err != nil {
		return decimal.Zero, fmt.Errorf("%w: error iterating discounts: %v", store.ErrSystem, err)
	}
	return total, nil
}

func (q *queries) ListUserRedemptions(ctx context.Context, userId string, limit, offset int) ([]models.Redemption, error) {
	if limit <= 0 {
		limit = -1
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := q.db.QueryContext(ctx, queryGetUserRedemptions, userId, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: unable to query redemptions: %v", store.ErrSystem, err)
	}
	defer closeRows(rows)

	var redemptions []models.Redemption
	for rows.Next() {
		r, err := scanRedemption(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: unable to scan redemption: %v", store.ErrSystem, err)
		}
		redemptions = append(redemptions, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: error iterating redemptions: %v", store.ErrSystem, err)
	}
	return redemptions, nil
}
