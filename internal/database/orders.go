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
	"encoding/json"
	"errors"
	"fmt"

	"loyalty-points-go/internal/models"
	"loyalty-points-go/internal/store"

	"go.uber.org/zap"
)

func (q *queries) GetOrderState(ctx context.Context, orderId string) (*models.OrderPointsState, error) {
	var state models.OrderPointsState
	err := q.db.QueryRowContext(ctx, queryGetOrderState, orderId).Scan(
		&state.OrderId, &state.UserId, &state.PlacementLedgerId, &state.PointsAwarded,
		&state.PlacedProcessed, &state.CompletedProcessed, &state.FullyRefunded,
		&state.CreatedAt, &state.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no points state for order %s", store.ErrNotFound, orderId)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: unable to query order state: %v", store.ErrSystem, err)
	}
	return &state, nil
}

// SaveOrderState inserts or updates the guard row for an order
func (q *queries) SaveOrderState(ctx context.Context, state *models.OrderPointsState) error {
	now := q.now()
	if state.CreatedAt.IsZero() {
		state.CreatedAt = now
	}
	state.UpdatedAt = now

	_, err := q.db.ExecContext(ctx, queryUpsertOrderState,
		state.OrderId, state.UserId, state.PlacementLedgerId, state.PointsAwarded,
		state.PlacedProcessed, state.CompletedProcessed, state.FullyRefunded,
		state.CreatedAt, state.UpdatedAt)
	if err != nil {
		zap.L().Error("Failed to save order state", zap.String("order_id", state.OrderId), zap.Error(err))
		return fmt.Errorf("%w: unable to save order state: %v", store.ErrSystem, err)
	}
	return nil
}

func (q *queries) GetRefundState(ctx context.Context, refundId string) (*models.RefundPointsState, error) {
	var state models.RefundPointsState
	err := q.db.QueryRowContext(ctx, queryGetRefundState, refundId).Scan(
		&state.RefundId, &state.OrderId, &state.LedgerId, &state.PointsDeducted, &state.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no points state for refund %s", store.ErrNotFound, refundId)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: unable to query refund state: %v", store.ErrSystem, err)
	}
	return &state, nil
}

func (q *queries) InsertRefundState(ctx context.Context, state *models.RefundPointsState) error {
	if state.CreatedAt.IsZero() {
		state.CreatedAt = q.now()
	}
	_, err := q.db.ExecContext(ctx, queryInsertRefundState,
		state.RefundId, state.OrderId, state.LedgerId, state.PointsDeducted, state.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: refund %s already processed", store.ErrDuplicate, state.RefundId)
		}
		return fmt.Errorf("%w: unable to insert refund state: %v", store.ErrSystem, err)
	}
	return nil
}

func (q *queries) SumRefundedPoints(ctx context.Context, orderId string) (int64, error) {
	var total int64
	if err := q.db.QueryRowContext(ctx, querySumRefundedPoints, orderId).Scan(&total); err != nil {
		return 0, fmt.Errorf("%w: unable to sum refunded points: %v", store.ErrSystem, err)
	}
	return total, nil
}

// SaveOrderSnapshot stores the order as delivered by the platform so that
// later lifecycle events can be resolved by id
func (q *queries) SaveOrderSnapshot(ctx context.Context, order *models.Order) error {
	if order.Id == "" || order.UserId == "" {
		return fmt.Errorf("%w: order id and user id are required", store.ErrValidation)
	}
	payload, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("%w: unable to encode order: %v", store.ErrValidation, err)
	}

	if _, err := q.db.ExecContext(ctx, queryUpsertOrderSnapshot, order.Id, order.UserId, string(payload), q.now()); err != nil {
		return fmt.Errorf("%w: unable to save order snapshot: %v", store.ErrSystem, err)
	}

	zap.L().Debug("Order snapshot stored",
		zap.String("order_id", order.Id),
		zap.Int("items", len(order.Items)),
		zap.Int("refunds", len(order.Refunds)))
	return nil
}

// GetOrder implements the order source over stored snapshots
func (q *queries) GetOrder(ctx context.Context, orderId string) (*models.Order, error) {
	var payload string
	err := q.db.QueryRowContext(ctx, queryGetOrderSnapshot, orderId).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: order %s", store.ErrNotFound, orderId)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: unable to query order snapshot: %v", store.ErrSystem, err)
	}

	var order models.Order
	if err := json.Unmarshal([]byte(payload), &order); err != nil {
		return nil, fmt.Errorf("%w: unable to decode order %s: %v", store.ErrSystem, orderId, err)
	}
	return &order, nil
}
