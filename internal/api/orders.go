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

package api

import (
	"context"
	"errors"
	"fmt"

	"loyalty-points-go/internal/models"
	"loyalty-points-go/internal/store"

	"go.uber.org/zap"
)

// RecordOrder stores the latest snapshot of an order so the handlers can
// read it back by id.
func (s *LedgerService) RecordOrder(ctx context.Context, order *models.Order) error {
	if order == nil || order.Id == "" || order.UserId == "" {
		return fmt.Errorf("%w: order id and user id are required", ErrInvalidRequest)
	}

	if err := s.store.SaveOrderSnapshot(ctx, order); err != nil {
		zap.L().Error("Failed to save order snapshot", zap.String("order_id", order.Id), zap.Error(err))
		if errors.Is(err, store.ErrValidation) {
			return ErrInvalidRequest
		}
		return ErrInternal
	}
	return nil
}

// ProcessOrderPlaced awards pending points for a new order
func (s *LedgerService) ProcessOrderPlaced(ctx context.Context, orderId string) bool {
	return s.orders.OrderPlaced(ctx, orderId)
}

// ProcessOrderCompleted turns the order's pending points into earned points
func (s *LedgerService) ProcessOrderCompleted(ctx context.Context, orderId string) bool {
	return s.orders.OrderCompleted(ctx, orderId)
}

// ProcessRefund deducts points for one refund of an order
func (s *LedgerService) ProcessRefund(ctx context.Context, orderId, refundId string) bool {
	return s.orders.OrderRefunded(ctx, orderId, refundId)
}
