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

	"loyalty-points-go/internal/models"
	"loyalty-points-go/internal/points"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Redeem spends points for a discount. A zero rate or empty currency uses the
// configured values.
func (s *LedgerService) Redeem(ctx context.Context, userId string, pts int64, orderId string, rate decimal.Decimal, currency string) (*models.RedemptionResult, error) {
	if userId == "" || pts <= 0 {
		zap.L().Warn("Rejected redemption request",
			zap.String("user_id", userId),
			zap.Int64("points", pts))
		return &models.RedemptionResult{
			Success: false,
			UserId:  userId,
			Code:    models.CodeInvalidRequest,
			Error:   "user_id and a positive points amount are required",
		}, nil
	}

	receipt, err := s.redemption.Redeem(ctx, points.RedeemRequest{
		UserId:   userId,
		Points:   pts,
		OrderId:  orderId,
		Rate:     rate,
		Currency: currency,
	})
	if err != nil {
		code, msg := classify(err)
		zap.L().Warn("Redemption failed",
			zap.String("user_id", userId),
			zap.Int64("points", pts),
			zap.String("order_id", orderId),
			zap.String("code", code),
			zap.Error(err))
		return &models.RedemptionResult{
			Success: false,
			UserId:  userId,
			Points:  pts,
			Code:    code,
			Error:   msg,
		}, nil
	}

	r := receipt.Redemption
	zap.L().Info("Redemption completed",
		zap.String("redemption_id", r.Id),
		zap.String("user_id", userId),
		zap.Int64("points", r.Points),
		zap.String("discount", r.DiscountValue.String()),
		zap.Int64("remaining_balance", receipt.RemainingBalance))

	return &models.RedemptionResult{
		Success:          true,
		RedemptionId:     r.Id,
		UserId:           r.UserId,
		Points:           r.Points,
		DiscountValue:    r.DiscountValue,
		Currency:         r.Currency,
		RemainingBalance: receipt.RemainingBalance,
		Code:             models.CodeOK,
	}, nil
}

// CancelRedemption restores the points of a completed redemption
func (s *LedgerService) CancelRedemption(ctx context.Context, redemptionId string) (*models.RestoreResult, error) {
	if redemptionId == "" {
		return &models.RestoreResult{
			Success: false,
			Code:    models.CodeInvalidRequest,
			Error:   "redemption_id is required",
		}, nil
	}

	receipt, err := s.redemption.Cancel(ctx, redemptionId)
	if err != nil {
		code, msg := classify(err)
		zap.L().Warn("Redemption cancel failed",
			zap.String("redemption_id", redemptionId),
			zap.String("code", code),
			zap.Error(err))
		return &models.RestoreResult{
			Success:      false,
			RedemptionId: redemptionId,
			Code:         code,
			Error:        msg,
		}, nil
	}

	return &models.RestoreResult{
		Success:        true,
		RedemptionId:   redemptionId,
		PointsRestored: receipt.PointsRestored,
		NewBalance:     receipt.NewBalance,
		Code:           models.CodeOK,
	}, nil
}
