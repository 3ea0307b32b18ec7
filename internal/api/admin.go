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

	"go.uber.org/zap"
)

type adjustFunc func(ctx context.Context, req points.AdjustmentRequest) (*points.AdjustmentReceipt, error)

func (s *LedgerService) AdminAssign(ctx context.Context, req points.AdjustmentRequest) (*models.AdjustmentResult, error) {
	return s.runAdjustment(ctx, "assign", req, s.admin.Assign)
}

func (s *LedgerService) AdminDeduct(ctx context.Context, req points.AdjustmentRequest) (*models.AdjustmentResult, error) {
	return s.runAdjustment(ctx, "deduct", req, s.admin.Deduct)
}

// AdminReset zeroes the user's available balance
func (s *LedgerService) AdminReset(ctx context.Context, req points.AdjustmentRequest) (*models.AdjustmentResult, error) {
	return s.runAdjustment(ctx, "reset", req, s.admin.Reset)
}

func (s *LedgerService) runAdjustment(ctx context.Context, op string, req points.AdjustmentRequest, fn adjustFunc) (*models.AdjustmentResult, error) {
	if req.UserId == "" || req.AdminId == "" {
		return &models.AdjustmentResult{
			Success: false,
			UserId:  req.UserId,
			Code:    models.CodeInvalidRequest,
			Error:   "user_id and admin_id are required",
		}, nil
	}

	receipt, err := fn(ctx, req)
	if err != nil {
		code, msg := classify(err)
		zap.L().Warn("Admin adjustment failed",
			zap.String("op", op),
			zap.String("user_id", req.UserId),
			zap.String("admin_id", req.AdminId),
			zap.Int64("points", req.Points),
			zap.String("code", code),
			zap.Error(err))
		return &models.AdjustmentResult{
			Success: false,
			UserId:  req.UserId,
			Code:    code,
			Error:   msg,
		}, nil
	}

	return &models.AdjustmentResult{
		Success:    true,
		UserId:     receipt.UserId,
		ActionType: string(receipt.ActionType),
		Points:     receipt.Points,
		NewBalance: receipt.NewBalance,
		Code:       models.CodeOK,
	}, nil
}
