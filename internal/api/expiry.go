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

	"go.uber.org/zap"
)

// RunExpirySweep expires aged points and sends grace warnings. An empty
// userId sweeps every user with earned credits.
func (s *LedgerService) RunExpirySweep(ctx context.Context, userId string) (*models.ExpirySweepResult, error) {
	var (
		result models.ExpirySweepResult
		err    error
	)
	if userId == "" {
		result, err = s.expiry.ProcessAll(ctx)
	} else {
		result, err = s.expiry.ProcessUserExpirations(ctx, userId)
	}
	if err != nil {
		zap.L().Error("Expiry sweep failed", zap.String("user_id", userId), zap.Error(err))
		return nil, ErrInternal
	}

	zap.L().Info("Expiry sweep finished",
		zap.String("user_id", userId),
		zap.Int("users", result.UsersProcessed),
		zap.Int("expired", result.Expired),
		zap.Int64("points_expired", result.PointsExpired),
		zap.Int("warned", result.Warned),
		zap.Int("failed", result.Failed))
	return &result, nil
}
