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

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// GetAvailableBalance returns the points a user can spend right now
func (s *LedgerService) GetAvailableBalance(ctx context.Context, userId string) (int64, error) {
	if userId == "" {
		return 0, fmt.Errorf("%w: user_id is required", ErrInvalidRequest)
	}

	balance, err := s.calculator.Available(ctx, userId)
	if err != nil {
		zap.L().Error("Failed to get available balance", zap.String("user_id", userId), zap.Error(err))
		return 0, ErrInternal
	}
	return balance, nil
}

// GetPendingBalance returns points waiting on order completion
func (s *LedgerService) GetPendingBalance(ctx context.Context, userId string) (int64, error) {
	if userId == "" {
		return 0, fmt.Errorf("%w: user_id is required", ErrInvalidRequest)
	}

	balance, err := s.calculator.Pending(ctx, userId)
	if err != nil {
		zap.L().Error("Failed to get pending balance", zap.String("user_id", userId), zap.Error(err))
		return 0, ErrInternal
	}
	return balance, nil
}

func (s *LedgerService) GetBalanceSummary(ctx context.Context, userId string) (*models.BalanceSummary, error) {
	if userId == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrInvalidRequest)
	}

	summary, err := s.calculator.Summary(ctx, userId)
	if err != nil {
		zap.L().Error("Failed to get balance summary", zap.String("user_id", userId), zap.Error(err))
		return nil, ErrInternal
	}
	return summary, nil
}

// GetHistory returns one page of a user's ledger, newest first. Pages start
// at 1.
func (s *LedgerService) GetHistory(ctx context.Context, userId string, page, pageSize int) (*models.HistoryPage, error) {
	if userId == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrInvalidRequest)
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > maxPageSize {
		pageSize = defaultPageSize
	}

	if _, err := s.store.GetUserById(ctx, userId); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUnknownUser
		}
		zap.L().Error("Failed to look up user", zap.String("user_id", userId), zap.Error(err))
		return nil, ErrInternal
	}

	filter := store.HistoryFilter{Limit: pageSize, Offset: (page - 1) * pageSize}
	entries, err := s.store.QueryByUser(ctx, userId, filter)
	if err != nil {
		zap.L().Error("Failed to get ledger history",
			zap.String("user_id", userId),
			zap.Int("page", page),
			zap.Error(err))
		return nil, ErrInternal
	}
	total, err := s.store.CountByUser(ctx, userId, store.HistoryFilter{})
	if err != nil {
		zap.L().Error("Failed to count ledger history", zap.String("user_id", userId), zap.Error(err))
		return nil, ErrInternal
	}

	records := make([]models.HistoryRecord, len(entries))
	for i, e := range entries {
		records[i] = models.HistoryRecord{
			Id:          e.Id,
			ActionType:  string(e.ActionType),
			Points:      e.PointsAmount,
			Status:      string(e.Status),
			OrderId:     e.OrderId,
			Description: e.Description,
			ExpiresAt:   e.ExpiresAt,
			CreatedAt:   e.CreatedAt,
		}
	}

	return &models.HistoryPage{
		UserId:   userId,
		Page:     page,
		PageSize: pageSize,
		Total:    total,
		Records:  records,
	}, nil
}
