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
	"errors"
	"fmt"

	"loyalty-points-go/internal/models"
	"loyalty-points-go/internal/notify"
	"loyalty-points-go/internal/store"

	"go.uber.org/zap"
)

// AdjustmentRequest is an administrative balance change. Points is ignored
// by Reset.
type AdjustmentRequest struct {
	UserId    string
	Points    int64
	Reason    string
	AdminId   string
	IpAddress string
}

type AdjustmentReceipt struct {
	UserId     string
	ActionType models.ActionType
	Points     int64 // signed amount written to the ledger
	LedgerId   int64
	NewBalance int64
}

// AdminHandler applies manual adjustments. Each one writes a ledger entry and
// its audit row in the same transaction.
type AdminHandler struct {
	deps Deps
}

func NewAdminHandler(deps Deps) *AdminHandler {
	return &AdminHandler{deps: deps.withDefaults()}
}

func (h *AdminHandler) Assign(ctx context.Context, req AdjustmentRequest) (*AdjustmentReceipt, error) {
	if req.Points <= 0 {
		return nil, fmt.Errorf("%w: points must be positive, got %d", store.ErrValidation, req.Points)
	}
	return h.adjust(ctx, req, models.ActionAdminAssignment, func(int64) (int64, error) {
		return req.Points, nil
	})
}

func (h *AdminHandler) Deduct(ctx context.Context, req AdjustmentRequest) (*AdjustmentReceipt, error) {
	if req.Points <= 0 {
		return nil, fmt.Errorf("%w: points must be positive, got %d", store.ErrValidation, req.Points)
	}
	return h.adjust(ctx, req, models.ActionAdminDeduction, func(available int64) (int64, error) {
		if req.Points > available {
			return 0, fmt.Errorf("%w: requested %d, available %d", store.ErrInsufficientBalance, req.Points, available)
		}
		return -req.Points, nil
	})
}

// Reset brings the available balance to zero with a single debit.
func (h *AdminHandler) Reset(ctx context.Context, req AdjustmentRequest) (*AdjustmentReceipt, error) {
	return h.adjust(ctx, req, models.ActionAdminReset, func(available int64) (int64, error) {
		if available <= 0 {
			return 0, fmt.Errorf("%w: user %s has no balance to reset", store.ErrValidation, req.UserId)
		}
		return -available, nil
	})
}

func (h *AdminHandler) authorize(ctx context.Context, adminId string) error {
	if adminId == "" {
		return fmt.Errorf("%w: admin id is required", store.ErrPermission)
	}
	admin, err := h.deps.Store.GetUserById(ctx, adminId)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: unknown admin %s", store.ErrPermission, adminId)
	}
	if err != nil {
		return err
	}
	if !admin.IsAdmin() {
		return fmt.Errorf("%w: user %s is not an administrator", store.ErrPermission, adminId)
	}
	return nil
}

func (h *AdminHandler) adjust(ctx context.Context, req AdjustmentRequest, action models.ActionType, amount func(available int64) (int64, error)) (*AdjustmentReceipt, error) {
	if req.UserId == "" {
		return nil, fmt.Errorf("%w: user id is required", store.ErrValidation)
	}
	if err := h.authorize(ctx, req.AdminId); err != nil {
		zap.L().Warn("Admin adjustment rejected",
			zap.String("admin_id", req.AdminId),
			zap.String("user_id", req.UserId),
			zap.String("action_type", string(action)),
			zap.Error(err))
		return nil, err
	}
	if _, err := h.deps.Store.GetUserById(ctx, req.UserId); err != nil {
		return nil, err
	}

	receipt := &AdjustmentReceipt{UserId: req.UserId, ActionType: action}
	err := h.deps.Store.RunInTx(ctx, func(ctx context.Context, q store.Queries) error {
		available, err := NewCalculator(q).Available(ctx, req.UserId)
		if err != nil {
			return err
		}
		points, err := amount(available)
		if err != nil {
			return err
		}

		description := req.Reason
		if description == "" {
			description = string(action)
		}
		entry, err := q.AppendEntry(ctx, store.AppendParams{
			UserId:       req.UserId,
			ActionType:   action,
			PointsAmount: points,
			Status:       models.StatusEarned,
			Description:  description,
			Notes:        fmt.Sprintf("by admin %s", req.AdminId),
		})
		if err != nil {
			return err
		}

		if err := q.InsertAuditLog(ctx, &models.AuditLogEntry{
			AdminId:        req.AdminId,
			UserId:         req.UserId,
			ActionType:     action,
			PointsInvolved: points,
			LedgerId:       entry.Id,
			IpAddress:      req.IpAddress,
			Reason:         req.Reason,
		}); err != nil {
			return err
		}

		receipt.Points = points
		receipt.LedgerId = entry.Id
		receipt.NewBalance = available + points
		return nil
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Admin adjustment applied",
		zap.String("admin_id", req.AdminId),
		zap.String("user_id", req.UserId),
		zap.String("action_type", string(action)),
		zap.Int64("points", receipt.Points),
		zap.Int64("balance", receipt.NewBalance))
	h.deps.Hooks.Emit(ctx, Event{
		Type:       EventAdminAdjustment,
		UserId:     req.UserId,
		LedgerId:   receipt.LedgerId,
		ActionType: action,
		Points:     receipt.Points,
		At:         h.deps.now(),
	})
	h.deps.notify(ctx, req.UserId, notify.KindAdminAdjustment, notify.Payload{
		Points:  receipt.Points,
		Balance: receipt.NewBalance,
		Reason:  req.Reason,
	})
	return receipt, nil
}
