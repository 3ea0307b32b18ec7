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
	"fmt"

	"loyalty-points-go/internal/models"
	"loyalty-points-go/internal/notify"
	"loyalty-points-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RedeemRequest asks to spend points. A zero Rate or empty Currency falls
// back to the current settings.
type RedeemRequest struct {
	UserId   string
	Points   int64
	OrderId  string
	Rate     decimal.Decimal
	Currency string
}

type RedeemReceipt struct {
	Redemption       models.Redemption
	RemainingBalance int64
}

type RestoreReceipt struct {
	Redemption     models.Redemption
	PointsRestored int64
	NewBalance     int64
}

// RedemptionEngine converts points into order discounts.
type RedemptionEngine struct {
	deps Deps
}

func NewRedemptionEngine(deps Deps) *RedemptionEngine {
	return &RedemptionEngine{deps: deps.withDefaults()}
}

// Redeem debits points and records the discount they bought. The balance and
// order cap are checked inside the same write transaction as the debit.
func (e *RedemptionEngine) Redeem(ctx context.Context, req RedeemRequest) (*RedeemReceipt, error) {
	settings, err := e.deps.Settings.GetSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: unable to load settings: %v", store.ErrSystem, err)
	}
	if !settings.PointsEnabled {
		return nil, store.ErrPointsDisabled
	}
	if req.Points <= 0 {
		return nil, fmt.Errorf("%w: points must be positive, got %d", store.ErrValidation, req.Points)
	}
	if req.UserId == "" {
		return nil, fmt.Errorf("%w: user id is required", store.ErrValidation)
	}
	if _, err := e.deps.Store.GetUserById(ctx, req.UserId); err != nil {
		return nil, err
	}

	rate := req.Rate
	if rate.IsZero() {
		rate = settings.ConversionRate
	}
	if !rate.IsPositive() {
		return nil, fmt.Errorf("%w: conversion rate must be positive", store.ErrValidation)
	}
	currency := req.Currency
	if currency == "" {
		currency = settings.Currency
	}
	discount := decimal.NewFromInt(req.Points).Mul(rate)

	var order *models.Order
	if req.OrderId != "" {
		order, err = e.deps.Orders.GetOrder(ctx, req.OrderId)
		if err != nil {
			return nil, err
		}
	}

	check := func(ctx context.Context, q store.Queries) (int64, error) {
		available, err := NewCalculator(q).Available(ctx, req.UserId)
		if err != nil {
			return 0, err
		}
		if req.Points > available {
			return available, fmt.Errorf("%w: requested %d, available %d", store.ErrInsufficientBalance, req.Points, available)
		}
		if order == nil {
			return available, nil
		}
		if order.UserId != req.UserId {
			return available, fmt.Errorf("%w: order %s belongs to another user", store.ErrPermission, order.Id)
		}
		maxDiscount := order.Total.Mul(settings.MaxRedeemablePercentage).Div(hundred)
		applied, err := q.SumOrderDiscount(ctx, order.Id)
		if err != nil {
			return 0, err
		}
		if applied.Add(discount).GreaterThan(maxDiscount) {
			return available, fmt.Errorf("%w: order %s allows %s, already applied %s, requested %s",
				store.ErrRedemptionLimitExceeded, order.Id,
				maxDiscount.StringFixed(2), applied.StringFixed(2), discount.StringFixed(2))
		}
		return available, nil
	}

	// Fail fast without taking the write lock.
	if _, err := check(ctx, e.deps.Store); err != nil {
		return nil, err
	}

	receipt := &RedeemReceipt{}
	err = e.deps.Store.RunInTx(ctx, func(ctx context.Context, q store.Queries) error {
		available, err := check(ctx, q)
		if err != nil {
			return err
		}

		debit, err := q.AppendEntry(ctx, store.AppendParams{
			UserId:       req.UserId,
			OrderId:      req.OrderId,
			ActionType:   models.ActionRedemption,
			PointsAmount: -req.Points,
			Status:       models.StatusEarned,
			Description:  fmt.Sprintf("Redeemed %d points for %s %s", req.Points, discount.StringFixed(2), currency),
		})
		if err != nil {
			return err
		}

		redemption := models.Redemption{
			Id:             uuid.New().String(),
			LedgerId:       debit.Id,
			UserId:         req.UserId,
			OrderId:        req.OrderId,
			Points:         req.Points,
			DiscountValue:  discount,
			ConversionRate: rate,
			Currency:       currency,
			Status:         models.RedemptionCompleted,
		}
		if err := q.InsertRedemption(ctx, &redemption); err != nil {
			return err
		}

		receipt.Redemption = redemption
		receipt.RemainingBalance = available - req.Points
		return nil
	})
	if err != nil {
		return nil, err
	}

	r := receipt.Redemption
	zap.L().Info("Points redeemed",
		zap.String("redemption_id", r.Id),
		zap.String("user_id", r.UserId),
		zap.Int64("points", r.Points),
		zap.String("discount", r.DiscountValue.StringFixed(2)),
		zap.Int64("remaining", receipt.RemainingBalance))
	e.deps.Hooks.Emit(ctx, Event{
		Type:       EventPointsRedeemed,
		UserId:     r.UserId,
		OrderId:    r.OrderId,
		LedgerId:   r.LedgerId,
		ActionType: models.ActionRedemption,
		Points:     -r.Points,
		At:         r.CreatedAt,
	})
	e.deps.notify(ctx, r.UserId, notify.KindPointsRedeemed, notify.Payload{
		Points:       r.Points,
		Balance:      receipt.RemainingBalance,
		OrderId:      r.OrderId,
		RedemptionId: r.Id,
		Discount:     r.DiscountValue,
		Currency:     r.Currency,
	})
	return receipt, nil
}

// Cancel reverses a redemption with a new credit. The original debit stays.
func (e *RedemptionEngine) Cancel(ctx context.Context, redemptionId string) (*RestoreReceipt, error) {
	if redemptionId == "" {
		return nil, fmt.Errorf("%w: redemption id is required", store.ErrValidation)
	}

	receipt := &RestoreReceipt{}
	err := e.deps.Store.RunInTx(ctx, func(ctx context.Context, q store.Queries) error {
		r, err := q.GetRedemption(ctx, redemptionId)
		if err != nil {
			return err
		}
		if r.Status == models.RedemptionCancelled || r.Status == models.RedemptionRefunded {
			return fmt.Errorf("%w: redemption %s is already %s", store.ErrInvalidTransition, r.Id, r.Status)
		}

		credit, err := q.AppendEntry(ctx, store.AppendParams{
			UserId:       r.UserId,
			OrderId:      r.OrderId,
			ActionType:   models.ActionRedemptionReversal,
			PointsAmount: r.Points,
			Status:       models.StatusEarned,
			Description:  fmt.Sprintf("Reversal of redemption %s", r.Id),
		})
		if err != nil {
			return err
		}
		if err := q.UpdateRedemptionStatus(ctx, r.Id, models.RedemptionCancelled, credit.Id); err != nil {
			return err
		}

		balance, err := NewCalculator(q).Available(ctx, r.UserId)
		if err != nil {
			return err
		}

		r.Status = models.RedemptionCancelled
		r.ReversalLedgerId = credit.Id
		receipt.Redemption = *r
		receipt.PointsRestored = r.Points
		receipt.NewBalance = balance
		return nil
	})
	if err != nil {
		return nil, err
	}

	r := receipt.Redemption
	zap.L().Info("Redemption cancelled",
		zap.String("redemption_id", r.Id),
		zap.String("user_id", r.UserId),
		zap.Int64("points", r.Points),
		zap.Int64("balance", receipt.NewBalance))
	e.deps.Hooks.Emit(ctx, Event{
		Type:       EventRedemptionCancelled,
		UserId:     r.UserId,
		OrderId:    r.OrderId,
		LedgerId:   r.ReversalLedgerId,
		ActionType: models.ActionRedemptionReversal,
		Points:     r.Points,
		At:         e.deps.now(),
	})
	e.deps.notify(ctx, r.UserId, notify.KindRedemptionCancelled, notify.Payload{
		Points:       r.Points,
		Balance:      receipt.NewBalance,
		RedemptionId: r.Id,
	})
	return receipt, nil
}
