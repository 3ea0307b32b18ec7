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

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OrderHandler reacts to platform order events. Its methods never return
// errors: failures are logged and reported as false so the commerce flow is
// never blocked by points processing.
type OrderHandler struct {
	deps Deps
}

func NewOrderHandler(deps Deps) *OrderHandler {
	return &OrderHandler{deps: deps.withDefaults()}
}

// OrderPlaced credits the order's points as pending. A second call for the
// same order is a no-op.
func (h *OrderHandler) OrderPlaced(ctx context.Context, orderId string) bool {
	if err := h.placeOrder(ctx, orderId); err != nil {
		zap.L().Error("Failed to process order placement", zap.String("order_id", orderId), zap.Error(err))
		return false
	}
	return true
}

// OrderCompleted promotes the placement credit to earned.
func (h *OrderHandler) OrderCompleted(ctx context.Context, orderId string) bool {
	if err := h.completeOrder(ctx, orderId); err != nil {
		zap.L().Error("Failed to process order completion", zap.String("order_id", orderId), zap.Error(err))
		return false
	}
	return true
}

// OrderRefunded deducts the points attributable to one refund of the order.
func (h *OrderHandler) OrderRefunded(ctx context.Context, orderId, refundId string) bool {
	if err := h.refundOrder(ctx, orderId, refundId); err != nil {
		zap.L().Error("Failed to process order refund",
			zap.String("order_id", orderId),
			zap.String("refund_id", refundId),
			zap.Error(err))
		return false
	}
	return true
}

func (h *OrderHandler) placeOrder(ctx context.Context, orderId string) error {
	if orderId == "" {
		return fmt.Errorf("%w: order id is required", store.ErrValidation)
	}

	settings, err := h.deps.Settings.GetSettings(ctx)
	if err != nil {
		return fmt.Errorf("unable to load settings: %w", err)
	}
	if !settings.PointsEnabled {
		zap.L().Info("Points disabled, order placement ignored", zap.String("order_id", orderId))
		return nil
	}

	order, err := h.deps.Orders.GetOrder(ctx, orderId)
	if err != nil {
		return fmt.Errorf("unable to load order: %w", err)
	}
	if order.UserId == "" {
		return fmt.Errorf("%w: order %s has no user", store.ErrValidation, orderId)
	}

	points, err := OrderPoints(ctx, h.deps.Products, settings, order)
	if err != nil {
		return err
	}

	var entry *models.LedgerEntry
	err = h.deps.Store.RunInTx(ctx, func(ctx context.Context, q store.Queries) error {
		state, err := q.GetOrderState(ctx, orderId)
		switch {
		case err == nil:
			if state.PlacedProcessed {
				zap.L().Debug("Order placement already processed", zap.String("order_id", orderId))
				return nil
			}
		case errors.Is(err, store.ErrNotFound):
			state = &models.OrderPointsState{OrderId: orderId, UserId: order.UserId}
		default:
			return err
		}

		if points > 0 {
			entry, err = q.AppendEntry(ctx, store.AppendParams{
				UserId:       order.UserId,
				OrderId:      orderId,
				ActionType:   models.ActionOrderPlacement,
				PointsAmount: points,
				Status:       models.StatusPending,
				Description:  fmt.Sprintf("Points for order %s", orderId),
			})
			if err != nil {
				return err
			}
			state.PlacementLedgerId = entry.Id
		}
		state.PointsAwarded = points
		state.PlacedProcessed = true
		return q.SaveOrderState(ctx, state)
	})
	if err != nil {
		return err
	}
	if entry == nil {
		return nil
	}

	zap.L().Info("Order points pending",
		zap.String("order_id", orderId),
		zap.String("user_id", order.UserId),
		zap.Int64("points", points))
	h.deps.Hooks.Emit(ctx, Event{
		Type:       EventPointsAwarded,
		UserId:     order.UserId,
		OrderId:    orderId,
		LedgerId:   entry.Id,
		ActionType: entry.ActionType,
		Points:     points,
		At:         entry.CreatedAt,
	})
	h.deps.notify(ctx, order.UserId, notify.KindPointsPending, notify.Payload{Points: points, OrderId: orderId})
	return nil
}

// expiryRuleFor picks the first active rule covering action, or the default.
func expiryRuleFor(ctx context.Context, q store.ExpiryQueries, settings models.Settings, action models.ActionType) (models.ExpiryRule, error) {
	rules, err := q.ListExpiryRules(ctx, true)
	if err != nil {
		return models.ExpiryRule{}, err
	}
	for _, r := range rules {
		if r.Applies(action) {
			return r, nil
		}
	}
	return models.DefaultExpiryRule(settings), nil
}

func (h *OrderHandler) completeOrder(ctx context.Context, orderId string) error {
	settings, err := h.deps.Settings.GetSettings(ctx)
	if err != nil {
		return fmt.Errorf("unable to load settings: %w", err)
	}

	var earned *models.LedgerEntry
	err = h.deps.Store.RunInTx(ctx, func(ctx context.Context, q store.Queries) error {
		state, err := q.GetOrderState(ctx, orderId)
		if errors.Is(err, store.ErrNotFound) {
			zap.L().Debug("Order has no points state, completion skipped", zap.String("order_id", orderId))
			return nil
		}
		if err != nil {
			return err
		}
		if state.CompletedProcessed {
			return nil
		}
		state.CompletedProcessed = true

		if state.PlacementLedgerId == 0 || state.FullyRefunded {
			return q.SaveOrderState(ctx, state)
		}

		entry, err := q.GetEntry(ctx, state.PlacementLedgerId)
		if err != nil {
			return err
		}
		if entry.Status == models.StatusPending {
			if _, err := q.TransitionStatus(ctx, entry.Id, models.StatusEarned, "order completed"); err != nil {
				return err
			}
			rule, err := expiryRuleFor(ctx, q, settings, entry.ActionType)
			if err != nil {
				return err
			}
			if err := q.SetExpiresAt(ctx, entry.Id, entry.CreatedAt.AddDate(0, 0, rule.ExpiryDays)); err != nil {
				return err
			}
			entry.Status = models.StatusEarned
			earned = entry
		}

		// Refunds taken while the order was pending become effective now.
		entries, err := q.ListOrderEntries(ctx, orderId)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if e.Status == models.StatusPending && !e.IsCredit() {
				if _, err := q.TransitionStatus(ctx, e.Id, models.StatusEarned, "order completed"); err != nil {
					return err
				}
			}
		}

		return q.SaveOrderState(ctx, state)
	})
	if err != nil {
		return err
	}
	if earned == nil {
		return nil
	}

	zap.L().Info("Order points earned",
		zap.String("order_id", orderId),
		zap.String("user_id", earned.UserId),
		zap.Int64("points", earned.PointsAmount))
	h.deps.Hooks.Emit(ctx, Event{
		Type:       EventPointsEarned,
		UserId:     earned.UserId,
		OrderId:    orderId,
		LedgerId:   earned.Id,
		ActionType: earned.ActionType,
		Points:     earned.PointsAmount,
		At:         h.deps.now(),
	})
	h.deps.notify(ctx, earned.UserId, notify.KindPointsEarned, notify.Payload{Points: earned.PointsAmount, OrderId: orderId})
	return nil
}

// refundDeduction is the number of points a refund takes back, before any
// balance cap.
func refundDeduction(state *models.OrderPointsState, order *models.Order, refund *models.Refund, alreadyDeducted int64) (deduct int64, full bool) {
	remaining := state.PointsAwarded - alreadyDeducted
	if remaining <= 0 {
		return 0, false
	}

	full = !order.Total.IsPositive() || order.RefundedThrough(refund.Id).GreaterThanOrEqual(order.Total)
	if full {
		return remaining, true
	}

	proportional := decimal.NewFromInt(state.PointsAwarded).
		Mul(refund.Total.Abs()).
		Div(order.Total).
		Floor().
		IntPart()
	if proportional > remaining {
		proportional = remaining
	}
	return proportional, false
}

func (h *OrderHandler) refundOrder(ctx context.Context, orderId, refundId string) error {
	if orderId == "" || refundId == "" {
		return fmt.Errorf("%w: order id and refund id are required", store.ErrValidation)
	}

	order, err := h.deps.Orders.GetOrder(ctx, orderId)
	if err != nil {
		return fmt.Errorf("unable to load order: %w", err)
	}
	refund := order.FindRefund(refundId)
	if refund == nil {
		return fmt.Errorf("%w: refund %s on order %s", store.ErrNotFound, refundId, orderId)
	}

	var debit *models.LedgerEntry
	var cancelled *models.LedgerEntry
	var deducted int64
	err = h.deps.Store.RunInTx(ctx, func(ctx context.Context, q store.Queries) error {
		if _, err := q.GetRefundState(ctx, refundId); err == nil {
			zap.L().Debug("Refund already processed", zap.String("refund_id", refundId))
			return nil
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		guard := &models.RefundPointsState{RefundId: refundId, OrderId: orderId}

		state, err := q.GetOrderState(ctx, orderId)
		if errors.Is(err, store.ErrNotFound) {
			return q.InsertRefundState(ctx, guard)
		}
		if err != nil {
			return err
		}
		if state.FullyRefunded || state.PlacementLedgerId == 0 {
			return q.InsertRefundState(ctx, guard)
		}

		already, err := q.SumRefundedPoints(ctx, orderId)
		if err != nil {
			return err
		}
		deduct, full := refundDeduction(state, order, refund, already)
		if deduct <= 0 {
			return q.InsertRefundState(ctx, guard)
		}

		placement, err := q.GetEntry(ctx, state.PlacementLedgerId)
		if err != nil {
			return err
		}

		action := models.ActionPartialRefund
		if full {
			action = models.ActionFullRefund
		}
		description := fmt.Sprintf("Refund %s on order %s", refundId, orderId)

		switch placement.Status {
		case models.StatusPending:
			if full {
				if err := cancelPendingOrderEntries(ctx, q, orderId, "order fully refunded"); err != nil {
					return err
				}
				cancelled = placement
				guard.LedgerId = placement.Id
			} else {
				debit, err = q.AppendEntry(ctx, store.AppendParams{
					UserId:       placement.UserId,
					OrderId:      orderId,
					ActionType:   action,
					PointsAmount: -deduct,
					Status:       models.StatusPending,
					Description:  description,
				})
				if err != nil {
					return err
				}
				guard.LedgerId = debit.Id
			}

		case models.StatusEarned:
			available, err := NewCalculator(q).Available(ctx, placement.UserId)
			if err != nil {
				return err
			}
			if deduct > available {
				zap.L().Warn("Refund deduction capped at available balance",
					zap.String("order_id", orderId),
					zap.String("refund_id", refundId),
					zap.Int64("deduction", deduct),
					zap.Int64("available", available))
				deduct = available
			}
			if deduct > 0 {
				debit, err = q.AppendEntry(ctx, store.AppendParams{
					UserId:       placement.UserId,
					OrderId:      orderId,
					ActionType:   action,
					PointsAmount: -deduct,
					Status:       models.StatusEarned,
					Description:  description,
				})
				if err != nil {
					return err
				}
				guard.LedgerId = debit.Id
			}

		default:
			// Expired or cancelled credits have nothing left to take back.
			deduct = 0
		}

		if guard.LedgerId != 0 {
			guard.PointsDeducted = deduct
		}
		deducted = guard.PointsDeducted
		if err := q.InsertRefundState(ctx, guard); err != nil {
			return err
		}
		if full {
			state.FullyRefunded = true
			return q.SaveOrderState(ctx, state)
		}
		return nil
	})
	if err != nil {
		return err
	}

	switch {
	case debit != nil:
		zap.L().Info("Refund points deducted",
			zap.String("order_id", orderId),
			zap.String("refund_id", refundId),
			zap.String("user_id", debit.UserId),
			zap.Int64("points", deducted),
			zap.String("status", string(debit.Status)))
		h.deps.Hooks.Emit(ctx, Event{
			Type:       EventPointsRefunded,
			UserId:     debit.UserId,
			OrderId:    orderId,
			LedgerId:   debit.Id,
			ActionType: debit.ActionType,
			Points:     -deducted,
			At:         debit.CreatedAt,
		})
		h.deps.notify(ctx, debit.UserId, notify.KindPointsDeducted, notify.Payload{Points: deducted, OrderId: orderId})
	case cancelled != nil:
		zap.L().Info("Pending order points cancelled by refund",
			zap.String("order_id", orderId),
			zap.String("refund_id", refundId),
			zap.String("user_id", cancelled.UserId),
			zap.Int64("points", cancelled.PointsAmount))
		h.deps.Hooks.Emit(ctx, Event{
			Type:       EventPointsRefunded,
			UserId:     cancelled.UserId,
			OrderId:    orderId,
			LedgerId:   cancelled.Id,
			ActionType: models.ActionFullRefund,
			Points:     -deducted,
			At:         h.deps.now(),
		})
		h.deps.notify(ctx, cancelled.UserId, notify.KindPointsDeducted, notify.Payload{Points: deducted, OrderId: orderId})
	}
	return nil
}

// cancelPendingOrderEntries cancels the pending credit and any pending refund
// debits of an order.
func cancelPendingOrderEntries(ctx context.Context, q store.Queries, orderId, note string) error {
	entries, err := q.ListOrderEntries(ctx, orderId)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.Status != models.StatusPending {
			continue
		}
		if _, err := q.TransitionStatus(ctx, e.Id, models.StatusCancelled, note); err != nil {
			return err
		}
	}
	return nil
}
