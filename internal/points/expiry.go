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
	"time"

	"loyalty-points-go/internal/models"
	"loyalty-points-go/internal/notify"
	"loyalty-points-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type expireOutcome int

const (
	outcomeExpired expireOutcome = iota
	outcomeSkipped
)

// ExpiryEngine ages out earned credits and warns users ahead of time.
// Sweeps are idempotent: markers in point_expirations and expiry_warnings
// keep a second run from repeating any side effect.
type ExpiryEngine struct {
	deps Deps
}

func NewExpiryEngine(deps Deps) *ExpiryEngine {
	return &ExpiryEngine{deps: deps.withDefaults()}
}

func (e *ExpiryEngine) rules(ctx context.Context) ([]models.ExpiryRule, error) {
	rules, err := e.deps.Store.ListExpiryRules(ctx, true)
	if err != nil {
		return nil, err
	}
	if len(rules) > 0 {
		return rules, nil
	}
	settings, err := e.deps.Settings.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	return []models.ExpiryRule{models.DefaultExpiryRule(settings)}, nil
}

// ProcessAll sweeps every user holding earned credits. A failing user is
// counted and the sweep moves on.
func (e *ExpiryEngine) ProcessAll(ctx context.Context) (models.ExpirySweepResult, error) {
	var total models.ExpirySweepResult

	userIds, err := e.deps.Store.ListUsersWithEarnedCredits(ctx)
	if err != nil {
		return total, err
	}

	for _, userId := range userIds {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		result, err := e.ProcessUserExpirations(ctx, userId)
		if err != nil {
			zap.L().Error("Expiry sweep failed for user", zap.String("user_id", userId), zap.Error(err))
			total.Failed++
			continue
		}
		total.Add(result)
	}

	zap.L().Info("Expiry sweep completed",
		zap.Int("users", total.UsersProcessed),
		zap.Int("expired", total.Expired),
		zap.Int64("points_expired", total.PointsExpired),
		zap.Int("warned", total.Warned),
		zap.Int("skipped", total.Skipped),
		zap.Int("failed", total.Failed))
	return total, nil
}

// ProcessUserExpirations applies every active rule, in priority order, to one
// user's earned credits.
func (e *ExpiryEngine) ProcessUserExpirations(ctx context.Context, userId string) (models.ExpirySweepResult, error) {
	result := models.ExpirySweepResult{UsersProcessed: 1}
	if userId == "" {
		return result, fmt.Errorf("%w: user id is required", store.ErrValidation)
	}

	rules, err := e.rules(ctx)
	if err != nil {
		return result, fmt.Errorf("unable to load expiry rules: %w", err)
	}

	now := e.deps.now()
	for _, rule := range rules {
		e.expireByRule(ctx, userId, rule, now, &result)
		e.warnByRule(ctx, userId, rule, now, &result)
	}

	if result.Expired > 0 || result.Warned > 0 {
		zap.L().Info("User expirations processed",
			zap.String("user_id", userId),
			zap.Int("expired", result.Expired),
			zap.Int64("points_expired", result.PointsExpired),
			zap.Int("warned", result.Warned),
			zap.Int("skipped", result.Skipped))
	}
	return result, nil
}

func (e *ExpiryEngine) expireByRule(ctx context.Context, userId string, rule models.ExpiryRule, now time.Time, result *models.ExpirySweepResult) {
	candidates, err := e.deps.Store.ListExpiryCandidates(ctx, store.ExpiryCandidateQuery{
		UserId:        userId,
		ActionTypes:   rule.ActionTypes,
		CreatedBefore: rule.Cutoff(now),
	})
	if err != nil {
		zap.L().Error("Failed to list expiry candidates",
			zap.String("user_id", userId),
			zap.String("rule", rule.Name),
			zap.Error(err))
		result.Failed++
		return
	}

	for _, candidate := range candidates {
		outcome, expired, err := e.expireEntry(ctx, rule, candidate.Id, now)
		if err != nil {
			zap.L().Error("Failed to expire ledger entry",
				zap.Int64("ledger_id", candidate.Id),
				zap.String("user_id", userId),
				zap.Error(err))
			result.Failed++
			continue
		}
		if outcome == outcomeSkipped {
			result.Skipped++
			continue
		}

		result.Expired++
		result.PointsExpired += expired
		e.deps.Hooks.Emit(ctx, Event{
			Type:       EventPointsExpired,
			UserId:     userId,
			OrderId:    candidate.OrderId,
			LedgerId:   candidate.Id,
			ActionType: candidate.ActionType,
			Points:     -expired,
			At:         now,
		})
		e.deps.notify(ctx, userId, notify.KindPointsExpired, notify.Payload{
			Points:  expired,
			OrderId: candidate.OrderId,
		})
	}
}

// expireEntry re-reads the entry inside the write transaction, records the
// marker and moves it to expired. A credit larger than the current balance
// was partly spent already: it still expires, and an expiry_adjustment credit
// gives back the consumed share so only the unspent remainder leaves the
// balance. Nothing is expired while the balance is zero or negative.
func (e *ExpiryEngine) expireEntry(ctx context.Context, rule models.ExpiryRule, ledgerId int64, now time.Time) (expireOutcome, int64, error) {
	outcome := outcomeSkipped
	var expired int64
	err := e.deps.Store.RunInTx(ctx, func(ctx context.Context, q store.Queries) error {
		entry, err := q.GetEntry(ctx, ledgerId)
		if err != nil {
			return err
		}
		if entry.Status != models.StatusEarned || !entry.IsCredit() {
			return nil
		}

		available, err := NewCalculator(q).Available(ctx, entry.UserId)
		if err != nil {
			return err
		}
		if available <= 0 {
			zap.L().Debug("Skipping credit with no balance left",
				zap.Int64("ledger_id", entry.Id),
				zap.Int64("points", entry.PointsAmount),
				zap.Int64("available", available))
			return nil
		}
		points := min(entry.PointsAmount, available)

		err = q.InsertExpiration(ctx, &models.Expiration{
			Id:        uuid.New().String(),
			LedgerId:  entry.Id,
			UserId:    entry.UserId,
			RuleId:    rule.Id,
			Points:    points,
			ExpiredAt: now,
		})
		if errors.Is(err, store.ErrDuplicate) {
			return nil
		}
		if err != nil {
			return err
		}

		if _, err := q.TransitionStatus(ctx, entry.Id, models.StatusExpired, fmt.Sprintf("expired by rule %s", rule.Name)); err != nil {
			return err
		}

		if spent := entry.PointsAmount - points; spent > 0 {
			_, err := q.AppendEntry(ctx, store.AppendParams{
				UserId:       entry.UserId,
				ProductId:    entry.ProductId,
				ActionType:   models.ActionExpiryAdjustment,
				PointsAmount: spent,
				Status:       models.StatusEarned,
				Description:  fmt.Sprintf("Spent share of expired entry %d", entry.Id),
			})
			if err != nil {
				return err
			}
			zap.L().Info("Expired partly spent credit",
				zap.Int64("ledger_id", entry.Id),
				zap.Int64("points", entry.PointsAmount),
				zap.Int64("expired", points),
				zap.Int64("spent", spent))
		}

		outcome = outcomeExpired
		expired = points
		return nil
	})
	if err != nil {
		return outcomeSkipped, 0, err
	}
	return outcome, expired, nil
}

func (e *ExpiryEngine) warnByRule(ctx context.Context, userId string, rule models.ExpiryRule, now time.Time, result *models.ExpirySweepResult) {
	if rule.GraceDays <= 0 {
		return
	}

	candidates, err := e.deps.Store.ListExpiryCandidates(ctx, store.ExpiryCandidateQuery{
		UserId:        userId,
		ActionTypes:   rule.ActionTypes,
		CreatedAfter:  rule.Cutoff(now),
		CreatedBefore: rule.WarningCutoff(now),
		WarningWindow: true,
	})
	if err != nil {
		zap.L().Error("Failed to list expiry warning candidates",
			zap.String("user_id", userId),
			zap.String("rule", rule.Name),
			zap.Error(err))
		result.Failed++
		return
	}

	for _, candidate := range candidates {
		err := e.deps.Store.InsertExpiryWarning(ctx, candidate.Id, userId, now)
		if errors.Is(err, store.ErrDuplicate) {
			continue
		}
		if err != nil {
			zap.L().Error("Failed to record expiry warning",
				zap.Int64("ledger_id", candidate.Id),
				zap.String("user_id", userId),
				zap.Error(err))
			result.Failed++
			continue
		}

		expiresAt := candidate.CreatedAt.AddDate(0, 0, rule.ExpiryDays)
		result.Warned++
		e.deps.Hooks.Emit(ctx, Event{
			Type:       EventExpiryWarned,
			UserId:     userId,
			OrderId:    candidate.OrderId,
			LedgerId:   candidate.Id,
			ActionType: candidate.ActionType,
			Points:     candidate.PointsAmount,
			At:         now,
		})
		e.deps.notify(ctx, userId, notify.KindExpiryWarning, notify.Payload{
			Points:    candidate.PointsAmount,
			OrderId:   candidate.OrderId,
			ExpiresAt: &expiresAt,
		})
	}
}
