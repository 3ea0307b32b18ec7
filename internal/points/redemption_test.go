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
	"sync"
	"testing"

	"loyalty-points-go/internal/models"
	"loyalty-points-go/internal/notify"
	"loyalty-points-go/internal/store"

	"github.com/shopspring/decimal"
)

func TestRedeem_DebitsAndRecordsDiscount(t *testing.T) {
	f := setupTestDb(t)
	ctx := context.Background()
	engine := NewRedemptionEngine(f.deps)

	f.credit(t, "user1", 1000, testEpoch)
	receipt, err := engine.Redeem(ctx, RedeemRequest{
		UserId:   "user1",
		Points:   500,
		Rate:     decimal.RequireFromString("0.01"),
		Currency: "USD",
	})
	if err != nil {
		t.Fatalf("Redeem failed: %v", err)
	}

	if !receipt.Redemption.DiscountValue.Equal(decimal.NewFromInt(5)) {
		t.Errorf("Expected discount 5, got %s", receipt.Redemption.DiscountValue)
	}
	if receipt.RemainingBalance != 500 || f.available(t, "user1") != 500 {
		t.Errorf("Expected remaining 500, got receipt %d ledger %d", receipt.RemainingBalance, f.available(t, "user1"))
	}

	stored, err := f.db.GetRedemption(ctx, receipt.Redemption.Id)
	if err != nil {
		t.Fatalf("GetRedemption failed: %v", err)
	}
	if stored.Status != models.RedemptionCompleted || stored.Points != 500 {
		t.Errorf("Unexpected redemption: %+v", stored)
	}
	debit, err := f.db.GetEntry(ctx, stored.LedgerId)
	if err != nil {
		t.Fatalf("GetEntry failed: %v", err)
	}
	if debit.ActionType != models.ActionRedemption || debit.PointsAmount != -500 || debit.Status != models.StatusEarned {
		t.Errorf("Unexpected debit: %+v", debit)
	}
	if f.sink.count(notify.KindPointsRedeemed) != 1 {
		t.Error("Expected one redemption notification")
	}
}

func TestRedeem_DefaultsFromSettings(t *testing.T) {
	f := setupTestDb(t)
	f.updateSettings(t, func(s *models.Settings) {
		s.ConversionRate = decimal.RequireFromString("0.05")
		s.Currency = "EUR"
	})
	f.credit(t, "user1", 100, testEpoch)

	receipt, err := NewRedemptionEngine(f.deps).Redeem(context.Background(), RedeemRequest{UserId: "user1", Points: 40})
	if err != nil {
		t.Fatalf("Redeem failed: %v", err)
	}
	if !receipt.Redemption.DiscountValue.Equal(decimal.NewFromInt(2)) || receipt.Redemption.Currency != "EUR" {
		t.Errorf("Expected 2 EUR, got %s %s", receipt.Redemption.DiscountValue, receipt.Redemption.Currency)
	}
	if !receipt.Redemption.ConversionRate.Equal(decimal.RequireFromString("0.05")) {
		t.Errorf("Expected frozen rate 0.05, got %s", receipt.Redemption.ConversionRate)
	}
}

func TestRedeem_Rejections(t *testing.T) {
	f := setupTestDb(t)
	ctx := context.Background()
	engine := NewRedemptionEngine(f.deps)
	f.credit(t, "user1", 100, testEpoch)

	tests := []struct {
		name string
		req  RedeemRequest
		want error
	}{
		{"zero points", RedeemRequest{UserId: "user1", Points: 0}, store.ErrValidation},
		{"negative points", RedeemRequest{UserId: "user1", Points: -5}, store.ErrValidation},
		{"unknown user", RedeemRequest{UserId: "ghost", Points: 5}, store.ErrNotFound},
		{"more than available", RedeemRequest{UserId: "user1", Points: 101}, store.ErrInsufficientBalance},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := engine.Redeem(ctx, tt.req); !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}

	f.updateSettings(t, func(s *models.Settings) { s.PointsEnabled = false })
	if _, err := engine.Redeem(ctx, RedeemRequest{UserId: "user1", Points: 5}); !errors.Is(err, store.ErrPointsDisabled) {
		t.Errorf("Expected ErrPointsDisabled, got %v", err)
	}
	if got := f.available(t, "user1"); got != 100 {
		t.Errorf("Expected balance untouched, got %d", got)
	}
}

func TestRedeem_OrderCap(t *testing.T) {
	f := setupTestDb(t)
	ctx := context.Background()
	engine := NewRedemptionEngine(f.deps)

	f.updateSettings(t, func(s *models.Settings) { s.MaxRedeemablePercentage = decimal.NewFromInt(20) })
	f.saveOrder(t, simpleOrder("o1", "user1", "100.00"))
	f.credit(t, "user1", 1000, testEpoch)

	req := RedeemRequest{UserId: "user1", OrderId: "o1", Rate: decimal.NewFromInt(1)}

	req.Points = 25
	if _, err := engine.Redeem(ctx, req); !errors.Is(err, store.ErrRedemptionLimitExceeded) {
		t.Fatalf("Expected 25 to exceed the cap, got %v", err)
	}
	req.Points = 20
	if _, err := engine.Redeem(ctx, req); err != nil {
		t.Fatalf("Expected 20 to fit the cap, got %v", err)
	}
	req.Points = 1
	if _, err := engine.Redeem(ctx, req); !errors.Is(err, store.ErrRedemptionLimitExceeded) {
		t.Fatalf("Expected cap to be exhausted, got %v", err)
	}
	if got := f.available(t, "user1"); got != 980 {
		t.Errorf("Expected balance 980, got %d", got)
	}
}

func TestRedeem_RejectsAnotherUsersOrder(t *testing.T) {
	f := setupTestDb(t)
	ctx := context.Background()
	engine := NewRedemptionEngine(f.deps)

	f.updateSettings(t, func(s *models.Settings) { s.MaxRedeemablePercentage = decimal.NewFromInt(20) })
	f.saveOrder(t, simpleOrder("o2", "user2", "100.00"))
	f.credit(t, "user1", 1000, testEpoch)
	f.credit(t, "user2", 1000, testEpoch)

	_, err := engine.Redeem(ctx, RedeemRequest{UserId: "user1", OrderId: "o2", Points: 20, Rate: decimal.NewFromInt(1)})
	if !errors.Is(err, store.ErrPermission) {
		t.Fatalf("Expected ErrPermission, got %v", err)
	}
	if got := f.available(t, "user1"); got != 1000 {
		t.Errorf("Expected user1 balance untouched, got %d", got)
	}

	if _, err := engine.Redeem(ctx, RedeemRequest{UserId: "user2", OrderId: "o2", Points: 20, Rate: decimal.NewFromInt(1)}); err != nil {
		t.Fatalf("Expected owner to use the full cap, got %v", err)
	}
	if got := f.available(t, "user2"); got != 980 {
		t.Errorf("Expected balance 980, got %d", got)
	}
}

func TestCancelRedemption_RestoresBalance(t *testing.T) {
	f := setupTestDb(t)
	ctx := context.Background()
	engine := NewRedemptionEngine(f.deps)

	f.credit(t, "user1", 300, testEpoch)
	before, err := f.db.CountByUser(ctx, "user1", store.HistoryFilter{})
	if err != nil {
		t.Fatalf("CountByUser failed: %v", err)
	}
	receipt, err := engine.Redeem(ctx, RedeemRequest{UserId: "user1", Points: 200})
	if err != nil {
		t.Fatalf("Redeem failed: %v", err)
	}

	restore, err := engine.Cancel(ctx, receipt.Redemption.Id)
	if err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if restore.PointsRestored != 200 || restore.NewBalance != 300 {
		t.Errorf("Expected 200 restored to 300, got %+v", restore)
	}
	if got := f.available(t, "user1"); got != 300 {
		t.Errorf("Expected balance 300, got %d", got)
	}
	after, err := f.db.CountByUser(ctx, "user1", store.HistoryFilter{})
	if err != nil {
		t.Fatalf("CountByUser failed: %v", err)
	}
	if after != before+2 {
		t.Errorf("Expected a debit and a reversal appended, got %d rows after %d", after, before)
	}

	debit, err := f.db.GetEntry(ctx, receipt.Redemption.LedgerId)
	if err != nil {
		t.Fatalf("GetEntry failed: %v", err)
	}
	if debit.PointsAmount != -200 || debit.Status != models.StatusEarned {
		t.Errorf("Expected original debit untouched, got %+v", debit)
	}

	stored, err := f.db.GetRedemption(ctx, receipt.Redemption.Id)
	if err != nil {
		t.Fatalf("GetRedemption failed: %v", err)
	}
	if stored.Status != models.RedemptionCancelled || stored.ReversalLedgerId == 0 {
		t.Errorf("Expected cancelled with reversal entry, got %+v", stored)
	}

	redeemed, err := NewCalculator(f.db).Redeemed(ctx, "user1")
	if err != nil {
		t.Fatalf("Redeemed failed: %v", err)
	}
	if redeemed != 0 {
		t.Errorf("Expected net redeemed 0, got %d", redeemed)
	}

	if _, err := engine.Cancel(ctx, receipt.Redemption.Id); !errors.Is(err, store.ErrInvalidTransition) {
		t.Errorf("Expected second cancel to fail with ErrInvalidTransition, got %v", err)
	}
	if _, err := engine.Cancel(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if got := f.available(t, "user1"); got != 300 {
		t.Errorf("Expected balance 300 after rejected cancels, got %d", got)
	}
}

type failingRedemptionStore struct {
	store.LedgerStore
}

func (s failingRedemptionStore) RunInTx(ctx context.Context, fn func(ctx context.Context, q store.Queries) error) error {
	return s.LedgerStore.RunInTx(ctx, func(ctx context.Context, q store.Queries) error {
		return fn(ctx, failingRedemptionQueries{q})
	})
}

type failingRedemptionQueries struct {
	store.Queries
}

func (failingRedemptionQueries) InsertRedemption(context.Context, *models.Redemption) error {
	return fmt.Errorf("%w: disk full", store.ErrSystem)
}

func TestRedeem_AtomicWithRedemptionRecord(t *testing.T) {
	f := setupTestDb(t)
	ctx := context.Background()
	f.credit(t, "user1", 100, testEpoch)

	deps := f.deps
	deps.Store = failingRedemptionStore{f.db}
	_, err := NewRedemptionEngine(deps).Redeem(ctx, RedeemRequest{UserId: "user1", Points: 60})
	if !errors.Is(err, store.ErrSystem) {
		t.Fatalf("Expected ErrSystem, got %v", err)
	}

	if got := f.available(t, "user1"); got != 100 {
		t.Errorf("Expected balance 100 after failed redemption, got %d", got)
	}
	count, err := f.db.CountByUser(ctx, "user1", store.HistoryFilter{ActionTypes: []models.ActionType{models.ActionRedemption}})
	if err != nil {
		t.Fatalf("CountByUser failed: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected no redemption debit to persist, got %d", count)
	}
	redemptions, err := f.db.ListUserRedemptions(ctx, "user1", 0, 0)
	if err != nil {
		t.Fatalf("ListUserRedemptions failed: %v", err)
	}
	if len(redemptions) != 0 {
		t.Errorf("Expected no redemption rows, got %d", len(redemptions))
	}
}

func TestRedeem_ConcurrentRequestsNeverOverspend(t *testing.T) {
	f := setupTestDb(t)
	ctx := context.Background()
	engine := NewRedemptionEngine(f.deps)
	f.credit(t, "user1", 100, testEpoch)

	const workers = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded, insufficient := 0, 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.Redeem(ctx, RedeemRequest{UserId: "user1", Points: 30})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, store.ErrInsufficientBalance):
				insufficient++
			default:
				t.Errorf("Unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 3 || insufficient != workers-3 {
		t.Errorf("Expected 3 successes and %d rejections, got %d and %d", workers-3, succeeded, insufficient)
	}
	if got := f.available(t, "user1"); got != 10 {
		t.Errorf("Expected balance 10, got %d", got)
	}
}
