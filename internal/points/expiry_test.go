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
	"testing"

	"loyalty-points-go/internal/models"
	"loyalty-points-go/internal/notify"
)

func TestExpiry_ExpiresOldCreditsOnce(t *testing.T) {
	f := setupTestDb(t)
	ctx := context.Background()
	engine := NewExpiryEngine(f.deps)

	old := f.credit(t, "user1", 100, testEpoch)
	f.credit(t, "user1", 40, testEpoch.AddDate(0, 0, 200))

	f.clock.Set(testEpoch.AddDate(0, 0, 366))
	result, err := engine.ProcessUserExpirations(ctx, "user1")
	if err != nil {
		t.Fatalf("ProcessUserExpirations failed: %v", err)
	}
	if result.Expired != 1 || result.PointsExpired != 100 {
		t.Errorf("Expected one entry of 100 expired, got %+v", result)
	}
	if got := f.available(t, "user1"); got != 40 {
		t.Errorf("Expected balance 40, got %d", got)
	}

	entry, err := f.db.GetEntry(ctx, old.Id)
	if err != nil {
		t.Fatalf("GetEntry failed: %v", err)
	}
	if entry.Status != models.StatusExpired {
		t.Errorf("Expected expired status, got %s", entry.Status)
	}

	second, err := engine.ProcessUserExpirations(ctx, "user1")
	if err != nil {
		t.Fatalf("Second sweep failed: %v", err)
	}
	if second.Expired != 0 || second.Warned != 0 {
		t.Errorf("Expected second sweep to do nothing, got %+v", second)
	}
	if f.sink.count(notify.KindPointsExpired) != 1 {
		t.Errorf("Expected exactly one expiry notification, got %d", f.sink.count(notify.KindPointsExpired))
	}

	expired, err := NewCalculator(f.db).Expired(ctx, "user1")
	if err != nil {
		t.Fatalf("Expired failed: %v", err)
	}
	if expired != 100 {
		t.Errorf("Expected expired total 100, got %d", expired)
	}
}

func TestExpiry_WarnsInsideGraceWindowOnce(t *testing.T) {
	f := setupTestDb(t)
	ctx := context.Background()
	engine := NewExpiryEngine(f.deps)

	entry := f.credit(t, "user1", 70, testEpoch)
	f.credit(t, "user1", 10, testEpoch.AddDate(0, 0, 300))

	// 340 days in: inside the 30 day warning window of the 365 day default.
	f.clock.Set(testEpoch.AddDate(0, 0, 340))
	for i := 0; i < 2; i++ {
		result, err := engine.ProcessUserExpirations(ctx, "user1")
		if err != nil {
			t.Fatalf("ProcessUserExpirations failed: %v", err)
		}
		if result.Expired != 0 {
			t.Errorf("Expected nothing expired yet, got %+v", result)
		}
	}

	if got := f.sink.count(notify.KindExpiryWarning); got != 1 {
		t.Fatalf("Expected one warning, got %d", got)
	}
	warning := f.sink.sent[len(f.sink.sent)-1]
	expected := entry.CreatedAt.AddDate(0, 0, 365)
	if warning.payload.ExpiresAt == nil || !warning.payload.ExpiresAt.Equal(expected) {
		t.Errorf("Expected warning for %v, got %v", expected, warning.payload.ExpiresAt)
	}
	if got := f.available(t, "user1"); got != 80 {
		t.Errorf("Expected balance untouched, got %d", got)
	}
}

func TestExpiry_PartlySpentCreditExpiresRemainder(t *testing.T) {
	f := setupTestDb(t)
	ctx := context.Background()

	old := f.credit(t, "user1", 100, testEpoch)
	if _, err := NewRedemptionEngine(f.deps).Redeem(ctx, RedeemRequest{UserId: "user1", Points: 60}); err != nil {
		t.Fatalf("Redeem failed: %v", err)
	}

	f.clock.Set(testEpoch.AddDate(0, 0, 400))
	engine := NewExpiryEngine(f.deps)
	result, err := engine.ProcessUserExpirations(ctx, "user1")
	if err != nil {
		t.Fatalf("ProcessUserExpirations failed: %v", err)
	}
	if result.Expired != 1 || result.PointsExpired != 40 {
		t.Errorf("Expected the unspent 40 points to expire, got %+v", result)
	}
	if got := f.available(t, "user1"); got != 0 {
		t.Errorf("Expected balance 0, got %d", got)
	}

	entry, err := f.db.GetEntry(ctx, old.Id)
	if err != nil {
		t.Fatalf("GetEntry failed: %v", err)
	}
	if entry.Status != models.StatusExpired {
		t.Errorf("Expected credit to be expired, got %s", entry.Status)
	}

	calc := NewCalculator(f.db)
	summary, err := calc.Summary(ctx, "user1")
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if summary.ExpiredTotal != 40 || summary.EarnedToDate != 100 {
		t.Errorf("Expected expired 40 and earned 100, got %+v", summary)
	}

	// The adjustment credit never becomes a candidate itself.
	f.credit(t, "user1", 25, testEpoch.AddDate(0, 0, 399))
	f.clock.Set(testEpoch.AddDate(0, 0, 400+366))
	result, err = engine.ProcessUserExpirations(ctx, "user1")
	if err != nil {
		t.Fatalf("ProcessUserExpirations failed: %v", err)
	}
	if result.Expired != 1 || result.PointsExpired != 25 {
		t.Errorf("Expected only the new credit to expire, got %+v", result)
	}
	if got := f.available(t, "user1"); got != 0 {
		t.Errorf("Expected balance 0, got %d", got)
	}
}

func TestExpiry_SkipsCreditWhenNothingIsLeft(t *testing.T) {
	f := setupTestDb(t)
	ctx := context.Background()

	f.credit(t, "user1", 100, testEpoch)
	if _, err := NewRedemptionEngine(f.deps).Redeem(ctx, RedeemRequest{UserId: "user1", Points: 100}); err != nil {
		t.Fatalf("Redeem failed: %v", err)
	}

	f.clock.Set(testEpoch.AddDate(0, 0, 400))
	result, err := NewExpiryEngine(f.deps).ProcessUserExpirations(ctx, "user1")
	if err != nil {
		t.Fatalf("ProcessUserExpirations failed: %v", err)
	}
	if result.Expired != 0 || result.Skipped != 1 {
		t.Errorf("Expected the credit to be skipped, got %+v", result)
	}
	if got := f.available(t, "user1"); got != 0 {
		t.Errorf("Expected balance 0, got %d", got)
	}
}

func TestExpiry_RulesByActionType(t *testing.T) {
	f := setupTestDb(t)
	ctx := context.Background()

	if err := f.db.SaveExpiryRule(ctx, &models.ExpiryRule{
		Name:        "bonus",
		ExpiryDays:  30,
		ActionTypes: []models.ActionType{models.ActionBonus},
		Priority:    1,
	}); err != nil {
		t.Fatalf("SaveExpiryRule failed: %v", err)
	}

	f.credit(t, "user1", 25, testEpoch)
	f.clock.Set(testEpoch)
	receipt, err := NewAdminHandler(f.deps).Assign(ctx, AdjustmentRequest{UserId: "user1", Points: 75, AdminId: "admin1", Reason: "goodwill"})
	if err != nil {
		t.Fatalf("Assign failed: %v", err)
	}

	f.clock.Set(testEpoch.AddDate(0, 0, 60))
	result, err := NewExpiryEngine(f.deps).ProcessUserExpirations(ctx, "user1")
	if err != nil {
		t.Fatalf("ProcessUserExpirations failed: %v", err)
	}
	if result.Expired != 1 || result.PointsExpired != 25 {
		t.Errorf("Expected only the bonus to expire, got %+v", result)
	}

	adminEntry, err := f.db.GetEntry(ctx, receipt.LedgerId)
	if err != nil {
		t.Fatalf("GetEntry failed: %v", err)
	}
	if adminEntry.Status != models.StatusEarned {
		t.Errorf("Expected admin credit to stay earned, got %s", adminEntry.Status)
	}
}

func TestExpiry_ProcessAll(t *testing.T) {
	f := setupTestDb(t)
	ctx := context.Background()

	f.credit(t, "user1", 10, testEpoch)
	f.credit(t, "user2", 20, testEpoch)
	f.credit(t, "user2", 5, testEpoch.AddDate(0, 0, 390))

	f.clock.Set(testEpoch.AddDate(0, 0, 400))
	result, err := NewExpiryEngine(f.deps).ProcessAll(ctx)
	if err != nil {
		t.Fatalf("ProcessAll failed: %v", err)
	}
	if result.UsersProcessed != 2 || result.Expired != 2 || result.PointsExpired != 30 {
		t.Errorf("Unexpected sweep result: %+v", result)
	}
	if got := f.available(t, "user2"); got != 5 {
		t.Errorf("Expected user2 balance 5, got %d", got)
	}
}
