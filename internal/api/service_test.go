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
	"path/filepath"
	"strings"
	"testing"
	"time"

	"loyalty-points-go/internal/database"
	"loyalty-points-go/internal/models"
	"loyalty-points-go/internal/points"
	"loyalty-points-go/internal/store"

	"github.com/shopspring/decimal"
)

func setupTestService(t *testing.T) (*LedgerService, *database.Service) {
	t.Helper()

	cfg := models.DatabaseConfig{
		Path:         filepath.Join(t.TempDir(), "api.db"),
		MaxOpenConns: 4,
		MaxIdleConns: 2,
		PingTimeout:  5 * time.Second,
		BusyTimeout:  5 * time.Second,
	}
	db, err := database.NewService(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Failed to create database service: %v", err)
	}
	t.Cleanup(db.Close)

	ctx := context.Background()
	for _, p := range []store.CreateUserParams{
		{Id: "user1", Name: "Alice", Email: "alice@example.com"},
		{Id: "admin1", Name: "Ops", Email: "ops@example.com", Role: models.RoleAdmin},
	} {
		if _, err := db.CreateUser(ctx, p); err != nil {
			t.Fatalf("Failed to create user: %v", err)
		}
	}

	return NewLedgerService(points.Deps{Store: db}), db
}

func credit(t *testing.T, db *database.Service, userId string, amount int64) {
	t.Helper()
	_, err := db.AppendEntry(context.Background(), store.AppendParams{
		UserId:       userId,
		ActionType:   models.ActionBonus,
		PointsAmount: amount,
		Status:       models.StatusEarned,
	})
	if err != nil {
		t.Fatalf("Failed to credit user: %v", err)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		code string
	}{
		{fmt.Errorf("%w: bad", store.ErrValidation), models.CodeInvalidRequest},
		{fmt.Errorf("%w: need 10", store.ErrInsufficientBalance), models.CodeInsufficientBalance},
		{fmt.Errorf("%w: cap", store.ErrRedemptionLimitExceeded), models.CodeRedemptionLimit},
		{store.ErrPointsDisabled, models.CodePointsDisabled},
		{store.ErrNotFound, models.CodeNotFound},
		{store.ErrInvalidTransition, models.CodeInvalidTransition},
		{store.ErrPermission, models.CodePermissionDenied},
		{fmt.Errorf("%w: disk I/O error", store.ErrSystem), models.CodeInternalError},
		{errors.New("unexpected"), models.CodeInternalError},
	}

	for _, tt := range tests {
		code, msg := classify(tt.err)
		if code != tt.code {
			t.Errorf("classify(%v) code = %s, want %s", tt.err, code, tt.code)
		}
		if strings.Contains(msg, "disk") || strings.Contains(msg, "need 10") {
			t.Errorf("classify(%v) leaked detail in message %q", tt.err, msg)
		}
	}
}

func TestHealthCheck(t *testing.T) {
	svc, _ := setupTestService(t)
	if err := svc.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck failed: %v", err)
	}
}

func TestBalancesAndHistory(t *testing.T) {
	svc, db := setupTestService(t)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		credit(t, db, "user1", 10)
	}

	balance, err := svc.GetAvailableBalance(ctx, "user1")
	if err != nil {
		t.Fatalf("GetAvailableBalance failed: %v", err)
	}
	if balance != 250 {
		t.Errorf("Expected available 250, got %d", balance)
	}

	pending, err := svc.GetPendingBalance(ctx, "user1")
	if err != nil {
		t.Fatalf("GetPendingBalance failed: %v", err)
	}
	if pending != 0 {
		t.Errorf("Expected pending 0, got %d", pending)
	}

	summary, err := svc.GetBalanceSummary(ctx, "user1")
	if err != nil {
		t.Fatalf("GetBalanceSummary failed: %v", err)
	}
	if summary.Available != 250 || summary.EarnedToDate != 250 {
		t.Errorf("Unexpected summary: %+v", summary)
	}

	page, err := svc.GetHistory(ctx, "user1", 2, 10)
	if err != nil {
		t.Fatalf("GetHistory failed: %v", err)
	}
	if page.Total != 25 || len(page.Records) != 10 || page.Page != 2 {
		t.Errorf("Unexpected page: total=%d records=%d page=%d", page.Total, len(page.Records), page.Page)
	}

	last, err := svc.GetHistory(ctx, "user1", 3, 10)
	if err != nil {
		t.Fatalf("GetHistory failed: %v", err)
	}
	if len(last.Records) != 5 {
		t.Errorf("Expected 5 records on last page, got %d", len(last.Records))
	}

	defaults, err := svc.GetHistory(ctx, "user1", 0, 1000)
	if err != nil {
		t.Fatalf("GetHistory failed: %v", err)
	}
	if defaults.Page != 1 || defaults.PageSize != defaultPageSize {
		t.Errorf("Expected page defaults, got page=%d size=%d", defaults.Page, defaults.PageSize)
	}

	if _, err := svc.GetHistory(ctx, "ghost", 1, 10); !errors.Is(err, ErrUnknownUser) {
		t.Errorf("Expected ErrUnknownUser, got %v", err)
	}
	if _, err := svc.GetAvailableBalance(ctx, ""); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("Expected ErrInvalidRequest, got %v", err)
	}
}

func TestRedeemAndCancel(t *testing.T) {
	svc, db := setupTestService(t)
	ctx := context.Background()
	credit(t, db, "user1", 100)

	result, err := svc.Redeem(ctx, "user1", 40, "", decimal.RequireFromString("0.05"), "")
	if err != nil {
		t.Fatalf("Redeem returned error: %v", err)
	}
	if !result.Success || result.Code != models.CodeOK {
		t.Fatalf("Expected success, got %+v", result)
	}
	if !result.DiscountValue.Equal(decimal.NewFromInt(2)) {
		t.Errorf("Expected discount 2, got %s", result.DiscountValue)
	}
	if result.RemainingBalance != 60 || result.Currency != "USD" {
		t.Errorf("Unexpected result: %+v", result)
	}

	restored, err := svc.CancelRedemption(ctx, result.RedemptionId)
	if err != nil {
		t.Fatalf("CancelRedemption returned error: %v", err)
	}
	if !restored.Success || restored.PointsRestored != 40 || restored.NewBalance != 100 {
		t.Errorf("Unexpected restore result: %+v", restored)
	}

	again, _ := svc.CancelRedemption(ctx, result.RedemptionId)
	if again.Success || again.Code != models.CodeInvalidTransition {
		t.Errorf("Expected invalid_transition on second cancel, got %+v", again)
	}

	missing, _ := svc.CancelRedemption(ctx, "no-such-redemption")
	if missing.Code != models.CodeNotFound {
		t.Errorf("Expected not_found, got %+v", missing)
	}
}

func TestRedeemFailuresAreSanitized(t *testing.T) {
	svc, db := setupTestService(t)
	ctx := context.Background()
	credit(t, db, "user1", 10)

	tests := []struct {
		name   string
		userId string
		points int64
		code   string
	}{
		{"zero points", "user1", 0, models.CodeInvalidRequest},
		{"missing user id", "", 5, models.CodeInvalidRequest},
		{"unknown user", "ghost", 5, models.CodeNotFound},
		{"insufficient", "user1", 11, models.CodeInsufficientBalance},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := svc.Redeem(ctx, tt.userId, tt.points, "", decimal.Zero, "")
			if err != nil {
				t.Fatalf("Redeem returned error: %v", err)
			}
			if result.Success {
				t.Fatalf("Expected failure")
			}
			if result.Code != tt.code {
				t.Errorf("Expected code %s, got %s (%s)", tt.code, result.Code, result.Error)
			}
			if strings.Contains(result.Error, "available") {
				t.Errorf("Error message leaked balance detail: %q", result.Error)
			}
		})
	}
}

func TestOrderFlow(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	order := &models.Order{
		Id:     "order-1",
		UserId: "user1",
		Total:  decimal.NewFromInt(50),
		Status: "processing",
		Items: []models.LineItem{
			{ProductId: "sku-1", Quantity: 1, LineTotal: decimal.NewFromInt(50)},
		},
	}
	if err := svc.RecordOrder(ctx, order); err != nil {
		t.Fatalf("RecordOrder failed: %v", err)
	}
	if !svc.ProcessOrderPlaced(ctx, "order-1") {
		t.Fatalf("ProcessOrderPlaced failed")
	}
	if pending, _ := svc.GetPendingBalance(ctx, "user1"); pending != 50 {
		t.Errorf("Expected pending 50, got %d", pending)
	}

	if !svc.ProcessOrderCompleted(ctx, "order-1") {
		t.Fatalf("ProcessOrderCompleted failed")
	}
	if available, _ := svc.GetAvailableBalance(ctx, "user1"); available != 50 {
		t.Errorf("Expected available 50, got %d", available)
	}

	order.Refunds = []models.Refund{{Id: "refund-1", ParentOrderId: "order-1", Total: decimal.NewFromInt(50)}}
	if err := svc.RecordOrder(ctx, order); err != nil {
		t.Fatalf("RecordOrder failed: %v", err)
	}
	if !svc.ProcessRefund(ctx, "order-1", "refund-1") {
		t.Fatalf("ProcessRefund failed")
	}
	if available, _ := svc.GetAvailableBalance(ctx, "user1"); available != 0 {
		t.Errorf("Expected available 0 after full refund, got %d", available)
	}

	if err := svc.RecordOrder(ctx, &models.Order{Id: "order-2"}); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("Expected ErrInvalidRequest, got %v", err)
	}
}

func TestAdminAdjustments(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	assigned, err := svc.AdminAssign(ctx, points.AdjustmentRequest{
		UserId: "user1", Points: 75, Reason: "goodwill", AdminId: "admin1",
	})
	if err != nil || !assigned.Success {
		t.Fatalf("AdminAssign failed: %v %+v", err, assigned)
	}
	if assigned.NewBalance != 75 || assigned.ActionType != string(models.ActionAdminAssignment) {
		t.Errorf("Unexpected assign result: %+v", assigned)
	}

	denied, _ := svc.AdminDeduct(ctx, points.AdjustmentRequest{
		UserId: "user1", Points: 5, Reason: "test", AdminId: "user1",
	})
	if denied.Success || denied.Code != models.CodePermissionDenied {
		t.Errorf("Expected permission_denied, got %+v", denied)
	}

	reset, _ := svc.AdminReset(ctx, points.AdjustmentRequest{
		UserId: "user1", Reason: "fraud", AdminId: "admin1",
	})
	if !reset.Success || reset.Points != -75 || reset.NewBalance != 0 {
		t.Errorf("Unexpected reset result: %+v", reset)
	}

	missing, _ := svc.AdminAssign(ctx, points.AdjustmentRequest{UserId: "user1", Points: 1})
	if missing.Code != models.CodeInvalidRequest {
		t.Errorf("Expected invalid_request without admin id, got %+v", missing)
	}
}

func TestRunExpirySweep(t *testing.T) {
	svc, db := setupTestService(t)
	ctx := context.Background()
	credit(t, db, "user1", 10)

	result, err := svc.RunExpirySweep(ctx, "")
	if err != nil {
		t.Fatalf("RunExpirySweep failed: %v", err)
	}
	if result.Expired != 0 || result.Failed != 0 {
		t.Errorf("Expected nothing to expire for fresh credits, got %+v", result)
	}

	single, err := svc.RunExpirySweep(ctx, "user1")
	if err != nil {
		t.Fatalf("RunExpirySweep failed: %v", err)
	}
	if single.UsersProcessed != 1 {
		t.Errorf("Expected one user processed, got %d", single.UsersProcessed)
	}
}
