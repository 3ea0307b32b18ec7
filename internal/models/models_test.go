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

package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestStatusCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		allowed  bool
	}{
		{StatusPending, StatusEarned, true},
		{StatusPending, StatusExpired, true},
		{StatusEarned, StatusExpired, true},
		{StatusEarned, StatusRedeemed, true},
		{StatusPending, StatusCancelled, true},
		{StatusEarned, StatusCancelled, true},
		{StatusExpired, StatusCancelled, true},
		{StatusCancelled, StatusCancelled, false},
		{StatusEarned, StatusPending, false},
		{StatusExpired, StatusEarned, false},
		{StatusRedeemed, StatusEarned, false},
		{StatusCancelled, StatusEarned, false},
		{StatusPending, StatusRedeemed, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			if got := tt.from.CanTransition(tt.to); got != tt.allowed {
				t.Errorf("Expected %v, got %v", tt.allowed, got)
			}
		})
	}
}

func TestActionTypeValid(t *testing.T) {
	if !ActionPartialRefund.Valid() || !ActionAdminReset.Valid() {
		t.Error("Expected known action types to be valid")
	}
	if ActionType("cashback").Valid() {
		t.Error("Expected unknown action type to be invalid")
	}
}

func TestProductPointsUnitPoints(t *testing.T) {
	price := decimal.NewFromInt(50)

	pct := ProductPoints{Type: MethodPercentage, Value: decimal.NewFromInt(10)}
	if got := pct.UnitPoints(price); got != 5 {
		t.Errorf("Expected 10%% of 50 to be 5, got %d", got)
	}

	fixed := ProductPoints{Type: MethodFixed, Value: decimal.NewFromInt(5)}
	if got := fixed.UnitPoints(price); got != 5 {
		t.Errorf("Expected fixed 5, got %d", got)
	}

	floored := ProductPoints{Type: MethodPercentage, Value: decimal.NewFromInt(3)}
	if got := floored.UnitPoints(decimal.RequireFromString("19.99")); got != 0 {
		t.Errorf("Expected 3%% of 19.99 to floor to 0, got %d", got)
	}
}

func TestExpiryRuleWindows(t *testing.T) {
	now := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	rule := ExpiryRule{ExpiryDays: 30, GraceDays: 7}

	if got := rule.Cutoff(now); !got.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Unexpected cutoff %v", got)
	}
	if got := rule.WarningCutoff(now); !got.Equal(time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Unexpected warning cutoff %v", got)
	}

	scoped := ExpiryRule{ActionTypes: []ActionType{ActionBonus}}
	if scoped.Applies(ActionOrderPlacement) || !scoped.Applies(ActionBonus) {
		t.Error("Expected rule to apply to bonus only")
	}
	if !DefaultExpiryRule(DefaultSettings()).Applies(ActionOrderPlacement) {
		t.Error("Expected default rule to apply to every action")
	}
}

func TestOrderRefundHelpers(t *testing.T) {
	order := Order{
		Id:    "o1",
		Total: decimal.NewFromInt(200),
		Refunds: []Refund{
			{Id: "r1", Total: decimal.NewFromInt(50)},
			{Id: "r2", Total: decimal.NewFromInt(-25)},
		},
	}
	if order.FindRefund("r2") == nil || order.FindRefund("r3") != nil {
		t.Error("Unexpected FindRefund result")
	}
	if !order.RefundedTotal().Equal(decimal.NewFromInt(75)) {
		t.Errorf("Expected 75 refunded, got %s", order.RefundedTotal())
	}
}
