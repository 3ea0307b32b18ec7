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

package store

import (
	"errors"
	"fmt"
	"testing"

	"loyalty-points-go/internal/models"
)

func TestAppendParamsValidate(t *testing.T) {
	valid := AppendParams{
		UserId:       "user1",
		ActionType:   models.ActionBonus,
		PointsAmount: 10,
		Status:       models.StatusEarned,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Expected valid params, got %v", err)
	}

	cases := map[string]func(p *AppendParams){
		"zero amount":    func(p *AppendParams) { p.PointsAmount = 0 },
		"missing user":   func(p *AppendParams) { p.UserId = "" },
		"unknown action": func(p *AppendParams) { p.ActionType = "gift" },
		"unknown status": func(p *AppendParams) { p.Status = "settled" },
	}
	for name, mutate := range cases {
		p := valid
		mutate(&p)
		err := p.Validate()
		if !errors.Is(err, ErrValidation) {
			t.Errorf("%s: expected ErrValidation, got %v", name, err)
		}
	}
}

func TestSentinelsSurviveWrapping(t *testing.T) {
	wrapped := fmt.Errorf("redeem failed: %w", fmt.Errorf("%w: need 10", ErrInsufficientBalance))
	if !errors.Is(wrapped, ErrInsufficientBalance) {
		t.Errorf("Expected wrapped error to match ErrInsufficientBalance")
	}
	if errors.Is(wrapped, ErrRedemptionLimitExceeded) {
		t.Errorf("Did not expect wrapped error to match ErrRedemptionLimitExceeded")
	}

	// Ensure the interface is usable as a type.
	var _ LedgerStore
}
