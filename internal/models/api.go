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
	"time"

	"github.com/shopspring/decimal"
)

// Result codes returned to transport layers
const (
	CodeOK                  = "ok"
	CodeInvalidRequest      = "invalid_request"
	CodeInsufficientBalance = "insufficient_balance"
	CodeRedemptionLimit     = "redemption_limit_exceeded"
	CodePointsDisabled      = "points_disabled"
	CodeNotFound            = "not_found"
	CodeInvalidTransition   = "invalid_transition"
	CodePermissionDenied    = "permission_denied"
	CodeInternalError       = "internal_error"
)

// HistoryRecord represents a ledger entry in the user's history
type HistoryRecord struct {
	Id          int64      `json:"id"`
	ActionType  string     `json:"action_type"`
	Points      int64      `json:"points"`
	Status      string     `json:"status"`
	OrderId     string     `json:"order_id,omitempty"`
	Description string     `json:"description,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// HistoryPage is one page of a user's ledger history
type HistoryPage struct {
	UserId   string          `json:"user_id"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
	Total    int             `json:"total"`
	Records  []HistoryRecord `json:"records"`
}

// RedemptionResult represents the result of redeeming points
type RedemptionResult struct {
	Success          bool            `json:"success"`
	RedemptionId     string          `json:"redemption_id,omitempty"`
	UserId           string          `json:"user_id,omitempty"`
	Points           int64           `json:"points,omitempty"`
	DiscountValue    decimal.Decimal `json:"discount_value"`
	Currency         string          `json:"currency,omitempty"`
	RemainingBalance int64           `json:"remaining_balance"`
	Code             string          `json:"code"`
	Error            string          `json:"error,omitempty"`
}

// RestoreResult represents the result of cancelling a redemption
type RestoreResult struct {
	Success        bool   `json:"success"`
	RedemptionId   string `json:"redemption_id,omitempty"`
	PointsRestored int64  `json:"points_restored,omitempty"`
	NewBalance     int64  `json:"new_balance"`
	Code           string `json:"code"`
	Error          string `json:"error,omitempty"`
}

// AdjustmentResult represents the result of an administrative adjustment
type AdjustmentResult struct {
	Success    bool   `json:"success"`
	UserId     string `json:"user_id,omitempty"`
	ActionType string `json:"action_type,omitempty"`
	Points     int64  `json:"points,omitempty"`
	NewBalance int64  `json:"new_balance"`
	Code       string `json:"code"`
	Error      string `json:"error,omitempty"`
}

// ExpirySweepResult summarises one expiry run
type ExpirySweepResult struct {
	UsersProcessed int   `json:"users_processed"`
	Expired        int   `json:"expired"`
	PointsExpired  int64 `json:"points_expired"`
	Warned         int   `json:"warned"`
	Skipped        int   `json:"skipped"`
	Failed         int   `json:"failed"`
}

// Add folds another sweep result into r
func (r *ExpirySweepResult) Add(other ExpirySweepResult) {
	r.UsersProcessed += other.UsersProcessed
	r.Expired += other.Expired
	r.PointsExpired += other.PointsExpired
	r.Warned += other.Warned
	r.Skipped += other.Skipped
	r.Failed += other.Failed
}
