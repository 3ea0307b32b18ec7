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

// ActionType tags the business origin of a ledger entry.
type ActionType string

const (
	ActionOrderPlacement     ActionType = "order_placement"
	ActionOrderComplete      ActionType = "order_complete"
	ActionPurchase           ActionType = "purchase"
	ActionRedemption         ActionType = "redemption"
	ActionRedemptionReversal ActionType = "redemption_reversal"
	ActionRefund             ActionType = "refund"
	ActionPartialRefund      ActionType = "partial_refund"
	ActionFullRefund         ActionType = "full_refund"
	ActionRefundReversal     ActionType = "refund_reversal"
	ActionAdminAssignment    ActionType = "admin_assignment"
	ActionAdminDeduction     ActionType = "admin_deduction"
	ActionAdminReset         ActionType = "admin_reset"
	ActionBonus              ActionType = "bonus"
	ActionExpiryAdjustment   ActionType = "expiry_adjustment"
)

var actionTypes = map[ActionType]struct{}{
	ActionOrderPlacement:     {},
	ActionOrderComplete:      {},
	ActionPurchase:           {},
	ActionRedemption:         {},
	ActionRedemptionReversal: {},
	ActionRefund:             {},
	ActionPartialRefund:      {},
	ActionFullRefund:         {},
	ActionRefundReversal:     {},
	ActionAdminAssignment:    {},
	ActionAdminDeduction:     {},
	ActionAdminReset:         {},
	ActionBonus:              {},
	ActionExpiryAdjustment:   {},
}

// Valid reports whether a is part of the fixed vocabulary.
func (a ActionType) Valid() bool {
	_, ok := actionTypes[a]
	return ok
}

// Status is the current disposition of a single ledger entry. It is not a
// running balance.
type Status string

const (
	StatusPending   Status = "pending"
	StatusEarned    Status = "earned"
	StatusRedeemed  Status = "redeemed"
	StatusExpired   Status = "expired"
	StatusRefunded  Status = "refunded"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusEarned, StatusRedeemed, StatusExpired, StatusRefunded, StatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether an entry in status s may move to status to.
// Cancelling is allowed from any live status; everything else follows the
// pending -> earned -> expired/redeemed chain.
func (s Status) CanTransition(to Status) bool {
	if to == StatusCancelled {
		return s != StatusCancelled
	}
	switch s {
	case StatusPending:
		return to == StatusEarned || to == StatusExpired
	case StatusEarned:
		return to == StatusExpired || to == StatusRedeemed
	}
	return false
}

// LedgerEntry is one signed points transaction. Positive amounts are
// credits, negative amounts debits. Only Status and ExpiresAt change after
// insertion.
type LedgerEntry struct {
	Id           int64      `db:"id"`
	UserId       string     `db:"user_id"`
	OrderId      string     `db:"order_id"`
	ProductId    string     `db:"product_id"`
	ActionType   ActionType `db:"action_type"`
	PointsAmount int64      `db:"points_amount"`
	Status       Status     `db:"status"`
	Description  string     `db:"description"`
	Notes        string     `db:"notes"`
	ExpiresAt    *time.Time `db:"expires_at"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
}

// IsCredit reports whether the entry adds points.
func (e *LedgerEntry) IsCredit() bool {
	return e.PointsAmount > 0
}

// RedemptionStatus is the lifecycle of a redemption record.
type RedemptionStatus string

const (
	RedemptionPending   RedemptionStatus = "pending"
	RedemptionCompleted RedemptionStatus = "completed"
	RedemptionRefunded  RedemptionStatus = "refunded"
	RedemptionCancelled RedemptionStatus = "cancelled"
)

// Redemption links a points debit to the discount it bought. Rate and
// currency are frozen at redemption time.
type Redemption struct {
	Id               string           `db:"id"`
	LedgerId         int64            `db:"ledger_id"`
	ReversalLedgerId int64            `db:"reversal_ledger_id"`
	UserId           string           `db:"user_id"`
	OrderId          string           `db:"order_id"`
	Points           int64            `db:"points"`
	DiscountValue    decimal.Decimal  `db:"discount_value"`
	ConversionRate   decimal.Decimal  `db:"conversion_rate"`
	Currency         string           `db:"currency"`
	Status           RedemptionStatus `db:"status"`
	CreatedAt        time.Time        `db:"created_at"`
	UpdatedAt        time.Time        `db:"updated_at"`
}

// OrderPointsState is the idempotency guard stored alongside an order.
type OrderPointsState struct {
	OrderId            string    `db:"order_id"`
	UserId             string    `db:"user_id"`
	PlacementLedgerId  int64     `db:"placement_ledger_id"`
	PointsAwarded      int64     `db:"points_awarded"`
	PlacedProcessed    bool      `db:"placed_processed"`
	CompletedProcessed bool      `db:"completed_processed"`
	FullyRefunded      bool      `db:"fully_refunded"`
	CreatedAt          time.Time `db:"created_at"`
	UpdatedAt          time.Time `db:"updated_at"`
}

// RefundPointsState is the idempotency guard for a single refund.
type RefundPointsState struct {
	RefundId       string    `db:"refund_id"`
	OrderId        string    `db:"order_id"`
	LedgerId       int64     `db:"ledger_id"`
	PointsDeducted int64     `db:"points_deducted"`
	CreatedAt      time.Time `db:"created_at"`
}

// Expiration marks a ledger entry as aged out by a rule.
type Expiration struct {
	Id        string    `db:"id"`
	LedgerId  int64     `db:"ledger_id"`
	UserId    string    `db:"user_id"`
	RuleId    int64     `db:"rule_id"`
	Points    int64     `db:"points"`
	ExpiredAt time.Time `db:"expired_at"`
}

// AuditLogEntry records one administrative adjustment.
type AuditLogEntry struct {
	Id             string     `db:"id"`
	AdminId        string     `db:"admin_id"`
	UserId         string     `db:"user_id"`
	ActionType     ActionType `db:"action_type"`
	PointsInvolved int64      `db:"points_involved"`
	LedgerId       int64      `db:"ledger_id"`
	IpAddress      string     `db:"ip_address"`
	Reason         string     `db:"reason"`
	CreatedAt      time.Time  `db:"created_at"`
}
