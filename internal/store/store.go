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
	"context"
	"errors"
	"fmt"
	"time"

	"loyalty-points-go/internal/models"

	"github.com/shopspring/decimal"
)

// Sentinel errors shared by the store and the points engines.
var (
	ErrValidation              = errors.New("validation failed")
	ErrInsufficientBalance     = errors.New("insufficient points balance")
	ErrRedemptionLimitExceeded = errors.New("redemption limit exceeded")
	ErrInvalidTransition       = errors.New("invalid status transition")
	ErrNotFound                = errors.New("not found")
	ErrPermission              = errors.New("permission denied")
	ErrPointsDisabled          = errors.New("points system is disabled")
	ErrDuplicate               = errors.New("duplicate record")
	ErrSystem                  = errors.New("system error")
)

// AppendParams describes a new ledger entry.
type AppendParams struct {
	UserId       string
	OrderId      string
	ProductId    string
	ActionType   models.ActionType
	PointsAmount int64
	Status       models.Status
	Description  string
	Notes        string
	ExpiresAt    *time.Time
	CreatedAt    time.Time // zero means now
}

// Validate rejects drafts that can never become a ledger entry.
func (p AppendParams) Validate() error {
	if p.UserId == "" {
		return fmt.Errorf("%w: user_id is required", ErrValidation)
	}
	if p.PointsAmount == 0 {
		return fmt.Errorf("%w: points_amount cannot be zero", ErrValidation)
	}
	if !p.ActionType.Valid() {
		return fmt.Errorf("%w: unknown action_type %q", ErrValidation, p.ActionType)
	}
	if !p.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrValidation, p.Status)
	}
	return nil
}

// HistoryFilter narrows a user's ledger history. Zero values mean "any".
type HistoryFilter struct {
	Statuses    []models.Status
	ActionTypes []models.ActionType
	OrderId     string
	From        time.Time
	To          time.Time
	Limit       int
	Offset      int
}

// Aggregate names one of the derived balance queries.
type Aggregate int

const (
	AggregateAvailable Aggregate = iota
	AggregatePending
	AggregateEarnedToDate
	AggregateExpired
	AggregateRedeemed
)

func (a Aggregate) String() string {
	switch a {
	case AggregateAvailable:
		return "available"
	case AggregatePending:
		return "pending"
	case AggregateEarnedToDate:
		return "earned_to_date"
	case AggregateExpired:
		return "expired"
	case AggregateRedeemed:
		return "redeemed"
	}
	return fmt.Sprintf("aggregate(%d)", int(a))
}

// ExpiryCandidateQuery selects earned credits for the expiry sweep.
// With WarningWindow set, CreatedAfter bounds the window and entries that
// were already warned are excluded.
type ExpiryCandidateQuery struct {
	UserId        string
	ActionTypes   []models.ActionType
	CreatedBefore time.Time
	CreatedAfter  time.Time
	WarningWindow bool
	Limit         int
}

// CreateUserParams contains the parameters for registering a user.
type CreateUserParams struct {
	Id    string
	Name  string
	Email string
	Role  string
}

// LedgerQueries is the append-mostly ledger table.
type LedgerQueries interface {
	AppendEntry(ctx context.Context, params AppendParams) (*models.LedgerEntry, error)
	GetEntry(ctx context.Context, id int64) (*models.LedgerEntry, error)
	TransitionStatus(ctx context.Context, id int64, to models.Status, note string) (bool, error)
	SetExpiresAt(ctx context.Context, id int64, at time.Time) error
	QueryByUser(ctx context.Context, userId string, filter HistoryFilter) ([]models.LedgerEntry, error)
	CountByUser(ctx context.Context, userId string, filter HistoryFilter) (int, error)
	ListOrderEntries(ctx context.Context, orderId string) ([]models.LedgerEntry, error)
	SumPoints(ctx context.Context, userId string, agg Aggregate) (int64, error)
	ListUsersWithEarnedCredits(ctx context.Context) ([]string, error)
}

// OrderQueries holds per-order and per-refund idempotency guards and the
// stored order snapshots.
type OrderQueries interface {
	GetOrderState(ctx context.Context, orderId string) (*models.OrderPointsState, error)
	SaveOrderState(ctx context.Context, state *models.OrderPointsState) error
	GetRefundState(ctx context.Context, refundId string) (*models.RefundPointsState, error)
	InsertRefundState(ctx context.Context, state *models.RefundPointsState) error
	SumRefundedPoints(ctx context.Context, orderId string) (int64, error)
	SaveOrderSnapshot(ctx context.Context, order *models.Order) error
	GetOrder(ctx context.Context, orderId string) (*models.Order, error)
}

// RedemptionQueries holds redemption records.
type RedemptionQueries interface {
	InsertRedemption(ctx context.Context, r *models.Redemption) error
	GetRedemption(ctx context.Context, id string) (*models.Redemption, error)
	UpdateRedemptionStatus(ctx context.Context, id string, status models.RedemptionStatus, reversalLedgerId int64) error
	SumOrderDiscount(ctx context.Context, orderId string) (decimal.Decimal, error)
	ListUserRedemptions(ctx context.Context, userId string, limit, offset int) ([]models.Redemption, error)
}

// ExpiryQueries holds rules and the markers written by the sweep.
type ExpiryQueries interface {
	ListExpiryRules(ctx context.Context, activeOnly bool) ([]models.ExpiryRule, error)
	SaveExpiryRule(ctx context.Context, rule *models.ExpiryRule) error
	ListExpiryCandidates(ctx context.Context, q ExpiryCandidateQuery) ([]models.LedgerEntry, error)
	InsertExpiration(ctx context.Context, exp *models.Expiration) error
	InsertExpiryWarning(ctx context.Context, ledgerId int64, userId string, at time.Time) error
}

// AuditQueries holds the administrative audit trail.
type AuditQueries interface {
	InsertAuditLog(ctx context.Context, entry *models.AuditLogEntry) error
	ListAuditLog(ctx context.Context, userId string, limit, offset int) ([]models.AuditLogEntry, error)
}

// UserQueries holds account lookups.
type UserQueries interface {
	GetUsers(ctx context.Context) ([]models.User, error)
	GetUserById(ctx context.Context, userId string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, params CreateUserParams) (*models.User, error)
}

// SettingsQueries holds program settings and product earning rules.
type SettingsQueries interface {
	GetSettings(ctx context.Context) (models.Settings, error)
	SaveSettings(ctx context.Context, settings models.Settings) error
	GetProductPoints(ctx context.Context, productId string) (*models.ProductPoints, error)
	SaveProductPoints(ctx context.Context, pp models.ProductPoints) error
}

// Queries is everything that can run either standalone or inside RunInTx.
type Queries interface {
	LedgerQueries
	OrderQueries
	RedemptionQueries
	ExpiryQueries
	AuditQueries
	UserQueries
	SettingsQueries
}

// LedgerStore defines the contract every backend must satisfy.
type LedgerStore interface {
	Queries

	// RunInTx runs fn inside one serialised write transaction. Any error
	// returned by fn rolls back every write made through q.
	RunInTx(ctx context.Context, fn func(ctx context.Context, q Queries) error) error

	Ping(ctx context.Context) error
	Close()
}
