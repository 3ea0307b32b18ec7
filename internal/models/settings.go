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

// CalculationMethod selects how points are derived from a price.
type CalculationMethod string

const (
	MethodFixed      CalculationMethod = "fixed"
	MethodPercentage CalculationMethod = "percentage"
)

// Settings is the read-mostly program configuration. Changing it never
// rewrites existing ledger rows.
type Settings struct {
	PointsEnabled           bool              `yaml:"points_enabled" json:"points_enabled"`
	ConversionRate          decimal.Decimal   `yaml:"conversion_rate" json:"conversion_rate"`
	Currency                string            `yaml:"currency" json:"currency"`
	PointsPerDollar         decimal.Decimal   `yaml:"points_per_dollar" json:"points_per_dollar"`
	PointsPercentage        decimal.Decimal   `yaml:"points_percentage" json:"points_percentage"`
	CalculationMethod       CalculationMethod `yaml:"point_calculation_method" json:"point_calculation_method"`
	MaxRedeemablePercentage decimal.Decimal   `yaml:"max_redeemable_percentage" json:"max_redeemable_percentage"`
	DefaultExpiryDays       int               `yaml:"expiry_days" json:"expiry_days"`
	DefaultGraceDays        int               `yaml:"grace_days" json:"grace_days"`
}

// DefaultSettings returns the configuration used until anything is stored.
func DefaultSettings() Settings {
	return Settings{
		PointsEnabled:           true,
		ConversionRate:          decimal.NewFromInt(1),
		Currency:                "USD",
		PointsPerDollar:         decimal.NewFromInt(1),
		PointsPercentage:        decimal.Zero,
		CalculationMethod:       MethodFixed,
		MaxRedeemablePercentage: decimal.NewFromInt(100),
		DefaultExpiryDays:       365,
		DefaultGraceDays:        30,
	}
}

const (
	RuleActive   = "active"
	RuleInactive = "inactive"
)

// ExpiryRule ages out earned credits of the listed action types.
// An empty ActionTypes list applies to every credit.
type ExpiryRule struct {
	Id          int64        `db:"id"`
	Name        string       `db:"name"`
	ExpiryDays  int          `db:"expiry_days"`
	GraceDays   int          `db:"grace_days"`
	ActionTypes []ActionType `db:"action_types"`
	Priority    int          `db:"priority"`
	Status      string       `db:"status"`
	CreatedAt   time.Time    `db:"created_at"`
}

// DefaultExpiryRule is the fallback used when no active rule is stored.
func DefaultExpiryRule(s Settings) ExpiryRule {
	expiryDays := s.DefaultExpiryDays
	if expiryDays <= 0 {
		expiryDays = 365
	}
	graceDays := s.DefaultGraceDays
	if graceDays < 0 {
		graceDays = 30
	}
	return ExpiryRule{
		Name:       "default",
		ExpiryDays: expiryDays,
		GraceDays:  graceDays,
		Status:     RuleActive,
	}
}

// Applies reports whether the rule covers entries of the given action type.
func (r ExpiryRule) Applies(action ActionType) bool {
	if len(r.ActionTypes) == 0 {
		return true
	}
	for _, a := range r.ActionTypes {
		if a == action {
			return true
		}
	}
	return false
}

// Cutoff returns the creation time before which entries are expired.
func (r ExpiryRule) Cutoff(now time.Time) time.Time {
	return now.AddDate(0, 0, -r.ExpiryDays)
}

// WarningCutoff returns the creation time before which entries are inside
// the grace warning window.
func (r ExpiryRule) WarningCutoff(now time.Time) time.Time {
	return now.AddDate(0, 0, -(r.ExpiryDays - r.GraceDays))
}

// ProductPoints is the per-product earning configuration.
type ProductPoints struct {
	ProductId string            `db:"product_id" yaml:"product_id"`
	Type      CalculationMethod `db:"type" yaml:"type"`
	Value     decimal.Decimal   `db:"value" yaml:"value"`
	UpdatedAt time.Time         `db:"updated_at" yaml:"-"`
}

// UnitPoints returns the points earned by one unit sold at unitPrice.
// Fixed values are whole points per unit; percentage values are a share of
// the price. Fractions are floored.
func (p ProductPoints) UnitPoints(unitPrice decimal.Decimal) int64 {
	var points decimal.Decimal
	switch p.Type {
	case MethodFixed:
		points = p.Value
	case MethodPercentage:
		points = unitPrice.Mul(p.Value).Div(decimal.NewFromInt(100))
	default:
		return 0
	}
	if points.IsNegative() {
		return 0
	}
	return points.Floor().IntPart()
}
