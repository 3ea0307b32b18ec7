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

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"loyalty-points-go/internal/models"
	"loyalty-points-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	settingPointsEnabled     = "points_enabled"
	settingConversionRate    = "conversion_rate"
	settingCurrency          = "currency"
	settingPointsPerDollar   = "points_per_dollar"
	settingPointsPercentage  = "points_percentage"
	settingCalculationMethod = "point_calculation_method"
	settingMaxRedeemable     = "max_redeemable_percentage"
	settingExpiryDays        = "expiry_days"
	settingGraceDays         = "grace_days"
)

// GetSettings overlays stored keys on DefaultSettings. Keys that were never
// written keep their defaults.
func (q *queries) GetSettings(ctx context.Context) (models.Settings, error) {
	settings := models.DefaultSettings()

	rows, err := q.db.QueryContext(ctx, queryGetSettings)
	if err != nil {
		return settings, fmt.Errorf("%w: unable to query settings: %v", store.ErrSystem, err)
	}
	defer closeRows(rows)

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return settings, fmt.Errorf("%w: unable to scan setting: %v", store.ErrSystem, err)
		}
		if err := applySetting(&settings, key, value); err != nil {
			zap.L().Warn("Ignoring malformed setting",
				zap.String("key", key),
				zap.String("value", value),
				zap.Error(err))
		}
	}
	if err := rows.Err(); err != nil {
		return settings, fmt.Errorf("%w: error iterating settings: %v", store.ErrSystem, err)
	}
	return settings, nil
}

func applySetting(s *models.Settings, key, value string) error {
	var err error
	switch key {
	case settingPointsEnabled:
		s.PointsEnabled, err = strconv.ParseBool(value)
	case settingConversionRate:
		s.ConversionRate, err = decimal.NewFromString(value)
	case settingCurrency:
		s.Currency = value
	case settingPointsPerDollar:
		s.PointsPerDollar, err = decimal.NewFromString(value)
	case settingPointsPercentage:
		s.PointsPercentage, err = decimal.NewFromString(value)
	case settingCalculationMethod:
		s.CalculationMethod = models.CalculationMethod(value)
	case settingMaxRedeemable:
		s.MaxRedeemablePercentage, err = decimal.NewFromString(value)
	case settingExpiryDays:
		s.DefaultExpiryDays, err = strconv.Atoi(value)
	case settingGraceDays:
		s.DefaultGraceDays, err = strconv.Atoi(value)
	default:
		return fmt.Errorf("unknown setting %q", key)
	}
	return err
}

func validateSettings(s models.Settings) error {
	if s.ConversionRate.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w: conversion_rate must be positive", store.ErrValidation)
	}
	if s.Currency == "" {
		return fmt.Errorf("%w: currency is required", store.ErrValidation)
	}
	if s.CalculationMethod != models.MethodFixed && s.CalculationMethod != models.MethodPercentage {
		return fmt.Errorf("%w: unknown calculation method %q", store.ErrValidation, s.CalculationMethod)
	}
	if s.PointsPerDollar.IsNegative() || s.PointsPercentage.IsNegative() {
		return fmt.Errorf("%w: earning rates cannot be negative", store.ErrValidation)
	}
	if s.MaxRedeemablePercentage.IsNegative() || s.MaxRedeemablePercentage.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("%w: max_redeemable_percentage must be within [0, 100]", store.ErrValidation)
	}
	if s.DefaultExpiryDays <= 0 || s.DefaultGraceDays < 0 || s.DefaultGraceDays >= s.DefaultExpiryDays {
		return fmt.Errorf("%w: expiry_days must be positive and grace_days in [0, expiry_days)", store.ErrValidation)
	}
	return nil
}

// SaveSettings writes every key of s
func (q *queries) SaveSettings(ctx context.Context, s models.Settings) error {
	if err := validateSettings(s); err != nil {
		return err
	}

	values := map[string]string{
		settingPointsEnabled:     strconv.FormatBool(s.PointsEnabled),
		settingConversionRate:    s.ConversionRate.String(),
		settingCurrency:          s.Currency,
		settingPointsPerDollar:   s.PointsPerDollar.String(),
		settingPointsPercentage:  s.PointsPercentage.String(),
		settingCalculationMethod: string(s.CalculationMethod),
		settingMaxRedeemable:     s.MaxRedeemablePercentage.String(),
		settingExpiryDays:        strconv.Itoa(s.DefaultExpiryDays),
		settingGraceDays:         strconv.Itoa(s.DefaultGraceDays),
	}

	now := q.now()
	for key, value := range values {
		if _, err := q.db.ExecContext(ctx, queryUpsertSetting, key, value, now); err != nil {
			return fmt.Errorf("%w: unable to save setting %s: %v", store.ErrSystem, key, err)
		}
	}

	zap.L().Info("Settings saved",
		zap.Bool("points_enabled", s.PointsEnabled),
		zap.String("conversion_rate", s.ConversionRate.String()),
		zap.String("currency", s.Currency),
		zap.String("calculation_method", string(s.CalculationMethod)))
	return nil
}

func (q *queries) GetProductPoints(ctx context.Context, productId string) (*models.ProductPoints, error) {
	var pp models.ProductPoints
	var method string
	err := q.db.QueryRowContext(ctx, queryGetProductPoints, productId).Scan(&pp.ProductId, &method, &pp.Value, &pp.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no points configured for product %s", store.ErrNotFound, productId)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: unable to query product points: %v", store.ErrSystem, err)
	}
	pp.Type = models.CalculationMethod(method)
	return &pp, nil
}

func (q *queries) SaveProductPoints(ctx context.Context, pp models.ProductPoints) error {
	if pp.ProductId == "" {
		return fmt.Errorf("%w: product_id is required", store.ErrValidation)
	}
	if pp.Type != models.MethodFixed && pp.Type != models.MethodPercentage {
		return fmt.Errorf("%w: unknown product points type %q", store.ErrValidation, pp.Type)
	}
	if pp.Value.IsNegative() {
		return fmt.Errorf("%w: product points value cannot be negative", store.ErrValidation)
	}

	if _, err := q.db.ExecContext(ctx, queryUpsertProductPoints, pp.ProductId, string(pp.Type), pp.Value.String(), q.now()); err != nil {
		return fmt.Errorf("%w: unable to save product points: %v", store.ErrSystem, err)
	}
	zap.L().Debug("Product points saved",
		zap.String("product_id", pp.ProductId),
		zap.String("type", string(pp.Type)),
		zap.String("value", pp.Value.String()))
	return nil
}

// ProductPoints returns the per-unit points configured for a product. The
// second result is false when the product has no configuration.
func (q *queries) ProductPoints(ctx context.Context, productId string, unitPrice decimal.Decimal) (int64, bool, error) {
	pp, err := q.GetProductPoints(ctx, productId)
	if errors.Is(err, store.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return pp.UnitPoints(unitPrice), true, nil
}
