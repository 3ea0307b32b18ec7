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

package common

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"loyalty-points-go/internal/models"
	"loyalty-points-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

// SettingsOverrides holds the settings keys present in a program file.
// Unset keys keep their stored value.
type SettingsOverrides struct {
	PointsEnabled           *bool  `yaml:"points_enabled"`
	ConversionRate          string `yaml:"conversion_rate"`
	Currency                string `yaml:"currency"`
	PointsPerDollar         string `yaml:"points_per_dollar"`
	PointsPercentage        string `yaml:"points_percentage"`
	CalculationMethod       string `yaml:"point_calculation_method"`
	MaxRedeemablePercentage string `yaml:"max_redeemable_percentage"`
	ExpiryDays              *int   `yaml:"expiry_days"`
	GraceDays               *int   `yaml:"grace_days"`
}

type RuleConfig struct {
	Name        string   `yaml:"name"`
	ExpiryDays  int      `yaml:"expiry_days"`
	GraceDays   int      `yaml:"grace_days"`
	ActionTypes []string `yaml:"action_types"`
	Priority    int      `yaml:"priority"`
	Inactive    bool     `yaml:"inactive"`
}

type ProductConfig struct {
	ProductId string `yaml:"product_id"`
	Type      string `yaml:"type"`
	Value     string `yaml:"value"`
}

type UserConfig struct {
	Id    string `yaml:"id"`
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
	Role  string `yaml:"role"`
}

// ProgramConfig is the YAML file that seeds the loyalty program
type ProgramConfig struct {
	Settings    SettingsOverrides `yaml:"settings"`
	ExpiryRules []RuleConfig      `yaml:"expiry_rules"`
	Products    []ProductConfig   `yaml:"products"`
	Users       []UserConfig      `yaml:"users"`
}

func LoadProgramConfig(programFile string) (*ProgramConfig, error) {
	var programPath string
	if filepath.IsAbs(programFile) {
		programPath = programFile
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		programPath = filepath.Join(wd, programFile)
	}

	data, err := os.ReadFile(programPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", programFile, err)
	}

	var config ProgramConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", programFile, err)
	}

	for i, rule := range config.ExpiryRules {
		if rule.Name == "" {
			return nil, fmt.Errorf("expiry rule at index %d missing name", i)
		}
	}
	for i, product := range config.Products {
		if product.ProductId == "" {
			return nil, fmt.Errorf("product at index %d missing product_id", i)
		}
	}
	for i, user := range config.Users {
		if user.Email == "" {
			return nil, fmt.Errorf("user at index %d missing email", i)
		}
	}

	return &config, nil
}

// Merge applies the overrides on top of s
func (o SettingsOverrides) Merge(s models.Settings) (models.Settings, error) {
	if o.PointsEnabled != nil {
		s.PointsEnabled = *o.PointsEnabled
	}
	decimals := []struct {
		key   string
		value string
		dst   *decimal.Decimal
	}{
		{"conversion_rate", o.ConversionRate, &s.ConversionRate},
		{"points_per_dollar", o.PointsPerDollar, &s.PointsPerDollar},
		{"points_percentage", o.PointsPercentage, &s.PointsPercentage},
		{"max_redeemable_percentage", o.MaxRedeemablePercentage, &s.MaxRedeemablePercentage},
	}
	for _, d := range decimals {
		if d.value == "" {
			continue
		}
		v, err := decimal.NewFromString(d.value)
		if err != nil {
			return s, fmt.Errorf("invalid %s %q: %w", d.key, d.value, err)
		}
		*d.dst = v
	}
	if o.Currency != "" {
		s.Currency = o.Currency
	}
	if o.CalculationMethod != "" {
		s.CalculationMethod = models.CalculationMethod(o.CalculationMethod)
	}
	if o.ExpiryDays != nil {
		s.DefaultExpiryDays = *o.ExpiryDays
	}
	if o.GraceDays != nil {
		s.DefaultGraceDays = *o.GraceDays
	}
	return s, nil
}

// ApplyProgramConfig writes the program file into the store. Rules are
// matched by name so applying the same file twice changes nothing.
func ApplyProgramConfig(ctx context.Context, db store.Queries, config *ProgramConfig) error {
	current, err := db.GetSettings(ctx)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	merged, err := config.Settings.Merge(current)
	if err != nil {
		return err
	}
	if err := db.SaveSettings(ctx, merged); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	existing, err := db.ListExpiryRules(ctx, false)
	if err != nil {
		return fmt.Errorf("failed to list expiry rules: %w", err)
	}
	ruleIds := make(map[string]int64, len(existing))
	for _, r := range existing {
		ruleIds[r.Name] = r.Id
	}

	for _, rc := range config.ExpiryRules {
		rule := models.ExpiryRule{
			Id:         ruleIds[rc.Name],
			Name:       rc.Name,
			ExpiryDays: rc.ExpiryDays,
			GraceDays:  rc.GraceDays,
			Priority:   rc.Priority,
			Status:     models.RuleActive,
		}
		if rc.Inactive {
			rule.Status = models.RuleInactive
		}
		for _, a := range rc.ActionTypes {
			rule.ActionTypes = append(rule.ActionTypes, models.ActionType(a))
		}
		if err := db.SaveExpiryRule(ctx, &rule); err != nil {
			return fmt.Errorf("failed to save expiry rule %s: %w", rc.Name, err)
		}
	}

	for _, pc := range config.Products {
		value, err := decimal.NewFromString(pc.Value)
		if err != nil {
			return fmt.Errorf("invalid value %q for product %s: %w", pc.Value, pc.ProductId, err)
		}
		pp := models.ProductPoints{
			ProductId: pc.ProductId,
			Type:      models.CalculationMethod(pc.Type),
			Value:     value,
		}
		if err := db.SaveProductPoints(ctx, pp); err != nil {
			return fmt.Errorf("failed to save product points for %s: %w", pc.ProductId, err)
		}
	}

	for _, uc := range config.Users {
		_, err := db.CreateUser(ctx, store.CreateUserParams{
			Id:    uc.Id,
			Name:  uc.Name,
			Email: uc.Email,
			Role:  uc.Role,
		})
		if errors.Is(err, store.ErrDuplicate) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to create user %s: %w", uc.Email, err)
		}
	}

	zap.L().Info("Applied program configuration",
		zap.Int("expiry_rules", len(config.ExpiryRules)),
		zap.Int("products", len(config.Products)),
		zap.Int("users", len(config.Users)))
	return nil
}
