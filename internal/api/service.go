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
	"fmt"

	"loyalty-points-go/internal/points"
	"loyalty-points-go/internal/store"
)

// LedgerService is the surface transport layers call. It never returns
// storage error text: failures come back as result structs or as short
// sanitized errors.
type LedgerService struct {
	store      store.LedgerStore
	calculator *points.Calculator
	orders     *points.OrderHandler
	redemption *points.RedemptionEngine
	expiry     *points.ExpiryEngine
	admin      *points.AdminHandler
	hooks      *points.Hooks
}

// NewLedgerService wires every engine to the same store, notifier and hooks.
func NewLedgerService(deps points.Deps) *LedgerService {
	if deps.Hooks == nil {
		deps.Hooks = points.NewHooks()
	}
	return &LedgerService{
		store:      deps.Store,
		hooks:      deps.Hooks,
		calculator: points.NewCalculator(deps.Store),
		orders:     points.NewOrderHandler(deps),
		redemption: points.NewRedemptionEngine(deps),
		expiry:     points.NewExpiryEngine(deps),
		admin:      points.NewAdminHandler(deps),
	}
}

// Hooks returns the event hooks shared by the engines
func (s *LedgerService) Hooks() *points.Hooks {
	return s.hooks
}

func (s *LedgerService) HealthCheck(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}
