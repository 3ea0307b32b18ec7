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

package points

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"loyalty-points-go/internal/database"
	"loyalty-points-go/internal/models"
	"loyalty-points-go/internal/notify"
	"loyalty-points-go/internal/store"

	"github.com/shopspring/decimal"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type sentNotification struct {
	userId  string
	kind    notify.Kind
	payload notify.Payload
}

type recordingSink struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (s *recordingSink) Notify(_ context.Context, userId string, kind notify.Kind, payload notify.Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sentNotification{userId, kind, payload})
	return nil
}

func (s *recordingSink) count(kind notify.Kind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, m := range s.sent {
		if m.kind == kind {
			n++
		}
	}
	return n
}

type fixture struct {
	db    *database.Service
	sink  *recordingSink
	clock *fakeClock
	deps  Deps
}

var testEpoch = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

func setupTestDb(t *testing.T) *fixture {
	t.Helper()

	cfg := models.DatabaseConfig{
		Path:         filepath.Join(t.TempDir(), "points.db"),
		MaxOpenConns: 8,
		MaxIdleConns: 4,
		PingTimeout:  5 * time.Second,
		BusyTimeout:  10 * time.Second,
	}
	db, err := database.NewService(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Failed to create database service: %v", err)
	}
	t.Cleanup(db.Close)

	clock := &fakeClock{now: testEpoch}
	db.WithClock(clock.Now)

	ctx := context.Background()
	if _, err := db.CreateUser(ctx, store.CreateUserParams{Id: "user1", Name: "Alice", Email: "alice@example.com"}); err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	if _, err := db.CreateUser(ctx, store.CreateUserParams{Id: "user2", Name: "Bob", Email: "bob@example.com"}); err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	if _, err := db.CreateUser(ctx, store.CreateUserParams{Id: "admin1", Name: "Ops", Email: "ops@example.com", Role: models.RoleAdmin}); err != nil {
		t.Fatalf("Failed to create admin: %v", err)
	}

	sink := &recordingSink{}
	return &fixture{
		db:    db,
		sink:  sink,
		clock: clock,
		deps: Deps{
			Store:    db,
			Notifier: sink,
			Now:      clock.Now,
		},
	}
}

func (f *fixture) updateSettings(t *testing.T, mutate func(s *models.Settings)) {
	t.Helper()
	ctx := context.Background()
	settings, err := f.db.GetSettings(ctx)
	if err != nil {
		t.Fatalf("GetSettings failed: %v", err)
	}
	mutate(&settings)
	if err := f.db.SaveSettings(ctx, settings); err != nil {
		t.Fatalf("SaveSettings failed: %v", err)
	}
}

func (f *fixture) credit(t *testing.T, userId string, points int64, createdAt time.Time) *models.LedgerEntry {
	t.Helper()
	entry, err := f.db.AppendEntry(context.Background(), store.AppendParams{
		UserId:       userId,
		ActionType:   models.ActionBonus,
		PointsAmount: points,
		Status:       models.StatusEarned,
		CreatedAt:    createdAt,
	})
	if err != nil {
		t.Fatalf("Failed to credit user: %v", err)
	}
	return entry
}

func (f *fixture) saveOrder(t *testing.T, order *models.Order) {
	t.Helper()
	if err := f.db.SaveOrderSnapshot(context.Background(), order); err != nil {
		t.Fatalf("SaveOrderSnapshot failed: %v", err)
	}
}

func (f *fixture) available(t *testing.T, userId string) int64 {
	t.Helper()
	v, err := NewCalculator(f.db).Available(context.Background(), userId)
	if err != nil {
		t.Fatalf("Available failed: %v", err)
	}
	return v
}

func (f *fixture) pending(t *testing.T, userId string) int64 {
	t.Helper()
	v, err := NewCalculator(f.db).Pending(context.Background(), userId)
	if err != nil {
		t.Fatalf("Pending failed: %v", err)
	}
	return v
}

func (f *fixture) orderEntries(t *testing.T, orderId string) []models.LedgerEntry {
	t.Helper()
	entries, err := f.db.ListOrderEntries(context.Background(), orderId)
	if err != nil {
		t.Fatalf("ListOrderEntries failed: %v", err)
	}
	return entries
}

func simpleOrder(id, userId, total string) *models.Order {
	amount := decimal.RequireFromString(total)
	return &models.Order{
		Id:     id,
		UserId: userId,
		Total:  amount,
		Status: "processing",
		Items:  []models.LineItem{{ProductId: "sku-" + id, Quantity: 1, LineTotal: amount}},
	}
}
