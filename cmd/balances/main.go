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

package main

import (
	"context"
	"flag"
	"fmt"

	"loyalty-points-go/internal/common"
	"loyalty-points-go/internal/config"
	"loyalty-points-go/internal/models"
	"loyalty-points-go/internal/points"
	"loyalty-points-go/internal/store"

	"go.uber.org/zap"
)

type balanceStats struct {
	totalUsers      int
	usersWithPoints int
	availableTotal  int64
	pendingTotal    int64
}

func printUserHeader(user common.UserInfo, summary *models.BalanceSummary) {
	fmt.Printf("\n┌─ User: %s (%s)\n", user.Name, user.Email)
	fmt.Printf("│  ID: %s  Role: %s\n", user.Id, user.Role)
	fmt.Printf("│  %s\n", common.FormatSummary(summary))
}

func printRecentEntries(entries []models.LedgerEntry) {
	for i, e := range entries {
		isLast := i == len(entries)-1
		fmt.Printf("%s %s  %-20s %8s  %s\n",
			common.BoxPrefix(isLast),
			e.CreatedAt.Format("2006-01-02 15:04:05"),
			e.ActionType,
			common.FormatPoints(e.PointsAmount),
			e.Status)
	}
}

func processUser(ctx context.Context, user common.UserInfo, db store.LedgerQueries, recent int) (*models.BalanceSummary, error) {
	summary, err := points.NewCalculator(db).Summary(ctx, user.Id)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance summary: %w", err)
	}
	if summary.EarnedToDate == 0 && summary.Pending == 0 {
		return summary, nil
	}

	entries, err := db.QueryByUser(ctx, user.Id, store.HistoryFilter{Limit: recent})
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger history: %w", err)
	}

	printUserHeader(user, summary)
	printRecentEntries(entries)
	return summary, nil
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	emailFlag := flag.String("email", "", "Filter by specific user email (optional)")
	recentFlag := flag.Int("recent", 5, "Number of recent ledger entries to show per user")
	flag.Parse()

	zap.L().Info("Starting balance query")

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	zap.L().Info("Connecting to database", zap.String("path", cfg.Database.Path))
	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	users, err := common.InitializeUsers(ctx, dbService, *emailFlag)
	if err != nil {
		zap.L().Fatal("Failed to initialize users", zap.Error(err))
	}

	common.PrintHeader("POINTS BALANCE REPORT", common.DefaultWidth)

	stats := balanceStats{}
	for _, user := range users {
		stats.totalUsers++
		summary, err := processUser(ctx, user, dbService, *recentFlag)
		if err != nil {
			zap.L().Error("Failed to process user",
				zap.String("user_id", user.Id),
				zap.String("user_name", user.Name),
				zap.Error(err))
			continue
		}
		if summary.EarnedToDate > 0 || summary.Pending > 0 {
			stats.usersWithPoints++
		}
		stats.availableTotal += summary.Available
		stats.pendingTotal += summary.Pending
	}

	footer := fmt.Sprintf("SUMMARY: %d of %d users hold points (%d available, %d pending)",
		stats.usersWithPoints, stats.totalUsers, stats.availableTotal, stats.pendingTotal)
	common.PrintFooter(footer, common.DefaultWidth)

	zap.L().Info("Balance query completed",
		zap.Int("users_queried", stats.totalUsers),
		zap.Int("users_with_points", stats.usersWithPoints))
}
