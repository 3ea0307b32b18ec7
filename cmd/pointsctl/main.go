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
	"encoding/json"
	"fmt"
	"os"

	"loyalty-points-go/internal/common"
	"loyalty-points-go/internal/config"
	"loyalty-points-go/internal/models"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	services      *common.Services
	appConfig     *models.Config
	loggerCleanup func()
)

var rootCmd = &cobra.Command{
	Use:   "pointsctl",
	Short: "Operate the loyalty points ledger",
	Long: `pointsctl runs ledger operations against the configured database:
balances and history, redemptions, order events, admin adjustments and
expiry sweeps. Configuration comes from the environment or a .env file.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_, loggerCleanup = common.InitializeLogger()

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		appConfig = cfg
		services, err = common.InitializeServices(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize services: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if services != nil {
			services.Close()
		}
		if loggerCleanup != nil {
			loggerCleanup()
		}
	},
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		zap.L().Error("Command failed", zap.Error(err))
		os.Exit(1)
	}
}
