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
	"encoding/json"
	"fmt"
	"os"

	"loyalty-points-go/internal/common"
	"loyalty-points-go/internal/models"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(orderCmd, seedCmd)
	orderCmd.AddCommand(orderImportCmd, orderPlacedCmd, orderCompletedCmd, orderRefundCmd)

	orderImportCmd.Flags().StringP("file", "f", "", "Path to the order JSON document (required)")
	_ = orderImportCmd.MarkFlagRequired("file")

	seedCmd.Flags().StringP("file", "f", "points.yaml", "Path to the program YAML file")
}

var orderCmd = &cobra.Command{
	Use:   "order",
	Short: "Record orders and replay order events",
}

var orderImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Store an order snapshot read from a JSON file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("file")
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("cannot read order file: %w", err)
		}
		var order models.Order
		if err := json.Unmarshal(data, &order); err != nil {
			return fmt.Errorf("cannot parse order file: %w", err)
		}
		if err := services.Ledger.RecordOrder(cmd.Context(), &order); err != nil {
			return err
		}
		fmt.Printf("✓ Order %s stored for user %s\n", order.Id, order.UserId)
		return nil
	},
}

func orderResult(event, orderId string, processed bool) error {
	if !processed {
		return fmt.Errorf("%s event for order %s was not processed, see logs", event, orderId)
	}
	fmt.Printf("✓ %s processed for order %s\n", event, orderId)
	return nil
}

var orderPlacedCmd = &cobra.Command{
	Use:   "placed ORDER_ID",
	Short: "Award pending points for a stored order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return orderResult("placed", args[0], services.Ledger.ProcessOrderPlaced(cmd.Context(), args[0]))
	},
}

var orderCompletedCmd = &cobra.Command{
	Use:   "completed ORDER_ID",
	Short: "Make an order's pending points spendable",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return orderResult("completed", args[0], services.Ledger.ProcessOrderCompleted(cmd.Context(), args[0]))
	},
}

var orderRefundCmd = &cobra.Command{
	Use:   "refund ORDER_ID REFUND_ID",
	Short: "Deduct points for one refund of an order",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return orderResult("refund", args[0], services.Ledger.ProcessRefund(cmd.Context(), args[0], args[1]))
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Apply a program YAML file (settings, expiry rules, products, users)",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("file")
		program, err := common.LoadProgramConfig(path)
		if err != nil {
			return err
		}
		if err := common.ApplyProgramConfig(cmd.Context(), services.DbService, program); err != nil {
			return err
		}
		fmt.Printf("✓ Applied %s: %d expiry rules, %d products, %d users\n",
			path, len(program.ExpiryRules), len(program.Products), len(program.Users))
		return nil
	},
}
