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
	"fmt"
	"strconv"

	"loyalty-points-go/internal/common"
	"loyalty-points-go/internal/models"
	"loyalty-points-go/internal/points"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(balanceCmd, historyCmd, redeemCmd, cancelCmd, adjustCmd, sweepCmd)

	historyCmd.Flags().Int("page", 1, "Page number, starting at 1")
	historyCmd.Flags().Int("page-size", 20, "Records per page")

	redeemCmd.Flags().String("order", "", "Order the discount applies to")
	redeemCmd.Flags().String("rate", "", "Conversion rate override (default: configured rate)")
	redeemCmd.Flags().String("currency", "", "Currency override (default: configured currency)")

	adjustCmd.Flags().Int64("points", 0, "Points to assign or deduct (ignored by reset)")
	adjustCmd.Flags().String("reason", "", "Reason recorded in the audit log")
	adjustCmd.Flags().String("admin", "", "Id of the administrator making the change (required)")
	_ = adjustCmd.MarkFlagRequired("admin")

	sweepCmd.Flags().String("user", "", "Only sweep this user")
}

var balanceCmd = &cobra.Command{
	Use:   "balance USER_ID",
	Short: "Show a user's balance summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		summary, err := services.Ledger.GetBalanceSummary(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Println(common.FormatSummary(summary))
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history USER_ID",
	Short: "List a user's ledger entries, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		page, _ := cmd.Flags().GetInt("page")
		pageSize, _ := cmd.Flags().GetInt("page-size")

		history, err := services.Ledger.GetHistory(cmd.Context(), args[0], page, pageSize)
		if err != nil {
			return err
		}

		common.PrintHeader(fmt.Sprintf("HISTORY %s (page %d, %d total)", history.UserId, history.Page, history.Total), common.WideWidth)
		for _, r := range history.Records {
			fmt.Println(common.FormatHistoryRecord(r))
		}
		common.PrintSeparator("=", common.WideWidth)
		return nil
	},
}

var redeemCmd = &cobra.Command{
	Use:   "redeem USER_ID POINTS",
	Short: "Redeem points for a discount",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		pts, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid points %q: %w", args[1], err)
		}
		orderId, _ := cmd.Flags().GetString("order")
		currency, _ := cmd.Flags().GetString("currency")

		rate := decimal.Zero
		if raw, _ := cmd.Flags().GetString("rate"); raw != "" {
			if rate, err = decimal.NewFromString(raw); err != nil {
				return fmt.Errorf("invalid rate %q: %w", raw, err)
			}
		}

		result, err := services.Ledger.Redeem(cmd.Context(), args[0], pts, orderId, rate, currency)
		if err != nil {
			return err
		}
		if err := printJSON(result); err != nil {
			return err
		}
		if !result.Success {
			return fmt.Errorf("redemption rejected: %s", result.Code)
		}
		return nil
	},
}

var cancelCmd = &cobra.Command{
	Use:   "cancel REDEMPTION_ID",
	Short: "Cancel a redemption and restore its points",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := services.Ledger.CancelRedemption(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if err := printJSON(result); err != nil {
			return err
		}
		if !result.Success {
			return fmt.Errorf("cancel rejected: %s", result.Code)
		}
		return nil
	},
}

var adjustCmd = &cobra.Command{
	Use:       "adjust assign|deduct|reset USER_ID",
	Short:     "Apply an administrative balance adjustment",
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{"assign", "deduct", "reset"},
	RunE: func(cmd *cobra.Command, args []string) error {
		pts, _ := cmd.Flags().GetInt64("points")
		reason, _ := cmd.Flags().GetString("reason")
		adminId, _ := cmd.Flags().GetString("admin")

		req := points.AdjustmentRequest{
			UserId:    args[1],
			Points:    pts,
			Reason:    reason,
			AdminId:   adminId,
			IpAddress: "cli",
		}

		var (
			result *models.AdjustmentResult
			err    error
		)
		switch args[0] {
		case "assign":
			result, err = services.Ledger.AdminAssign(cmd.Context(), req)
		case "deduct":
			result, err = services.Ledger.AdminDeduct(cmd.Context(), req)
		case "reset":
			result, err = services.Ledger.AdminReset(cmd.Context(), req)
		default:
			return fmt.Errorf("unknown adjustment %q", args[0])
		}
		if err != nil {
			return err
		}
		if err := printJSON(result); err != nil {
			return err
		}
		if !result.Success {
			return fmt.Errorf("adjustment rejected: %s", result.Code)
		}
		return nil
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Expire aged points and send grace warnings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		userId, _ := cmd.Flags().GetString("user")
		result, err := services.Ledger.RunExpirySweep(cmd.Context(), userId)
		if err != nil {
			return err
		}
		return printJSON(result)
	},
}
