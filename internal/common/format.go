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
	"fmt"
	"strings"
	"time"

	"loyalty-points-go/internal/models"
)

const (
	DefaultWidth = 80
	WideWidth    = 100
)

// PrintSeparator prints a separator line with the specified character and width
func PrintSeparator(char string, width int) {
	fmt.Println(strings.Repeat(char, width))
}

// PrintHeader prints a title between two separator lines
func PrintHeader(title string, width int) {
	fmt.Println("\n" + strings.Repeat("=", width))
	fmt.Println(title)
	PrintSeparator("=", width)
}

// PrintFooter prints a message after a separator line
func PrintFooter(message string, width int) {
	fmt.Println("\n" + strings.Repeat("=", width))
	fmt.Println(message)
	fmt.Println(strings.Repeat("=", width) + "\n")
}

// BoxPrefix returns the box-drawing prefix for list items
func BoxPrefix(isLast bool) string {
	if isLast {
		return "└  "
	}
	return "│  "
}

// BoxDetailPrefix returns the prefix for detail lines under list items
func BoxDetailPrefix(isLast bool) string {
	if isLast {
		return "   "
	}
	return "│  "
}

// FormatPoints renders a signed amount with an explicit sign
func FormatPoints(points int64) string {
	if points > 0 {
		return fmt.Sprintf("+%d", points)
	}
	return fmt.Sprintf("%d", points)
}

// FormatSummary renders a balance summary as one line
func FormatSummary(s *models.BalanceSummary) string {
	return fmt.Sprintf("available %d | pending %d | earned %d | redeemed %d | expired %d",
		s.Available, s.Pending, s.EarnedToDate, s.RedeemedTotal, s.ExpiredTotal)
}

// FormatHistoryRecord renders one ledger row for terminal output
func FormatHistoryRecord(r models.HistoryRecord) string {
	line := fmt.Sprintf("%s  %-20s %8s  %-9s",
		r.CreatedAt.Format(time.DateTime), r.ActionType, FormatPoints(r.Points), r.Status)
	if r.OrderId != "" {
		line += "  order " + r.OrderId
	}
	if r.Description != "" {
		line += "  " + r.Description
	}
	return line
}
