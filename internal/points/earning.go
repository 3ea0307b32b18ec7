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
	"fmt"

	"loyalty-points-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var hundred = decimal.NewFromInt(100)

// GlobalLinePoints applies the program-wide earning rate to a line total.
func GlobalLinePoints(settings models.Settings, lineTotal decimal.Decimal) int64 {
	var points decimal.Decimal
	switch settings.CalculationMethod {
	case models.MethodPercentage:
		points = lineTotal.Mul(settings.PointsPercentage).Div(hundred)
	default:
		points = lineTotal.Mul(settings.PointsPerDollar)
	}
	if points.IsNegative() {
		return 0
	}
	return points.Floor().IntPart()
}

// OrderPoints sums the points earned by every line item. Products with
// their own configuration earn per unit times quantity; the rest fall back
// to the global rate on the line total.
func OrderPoints(ctx context.Context, products ProductPointsSource, settings models.Settings, order *models.Order) (int64, error) {
	var total int64
	for _, item := range order.Items {
		if item.Quantity <= 0 || !item.LineTotal.IsPositive() {
			continue
		}

		if products != nil && item.ProductId != "" {
			unitPrice := item.LineTotal.Div(decimal.NewFromInt(item.Quantity))
			perUnit, configured, err := products.ProductPoints(ctx, item.ProductId, unitPrice)
			if err != nil {
				return 0, fmt.Errorf("unable to resolve points for product %s: %w", item.ProductId, err)
			}
			if configured {
				total += perUnit * item.Quantity
				continue
			}
		}
		total += GlobalLinePoints(settings, item.LineTotal)
	}

	zap.L().Debug("Computed order points",
		zap.String("order_id", order.Id),
		zap.Int("items", len(order.Items)),
		zap.Int64("points", total))
	return total, nil
}
