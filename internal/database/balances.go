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
	"fmt"

	"loyalty-points-go/internal/store"

	"go.uber.org/zap"
)

var aggregateQueries = map[store.Aggregate]string{
	store.AggregateAvailable:    querySumAvailable,
	store.AggregatePending:      querySumPending,
	store.AggregateEarnedToDate: querySumEarnedToDate,
	store.AggregateExpired:      querySumExpired,
	store.AggregateRedeemed:     querySumRedeemed,
}

// SumPoints evaluates one derived aggregate over the user's ledger rows.
// An empty ledger sums to zero.
func (q *queries) SumPoints(ctx context.Context, userId string, agg store.Aggregate) (int64, error) {
	query, ok := aggregateQueries[agg]
	if !ok {
		return 0, fmt.Errorf("%w: unknown aggregate %s", store.ErrValidation, agg)
	}

	var total int64
	if err := q.db.QueryRowContext(ctx, query, userId).Scan(&total); err != nil {
		zap.L().Error("Failed to sum points",
			zap.String("user_id", userId),
			zap.String("aggregate", agg.String()),
			zap.Error(err))
		return 0, fmt.Errorf("%w: failed to sum %s points: %v", store.ErrSystem, agg, err)
	}

	zap.L().Debug("Summed points",
		zap.String("user_id", userId),
		zap.String("aggregate", agg.String()),
		zap.Int64("total", total))
	return total, nil
}
