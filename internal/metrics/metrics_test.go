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

package metrics

import (
	"context"
	"errors"
	"testing"

	"loyalty-points-go/internal/points"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterCountsEvents(t *testing.T) {
	hooks := points.NewHooks()
	Register(hooks)

	events := ledgerEventsTotal.WithLabelValues(string(points.EventPointsRedeemed))
	moved := ledgerPointsTotal.WithLabelValues(string(points.EventPointsRedeemed))
	beforeEvents := testutil.ToFloat64(events)
	beforeMoved := testutil.ToFloat64(moved)

	ctx := context.Background()
	hooks.Emit(ctx, points.Event{Type: points.EventPointsRedeemed, UserId: "user1", Points: -40})
	hooks.Emit(ctx, points.Event{Type: points.EventPointsRedeemed, UserId: "user1", Points: -10})

	if got := testutil.ToFloat64(events) - beforeEvents; got != 2 {
		t.Errorf("Expected 2 redeemed events, got %v", got)
	}
	if got := testutil.ToFloat64(moved) - beforeMoved; got != 50 {
		t.Errorf("Expected 50 redeemed points, got %v", got)
	}
}

func TestSweepTimer(t *testing.T) {
	success := expirySweepsTotal.WithLabelValues("success")
	failure := expirySweepsTotal.WithLabelValues("error")
	beforeSuccess := testutil.ToFloat64(success)
	beforeFailure := testutil.ToFloat64(failure)

	SweepTimer()(nil)
	SweepTimer()(errors.New("database is locked"))

	if got := testutil.ToFloat64(success) - beforeSuccess; got != 1 {
		t.Errorf("Expected 1 successful sweep, got %v", got)
	}
	if got := testutil.ToFloat64(failure) - beforeFailure; got != 1 {
		t.Errorf("Expected 1 failed sweep, got %v", got)
	}
}
