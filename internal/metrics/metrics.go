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

	"loyalty-points-go/internal/points"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ledgerEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "points_ledger_events_total",
			Help: "Ledger events by type.",
		},
		[]string{"event"},
	)

	ledgerPointsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "points_ledger_points_total",
			Help: "Absolute points moved by event type.",
		},
		[]string{"event"},
	)

	expirySweepsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "points_expiry_sweeps_total",
			Help: "Expiry sweeps by outcome.",
		},
		[]string{"outcome"},
	)

	expirySweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "points_expiry_sweep_duration_seconds",
			Help:    "Duration of expiry sweeps.",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// Observe records one ledger event. It is a points.Observer.
func Observe(_ context.Context, e points.Event) {
	event := string(e.Type)
	ledgerEventsTotal.WithLabelValues(event).Inc()

	amount := e.Points
	if amount < 0 {
		amount = -amount
	}
	ledgerPointsTotal.WithLabelValues(event).Add(float64(amount))
}

// Register subscribes the ledger counters to h
func Register(h *points.Hooks) {
	h.Subscribe(Observe)
}

// SweepTimer starts timing an expiry sweep. Call the returned func with the
// sweep error when it finishes.
func SweepTimer() func(err error) {
	timer := prometheus.NewTimer(expirySweepDuration)
	return func(err error) {
		timer.ObserveDuration()
		outcome := "success"
		if err != nil {
			outcome = "error"
		}
		expirySweepsTotal.WithLabelValues(outcome).Inc()
	}
}
