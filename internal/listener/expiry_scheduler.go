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

package listener

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"loyalty-points-go/internal/metrics"
	"loyalty-points-go/internal/models"

	"go.uber.org/zap"
)

// Sweeper runs one expiry pass. An empty userId means every user.
type Sweeper interface {
	RunExpirySweep(ctx context.Context, userId string) (*models.ExpirySweepResult, error)
}

// ExpiryScheduler runs the expiry sweep on a fixed interval until stopped
type ExpiryScheduler struct {
	sweeper  Sweeper
	interval time.Duration

	stopChan chan struct{}
	doneChan chan struct{}
	stopOnce sync.Once
	started  bool
	mu       sync.Mutex
}

func NewExpiryScheduler(sweeper Sweeper, interval time.Duration) (*ExpiryScheduler, error) {
	if sweeper == nil {
		return nil, errors.New("sweeper is required")
	}
	if interval <= 0 {
		return nil, fmt.Errorf("sweep interval must be positive, got %s", interval)
	}
	return &ExpiryScheduler{
		sweeper:  sweeper,
		interval: interval,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}, nil
}

// Start runs a sweep immediately and then one per interval
func (s *ExpiryScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return errors.New("expiry scheduler already started")
	}
	s.started = true

	go s.sweepLoop(ctx)

	zap.L().Info("Expiry scheduler started", zap.Duration("sweep_interval", s.interval))
	return nil
}

// Stop waits for an in-flight sweep to finish. Safe to call more than once.
func (s *ExpiryScheduler) Stop() {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()

	s.stopOnce.Do(func() {
		zap.L().Info("Stopping expiry scheduler")
		close(s.stopChan)
	})
	if started {
		<-s.doneChan
	}
	zap.L().Info("Expiry scheduler stopped")
}

func (s *ExpiryScheduler) sweepLoop(ctx context.Context) {
	defer close(s.doneChan)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweep(ctx)

	for {
		select {
		case <-ticker.C:
			s.sweep(ctx)
		case <-s.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *ExpiryScheduler) sweep(ctx context.Context) {
	done := metrics.SweepTimer()
	result, err := s.sweeper.RunExpirySweep(ctx, "")
	done(err)

	if err != nil {
		zap.L().Error("Scheduled expiry sweep failed", zap.Error(err))
		return
	}
	if result.Failed > 0 {
		zap.L().Warn("Scheduled expiry sweep completed with failures",
			zap.Int("users", result.UsersProcessed),
			zap.Int("failed", result.Failed))
		return
	}
	zap.L().Debug("Scheduled expiry sweep completed",
		zap.Int("users", result.UsersProcessed),
		zap.Int("expired", result.Expired),
		zap.Int("warned", result.Warned))
}
