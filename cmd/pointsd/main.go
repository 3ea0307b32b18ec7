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
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"loyalty-points-go/internal/common"
	"loyalty-points-go/internal/config"
	"loyalty-points-go/internal/httpapi"
	"loyalty-points-go/internal/listener"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		_, _ = zap.NewProduction()
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	zap.L().Info("Starting loyalty points service")

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	var scheduler *listener.ExpiryScheduler
	if cfg.Expiry.Enabled {
		scheduler, err = listener.NewExpiryScheduler(services.Ledger, cfg.Expiry.SweepInterval)
		if err != nil {
			zap.L().Fatal("Failed to create expiry scheduler", zap.Error(err))
		}
		if err := scheduler.Start(ctx); err != nil {
			zap.L().Fatal("Failed to start expiry scheduler", zap.Error(err))
		}
	} else {
		zap.L().Info("Expiry scheduler disabled")
	}

	apiServer, err := httpapi.NewServer(services.Ledger, cfg.Server)
	if err != nil {
		zap.L().Fatal("Failed to create HTTP server", zap.Error(err))
	}
	server := &http.Server{
		Addr:    cfg.Server.ListenAddr,
		Handler: apiServer.Handler(),
	}

	serverErr := make(chan error, 1)
	go func() {
		zap.L().Info("HTTP server listening", zap.String("addr", cfg.Server.ListenAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		zap.L().Info("Shutdown signal received")
	case err := <-serverErr:
		zap.L().Error("HTTP server failed", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zap.L().Warn("Forced HTTP shutdown after timeout", zap.Error(err))
	}

	if scheduler != nil {
		done := make(chan struct{})
		go func() {
			scheduler.Stop()
			close(done)
		}()
		select {
		case <-done:
		case <-shutdownCtx.Done():
			zap.L().Warn("Expiry scheduler did not stop before timeout")
		}
	}

	zap.L().Info("Loyalty points service stopped")
}
