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
	"context"
	"errors"
	"io/fs"
	"log"
	"strings"

	"loyalty-points-go/internal/api"
	"loyalty-points-go/internal/database"
	"loyalty-points-go/internal/metrics"
	"loyalty-points-go/internal/models"
	"loyalty-points-go/internal/notify"
	"loyalty-points-go/internal/points"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// init loads environment variables from .env file if it exists
func init() {
	// A missing .env is fine; variables may come from the shell or the container.
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
		log.Println("Make sure to set environment variables via export or other means")
	} else {
		log.Println("✓ Loaded environment variables from .env file")
	}
}

type Services struct {
	DbService *database.Service
	Ledger    *api.LedgerService
	Notifier  notify.Sink

	amqp *notify.AMQPSink
}

func InitializeLogger() (*zap.Logger, func()) {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

// InitializeServices opens the database, applies the program file when
// present and wires the ledger engines to the configured notifier.
func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	if err := applyProgramFile(ctx, dbService, cfg.ProgramFile); err != nil {
		dbService.Close()
		return nil, err
	}

	services := &Services{DbService: dbService}

	var sink notify.Sink = notify.NewLogSink()
	if cfg.Notify.AMQPURL != "" {
		zap.L().Info("Connecting notification publisher", zap.String("exchange", cfg.Notify.Exchange))
		amqpSink, err := notify.NewAMQPSink(cfg.Notify)
		if err != nil {
			dbService.Close()
			return nil, err
		}
		services.amqp = amqpSink
		sink = notify.MultiSink{sink, amqpSink}
	}
	services.Notifier = sink

	hooks := points.NewHooks()
	if cfg.Server.MetricsEnabled {
		metrics.Register(hooks)
	}

	services.Ledger = api.NewLedgerService(points.Deps{
		Store:    dbService,
		Notifier: sink,
		Hooks:    hooks,
	})

	return services, nil
}

// InitializeDatabaseOnly opens the database without the notifier or program
// file. Useful for read-only utilities.
func InitializeDatabaseOnly(ctx context.Context, cfg *models.Config) (*database.Service, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	return dbService, nil
}

func (cs *Services) Close() {
	if cs.amqp != nil {
		cs.amqp.Close()
	}
	if cs.DbService != nil {
		cs.DbService.Close()
	}
}

func applyProgramFile(ctx context.Context, dbService *database.Service, programFile string) error {
	if programFile == "" {
		return nil
	}
	program, err := LoadProgramConfig(programFile)
	if errors.Is(err, fs.ErrNotExist) {
		zap.L().Info("No program file found, using stored settings", zap.String("file", programFile))
		return nil
	}
	if err != nil {
		return err
	}
	return ApplyProgramConfig(ctx, dbService, program)
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
