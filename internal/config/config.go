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

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"loyalty-points-go/internal/models"
)

func Load() (*models.Config, error) {
	var (
		connMaxLifetime, connMaxIdleTime, pingTimeout, busyTimeout time.Duration
		requestTimeout, shutdownTimeout, sweepInterval, tokenTTL   time.Duration
		err                                                        error
	)
	if connMaxLifetime, err = getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute); err != nil {
		return nil, err
	}
	if connMaxIdleTime, err = getEnvDuration("DB_CONN_MAX_IDLE_TIME", 30*time.Second); err != nil {
		return nil, err
	}
	if pingTimeout, err = getEnvDuration("DB_PING_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if busyTimeout, err = getEnvDuration("DB_BUSY_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if requestTimeout, err = getEnvDuration("HTTP_REQUEST_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}
	if shutdownTimeout, err = getEnvDuration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if sweepInterval, err = getEnvDuration("EXPIRY_SWEEP_INTERVAL", 24*time.Hour); err != nil {
		return nil, err
	}
	if tokenTTL, err = getEnvDuration("AUTH_TOKEN_TTL", time.Hour); err != nil {
		return nil, err
	}

	return &models.Config{
		Database: models.DatabaseConfig{
			Path:            getEnvString("DATABASE_PATH", "points.db"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: connMaxLifetime,
			ConnMaxIdleTime: connMaxIdleTime,
			PingTimeout:     pingTimeout,
			BusyTimeout:     busyTimeout,
		},
		Server: models.ServerConfig{
			ListenAddr:      getEnvString("HTTP_LISTEN_ADDR", ":8080"),
			RequestTimeout:  requestTimeout,
			ShutdownTimeout: shutdownTimeout,
			MetricsEnabled:  getEnvBool("METRICS_ENABLED", true),
			Auth: models.AuthConfig{
				JWTSecret:     getEnvString("AUTH_JWT_SECRET", ""),
				JWTIssuer:     getEnvString("AUTH_JWT_ISSUER", "loyalty-points"),
				TokenTTL:      tokenTTL,
				WebhookSecret: getEnvString("WEBHOOK_SECRET", ""),
			},
		},
		Expiry: models.ExpiryConfig{
			Enabled:       getEnvBool("EXPIRY_ENABLED", true),
			SweepInterval: sweepInterval,
		},
		Notify: models.NotifyConfig{
			AMQPURL:    getEnvString("AMQP_URL", ""),
			Exchange:   getEnvString("AMQP_EXCHANGE", "points.events"),
			RoutingKey: getEnvString("AMQP_ROUTING_KEY", "points"),
		},
		ProgramFile: getEnvString("POINTS_CONFIG_FILE", "points.yaml"),
	}, nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
